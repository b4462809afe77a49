package models

// DerivedStats is recomputed in full from a snapshot on every request
type DerivedStats struct {
	ActiveCount   int `json:"active_count"`
	UpcomingCount int `json:"upcoming_count"`
	// AveragePremium is nil when no offering carries a non-placeholder premium.
	AveragePremium *float64 `json:"average_premium"`
}

// DisplayStats is DerivedStats rendered for display
type DisplayStats struct {
	ActiveCount    int    `json:"active_count"`
	UpcomingCount  int    `json:"upcoming_count"`
	AveragePremium string `json:"average_premium"`
}
