package models

// ViewQuery holds the user-driven inputs of a dashboard view
type ViewQuery struct {
	Search string `json:"search"`
	SortBy string `json:"sort_by"`
	Order  string `json:"order"`
}

// DashboardView is the filtered, sorted, formatted record set plus stats over the full snapshot
type DashboardView struct {
	Snapshot     SnapshotInfo      `json:"snapshot"`
	Query        ViewQuery         `json:"query"`
	Offerings    []DisplayOffering `json:"offerings"`
	TotalCount   int               `json:"total_count"`
	MatchedCount int               `json:"matched_count"`
	Stats        DisplayStats      `json:"stats"`
	RawStats     DerivedStats      `json:"raw_stats"`
}
