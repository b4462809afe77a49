package models

// Offering is one IPO row as served by the upstream GMP source. Fields are kept in their
// raw, decorated string form; derived views never write back into it.
type Offering struct {
	// Title may carry HTML entities plus an "Open"/"Close" status token and a
	// "(Sub:12.5x)" subscription annotation.
	Title            string  `json:"ipo"`
	Price            string  `json:"price"`
	Premium          string  `json:"gmp"`
	EstimatedListing string  `json:"est_listing"`
	IssueSize        string  `json:"ipo_size"`
	LotSize          string  `json:"lot"`
	OpenDate         *string `json:"open"`
	CloseDate        *string `json:"close"`
	AllotmentDate    *string `json:"boa_dt"`
	ListingDate      *string `json:"listing"`
	LastUpdated      string  `json:"gmp_updated"`
	HighlightTag     *string `json:"classname"`
}

// IPOStatus is the subscription window status embedded in an offering title
type IPOStatus string

const (
	IPOStatusOpen    IPOStatus = "Open"
	IPOStatusClosed  IPOStatus = "Closed"
	IPOStatusUnknown IPOStatus = "Unknown"
)

// TitleParts is the structured form of a decorated offering title
type TitleParts struct {
	BaseName             string    `json:"base_name"`
	Status               IPOStatus `json:"status"`
	SubscriptionMultiple *float64  `json:"subscription_multiple,omitempty"`
}

// DisplayOffering is the display-ready rendering of an Offering
type DisplayOffering struct {
	Name             string    `json:"name"`
	Status           IPOStatus `json:"status"`
	Subscription     string    `json:"subscription,omitempty"`
	SubscriptionTier string    `json:"subscription_tier,omitempty"`
	Price            string    `json:"price"`
	Premium          string    `json:"gmp"`
	PremiumPositive  bool      `json:"gmp_positive"`
	EstimatedListing string    `json:"est_listing"`
	IssueSize        string    `json:"ipo_size"`
	LotSize          string    `json:"lot"`
	OpenDate         string    `json:"open"`
	CloseDate        string    `json:"close"`
	AllotmentDate    string    `json:"boa_dt"`
	ListingDate      string    `json:"listing"`
	LastUpdated      string    `json:"gmp_updated"`
	HighlightTag     string    `json:"classname,omitempty"`
	Raw              Offering  `json:"raw"`
}
