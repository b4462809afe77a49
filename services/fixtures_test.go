package services

import (
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
)

// referenceTime is mid-2025 in IST; year-less dates resolve into 2025
var referenceTime = time.Date(2025, time.June, 15, 12, 0, 0, 0, IST)

func strPtr(s string) *string {
	return &s
}

func titles(records []models.Offering) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

func sampleOfferings() []models.Offering {
	return []models.Offering{
		{
			Title:            "Alpha Tech Open (Sub:12.5x)",
			Price:            "₹100",
			Premium:          "25",
			EstimatedListing: "₹125 (25%)",
			IssueSize:        "1,200.50 Cr",
			LotSize:          "150",
			OpenDate:         strPtr("10-Jun"),
			CloseDate:        strPtr("20-Jun"),
			AllotmentDate:    strPtr("23-Jun"),
			ListingDate:      strPtr("26-Jun"),
			LastUpdated:      "15-Jun 10:30",
		},
		{
			Title:            "Beta &amp; Sons Close",
			Price:            "₹50",
			Premium:          "-",
			EstimatedListing: "-",
			IssueSize:        "45 Cr",
			LotSize:          "300",
			OpenDate:         strPtr("01-Jun"),
			CloseDate:        strPtr("05-Jun"),
			LastUpdated:      "05-Jun 18:00",
		},
		{
			Title:            "Gamma Infra",
			Price:            "₹300",
			Premium:          "-10",
			EstimatedListing: "₹290",
			IssueSize:        "-",
			LotSize:          "50",
			OpenDate:         strPtr("01-Jul"),
			CloseDate:        strPtr("04-Jul"),
			LastUpdated:      "14-Jun 09:00",
			HighlightTag:     strPtr("upcoming"),
		},
	}
}
