package services

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/fenilmodi00/gmp-tracker/shared"
)

// SortColumn identifies a sortable offering column by its upstream JSON key
type SortColumn string

const (
	SortColumnTitle            SortColumn = "ipo"
	SortColumnPrice            SortColumn = "price"
	SortColumnPremium          SortColumn = "gmp"
	SortColumnEstimatedListing SortColumn = "est_listing"
	SortColumnIssueSize        SortColumn = "ipo_size"
	SortColumnLotSize          SortColumn = "lot"
	SortColumnOpenDate         SortColumn = "open"
	SortColumnCloseDate        SortColumn = "close"
	SortColumnAllotmentDate    SortColumn = "boa_dt"
	SortColumnListingDate      SortColumn = "listing"
	SortColumnLastUpdated      SortColumn = "gmp_updated"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// offeringComparator orders two offerings ascending; ref resolves year-less dates
type offeringComparator func(a, b *models.Offering, ref time.Time) int

// SortEngine produces total, stable orderings of offerings by column
type SortEngine struct {
	utility     *UtilityService
	dates       *DateNormalizer
	comparators map[SortColumn]offeringComparator
}

// NewSortEngine creates a sort engine with one comparator per known column
func NewSortEngine(utility *UtilityService, dates *DateNormalizer) *SortEngine {
	e := &SortEngine{
		utility: utility,
		dates:   dates,
	}

	e.comparators = map[SortColumn]offeringComparator{
		SortColumnTitle:            compareRaw(func(o *models.Offering) string { return o.Title }),
		SortColumnEstimatedListing: compareRaw(func(o *models.Offering) string { return o.EstimatedListing }),
		SortColumnPrice:            e.compareNumeric(func(o *models.Offering) string { return o.Price }),
		SortColumnIssueSize:        e.compareNumeric(func(o *models.Offering) string { return o.IssueSize }),
		SortColumnLotSize:          e.compareNumeric(func(o *models.Offering) string { return o.LotSize }),
		SortColumnPremium:          e.comparePremium,
		SortColumnOpenDate:         e.compareDate(func(o *models.Offering) *string { return o.OpenDate }),
		SortColumnCloseDate:        e.compareDate(func(o *models.Offering) *string { return o.CloseDate }),
		SortColumnAllotmentDate:    e.compareDate(func(o *models.Offering) *string { return o.AllotmentDate }),
		SortColumnListingDate:      e.compareDate(func(o *models.Offering) *string { return o.ListingDate }),
		SortColumnLastUpdated:      e.compareDate(func(o *models.Offering) *string { return &o.LastUpdated }),
	}
	return e
}

// ParseSortColumn validates a column key from user input
func ParseSortColumn(value string) (SortColumn, error) {
	column := SortColumn(strings.TrimSpace(value))
	switch column {
	case SortColumnTitle, SortColumnPrice, SortColumnPremium, SortColumnEstimatedListing,
		SortColumnIssueSize, SortColumnLotSize, SortColumnOpenDate, SortColumnCloseDate,
		SortColumnAllotmentDate, SortColumnListingDate, SortColumnLastUpdated:
		return column, nil
	}
	return "", unknownSortColumnError(value)
}

// ParseSortDirection accepts "asc" or "desc" in any case
func ParseSortDirection(value string) (SortDirection, error) {
	switch direction := SortDirection(strings.ToLower(strings.TrimSpace(value))); direction {
	case SortAscending, SortDescending:
		return direction, nil
	}
	return "", shared.NewServiceError(shared.ErrorCategoryValidation, shared.CodeUnknownSortDirection,
		shared.ErrUnknownSortDirection.Message, "Sort_Engine", "ParseSortDirection", false, nil).
		WithDetails(map[string]string{"direction": value})
}

// Sort returns a sorted copy of records. Ties keep their input order in both directions.
// Null or unparsable dates sort last when ascending and first when descending.
func (e *SortEngine) Sort(records []models.Offering, column SortColumn, direction SortDirection, ref time.Time) ([]models.Offering, error) {
	compare, ok := e.comparators[column]
	if !ok {
		return nil, unknownSortColumnError(string(column))
	}

	sign := 1
	switch direction {
	case SortAscending:
	case SortDescending:
		sign = -1
	default:
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, shared.CodeUnknownSortDirection,
			shared.ErrUnknownSortDirection.Message, "Sort_Engine", "Sort", false, nil).
			WithDetails(map[string]string{"direction": string(direction)})
	}

	sorted := make([]models.Offering, len(records))
	copy(sorted, records)

	slices.SortStableFunc(sorted, func(a, b models.Offering) int {
		return sign * compare(&a, &b, ref)
	})
	return sorted, nil
}

func compareRaw(field func(*models.Offering) string) offeringComparator {
	return func(a, b *models.Offering, _ time.Time) int {
		return strings.Compare(field(a), field(b))
	}
}

func (e *SortEngine) compareNumeric(field func(*models.Offering) string) offeringComparator {
	return func(a, b *models.Offering, _ time.Time) int {
		return cmp.Compare(e.utility.ExtractNumeric(field(a)), e.utility.ExtractNumeric(field(b)))
	}
}

// comparePremium maps the placeholder to zero before comparing
func (e *SortEngine) comparePremium(a, b *models.Offering, _ time.Time) int {
	return cmp.Compare(e.premiumValue(a.Premium), e.premiumValue(b.Premium))
}

func (e *SortEngine) premiumValue(raw string) float64 {
	if e.utility.IsPlaceholder(raw) {
		return 0
	}
	return e.utility.ExtractNumeric(raw)
}

func (e *SortEngine) compareDate(field func(*models.Offering) *string) offeringComparator {
	return func(a, b *models.Offering, ref time.Time) int {
		aDate := e.dates.Parse(field(a), ref)
		bDate := e.dates.Parse(field(b), ref)

		switch {
		case aDate == nil && bDate == nil:
			return 0
		case aDate == nil:
			return 1
		case bDate == nil:
			return -1
		}
		return aDate.Compare(*bDate)
	}
}

func unknownSortColumnError(column string) error {
	return shared.NewServiceError(shared.ErrorCategoryValidation, shared.CodeUnknownSortColumn,
		shared.ErrUnknownSortColumn.Message, "Sort_Engine", "Sort", false, nil).
		WithDetails(map[string]string{"column": column})
}
