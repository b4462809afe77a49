package services

import (
	"strings"

	"github.com/fenilmodi00/gmp-tracker/models"
)

// FilterEngine narrows a record set by name
type FilterEngine struct {
	utility *UtilityService
}

// NewFilterEngine creates a filter engine
func NewFilterEngine(utility *UtilityService) *FilterEngine {
	return &FilterEngine{utility: utility}
}

// Filter keeps the records whose decoded title contains term, ignoring case. An empty or
// whitespace-only term matches everything. The result is always a new slice in input order.
func (e *FilterEngine) Filter(records []models.Offering, term string) []models.Offering {
	if strings.TrimSpace(term) == "" {
		all := make([]models.Offering, len(records))
		copy(all, records)
		return all
	}

	needle := strings.ToLower(term)
	matched := make([]models.Offering, 0, len(records))
	for _, record := range records {
		title := strings.ToLower(e.utility.DecodeEntities(record.Title))
		if strings.Contains(title, needle) {
			matched = append(matched, record)
		}
	}
	return matched
}
