package services

import (
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
)

// StatsAggregator computes summary metrics over a full snapshot
type StatsAggregator struct {
	utility *UtilityService
	dates   *DateNormalizer
}

// NewStatsAggregator creates a stats aggregator
func NewStatsAggregator(utility *UtilityService, dates *DateNormalizer) *StatsAggregator {
	return &StatsAggregator{
		utility: utility,
		dates:   dates,
	}
}

// Compute derives active and upcoming counts and the average premium at now.
//
// An offering is active when both its dates parse and open <= now <= close, and upcoming
// when open > now. The average skips placeholder premiums entirely; a premium that is
// present but unparsable counts as zero. AveragePremium is nil when nothing qualifies.
func (a *StatsAggregator) Compute(records []models.Offering, now time.Time) models.DerivedStats {
	var stats models.DerivedStats
	var premiumSum float64
	premiumCount := 0

	for i := range records {
		record := &records[i]

		openDate := a.dates.Parse(record.OpenDate, now)
		closeDate := a.dates.Parse(record.CloseDate, now)

		if openDate != nil && closeDate != nil && !now.Before(*openDate) && !now.After(*closeDate) {
			stats.ActiveCount++
		}
		if openDate != nil && openDate.After(now) {
			stats.UpcomingCount++
		}

		if !a.utility.IsPlaceholder(record.Premium) {
			premiumSum += a.utility.ExtractNumeric(record.Premium)
			premiumCount++
		}
	}

	if premiumCount > 0 {
		average := premiumSum / float64(premiumCount)
		stats.AveragePremium = &average
	}
	return stats
}
