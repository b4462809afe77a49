package services

import (
	"testing"
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator() *StatsAggregator {
	return NewStatsAggregator(NewUtilityService(), NewDateNormalizer())
}

func TestComputeAveragePremiumSkipsPlaceholders(t *testing.T) {
	aggregator := newTestAggregator()
	records := []models.Offering{
		{Premium: "10"},
		{Premium: "-"},
		{Premium: "30"},
	}

	stats := aggregator.Compute(records, referenceTime)
	require.NotNil(t, stats.AveragePremium)
	assert.InDelta(t, 20.0, *stats.AveragePremium, 1e-9)
}

func TestComputeAveragePremiumCountsUnparsableAsZero(t *testing.T) {
	aggregator := newTestAggregator()
	records := []models.Offering{
		{Premium: "30"},
		{Premium: "N/A"},
	}

	stats := aggregator.Compute(records, referenceTime)
	require.NotNil(t, stats.AveragePremium)
	assert.InDelta(t, 15.0, *stats.AveragePremium, 1e-9)
}

func TestComputeAveragePremiumUndefined(t *testing.T) {
	aggregator := newTestAggregator()

	assert.Nil(t, aggregator.Compute(nil, referenceTime).AveragePremium)
	assert.Nil(t, aggregator.Compute([]models.Offering{{Premium: "-"}, {Premium: "--"}}, referenceTime).AveragePremium)

	display := newTestFormatter().FormatStats(aggregator.Compute(nil, referenceTime))
	assert.Equal(t, "-", display.AveragePremium)
}

func TestComputeActiveAndUpcoming(t *testing.T) {
	aggregator := newTestAggregator()
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, IST)

	records := []models.Offering{
		{Title: "active", OpenDate: strPtr("10-Jun"), CloseDate: strPtr("20-Jun"), Premium: "-"},
		{Title: "upcoming", OpenDate: strPtr("01-Jul"), CloseDate: strPtr("04-Jul"), Premium: "-"},
		{Title: "closed", OpenDate: strPtr("01-Jun"), CloseDate: strPtr("05-Jun"), Premium: "-"},
		{Title: "no close date", OpenDate: strPtr("10-Jun"), CloseDate: nil, Premium: "-"},
		{Title: "unparsable open", OpenDate: strPtr("TBA"), CloseDate: strPtr("20-Jun"), Premium: "-"},
	}

	stats := aggregator.Compute(records, now)
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 1, stats.UpcomingCount)
	assert.Nil(t, stats.AveragePremium)
}

func TestComputeActiveBoundsAreInclusive(t *testing.T) {
	aggregator := newTestAggregator()
	records := []models.Offering{
		{OpenDate: strPtr("15-Jun 12:00"), CloseDate: strPtr("15-Jun 12:00"), Premium: "-"},
	}

	stats := aggregator.Compute(records, time.Date(2025, time.June, 15, 12, 0, 0, 0, IST))
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 0, stats.UpcomingCount)
}

func TestComputeStatsProperties(t *testing.T) {
	aggregator := newTestAggregator()
	properties := gopter.NewProperties(nil)

	premiums := []string{"-", "10", "30", "-5", "--", "abc", "0"}

	properties.Property("The average is defined exactly when some premium is not a placeholder", prop.ForAll(
		func(indexes []int) bool {
			records := make([]models.Offering, len(indexes))
			hasValue := false
			for i, idx := range indexes {
				records[i] = models.Offering{Premium: premiums[idx]}
				if premiums[idx] != "-" && premiums[idx] != "--" {
					hasValue = true
				}
			}

			stats := aggregator.Compute(records, referenceTime)
			if !hasValue {
				return stats.AveragePremium == nil
			}
			return stats.AveragePremium != nil && *stats.AveragePremium >= -5 && *stats.AveragePremium <= 30
		},
		gen.SliceOf(gen.IntRange(0, len(premiums)-1)),
	))

	properties.Property("Active and upcoming offerings never overlap", prop.ForAll(
		func(openDay, closeSpan, nowDay int) bool {
			open := time.Date(2025, time.June, openDay, 10, 0, 0, 0, IST).Format("02-Jan")
			closeDate := time.Date(2025, time.June, openDay+closeSpan, 17, 0, 0, 0, IST).Format("02-Jan")
			now := time.Date(2025, time.June, nowDay, 12, 0, 0, 0, IST)

			stats := aggregator.Compute([]models.Offering{{OpenDate: &open, CloseDate: &closeDate}}, now)
			return stats.ActiveCount+stats.UpcomingCount <= 1
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 5),
		gen.IntRange(1, 28),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
