package services

import (
	"context"
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/sirupsen/logrus"
)

// Defaults applied when a view query leaves sorting unspecified
const (
	DefaultSortColumn    = SortColumnOpenDate
	DefaultSortDirection = SortDescending
)

// SnapshotSource supplies snapshots to the dashboard
type SnapshotSource interface {
	Current(ctx context.Context) (*models.Snapshot, error)
	Refresh(ctx context.Context) (*models.Snapshot, error)
}

// DashboardService composes the pipeline: filter and sort the snapshot, format the rows,
// and compute stats over the unfiltered snapshot. Nothing is cached between calls.
type DashboardService struct {
	source    SnapshotSource
	Utility   *UtilityService
	Dates     *DateNormalizer
	Formatter *RecordFormatter
	Filter    *FilterEngine
	Sorter    *SortEngine
	Stats     *StatsAggregator
	logger    *logrus.Entry
	now       func() time.Time
}

// NewDashboardService wires the pipeline stages over source
func NewDashboardService(source SnapshotSource) *DashboardService {
	utility := NewUtilityService()
	dates := NewDateNormalizer()

	return &DashboardService{
		source:    source,
		Utility:   utility,
		Dates:     dates,
		Formatter: NewRecordFormatter(utility, dates),
		Filter:    NewFilterEngine(utility),
		Sorter:    NewSortEngine(utility, dates),
		Stats:     NewStatsAggregator(utility, dates),
		logger:    logrus.WithField("component", "DashboardService"),
		now:       time.Now,
	}
}

// BuildView validates query, then derives the view from the current snapshot.
// Sort input is validated before any upstream call is made.
func (s *DashboardService) BuildView(ctx context.Context, query models.ViewQuery) (*models.DashboardView, error) {
	column, direction, err := resolveSort(query)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.source.Current(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	filtered := s.Filter.Filter(snapshot.Offerings, query.Search)
	sorted, err := s.Sorter.Sort(filtered, column, direction, now)
	if err != nil {
		return nil, err
	}

	rows := make([]models.DisplayOffering, 0, len(sorted))
	for _, offering := range sorted {
		rows = append(rows, s.Formatter.FormatOffering(offering, now))
	}

	stats := s.Stats.Compute(snapshot.Offerings, now)

	s.logger.WithFields(logrus.Fields{
		"snapshot_id": snapshot.ID,
		"search":      query.Search,
		"sort_by":     column,
		"order":       direction,
		"matched":     len(sorted),
		"total":       len(snapshot.Offerings),
	}).Debug("Built dashboard view")

	return &models.DashboardView{
		Snapshot: snapshot.Info(),
		Query: models.ViewQuery{
			Search: query.Search,
			SortBy: string(column),
			Order:  string(direction),
		},
		Offerings:    rows,
		TotalCount:   len(snapshot.Offerings),
		MatchedCount: len(sorted),
		Stats:        s.Formatter.FormatStats(stats),
		RawStats:     stats,
	}, nil
}

// CurrentStats returns the stats of the current snapshot along with its metadata
func (s *DashboardService) CurrentStats(ctx context.Context) (models.SnapshotInfo, models.DerivedStats, error) {
	snapshot, err := s.source.Current(ctx)
	if err != nil {
		return models.SnapshotInfo{}, models.DerivedStats{}, err
	}
	return snapshot.Info(), s.Stats.Compute(snapshot.Offerings, s.now()), nil
}

// Refresh forces a new snapshot and returns its metadata and recomputed stats
func (s *DashboardService) Refresh(ctx context.Context) (models.SnapshotInfo, models.DerivedStats, error) {
	snapshot, err := s.source.Refresh(ctx)
	if err != nil {
		return models.SnapshotInfo{}, models.DerivedStats{}, err
	}
	return snapshot.Info(), s.Stats.Compute(snapshot.Offerings, s.now()), nil
}

func resolveSort(query models.ViewQuery) (SortColumn, SortDirection, error) {
	column, direction := DefaultSortColumn, DefaultSortDirection

	if query.SortBy != "" {
		parsed, err := ParseSortColumn(query.SortBy)
		if err != nil {
			return "", "", err
		}
		column = parsed
	}
	if query.Order != "" {
		parsed, err := ParseSortDirection(query.Order)
		if err != nil {
			return "", "", err
		}
		direction = parsed
	}
	return column, direction, nil
}
