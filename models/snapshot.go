package models

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is the complete record set from one upstream fetch. It is replaced wholesale
// on refresh and never merged with an earlier snapshot.
type Snapshot struct {
	ID        uuid.UUID  `json:"id"`
	FetchedAt time.Time  `json:"fetched_at"`
	Source    string     `json:"source"`
	Offerings []Offering `json:"offerings"`
}

// NewSnapshot stamps a fresh snapshot id over offerings
func NewSnapshot(source string, fetchedAt time.Time, offerings []Offering) *Snapshot {
	return &Snapshot{
		ID:        uuid.New(),
		FetchedAt: fetchedAt,
		Source:    source,
		Offerings: offerings,
	}
}

// IsStale reports whether the snapshot is older than ttl at now
func (s *Snapshot) IsStale(now time.Time, ttl time.Duration) bool {
	return !now.Before(s.FetchedAt.Add(ttl))
}

// SnapshotInfo is snapshot metadata without the records
type SnapshotInfo struct {
	ID          uuid.UUID `json:"id"`
	FetchedAt   time.Time `json:"fetched_at"`
	Source      string    `json:"source"`
	RecordCount int       `json:"record_count"`
}

// Info returns metadata describing s
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:          s.ID,
		FetchedAt:   s.FetchedAt,
		Source:      s.Source,
		RecordCount: len(s.Offerings),
	}
}
