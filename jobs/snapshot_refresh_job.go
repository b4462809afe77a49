package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/fenilmodi00/gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

// SnapshotRefresher is the part of the gateway the job drives
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (*models.Snapshot, error)
	IsStale() bool
}

// SnapshotRefreshJob refreshes the cached GMP snapshot whenever it goes stale, so API
// requests rarely pay for an upstream fetch
type SnapshotRefreshJob struct {
	gateway SnapshotRefresher
	timeout time.Duration
	logger  *logrus.Entry

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSnapshotRefreshJob creates a job whose individual refreshes are bounded by timeout
func NewSnapshotRefreshJob(gateway SnapshotRefresher, timeout time.Duration) *SnapshotRefreshJob {
	return &SnapshotRefreshJob{
		gateway: gateway,
		timeout: timeout,
		logger:  logrus.WithField("component", "SnapshotRefreshJob"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run refreshes the snapshot if it is stale. A refresh already in flight elsewhere is
// not an error; the job just skips this tick.
func (j *SnapshotRefreshJob) Run(ctx context.Context) error {
	if !j.gateway.IsStale() {
		j.logger.Debug("Snapshot still fresh, skipping refresh")
		return nil
	}

	startTime := time.Now()
	j.logger.Info("Starting snapshot refresh job")

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	snapshot, err := j.gateway.Refresh(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrRefreshInProgress) {
			j.logger.Warn("Snapshot refresh already running, skipping")
			return nil
		}
		j.logger.WithError(err).Error("Failed to refresh snapshot")
		return err
	}

	processingTime := time.Since(startTime)
	j.logger.WithFields(logrus.Fields{
		"snapshot_id":     snapshot.ID,
		"records":         len(snapshot.Offerings),
		"processing_time": processingTime,
	}).Info("Successfully completed snapshot refresh job")

	return nil
}

// StartPeriodicUpdates runs the job once immediately and then on every tick until Stop
func (j *SnapshotRefreshJob) StartPeriodicUpdates(interval time.Duration) {
	if !j.started.CompareAndSwap(false, true) {
		j.logger.Warn("Periodic snapshot refresh already started")
		return
	}
	j.logger.WithField("interval", interval).Info("Starting periodic snapshot refresh")

	ticker := time.NewTicker(interval)
	go func() {
		defer close(j.done)
		defer ticker.Stop()

		if err := j.Run(context.Background()); err != nil {
			j.logger.WithError(err).Error("Initial snapshot refresh failed")
		}

		for {
			select {
			case <-j.stop:
				return
			case <-ticker.C:
				if err := j.Run(context.Background()); err != nil {
					j.logger.WithError(err).Error("Periodic snapshot refresh failed")
				}
			}
		}
	}()
}

// Stop ends periodic updates and waits for the loop to exit
func (j *SnapshotRefreshJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
	})
	if j.started.Load() {
		<-j.done
	}
}
