package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/fenilmodi00/gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

const gatewayServiceName = "GMP_Gateway"

// maxResponseBytes caps how much of an upstream body is read
const maxResponseBytes = 8 << 20

// RefreshState is the gateway's refresh state machine: Idle -> Refreshing -> {Idle, Failed}
type RefreshState int32

const (
	RefreshStateIdle RefreshState = iota
	RefreshStateRefreshing
	RefreshStateFailed
)

func (s RefreshState) String() string {
	switch s {
	case RefreshStateIdle:
		return "idle"
	case RefreshStateRefreshing:
		return "refreshing"
	case RefreshStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON
func (s RefreshState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GatewayStatus describes the gateway for status endpoints and logs
type GatewayStatus struct {
	State            RefreshState                  `json:"state"`
	Snapshot         *models.SnapshotInfo          `json:"snapshot,omitempty"`
	Stale            bool                          `json:"stale"`
	LastError        string                        `json:"last_error,omitempty"`
	LastAttemptAt    *time.Time                    `json:"last_attempt_at,omitempty"`
	UpstreamRequests int64                         `json:"upstream_requests"`
	Metrics          shared.ServiceMetricsSnapshot `json:"metrics"`
	HTTP             shared.HTTPMetricsSnapshot    `json:"http"`
}

// GMPGateway fetches offering snapshots from the upstream GMP source and caches the most
// recent one for the configured TTL
type GMPGateway struct {
	sourceURL   string
	userAgent   string
	ttl         time.Duration
	clients     *shared.HTTPClientFactory
	httpClient  *http.Client
	retryPolicy shared.RetryPolicy
	rateLimiter *shared.HTTPRequestRateLimiter

	snapshot atomic.Pointer[models.Snapshot]
	state    atomic.Int32

	// guards lastError and lastAttemptAt
	statusMutex   sync.RWMutex
	lastError     error
	lastAttemptAt time.Time

	// recording is skipped when metrics are disabled
	metricsEnabled bool
	serviceMetrics *shared.ServiceMetrics
	httpMetrics    *shared.HTTPMetrics
	logger         *logrus.Entry

	now func() time.Time
}

// NewGMPGateway creates a gateway from the application configuration
func NewGMPGateway(cfg *shared.UnifiedConfiguration) *GMPGateway {
	factory := shared.NewHTTPClientFactory(cfg.Service.HTTPRequestTimeout)

	return &GMPGateway{
		sourceURL:  cfg.Service.BaseURL,
		userAgent:  cfg.Service.UserAgent,
		ttl:        cfg.Cache.SnapshotTTL,
		clients:    factory,
		httpClient: factory.CreateOptimizedHTTPClient(cfg.Service.HTTPRequestTimeout),
		retryPolicy: shared.RetryPolicy{
			MaxRetryAttempts: cfg.Service.MaxRetryAttempts,
			BaseBackoff:      cfg.Service.RetryBackoff,
		},
		rateLimiter:    shared.NewHTTPRequestRateLimiter(cfg.Service.RequestRateLimit),
		metricsEnabled: cfg.Service.EnableMetrics,
		serviceMetrics: shared.NewServiceMetrics(gatewayServiceName),
		httpMetrics:    shared.NewHTTPMetrics(),
		logger: logrus.WithFields(logrus.Fields{
			"component": "GMPGateway",
			"source":    cfg.Service.BaseURL,
		}),
		now: time.Now,
	}
}

// Load performs one upstream fetch and decodes it into a new snapshot. It does not touch
// the cached snapshot. Failures are ErrUpstreamUnavailable or ErrMalformedResponse.
func (g *GMPGateway) Load(ctx context.Context) (*models.Snapshot, error) {
	startTime := time.Now()

	if err := g.rateLimiter.Wait(ctx); err != nil {
		g.recordRequest(false, time.Since(startTime))
		return nil, shared.NewUpstreamUnavailableError(gatewayServiceName, "Load", fmt.Errorf("rate limiter wait: %w", err))
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, g.sourceURL, nil)
	if err != nil {
		g.recordRequest(false, time.Since(startTime))
		return nil, shared.NewUpstreamUnavailableError(gatewayServiceName, "Load", fmt.Errorf("build request: %w", err))
	}
	shared.SetJSONRequestHeaders(request, g.userAgent)

	response, err := shared.ExecuteHTTPRequestWithRetry(ctx, g.httpClient, request, g.retryPolicy, g.requestMetrics())
	if err != nil {
		g.recordRequest(false, time.Since(startTime))
		g.incrementCounter("upstream_unavailable")
		return nil, shared.NewUpstreamUnavailableError(gatewayServiceName, "Load", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		g.recordRequest(false, time.Since(startTime))
		g.incrementCounter("upstream_unavailable")
		return nil, shared.NewUpstreamUnavailableError(gatewayServiceName, "Load", fmt.Errorf("read body: %w", err))
	}

	offerings, err := decodeOfferings(body)
	if err != nil {
		g.recordRequest(false, time.Since(startTime))
		g.incrementCounter("malformed_response")
		return nil, shared.NewMalformedResponseError(gatewayServiceName, "Load", err).
			WithDetails(map[string]interface{}{"body_bytes": len(body)})
	}

	snapshot := models.NewSnapshot(g.sourceURL, g.now(), offerings)
	g.recordRequest(true, time.Since(startTime))

	g.logger.WithFields(logrus.Fields{
		"snapshot_id":  snapshot.ID,
		"record_count": len(offerings),
		"duration":     time.Since(startTime),
	}).Info("Loaded GMP snapshot")

	return snapshot, nil
}

// Current returns the cached snapshot while it is fresh and refreshes it otherwise.
// If another refresh is already running the stale snapshot is served; with no snapshot
// at all the caller gets ErrRefreshInProgress.
func (g *GMPGateway) Current(ctx context.Context) (*models.Snapshot, error) {
	cached := g.snapshot.Load()
	if cached != nil && !cached.IsStale(g.now(), g.ttl) {
		g.incrementCounter("cache_hit")
		return cached, nil
	}

	g.incrementCounter("cache_miss")
	fresh, err := g.Refresh(ctx)
	if err == nil {
		return fresh, nil
	}

	if errors.Is(err, shared.ErrRefreshInProgress) && cached != nil {
		g.logger.WithField("snapshot_id", cached.ID).Debug("Refresh busy, serving stale snapshot")
		return cached, nil
	}
	return nil, err
}

// Refresh discards the cache and loads a new snapshot. Only one refresh runs at a time;
// a call made while another is in flight returns ErrRefreshInProgress without fetching.
// On success the new snapshot replaces the old one in a single pointer swap.
func (g *GMPGateway) Refresh(ctx context.Context) (*models.Snapshot, error) {
	if !g.beginRefresh() {
		g.incrementCounter("refresh_rejected")
		return nil, shared.NewServiceError(shared.ErrorCategoryResource, shared.CodeRefreshInProgress,
			shared.ErrRefreshInProgress.Message, gatewayServiceName, "Refresh", true, nil)
	}

	g.statusMutex.Lock()
	g.lastAttemptAt = g.now()
	g.statusMutex.Unlock()

	snapshot, err := g.Load(ctx)
	if err != nil {
		g.statusMutex.Lock()
		g.lastError = err
		g.statusMutex.Unlock()
		g.state.Store(int32(RefreshStateFailed))

		var serviceErr *shared.ServiceError
		if errors.As(err, &serviceErr) {
			serviceErr.LogError()
		}
		return nil, err
	}

	g.snapshot.Store(snapshot)
	g.statusMutex.Lock()
	g.lastError = nil
	g.statusMutex.Unlock()
	g.state.Store(int32(RefreshStateIdle))

	return snapshot, nil
}

// beginRefresh moves Idle or Failed to Refreshing, reporting false if a refresh is running
func (g *GMPGateway) beginRefresh() bool {
	for {
		current := g.state.Load()
		if RefreshState(current) == RefreshStateRefreshing {
			return false
		}
		if g.state.CompareAndSwap(current, int32(RefreshStateRefreshing)) {
			return true
		}
	}
}

// Snapshot returns the cached snapshot without refreshing; nil before the first load
func (g *GMPGateway) Snapshot() *models.Snapshot {
	return g.snapshot.Load()
}

// State returns the refresh state
func (g *GMPGateway) State() RefreshState {
	return RefreshState(g.state.Load())
}

// IsStale reports whether the cache is empty or older than the TTL
func (g *GMPGateway) IsStale() bool {
	cached := g.snapshot.Load()
	return cached == nil || cached.IsStale(g.now(), g.ttl)
}

// Status reports the refresh state, snapshot metadata and metrics
func (g *GMPGateway) Status() GatewayStatus {
	status := GatewayStatus{
		State:   g.State(),
		Stale:   g.IsStale(),
		Metrics: g.serviceMetrics.GetSnapshot(),
		HTTP:    g.httpMetrics.GetSnapshot(),
	}
	status.UpstreamRequests = g.rateLimiter.GetRequestCount()

	if cached := g.snapshot.Load(); cached != nil {
		info := cached.Info()
		status.Snapshot = &info
	}

	g.statusMutex.RLock()
	if g.lastError != nil {
		status.LastError = g.lastError.Error()
	}
	if !g.lastAttemptAt.IsZero() {
		attempted := g.lastAttemptAt
		status.LastAttemptAt = &attempted
	}
	g.statusMutex.RUnlock()

	return status
}

// Close releases pooled upstream connections. The gateway stays usable; later loads dial again.
func (g *GMPGateway) Close() {
	g.clients.CleanupAllClients()
}

func (g *GMPGateway) recordRequest(success bool, processingTime time.Duration) {
	if g.metricsEnabled {
		g.serviceMetrics.RecordRequest(success, processingTime)
	}
}

func (g *GMPGateway) incrementCounter(key string) {
	if g.metricsEnabled {
		g.serviceMetrics.IncrementCustomCounter(key)
	}
}

// requestMetrics is nil when metrics are disabled, which ExecuteHTTPRequestWithRetry skips
func (g *GMPGateway) requestMetrics() *shared.HTTPMetrics {
	if !g.metricsEnabled {
		return nil
	}
	return g.httpMetrics
}

// LogMetricsSummary logs gateway and HTTP metrics
func (g *GMPGateway) LogMetricsSummary() {
	if !g.metricsEnabled {
		return
	}
	g.serviceMetrics.LogSummary()
	g.httpMetrics.LogHTTPSummary()
}

// decodeOfferings accepts a top-level array or an object wrapping it under "data"
func decodeOfferings(body []byte) ([]models.Offering, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	switch trimmed[0] {
	case '[':
		var offerings []models.Offering
		if err := json.Unmarshal(trimmed, &offerings); err != nil {
			return nil, fmt.Errorf("decode offering array: %w", err)
		}
		return offerings, nil
	case '{':
		var envelope struct {
			Data *[]models.Offering `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode offering envelope: %w", err)
		}
		if envelope.Data == nil {
			return nil, errors.New("response envelope has no data array")
		}
		return *envelope.Data, nil
	default:
		return nil, fmt.Errorf("unexpected response body starting with %q", trimmed[0])
	}
}
