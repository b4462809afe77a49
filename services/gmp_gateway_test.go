package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilmodi00/gmp-tracker/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upstreamArrayBody = `[
  {"ipo":"Alpha Tech Open (Sub:12.5x)","price":"100","gmp":"25","est_listing":"125 (25%)","ipo_size":"1,200 Cr","lot":"150","open":"10-Jun","close":"20-Jun","boa_dt":null,"listing":null,"gmp_updated":"15-Jun 10:30","classname":null},
  {"ipo":"Beta &amp; Sons","price":"50","gmp":"-","est_listing":"-","ipo_size":"45 Cr","lot":"300","open":null,"close":null,"boa_dt":null,"listing":null,"gmp_updated":"14-Jun","classname":"sme"}
]`

func newTestGatewayConfig(url string) *shared.UnifiedConfiguration {
	cfg := shared.NewDefaultUnifiedConfiguration()
	cfg.Service.BaseURL = url
	cfg.Service.RequestRateLimit = 0
	cfg.Service.MaxRetryAttempts = 0
	cfg.Service.RetryBackoff = 5 * time.Millisecond
	cfg.Service.HTTPRequestTimeout = 2 * time.Second
	cfg.Cache.SnapshotTTL = 2 * time.Hour
	return cfg
}

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestGatewayLoadDecodesArrayAndEnvelope(t *testing.T) {
	bodies := map[string]string{
		"array":    upstreamArrayBody,
		"envelope": `{"data":` + upstreamArrayBody + `}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server, _ := newUpstream(t, http.StatusOK, body)
			gateway := NewGMPGateway(newTestGatewayConfig(server.URL))

			snapshot, err := gateway.Load(context.Background())
			require.NoError(t, err)
			require.Len(t, snapshot.Offerings, 2)

			assert.Equal(t, "Alpha Tech Open (Sub:12.5x)", snapshot.Offerings[0].Title)
			require.NotNil(t, snapshot.Offerings[0].OpenDate)
			assert.Equal(t, "10-Jun", *snapshot.Offerings[0].OpenDate)
			assert.Nil(t, snapshot.Offerings[0].AllotmentDate)
			require.NotNil(t, snapshot.Offerings[1].HighlightTag)
			assert.Equal(t, "sme", *snapshot.Offerings[1].HighlightTag)
			assert.Equal(t, server.URL, snapshot.Source)
			assert.NotEqual(t, uuid.Nil, snapshot.ID)

			// Load alone never populates the cache
			assert.Nil(t, gateway.Snapshot())
		})
	}
}

func TestGatewayLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr *shared.ServiceError
	}{
		{"server error", http.StatusInternalServerError, `oops`, shared.ErrUpstreamUnavailable},
		{"not found", http.StatusNotFound, `[]`, shared.ErrUpstreamUnavailable},
		{"html body", http.StatusOK, `<html>maintenance</html>`, shared.ErrMalformedResponse},
		{"wrong field type", http.StatusOK, `[{"ipo": 42}]`, shared.ErrMalformedResponse},
		{"null data", http.StatusOK, `{"data": null}`, shared.ErrMalformedResponse},
		{"missing data", http.StatusOK, `{"items": []}`, shared.ErrMalformedResponse},
		{"empty body", http.StatusOK, ``, shared.ErrMalformedResponse},
		{"bare null", http.StatusOK, `null`, shared.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newUpstream(t, tt.status, tt.body)
			gateway := NewGMPGateway(newTestGatewayConfig(server.URL))

			snapshot, err := gateway.Load(context.Background())
			assert.Nil(t, snapshot)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, shared.IsGatewayError(err))
		})
	}
}

func TestGatewayLoadUnreachableUpstream(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	gateway := NewGMPGateway(newTestGatewayConfig(url))
	_, err := gateway.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUpstreamUnavailable))
}

func TestGatewayLoadRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(upstreamArrayBody))
	}))
	defer server.Close()

	cfg := newTestGatewayConfig(server.URL)
	cfg.Service.MaxRetryAttempts = 2
	gateway := NewGMPGateway(cfg)

	snapshot, err := gateway.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Offerings, 2)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int64(1), gateway.Status().HTTP.RetryAttempts)
}

func TestGatewayCurrentServesCacheWithinTTL(t *testing.T) {
	server, hits := newUpstream(t, http.StatusOK, upstreamArrayBody)
	gateway := NewGMPGateway(newTestGatewayConfig(server.URL))

	clock := referenceTime
	gateway.now = func() time.Time { return clock }

	first, err := gateway.Current(context.Background())
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	second, err := gateway.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), hits.Load())

	clock = clock.Add(90 * time.Minute)
	third, err := gateway.Current(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGatewayRefreshIgnoresTTL(t *testing.T) {
	server, hits := newUpstream(t, http.StatusOK, upstreamArrayBody)
	gateway := NewGMPGateway(newTestGatewayConfig(server.URL))

	first, err := gateway.Current(context.Background())
	require.NoError(t, err)

	refreshed, err := gateway.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, refreshed.ID)
	assert.Equal(t, refreshed.ID, gateway.Snapshot().ID)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, RefreshStateIdle, gateway.State())
}

func TestGatewayFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(upstreamArrayBody))
	}))
	defer server.Close()

	gateway := NewGMPGateway(newTestGatewayConfig(server.URL))
	good, err := gateway.Refresh(context.Background())
	require.NoError(t, err)

	failing.Store(true)
	_, err = gateway.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUpstreamUnavailable))

	assert.Equal(t, RefreshStateFailed, gateway.State())
	assert.Equal(t, good.ID, gateway.Snapshot().ID)

	status := gateway.Status()
	assert.NotEmpty(t, status.LastError)
	require.NotNil(t, status.Snapshot)
	assert.Equal(t, good.ID, status.Snapshot.ID)

	// Failed is not terminal
	failing.Store(false)
	_, err = gateway.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RefreshStateIdle, gateway.State())
	assert.Empty(t, gateway.Status().LastError)
}

func TestGatewayRefreshMutualExclusion(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(entered)
		}
		<-release
		_, _ = w.Write([]byte(upstreamArrayBody))
	}))
	defer server.Close()

	gateway := NewGMPGateway(newTestGatewayConfig(server.URL))

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = gateway.Refresh(context.Background())
	}()

	<-entered
	assert.Equal(t, RefreshStateRefreshing, gateway.State())

	_, err := gateway.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrRefreshInProgress))

	// With no snapshot yet, Current cannot serve anything either
	_, err = gateway.Current(context.Background())
	assert.True(t, errors.Is(err, shared.ErrRefreshInProgress))

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, RefreshStateIdle, gateway.State())
	assert.NotNil(t, gateway.Snapshot())
}

func TestGatewayCurrentServesStaleSnapshotWhileRefreshing(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var blocking atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if blocking.Load() {
			entered <- struct{}{}
			<-release
		}
		_, _ = w.Write([]byte(upstreamArrayBody))
	}))
	defer server.Close()

	gateway := NewGMPGateway(newTestGatewayConfig(server.URL))
	clock := referenceTime
	var clockMu sync.Mutex
	gateway.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}

	stale, err := gateway.Refresh(context.Background())
	require.NoError(t, err)

	clockMu.Lock()
	clock = clock.Add(3 * time.Hour)
	clockMu.Unlock()
	blocking.Store(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = gateway.Refresh(context.Background())
	}()
	<-entered

	served, err := gateway.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stale.ID, served.ID)

	close(release)
	<-done
	assert.NotEqual(t, stale.ID, gateway.Snapshot().ID)
}

func TestGatewayLoadHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	gateway := NewGMPGateway(newTestGatewayConfig(server.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gateway.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUpstreamUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRefreshStateString(t *testing.T) {
	assert.Equal(t, "idle", RefreshStateIdle.String())
	assert.Equal(t, "refreshing", RefreshStateRefreshing.String())
	assert.Equal(t, "failed", RefreshStateFailed.String())
	assert.Equal(t, "unknown", RefreshState(9).String())
}

func TestGatewayMetricsFollowConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    int64
	}{
		{name: "enabled", enabled: true, want: 1},
		{name: "disabled", enabled: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newUpstream(t, http.StatusOK, upstreamArrayBody)
			cfg := newTestGatewayConfig(server.URL)
			cfg.Service.EnableMetrics = tt.enabled
			gateway := NewGMPGateway(cfg)

			_, err := gateway.Current(context.Background())
			require.NoError(t, err)

			status := gateway.Status()
			assert.Equal(t, tt.want, status.Metrics.TotalRequests)
			assert.Equal(t, tt.want, status.HTTP.TotalRequests)
			assert.Equal(t, tt.want, status.Metrics.CustomCounters["cache_miss"])
			assert.Equal(t, int64(1), status.UpstreamRequests)
			gateway.LogMetricsSummary()
		})
	}
}

func TestGatewayCloseKeepsGatewayUsable(t *testing.T) {
	server, hits := newUpstream(t, http.StatusOK, upstreamArrayBody)
	gateway := NewGMPGateway(newTestGatewayConfig(server.URL))

	_, err := gateway.Load(context.Background())
	require.NoError(t, err)

	gateway.Close()

	snapshot, err := gateway.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Offerings, 2)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGatewayCurrentReportsFailureOnceExpired(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(upstreamArrayBody))
	}))
	defer server.Close()

	gateway := NewGMPGateway(newTestGatewayConfig(server.URL))
	clock := referenceTime
	gateway.now = func() time.Time { return clock }

	good, err := gateway.Current(context.Background())
	require.NoError(t, err)

	failing.Store(true)
	clock = clock.Add(3 * time.Hour)

	snapshot, err := gateway.Current(context.Background())
	assert.Nil(t, snapshot)
	assert.True(t, errors.Is(err, shared.ErrUpstreamUnavailable))

	// the last good set stays available for status reporting
	require.NotNil(t, gateway.Snapshot())
	assert.Equal(t, good.ID, gateway.Snapshot().ID)
	assert.True(t, gateway.IsStale())
}
