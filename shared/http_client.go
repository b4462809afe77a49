package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPClientFactory creates HTTP clients with pooled transports, cached per timeout
type HTTPClientFactory struct {
	defaultTimeout time.Duration
	mutex          sync.RWMutex
	clients        map[string]*http.Client
}

// NewHTTPClientFactory creates a new HTTP client factory
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	return &HTTPClientFactory{
		defaultTimeout: defaultTimeout,
		clients:        make(map[string]*http.Client),
	}
}

// CreateOptimizedHTTPClient creates an HTTP client with connection pooling and optimized settings
func (f *HTTPClientFactory) CreateOptimizedHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	clientKey := fmt.Sprintf("timeout_%d", timeout.Milliseconds())

	f.mutex.RLock()
	if client, exists := f.clients[clientKey]; exists {
		f.mutex.RUnlock()
		return client
	}
	f.mutex.RUnlock()

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	f.mutex.Lock()
	if existing, exists := f.clients[clientKey]; exists {
		f.mutex.Unlock()
		return existing
	}
	f.clients[clientKey] = client
	f.mutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"component":  "HTTPClientFactory",
		"timeout":    timeout,
		"client_key": clientKey,
	}).Debug("Created new optimized HTTP client")

	return client
}

// SetJSONRequestHeaders configures headers for a JSON API request
func SetJSONRequestHeaders(request *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = "gmp-tracker/1.0"
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "application/json, text/plain, */*")
	request.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	request.Header.Set("Cache-Control", "no-cache")
}

// RetryPolicy controls ExecuteHTTPRequestWithRetry
type RetryPolicy struct {
	MaxRetryAttempts int
	BaseBackoff      time.Duration
}

// StatusError reports a non-success HTTP status from the final attempt
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ExecuteHTTPRequestWithRetry executes HTTP requests with exponential backoff retry logic.
// Failures are retried while IsRetryableError holds: network errors, 5xx and 429.
// The returned response always has a 2xx status and the caller must close its body.
func ExecuteHTTPRequestWithRetry(ctx context.Context, client *http.Client, request *http.Request, policy RetryPolicy, metrics *HTTPMetrics) (*http.Response, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "HTTPClientFactory",
		"method":    "ExecuteHTTPRequestWithRetry",
		"url":       request.URL.String(),
	})

	request = request.WithContext(ctx)
	var lastExecutionError error

	for attemptNumber := 0; attemptNumber <= policy.MaxRetryAttempts; attemptNumber++ {
		if attemptNumber > 0 {
			baseBackoffDuration := time.Duration(1<<uint(attemptNumber-1)) * policy.BaseBackoff
			jitterDuration := time.Duration(float64(baseBackoffDuration) * 0.1 * (0.5 + 0.5*float64(attemptNumber%3)/2))
			totalBackoffDuration := baseBackoffDuration + jitterDuration

			logger.WithFields(logrus.Fields{
				"attempt":          attemptNumber + 1,
				"backoff_duration": totalBackoffDuration,
			}).Debug("Retrying HTTP request after backoff")

			if metrics != nil {
				metrics.RecordRetryAttempt()
			}

			timer := time.NewTimer(totalBackoffDuration)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("request cancelled during backoff: %w", ctx.Err())
			case <-timer.C:
			}
		}

		startTime := time.Now()
		httpResponse, err := client.Do(request)
		elapsed := time.Since(startTime)

		if err != nil {
			var netErr net.Error
			isTimeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
			if metrics != nil {
				metrics.RecordHTTPRequest(false, 0, elapsed, "network", isTimeout)
			}
			lastExecutionError = fmt.Errorf("attempt %d failed with network error: %w", attemptNumber+1, err)
			logger.WithError(lastExecutionError).Debug("HTTP request failed with network error")
			if ctx.Err() != nil || !IsRetryableError(err) {
				break
			}
			continue
		}

		if httpResponse.StatusCode >= 200 && httpResponse.StatusCode < 300 {
			if metrics != nil {
				metrics.RecordHTTPRequest(true, httpResponse.StatusCode, elapsed, "", false)
			}
			logger.WithFields(logrus.Fields{
				"attempt":     attemptNumber + 1,
				"status_code": httpResponse.StatusCode,
			}).Debug("HTTP request successful")
			return httpResponse, nil
		}

		httpResponse.Body.Close()
		if metrics != nil {
			metrics.RecordHTTPRequest(false, httpResponse.StatusCode, elapsed, "status", false)
		}
		lastExecutionError = fmt.Errorf("attempt %d failed: %w", attemptNumber+1, &StatusError{StatusCode: httpResponse.StatusCode})
		logger.WithFields(logrus.Fields{
			"attempt":     attemptNumber + 1,
			"status_code": httpResponse.StatusCode,
		}).Debug("HTTP request failed with non-success status")

		if !IsRetryableError(lastExecutionError) {
			break
		}
	}

	logger.WithField("final_error", lastExecutionError).Warn("HTTP request failed")
	return nil, lastExecutionError
}

// CleanupHTTPClient closes idle connections held by client
func (f *HTTPClientFactory) CleanupHTTPClient(client *http.Client) {
	if client != nil && client.Transport != nil {
		if transport, ok := client.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
}

// CleanupAllClients cleans up all cached HTTP clients
func (f *HTTPClientFactory) CleanupAllClients() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for key, client := range f.clients {
		f.CleanupHTTPClient(client)
		delete(f.clients, key)
	}

	logrus.WithField("component", "HTTPClientFactory").Debug("Cleaned up all cached HTTP clients")
}
