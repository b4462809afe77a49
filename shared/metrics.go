package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks performance and success metrics for services
type ServiceMetrics struct {
	serviceName         string
	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	totalProcessingTime time.Duration
	maxProcessingTime   time.Duration
	lastUpdated         time.Time
	customCounters      map[string]int64
	mutex               sync.RWMutex
}

// ServiceMetricsSnapshot is a point-in-time copy of ServiceMetrics
type ServiceMetricsSnapshot struct {
	ServiceName           string           `json:"service_name"`
	TotalRequests         int64            `json:"total_requests"`
	SuccessfulRequests    int64            `json:"successful_requests"`
	FailedRequests        int64            `json:"failed_requests"`
	SuccessRate           float64          `json:"success_rate"`
	AverageProcessingTime time.Duration    `json:"average_processing_time"`
	MaxProcessingTime     time.Duration    `json:"max_processing_time"`
	LastUpdated           time.Time        `json:"last_updated"`
	CustomCounters        map[string]int64 `json:"custom_counters"`
}

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		serviceName:    serviceName,
		lastUpdated:    time.Now(),
		customCounters: make(map[string]int64),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalRequests++
	m.totalProcessingTime += processingTime
	if processingTime > m.maxProcessingTime {
		m.maxProcessingTime = processingTime
	}

	if success {
		m.successfulRequests++
	} else {
		m.failedRequests++
	}

	m.lastUpdated = time.Now()
}

// IncrementCustomCounter increments a custom counter metric
func (m *ServiceMetrics) IncrementCustomCounter(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.customCounters[key]++
	m.lastUpdated = time.Now()
}

// GetSnapshot returns a thread-safe snapshot of current metrics
func (m *ServiceMetrics) GetSnapshot() ServiceMetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counters := make(map[string]int64, len(m.customCounters))
	for k, v := range m.customCounters {
		counters[k] = v
	}

	snapshot := ServiceMetricsSnapshot{
		ServiceName:        m.serviceName,
		TotalRequests:      m.totalRequests,
		SuccessfulRequests: m.successfulRequests,
		FailedRequests:     m.failedRequests,
		MaxProcessingTime:  m.maxProcessingTime,
		LastUpdated:        m.lastUpdated,
		CustomCounters:     counters,
	}
	if m.totalRequests > 0 {
		snapshot.SuccessRate = float64(m.successfulRequests) / float64(m.totalRequests) * 100.0
		snapshot.AverageProcessingTime = time.Duration(int64(m.totalProcessingTime) / m.totalRequests)
	}
	return snapshot
}

// LogSummary logs a metrics summary
func (m *ServiceMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"service_name":            snapshot.ServiceName,
		"total_requests":          snapshot.TotalRequests,
		"successful_requests":     snapshot.SuccessfulRequests,
		"failed_requests":         snapshot.FailedRequests,
		"success_rate":            snapshot.SuccessRate,
		"average_processing_time": snapshot.AverageProcessingTime,
		"max_processing_time":     snapshot.MaxProcessingTime,
		"custom_counters":         snapshot.CustomCounters,
	}).Info("Service metrics summary")
}

// HTTPMetrics tracks outbound HTTP request outcomes
type HTTPMetrics struct {
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	timeoutRequests    int64
	retryAttempts      int64
	totalResponseTime  time.Duration
	statusCodeCounts   map[int]int64
	errorCounts        map[string]int64
	mutex              sync.RWMutex
}

// HTTPMetricsSnapshot is a point-in-time copy of HTTPMetrics
type HTTPMetricsSnapshot struct {
	TotalRequests       int64            `json:"total_requests"`
	SuccessfulRequests  int64            `json:"successful_requests"`
	FailedRequests      int64            `json:"failed_requests"`
	TimeoutRequests     int64            `json:"timeout_requests"`
	RetryAttempts       int64            `json:"retry_attempts"`
	AverageResponseTime time.Duration    `json:"average_response_time"`
	StatusCodeCounts    map[int]int64    `json:"status_code_counts"`
	ErrorCounts         map[string]int64 `json:"error_counts"`
}

// NewHTTPMetrics creates a new HTTP metrics tracker
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		statusCodeCounts: make(map[int]int64),
		errorCounts:      make(map[string]int64),
	}
}

// RecordHTTPRequest records an HTTP request with its result
func (hm *HTTPMetrics) RecordHTTPRequest(success bool, statusCode int, responseTime time.Duration, errorType string, isTimeout bool) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.totalRequests++
	hm.totalResponseTime += responseTime

	if success {
		hm.successfulRequests++
	} else {
		hm.failedRequests++
	}

	if isTimeout {
		hm.timeoutRequests++
	}

	if statusCode != 0 {
		hm.statusCodeCounts[statusCode]++
	}

	if errorType != "" {
		hm.errorCounts[errorType]++
	}
}

// RecordRetryAttempt records a retry attempt
func (hm *HTTPMetrics) RecordRetryAttempt() {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.retryAttempts++
}

// GetSnapshot returns a copy of the current HTTP metrics
func (hm *HTTPMetrics) GetSnapshot() HTTPMetricsSnapshot {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	statusCodes := make(map[int]int64, len(hm.statusCodeCounts))
	for k, v := range hm.statusCodeCounts {
		statusCodes[k] = v
	}
	errorCounts := make(map[string]int64, len(hm.errorCounts))
	for k, v := range hm.errorCounts {
		errorCounts[k] = v
	}

	snapshot := HTTPMetricsSnapshot{
		TotalRequests:      hm.totalRequests,
		SuccessfulRequests: hm.successfulRequests,
		FailedRequests:     hm.failedRequests,
		TimeoutRequests:    hm.timeoutRequests,
		RetryAttempts:      hm.retryAttempts,
		StatusCodeCounts:   statusCodes,
		ErrorCounts:        errorCounts,
	}
	if hm.totalRequests > 0 {
		snapshot.AverageResponseTime = time.Duration(int64(hm.totalResponseTime) / hm.totalRequests)
	}
	return snapshot
}

// LogHTTPSummary logs HTTP metrics
func (hm *HTTPMetrics) LogHTTPSummary() {
	snapshot := hm.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"total_requests":        snapshot.TotalRequests,
		"successful_requests":   snapshot.SuccessfulRequests,
		"failed_requests":       snapshot.FailedRequests,
		"timeout_requests":      snapshot.TimeoutRequests,
		"retry_attempts":        snapshot.RetryAttempts,
		"average_response_time": snapshot.AverageResponseTime,
		"status_code_counts":    snapshot.StatusCodeCounts,
		"error_counts":          snapshot.ErrorCounts,
	}).Info("HTTP metrics summary")
}
