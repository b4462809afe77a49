package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryNetwork    ErrorCategory = "network"
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryResource   ErrorCategory = "resource"
)

// Error codes surfaced to callers of the gateway and the sort engine.
const (
	CodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	CodeMalformedResponse    = "MALFORMED_RESPONSE"
	CodeRefreshInProgress    = "REFRESH_IN_PROGRESS"
	CodeUnknownSortColumn    = "UNKNOWN_SORT_COLUMN"
	CodeUnknownSortDirection = "UNKNOWN_SORT_DIRECTION"
)

// Sentinels for errors.Is. Matching is by Code, so a wrapped ServiceError built with
// NewServiceError matches the sentinel of the same code.
var (
	ErrUpstreamUnavailable  = &ServiceError{Category: ErrorCategoryNetwork, Code: CodeUpstreamUnavailable, Message: "upstream GMP source unavailable", Retryable: true}
	ErrMalformedResponse    = &ServiceError{Category: ErrorCategoryValidation, Code: CodeMalformedResponse, Message: "upstream GMP source returned a malformed response"}
	ErrRefreshInProgress    = &ServiceError{Category: ErrorCategoryResource, Code: CodeRefreshInProgress, Message: "a snapshot refresh is already in progress", Retryable: true}
	ErrUnknownSortColumn    = &ServiceError{Category: ErrorCategoryValidation, Code: CodeUnknownSortColumn, Message: "unknown sort column"}
	ErrUnknownSortDirection = &ServiceError{Category: ErrorCategoryValidation, Code: CodeUnknownSortDirection, Message: "unknown sort direction"}
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ServiceError carrying the same code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// NewUpstreamUnavailableError wraps a network or status failure of the upstream source.
func NewUpstreamUnavailableError(serviceName, operation string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryNetwork, CodeUpstreamUnavailable,
		ErrUpstreamUnavailable.Message, serviceName, operation, true, cause)
}

// NewMalformedResponseError wraps a body that could not be decoded into offering records.
func NewMalformedResponseError(serviceName, operation string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryValidation, CodeMalformedResponse,
		ErrMalformedResponse.Message, serviceName, operation, false, cause)
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// IsRetryable returns whether the error is retryable
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"timestamp":        e.Timestamp,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// IsGatewayError reports whether err is one of the failures the gateway reports to callers.
// Both are treated identically at the boundary.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrMalformedResponse)
}

// IsRetryableError checks if an error is retryable. Upstream statuses are retryable only
// for 5xx and 429; transport failures are retryable when they are network errors.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.IsRetryable()
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errorMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "too many requests",
		"network", "dns", "socket",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}

	return false
}
