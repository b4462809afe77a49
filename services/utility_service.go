package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

var (
	nonNumericCharsRegex = regexp.MustCompile(`[^0-9.+\-]+`)
	leadingNumberRegex   = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)
	numericTokenRegex    = regexp.MustCompile(`\d[\d,]*(\.\d+)?`)
	whitespaceRegex      = regexp.MustCompile(`[\s\x{00a0}]+`)
)

// placeholderValues are the upstream sentinels for "not yet available"
var placeholderValues = map[string]struct{}{
	"":   {},
	"-":  {},
	"--": {},
}

// UtilityService provides the text and number normalization shared by the pipeline
type UtilityService struct {
	serviceMetrics *shared.ServiceMetrics
}

// NewUtilityService creates a new utility service instance
func NewUtilityService() *UtilityService {
	return &UtilityService{
		serviceMetrics: shared.NewServiceMetrics("Utility_Service"),
	}
}

// IsPlaceholder reports whether a numeric-bearing field holds the "not yet available" sentinel
func (s *UtilityService) IsPlaceholder(text string) bool {
	_, ok := placeholderValues[strings.TrimSpace(text)]
	return ok
}

// ParseLeadingNumber strips everything except digits, signs and decimal points and then
// reads the longest numeric prefix, so "₹1,234.5" is 1234.5 and "12-15" is 12.
func (s *UtilityService) ParseLeadingNumber(text string) (float64, bool) {
	cleaned := nonNumericCharsRegex.ReplaceAllString(text, "")
	match := leadingNumberRegex.FindString(cleaned)
	if match == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ExtractNumeric returns the leading numeric magnitude of text, or 0 when there is none
func (s *UtilityService) ExtractNumeric(text string) float64 {
	value, _ := s.ParseLeadingNumber(text)
	return value
}

// ExtractNumericToken finds the first number in text, allowing thousands separators
func (s *UtilityService) ExtractNumericToken(text string) (float64, bool) {
	token := numericTokenRegex.FindString(text)
	if token == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// DecodeEntities renders HTML entity sequences (and any stray markup) as plain text.
// Decoded text is trimmed and &nbsp; becomes a plain space. The input is returned
// unchanged when there is nothing to decode or the parser fails.
func (s *UtilityService) DecodeEntities(raw string) string {
	if !strings.ContainsAny(raw, "&<") {
		return raw
	}

	startTime := time.Now()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "UtilityService",
			"input":     raw,
		}).WithError(err).Debug("Entity decoding failed, keeping raw text")
		s.RecordOperation("decode_entities_failed", false, time.Since(startTime))
		return raw
	}

	decoded := strings.TrimSpace(strings.ReplaceAll(doc.Text(), "\u00a0", " "))
	s.RecordOperation("decode_entities", true, time.Since(startTime))
	return decoded
}

// NormalizeTextContent collapses runs of whitespace and trims the result
func (s *UtilityService) NormalizeTextContent(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// GetServiceMetrics returns the current service metrics
func (s *UtilityService) GetServiceMetrics() *shared.ServiceMetrics {
	return s.serviceMetrics
}

// LogMetricsSummary logs comprehensive metrics summary
func (s *UtilityService) LogMetricsSummary() {
	if s.serviceMetrics != nil {
		s.serviceMetrics.LogSummary()
	}
}

// RecordOperation records a utility service operation with metrics tracking
func (s *UtilityService) RecordOperation(operationName string, success bool, processingTime time.Duration) {
	if s.serviceMetrics != nil {
		s.serviceMetrics.RecordRequest(success, processingTime)
		s.serviceMetrics.IncrementCustomCounter(operationName)
	}
}
