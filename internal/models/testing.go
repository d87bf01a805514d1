package models

import (
	"time"
)

// Timeout bounds for a single test request, in seconds
const (
	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 300
)

// TestRequest is one outbound test call
type TestRequest struct {
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	TimeoutSeconds int               `json:"timeoutSeconds,omitempty"`
}

// TestResult is the outcome of a test call. StatusCode 0 means no response
// was received and ErrorMessage carries the cause.
type TestResult struct {
	Success         bool              `json:"success"`
	StatusCode      int               `json:"statusCode"`
	ResponseTimeMs  int64             `json:"responseTimeMs"`
	ResponseBody    any               `json:"responseBody,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
}

// BulkSummary aggregates a bulk run
type BulkSummary struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"successRate"`
}

// TestLogEntry is one persisted test execution
type TestLogEntry struct {
	ID             int64     `json:"id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"statusCode"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	UserID         string    `json:"userId"`
	IPAddress      string    `json:"ipAddress"`
	UserAgent      string    `json:"userAgent"`
	RequestData    string    `json:"requestData"`
	ResponseData   string    `json:"responseData"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Caller identifies who issued a test
type Caller struct {
	UserID    string `json:"userId"`
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
}
