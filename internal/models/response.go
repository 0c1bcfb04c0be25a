package models

import (
	"fmt"
	"time"
)

type ErrorCode string

const (
	ErrCodeNetwork            ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMIT"
	ErrCodeAuth               ErrorCode = "AUTH_ERROR"
	ErrCodeCORS               ErrorCode = "CORS_ERROR"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodePartialFailure     ErrorCode = "PARTIAL_FAILURE"
	ErrCodeUnknown            ErrorCode = "UNKNOWN_ERROR"
)

// APIError is the error half of an Envelope.
type APIError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Metadata sources.
const (
	MetaSourceAPI      = "api"
	MetaSourceCache    = "cache"
	MetaSourceFallback = "fallback"
	MetaSourceMock     = "mock"
)

type ProviderSummary struct {
	Queried   int      `json:"queried"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Failures  []string `json:"failures,omitempty"`
	Fallbacks []string `json:"fallbacks,omitempty"`
}

type Metadata struct {
	RequestID       string           `json:"request_id"`
	Timestamp       time.Time        `json:"timestamp"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	Source          string           `json:"source"`
	Cached          bool             `json:"cached"`
	Providers       *ProviderSummary `json:"providers,omitempty"`
}

// Envelope carries exactly one of Data or Error. Warning is a non-fatal
// note that may only accompany Data.
type Envelope[T any] struct {
	Success  bool      `json:"success"`
	Data     *T        `json:"data,omitempty"`
	Error    *APIError `json:"error,omitempty"`
	Warning  *APIError `json:"warning,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

func Ok[T any](data T, meta Metadata) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data, Metadata: meta}
}

func Fail[T any](err *APIError, meta Metadata) Envelope[T] {
	if err == nil {
		err = NewAPIError(ErrCodeUnknown, "unknown failure")
	}
	return Envelope[T]{Success: false, Error: err, Metadata: meta}
}

// Payload returns the data and whether the envelope succeeded.
func (e Envelope[T]) Payload() (T, bool) {
	if !e.Success || e.Data == nil {
		var zero T
		return zero, false
	}
	return *e.Data, true
}

// Valid checks the exactly-one-of invariant.
func (e Envelope[T]) Valid() bool {
	if e.Success {
		return e.Data != nil && e.Error == nil
	}
	return e.Data == nil && e.Error != nil && e.Warning == nil
}

type HealthStatus struct {
	Provider       string    `json:"provider"`
	IsHealthy      bool      `json:"is_healthy"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	LastChecked    time.Time `json:"last_checked"`
	Issues         []string  `json:"issues,omitempty"`
}
