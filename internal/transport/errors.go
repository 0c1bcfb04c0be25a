package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dharmasatrya/milesvalue/internal/models"
)

type Kind string

const (
	KindNetwork     Kind = "NETWORK"
	KindTimeout     Kind = "TIMEOUT"
	KindRateLimited Kind = "RATE_LIMITED"
	KindHTTP        Kind = "HTTP_ERROR"
)

// Error is returned by Execute once every attempt has failed.
type Error struct {
	Kind       Kind
	StatusCode int
	Attempts   int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code maps a transport failure onto the envelope taxonomy.
func (e *Error) Code() models.ErrorCode {
	switch e.Kind {
	case KindTimeout:
		return models.ErrCodeTimeout
	case KindRateLimited:
		return models.ErrCodeRateLimit
	case KindNetwork:
		return models.ErrCodeNetwork
	}
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return models.ErrCodeAuth
	case e.StatusCode >= 500:
		return models.ErrCodeServiceUnavailable
	case e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity:
		return models.ErrCodeInvalidRequest
	}
	return models.ErrCodeUnknown
}

// CodeOf classifies any error returned by Execute.
func CodeOf(err error) models.ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code()
	}
	return models.ErrCodeUnknown
}
