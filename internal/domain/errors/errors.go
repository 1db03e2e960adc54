package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("state conflict")
	ErrValidation         = errors.New("invalid checkout input")
	ErrUnknownProvider    = errors.New("unknown payment provider")
	ErrRetriesExhausted   = errors.New("retries exhausted")
	ErrVerificationFailed = errors.New("callback verification failed")
	ErrCaptureUnsupported = errors.New("provider settles via callback only")
	ErrOrderTerminal      = errors.New("order already in terminal state")
)

// ProviderErrorKind classifies outcomes of outbound provider calls.
type ProviderErrorKind string

const (
	// ProviderRejected means the provider declined the request as sent. Not retried.
	ProviderRejected ProviderErrorKind = "rejected"
	// ProviderUnavailable means a network failure or 5xx. Retried per policy.
	ProviderUnavailable ProviderErrorKind = "unavailable"
	// UnsupportedCurrency is raised locally, before any network call.
	UnsupportedCurrency ProviderErrorKind = "unsupported_currency"
)

// ProviderError carries the structured outcome of a failed provider call.
type ProviderError struct {
	Kind       ProviderErrorKind
	Provider   string
	Code       string
	Message    string
	HTTPStatus int
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Provider, e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == ProviderUnavailable
	}
	return false
}
