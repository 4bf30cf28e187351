package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Class buckets provider failures for retry/fallback decisions.
type Class int

const (
	// ClassConfiguration: missing credential or endpoint. Fatal, never retried.
	ClassConfiguration Class = iota
	// ClassTransient: timeout, 5xx, rate limit. Eligible for variant retry and
	// in-chain fallback.
	ClassTransient
	// ClassPermanent: 4xx or malformed request. Not retried on the same
	// provider, still eligible for a different provider in the chain.
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// Error is a classified provider failure. It always carries the
// provider_error marker so callers can tell vendor outages from internal
// defects.
type Error struct {
	Provider      string `json:"provider"`
	Status        int    `json:"status,omitempty"`
	Message       string `json:"message"`
	ProviderError bool   `json:"provider_error"`
	Class         Class  `json:"-"`
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: %d %s (%s)", e.Provider, e.Status, e.Message, e.Class)
	}
	return fmt.Sprintf("provider %s: %s (%s)", e.Provider, e.Message, e.Class)
}

func NewConfigurationError(provider, msg string) *Error {
	return &Error{Provider: provider, Message: msg, ProviderError: true, Class: ClassConfiguration}
}

// NewHTTPError classifies by status code: 5xx, 429 and 408 are transient,
// everything else in error range is permanent.
func NewHTTPError(provider string, status int, msg string) *Error {
	class := ClassPermanent
	if status >= 500 || status == 429 || status == 408 {
		class = ClassTransient
	}
	return &Error{Provider: provider, Status: status, Message: msg, ProviderError: true, Class: class}
}

// Classify wraps an opaque client error. Deadline and cancellation map to
// transient; obvious auth/request failures to permanent; anything else stays
// transient so the chain can still try the next provider.
func Classify(provider string, err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	class := ClassTransient
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		class = ClassTransient
	} else {
		msg := err.Error()
		for _, marker := range []string{"401", "403", "400", "404", "invalid_request", "unauthorized"} {
			if strings.Contains(msg, marker) {
				class = ClassPermanent
				break
			}
		}
	}
	return &Error{Provider: provider, Message: err.Error(), ProviderError: true, Class: class}
}

func IsTransient(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Class == ClassTransient
}

func IsConfiguration(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Class == ClassConfiguration
}

// IsHTTPFailure reports whether err is a provider error carrying an HTTP
// status. The web-to-hybrid mode fallback triggers on these as well as on
// transients.
func IsHTTPFailure(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Status != 0
}
