package lingomark

import (
	"errors"
	"fmt"
)

// ErrRelayDisabled is returned for every translation request while the
// relay's enabled flag is off.
var ErrRelayDisabled = errors.New("translation relay is disabled")

// ErrNoSession is returned when an authenticated operation is attempted
// without a valid session.
var ErrNoSession = errors.New("no active session")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ProviderError indicates a translation backend failure (API error, rate
// limit, malformed response).
type ProviderError struct {
	Provider   string
	Message    string
	StatusCode int
	Cause      error
	Retryable  bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	name := e.Provider
	if name == "" {
		name = "provider"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", name, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", name, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// StoreError indicates a persistence failure.
type StoreError struct {
	Op      string // "insert", "list", "delete", "replace"
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("store error (%s): %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("store error (%s): %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// AuthError indicates an authentication service failure.
type AuthError struct {
	Status  int
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth error (%d): %s", e.Status, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates the provider returned a different number of
// translations than requested.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}

// ValidationError indicates an imported record failed shape validation.
// The whole import is rejected when any element fails.
type ValidationError struct {
	Index int
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record at index %d: missing or invalid %q", e.Index, e.Field)
}
