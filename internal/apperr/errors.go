// Package apperr defines the error taxonomy shared by all services.
// Validation and configuration failures carry enough detail for the caller;
// persistence failures are deliberately generic, the cause is logged
// server-side only.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports malformed or out-of-range input. Fields maps the
// offending field name to a human-readable cause. Surfaced to the caller as
// a client error and never retried.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, cause string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: cause}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(e.Fields))
	for field, cause := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, cause))
	}
	sort.Strings(parts)

	return "validation failed: " + strings.Join(parts, "; ")
}

// ConfigurationError reports a missing or unreadable required secret or
// environment value. Fatal for the call; should page operators.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("configuration error: %s is missing", e.Key)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// PersistenceError reports a failed store write or transaction. The
// underlying cause is intentionally not carried here.
type PersistenceError struct {
	Op string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %s", e.Op)
}

// PublishError reports a failed event-bus publish. Whether it is fatal to
// the request depends on the producing service.
type PublishError struct {
	DetailType string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed for %s: %v", e.DetailType, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ConsumerError reports a single failed record inside a batch. It never
// aborts sibling records.
type ConsumerError struct {
	MessageID string
	Err       error
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("message %s failed: %v", e.MessageID, e.Err)
}

func (e *ConsumerError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
