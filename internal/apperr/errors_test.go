package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"fuelLevel": "must be between 0 and 100",
		"shipId":    "is required",
	}}

	// Deterministic order regardless of map iteration.
	assert.Equal(t, "validation failed: fuelLevel: must be between 0 and 100; shipId: is required", err.Error())
}

func TestValidationError_Empty(t *testing.T) {
	assert.Equal(t, "validation failed", (&ValidationError{}).Error())
}

func TestConfigurationError_Messages(t *testing.T) {
	assert.Equal(t, "configuration error: DB_SECRET_PATH is missing", (&ConfigurationError{Key: "DB_SECRET_PATH"}).Error())

	wrapped := &ConfigurationError{Key: "/run/secrets/db", Err: errors.New("permission denied")}
	assert.Equal(t, "configuration error: /run/secrets/db: permission denied", wrapped.Error())
	assert.ErrorIs(t, wrapped, wrapped.Err)
}

func TestPersistenceError_DoesNotCarryCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := &PersistenceError{Op: "order create"}

	assert.Equal(t, "persistence failure: order create", err.Error())
	assert.NotContains(t, err.Error(), cause.Error())
	assert.False(t, errors.Is(err, cause))
}

func TestTaxonomyPredicates(t *testing.T) {
	validation := NewValidationError("quantity", "must be greater than 0")
	config := &ConfigurationError{Key: "KAFKA_BROKERS"}
	persistence := &PersistenceError{Op: "telemetry put"}

	assert.True(t, IsValidation(validation))
	assert.True(t, IsConfiguration(config))
	assert.True(t, IsPersistence(persistence))

	assert.False(t, IsValidation(config))
	assert.False(t, IsConfiguration(persistence))
	assert.False(t, IsPersistence(validation))

	// Predicates see through wrapping.
	assert.True(t, IsValidation(fmt.Errorf("handling request: %w", validation)))
	assert.True(t, IsConfiguration(fmt.Errorf("connecting: %w", config)))
}

func TestPublishError_Unwrap(t *testing.T) {
	cause := errors.New("broker unreachable")
	err := &PublishError{DetailType: "Order.Created", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Order.Created")
}

func TestConsumerError_Unwrap(t *testing.T) {
	cause := errors.New("crm sync: circuit open")
	err := &ConsumerError{MessageID: "42-0", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "42-0")
}
