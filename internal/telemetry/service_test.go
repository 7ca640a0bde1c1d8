package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
	"github.com/Nibir1/Nexus-Marine/internal/domain"
)

type fakeStore struct {
	puts    []Reading
	putErr  error
	latest  []Reading
	readErr error
}

func (f *fakeStore) Put(_ context.Context, r Reading) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, r)
	return nil
}

func (f *fakeStore) LatestReadings(_ context.Context, _ string, _ int64) ([]Reading, error) {
	return f.latest, f.readErr
}

type fakeBus struct {
	published []domain.Event
	err       error
}

func (f *fakeBus) Publish(_ context.Context, e domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, e)
	return nil
}

func validReading() map[string]any {
	return map[string]any{
		"shipId":      "T1",
		"timestamp":   "2024-01-01T00:00:00.000Z",
		"temperature": 90.0,
		"fuelLevel":   50.0,
		"latitude":    10.0,
		"longitude":   10.0,
		"status":      "NORMAL",
	}
}

func ingest(t *testing.T, svc *Service, body map[string]any) (Reading, error) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	return svc.Ingest(context.Background(), raw)
}

func TestIngest_PersistsValidReading(t *testing.T) {
	store := &fakeStore{}
	bus := &fakeBus{}
	svc := NewService(store, bus, "NexusMarineBus", zap.NewNop())

	reading, err := ingest(t, svc, validReading())
	require.NoError(t, err)

	require.Len(t, store.puts, 1)
	assert.Equal(t, reading, store.puts[0])
	assert.Equal(t, "T1", reading.ShipID)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", reading.Timestamp)
	assert.Empty(t, bus.published, "no alert below the threshold")
}

func TestIngest_RejectsFuelLevelOutOfRange(t *testing.T) {
	for _, fuel := range []float64{-1, 100.5} {
		store := &fakeStore{}
		bus := &fakeBus{}
		svc := NewService(store, bus, "NexusMarineBus", zap.NewNop())

		body := validReading()
		body["fuelLevel"] = fuel

		_, err := ingest(t, svc, body)

		var validationErr *apperr.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Fields, "fuelLevel")
		assert.Empty(t, store.puts, "no write on validation failure")
		assert.Empty(t, bus.published)
	}
}

func TestIngest_RejectsUnparseableTimestamp(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeBus{}, "NexusMarineBus", zap.NewNop())

	body := validReading()
	body["timestamp"] = "yesterday at noon"

	_, err := ingest(t, svc, body)

	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "timestamp")
	assert.Empty(t, store.puts)
}

func TestIngest_RejectsEmptyShipID(t *testing.T) {
	store := &fakeStore{}
	bus := &fakeBus{}
	svc := NewService(store, bus, "NexusMarineBus", zap.NewNop())

	body := validReading()
	body["shipId"] = ""

	_, err := ingest(t, svc, body)

	require.True(t, apperr.IsValidation(err))
	assert.Empty(t, store.puts)
	assert.Empty(t, bus.published)
}

func TestIngest_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeBus{}, "NexusMarineBus", zap.NewNop())

	body := validReading()
	body["status"] = "ON_FIRE"

	_, err := ingest(t, svc, body)
	require.True(t, apperr.IsValidation(err))
}

func TestIngest_RejectsMalformedJSON(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeBus{}, "NexusMarineBus", zap.NewNop())

	_, err := svc.Ingest(context.Background(), []byte("{not json"))

	require.True(t, apperr.IsValidation(err))
	assert.Empty(t, store.puts)
}

func TestIngest_PublishesCriticalAlertAboveThreshold(t *testing.T) {
	store := &fakeStore{}
	bus := &fakeBus{}
	svc := NewService(store, bus, "NexusMarineBus", zap.NewNop())

	body := validReading()
	body["temperature"] = 105.0
	body["status"] = "CRITICAL"

	_, err := ingest(t, svc, body)
	require.NoError(t, err)

	require.Len(t, store.puts, 1)
	require.Len(t, bus.published, 1)

	event := bus.published[0]
	assert.Equal(t, domain.SourceTelemetry, event.Source)
	assert.Equal(t, domain.DetailTypeCriticalAlert, event.DetailType)
	assert.Equal(t, "NexusMarineBus", event.BusName)
	assert.NotEmpty(t, event.ID)

	var alert domain.CriticalAlert
	require.NoError(t, json.Unmarshal(event.Detail, &alert))
	assert.Equal(t, "T1", alert.ShipID)
	assert.Equal(t, 105.0, alert.Temperature)
	assert.NotEmpty(t, alert.Message)
}

func TestIngest_NoAlertAtExactThreshold(t *testing.T) {
	bus := &fakeBus{}
	svc := NewService(&fakeStore{}, bus, "NexusMarineBus", zap.NewNop())

	body := validReading()
	body["temperature"] = 100.0

	_, err := ingest(t, svc, body)
	require.NoError(t, err)
	assert.Empty(t, bus.published)
}

func TestIngest_AlertPublishFailureDoesNotFailCall(t *testing.T) {
	store := &fakeStore{}
	bus := &fakeBus{err: errors.New("bus unavailable")}
	svc := NewService(store, bus, "NexusMarineBus", zap.NewNop())

	body := validReading()
	body["temperature"] = 120.0

	reading, err := ingest(t, svc, body)
	require.NoError(t, err, "alerting is best-effort")
	assert.Equal(t, 120.0, reading.Temperature)
	require.Len(t, store.puts, 1)
}

func TestIngest_StoreFailureSurfacesPersistenceError(t *testing.T) {
	store := &fakeStore{putErr: errors.New("redis down")}
	bus := &fakeBus{}
	svc := NewService(store, bus, "NexusMarineBus", zap.NewNop())

	_, err := ingest(t, svc, validReading())

	require.True(t, apperr.IsPersistence(err))
	assert.NotContains(t, err.Error(), "redis down", "cause must not leak")
	assert.Empty(t, bus.published)
}

func TestIngest_OverwriteSameKeyIsSilent(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeBus{}, "NexusMarineBus", zap.NewNop())

	_, err := ingest(t, svc, validReading())
	require.NoError(t, err)

	body := validReading()
	body["temperature"] = 95.0

	_, err = ingest(t, svc, body)
	require.NoError(t, err)

	require.Len(t, store.puts, 2, "store sees two puts, last write wins downstream")
}
