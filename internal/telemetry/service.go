// Package telemetry ingests vessel telemetry readings: validate, persist,
// and raise a critical alert when the engine runs hot.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/eventbus"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
	"github.com/Nibir1/Nexus-Marine/internal/validate"
)

type Reading = domain.TelemetryReading

// criticalTemperature is the engine temperature (Celsius) above which a
// Marine.CriticalAlert is raised.
const criticalTemperature = 100.0

type Service struct {
	store    Store
	bus      eventbus.Publisher
	busName  string
	validate *validator.Validate
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewService(store Store, bus eventbus.Publisher, busName string, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		bus:      bus,
		busName:  busName,
		validate: validate.New(),
		logger:   logger,
		tracer:   otel.Tracer("telemetry/service"),
	}
}

// Ingest validates and persists one reading. Persistence is the required
// side effect; the critical alert is best-effort and a failed publish never
// fails the call.
func (s *Service) Ingest(ctx context.Context, raw []byte) (Reading, error) {
	ctx, span := s.tracer.Start(ctx, "TelemetryService.Ingest")
	defer span.End()

	var reading Reading
	if err := json.Unmarshal(raw, &reading); err != nil {
		return Reading{}, apperr.NewValidationError("body", "body must be valid JSON")
	}

	if err := validate.Struct(s.validate, reading); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Rejected telemetry reading",
			zap.Error(err),
		)

		return Reading{}, err
	}

	span.SetAttributes(
		attribute.String("ship_id", reading.ShipID),
		attribute.Float64("temperature", reading.Temperature),
	)

	if err := s.store.Put(ctx, reading); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Failed to persist telemetry",
			zap.String("ship_id", reading.ShipID),
			zap.Error(err),
		)

		return Reading{}, &apperr.PersistenceError{Op: "telemetry put"}
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Telemetry saved",
		zap.String("ship_id", reading.ShipID),
		zap.String("timestamp", reading.Timestamp),
	)

	if reading.Temperature > criticalTemperature {
		s.publishAlert(ctx, reading)
	}

	return reading, nil
}

// Latest returns up to limit most recent readings for one vessel.
func (s *Service) Latest(ctx context.Context, shipID string, limit int64) ([]Reading, error) {
	ctx, span := s.tracer.Start(ctx, "TelemetryService.Latest")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	readings, err := s.store.LatestReadings(ctx, shipID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, &apperr.PersistenceError{Op: "telemetry read"}
	}

	return readings, nil
}

// publishAlert raises a Marine.CriticalAlert. Failures are swallowed by
// policy: clients must not see ingestion fail because the alerting path is
// degraded.
func (s *Service) publishAlert(ctx context.Context, reading Reading) {
	alert := domain.CriticalAlert{
		ShipID:      reading.ShipID,
		Temperature: reading.Temperature,
		Timestamp:   reading.Timestamp,
		Message: fmt.Sprintf(
			"Engine temperature %.1f°C exceeds the critical threshold on vessel %s",
			reading.Temperature, reading.ShipID,
		),
	}

	event, err := domain.NewEvent(s.busName, domain.SourceTelemetry, domain.DetailTypeCriticalAlert, alert)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to build critical alert event", zap.Error(err))
		return
	}

	if err := s.bus.Publish(ctx, event); err != nil {
		publishErr := &apperr.PublishError{DetailType: domain.DetailTypeCriticalAlert, Err: err}

		mylogger.Error(
			ctx,
			s.logger,
			"Critical alert publish failed, ingestion unaffected",
			zap.String("ship_id", reading.ShipID),
			zap.Error(publishErr),
		)

		return
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Critical alert published",
		zap.String("ship_id", reading.ShipID),
		zap.Float64("temperature", reading.Temperature),
	)
}
