package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Store persists telemetry readings keyed by (shipId, timestamp). Put is a
// plain overwrite: last write wins, no optimistic concurrency.
type Store interface {
	Put(ctx context.Context, reading Reading) error
	LatestReadings(ctx context.Context, shipID string, limit int64) ([]Reading, error)
}

type redisStore struct {
	client *redis.Client
	logger *zap.Logger
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) Store {
	return &redisStore{
		client: client,
		logger: logger,
		tracer: otel.Tracer("telemetry/store"),
	}
}

func readingKey(shipID, timestamp string) string {
	return fmt.Sprintf("telemetry:%s:%s", shipID, timestamp)
}

func indexKey(shipID string) string {
	return fmt.Sprintf("telemetry:%s:index", shipID)
}

func (s *redisStore) Put(ctx context.Context, reading Reading) error {
	ctx, span := s.tracer.Start(ctx, "TelemetryStore.Put")
	defer span.End()

	span.SetAttributes(
		attribute.String("ship_id", reading.ShipID),
		attribute.String("timestamp", reading.Timestamp),
	)

	doc, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, reading.Timestamp)
	if err != nil {
		return fmt.Errorf("parse timestamp: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, readingKey(reading.ShipID, reading.Timestamp), doc, 0)
	pipe.ZAdd(ctx, indexKey(reading.ShipID), redis.Z{
		Score:  float64(ts.UnixMilli()),
		Member: reading.Timestamp,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("write reading: %w", err)
	}

	return nil
}

func (s *redisStore) LatestReadings(ctx context.Context, shipID string, limit int64) ([]Reading, error) {
	ctx, span := s.tracer.Start(ctx, "TelemetryStore.LatestReadings")
	defer span.End()

	span.SetAttributes(attribute.String("ship_id", shipID))

	timestamps, err := s.client.ZRevRange(ctx, indexKey(shipID), 0, limit-1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read index: %w", err)
	}

	if len(timestamps) == 0 {
		return nil, nil
	}

	keys := make([]string, len(timestamps))
	for i, ts := range timestamps {
		keys[i] = readingKey(shipID, ts)
	}

	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read readings: %w", err)
	}

	readings := make([]Reading, 0, len(docs))
	for _, doc := range docs {
		str, ok := doc.(string)
		if !ok {
			continue
		}

		var r Reading
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			s.logger.Warn("Skipping unreadable telemetry document", zap.Error(err))
			continue
		}

		readings = append(readings, r)
	}

	return readings, nil
}
