package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Repository interface {
	EnsureSchema(ctx context.Context, tx pgx.Tx) error
	Save(ctx context.Context, tx pgx.Tx, event *Event) error
	Unpublished(ctx context.Context, tx pgx.Tx, batchSize int) ([]*Event, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, id int64) error
	MarkFailed(ctx context.Context, tx pgx.Tx, id int64, errMsg string) error
}

type pgRepo struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewRepository(logger *zap.Logger) Repository {
	return &pgRepo{
		logger: logger,
		tracer: otel.Tracer("outbox/repository"),
	}
}

func (r *pgRepo) EnsureSchema(ctx context.Context, tx pgx.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS outbox (
			id BIGSERIAL PRIMARY KEY,
			event_id VARCHAR(50) NOT NULL,
			source VARCHAR(100) NOT NULL,
			detail_type VARCHAR(100) NOT NULL,
			detail JSONB NOT NULL,
			bus_name VARCHAR(100) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			published_at TIMESTAMPTZ,
			attempts BIGINT NOT NULL DEFAULT 0,
			last_error TEXT
		);
	`

	_, err := tx.Exec(ctx, query)
	return err
}

func (r *pgRepo) Save(ctx context.Context, tx pgx.Tx, event *Event) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", event.EventID),
		attribute.String("detail_type", event.DetailType),
	)

	query := `
		INSERT INTO outbox (event_id, source, detail_type, detail, bus_name)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(
		ctx,
		query,
		event.EventID,
		event.Source,
		event.DetailType,
		event.Detail,
		event.BusName,
	)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *pgRepo) Unpublished(ctx context.Context, tx pgx.Tx, batchSize int) ([]*Event, error) {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.Unpublished")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", batchSize))

	query := `
		SELECT id, event_id, source, detail_type, detail, bus_name, created_at
		FROM outbox
		WHERE published_at IS NULL AND attempts < 10
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, batchSize)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.Source,
			&e.DetailType,
			&e.Detail,
			&e.BusName,
			&e.CreatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning event: %w", err)
		}

		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("result_count", len(events)))
	return events, nil
}

func (r *pgRepo) MarkPublished(ctx context.Context, tx pgx.Tx, id int64) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.MarkPublished")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	query := `
		UPDATE outbox
		SET published_at = NOW(), last_error = NULL
		WHERE id = $1;
	`

	_, err := tx.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *pgRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, errMsg string) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.MarkFailed")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	query := `
		UPDATE outbox
		SET last_error = $1,
			attempts = attempts + 1
		WHERE id = $2;
	`

	_, err := tx.Exec(ctx, query, errMsg, id)
	if err != nil {
		span.RecordError(err)
	}

	return err
}
