package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/db"
	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/eventbus"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
)

// Relay drains unpublished outbox rows onto the bus on a fixed cadence.
// Rows are locked with SKIP LOCKED, so multiple relays can run side by
// side without double-publishing within one pass; the bus contract stays
// at-least-once.
type Relay struct {
	db        db.TxBeginner
	repo      Repository
	bus       eventbus.Publisher
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

func NewRelay(beginner db.TxBeginner, repo Repository, bus eventbus.Publisher, logger *zap.Logger) *Relay {
	return &Relay{
		db:        beginner,
		repo:      repo,
		bus:       bus,
		logger:    logger,
		batchSize: 50,
		interval:  500 * time.Millisecond,
		tracer:    otel.Tracer("outbox/relay"),
	}
}

func (r *Relay) Start(ctx context.Context) {
	mylogger.Info(ctx, r.logger, "Starting outbox relay")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(ctx, r.logger, "Outbox relay stopping")
			return
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				mylogger.Error(
					ctx,
					r.logger,
					"Error processing outbox batch",
					zap.Error(err),
				)
			}
		}
	}
}

func (r *Relay) processBatch(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "Relay.processBatch")
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(
				cleanupCtx,
				r.logger,
				"Outbox relay failed to rollback transaction",
				zap.Error(err),
			)
		}
	}()

	events, err := r.repo.Unpublished(ctx, tx, r.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	mylogger.Debug(
		ctx,
		r.logger,
		"Relaying outbox events",
		zap.Int("count", len(events)),
	)

	for _, event := range events {
		busEvent := domain.Event{
			ID:         event.EventID,
			Source:     event.Source,
			DetailType: event.DetailType,
			Time:       event.CreatedAt.UTC().Format(domain.ISO8601Millis),
			Detail:     event.Detail,
			BusName:    event.BusName,
		}

		if err := r.bus.Publish(ctx, busEvent); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Outbox relay publish failed",
				zap.Int64("id", event.ID),
				zap.String("detail_type", event.DetailType),
				zap.Error(err),
			)

			if dbErr := r.repo.MarkFailed(ctx, tx, event.ID, err.Error()); dbErr != nil {
				mylogger.Error(
					ctx,
					r.logger,
					"Outbox relay mark failed failed",
					zap.Int64("id", event.ID),
					zap.Error(dbErr),
				)
			}
			continue
		}

		if dbErr := r.repo.MarkPublished(ctx, tx, event.ID); dbErr != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Outbox relay mark published failed",
				zap.Int64("id", event.ID),
				zap.Error(dbErr),
			)

			return dbErr
		}

		mylogger.Debug(
			ctx,
			r.logger,
			"Outbox event relayed",
			zap.Int64("id", event.ID),
		)
	}

	return tx.Commit(ctx)
}
