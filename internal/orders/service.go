// Package orders creates spare-part orders: validate, persist inside a
// transaction, then emit Order.Created for downstream CRM sync.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
	"github.com/Nibir1/Nexus-Marine/internal/db"
	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/eventbus"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
	"github.com/Nibir1/Nexus-Marine/internal/outbox"
	"github.com/Nibir1/Nexus-Marine/internal/validate"
)

type Service struct {
	db        db.TxBeginner
	repo      Repository
	bus       eventbus.Publisher
	busName   string
	outbox    outbox.Repository
	validate  *validator.Validate
	logger    *zap.Logger
	tracer    trace.Tracer
	txTimeout time.Duration
	now       func() time.Time
}

type Option func(*Service)

// WithOutbox writes the Order.Created event in the insert transaction and
// leaves publishing to the relay, instead of the default post-commit
// best-effort publish.
func WithOutbox(repo outbox.Repository) Option {
	return func(s *Service) { s.outbox = repo }
}

func WithTxTimeout(d time.Duration) Option {
	return func(s *Service) { s.txTimeout = d }
}

func NewService(beginner db.TxBeginner, repo Repository, bus eventbus.Publisher, busName string, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:        beginner,
		repo:      repo,
		bus:       bus,
		busName:   busName,
		validate:  validate.New(),
		logger:    logger,
		tracer:    otel.Tracer("orders/service"),
		txTimeout: 5 * time.Second,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateOrder validates the input, persists the order transactionally and
// emits Order.Created. The order object is fully formed, id included,
// before the transaction begins.
func (s *Service) CreateOrder(ctx context.Context, raw []byte) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	var input domain.OrderInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return domain.Order{}, apperr.NewValidationError("body", "body must be valid JSON")
	}

	if err := validate.Struct(s.validate, input); err != nil {
		mylogger.Warn(ctx, s.logger, "Rejected order input", zap.Error(err))
		return domain.Order{}, err
	}

	order := domain.Order{
		OrderID:   uuid.NewString(),
		ShipID:    input.ShipID,
		PartID:    input.PartID,
		Quantity:  input.Quantity,
		CreatedAt: s.now().UTC().Format(domain.ISO8601Millis),
	}

	span.SetAttributes(
		attribute.String("order_id", order.OrderID),
		attribute.String("ship_id", order.ShipID),
	)

	event, err := domain.NewEvent(s.busName, domain.SourceOrders, domain.DetailTypeOrderCreated, order)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to build order event", zap.Error(err))
		return domain.Order{}, &apperr.PersistenceError{Op: "order create"}
	}

	if err := s.persist(ctx, order, event); err != nil {
		return domain.Order{}, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order persisted",
		zap.String("order_id", order.OrderID),
	)

	// Outbox mode: the relay publishes from the committed row.
	if s.outbox == nil {
		s.publishCreated(ctx, order, event)
	}

	return order, nil
}

// persist runs the bounded transaction: ensure schema, insert, commit.
// Any failure rolls back and surfaces as a generic persistence error; the
// cause stays in the server log.
func (s *Service) persist(ctx context.Context, order domain.Order, event domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		var confErr *apperr.ConfigurationError
		if errors.As(err, &confErr) {
			mylogger.Error(ctx, s.logger, "Database credentials unavailable", zap.Error(err))
			return confErr
		}

		mylogger.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return &apperr.PersistenceError{Op: "order create"}
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(
				shutdownCtx,
				s.logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	if err := s.repo.EnsureSchema(ctx, tx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to ensure schema", zap.Error(err))
		return &apperr.PersistenceError{Op: "order create"}
	}

	if err := s.repo.InsertOrder(ctx, tx, order); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to insert order",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)

		return &apperr.PersistenceError{Op: "order create"}
	}

	if s.outbox != nil {
		outboxEvent := &outbox.Event{
			EventID:    event.ID,
			Source:     event.Source,
			DetailType: event.DetailType,
			Detail:     event.Detail,
			BusName:    event.BusName,
		}

		if err := s.outbox.EnsureSchema(ctx, tx); err != nil {
			mylogger.Error(ctx, s.logger, "Failed to ensure outbox schema", zap.Error(err))
			return &apperr.PersistenceError{Op: "order create"}
		}

		if err := s.outbox.Save(ctx, tx, outboxEvent); err != nil {
			mylogger.Error(ctx, s.logger, "Failed to save outbox event", zap.Error(err))
			return &apperr.PersistenceError{Op: "order create"}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return &apperr.PersistenceError{Op: "order create"}
	}

	return nil
}

// publishCreated emits Order.Created after commit. Not retried here: a
// failure means the order exists durably but no downstream sync happens,
// an accepted at-least-once-to-store / at-most-once-to-bus trade-off.
func (s *Service) publishCreated(ctx context.Context, order domain.Order, event domain.Event) {
	if err := s.bus.Publish(ctx, event); err != nil {
		publishErr := &apperr.PublishError{DetailType: domain.DetailTypeOrderCreated, Err: err}

		mylogger.Error(
			ctx,
			s.logger,
			"Order committed but event publish failed, CRM sync will not happen",
			zap.String("order_id", order.OrderID),
			zap.Error(publishErr),
		)

		return
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order event published",
		zap.String("order_id", order.OrderID),
	)
}
