package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/domain"
)

type Repository interface {
	EnsureSchema(ctx context.Context, tx pgx.Tx) error
	InsertOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error
}

type pgRepo struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewRepository(logger *zap.Logger) Repository {
	return &pgRepo{
		logger: logger,
		tracer: otel.Tracer("orders/repository"),
	}
}

// EnsureSchema creates the orders table if absent. Idempotent, safe inside
// the insert transaction.
func (r *pgRepo) EnsureSchema(ctx context.Context, tx pgx.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS orders (
			order_id VARCHAR(50) PRIMARY KEY,
			ship_id VARCHAR(50) NOT NULL,
			part_id VARCHAR(50) NOT NULL,
			quantity INT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
	`

	if _, err := tx.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure orders schema: %w", err)
	}

	return nil
}

func (r *pgRepo) InsertOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.InsertOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.OrderID),
		attribute.String("ship_id", order.ShipID),
	)

	query := `
		INSERT INTO orders (order_id, ship_id, part_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(
		ctx,
		query,
		order.OrderID,
		order.ShipID,
		order.PartID,
		order.Quantity,
		order.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}
