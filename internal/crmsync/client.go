package crmsync

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
)

// CRMClient pushes an order into the external CRM. UpsertOrder must be
// idempotent per orderId: queue redelivery makes repeats inevitable, so the
// CRM side keys the sync on orderId.
type CRMClient interface {
	UpsertOrder(ctx context.Context, order domain.Order) error
}

// salesforceClient simulates the Salesforce round trip. The breaker stops
// hammering the CRM while it is down; tripped calls fail fast and the
// records are redelivered later.
type salesforceClient struct {
	breaker *gobreaker.CircuitBreaker
	latency time.Duration
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewSalesforceClient(logger *zap.Logger) CRMClient {
	settings := gobreaker.Settings{
		Name:        "SalesforceSync",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &salesforceClient{
		breaker: gobreaker.NewCircuitBreaker(settings),
		latency: time.Second,
		logger:  logger,
		tracer:  otel.Tracer("crmsync/salesforce"),
	}
}

func (c *salesforceClient) UpsertOrder(ctx context.Context, order domain.Order) error {
	ctx, span := c.tracer.Start(ctx, "Salesforce.UpsertOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.OrderID),
		attribute.String("ship_id", order.ShipID),
	)

	_, err := c.breaker.Execute(func() (interface{}, error) {
		// Stand-in for the real API call.
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return nil, nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	mylogger.Info(
		ctx,
		c.logger,
		"Order synced to CRM",
		zap.String("order_id", order.OrderID),
		zap.String("ship_id", order.ShipID),
	)

	return nil
}
