// Package crmsync consumes the order-creation queue in batches and syncs
// each order to the CRM. Records fail individually: the consumer reports
// failed message ids for selective redelivery and acks the rest, so one bad
// record neither blocks its siblings nor gets silently dropped.
package crmsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
	"github.com/Nibir1/Nexus-Marine/internal/queue"
)

// BatchQueue is the slice of the queue the consumer needs.
type BatchQueue interface {
	EnsureGroup(ctx context.Context, stream string) error
	Receive(ctx context.Context, stream string, max int64, block time.Duration) ([]queue.Message, error)
	Ack(ctx context.Context, stream string, ids ...string) error
}

type Consumer struct {
	queue     BatchQueue
	crm       CRMClient
	stream    string
	batchSize int64
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewConsumer(q BatchQueue, crm CRMClient, stream string, batchSize int64, logger *zap.Logger) *Consumer {
	return &Consumer{
		queue:     q,
		crm:       crm,
		stream:    stream,
		batchSize: batchSize,
		logger:    logger,
		tracer:    otel.Tracer("crmsync/consumer"),
	}
}

// Run receives batches until the context is cancelled. Only message ids
// outside the failed set are acked; failures come back after the
// visibility window.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.queue.EnsureGroup(ctx, c.stream); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			mylogger.Info(ctx, c.logger, "CRM sync consumer stopping")
			return nil
		}

		msgs, err := c.queue.Receive(ctx, c.stream, c.batchSize, 2*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			mylogger.Error(ctx, c.logger, "Failed to receive batch", zap.Error(err))
			continue
		}

		if len(msgs) == 0 {
			continue
		}

		failed := c.ProcessBatch(ctx, msgs)

		acks := make([]string, 0, len(msgs))
		for _, msg := range msgs {
			if !contains(failed, msg.ID) {
				acks = append(acks, msg.ID)
			}
		}

		if err := c.queue.Ack(ctx, c.stream, acks...); err != nil {
			mylogger.Error(ctx, c.logger, "Failed to ack batch", zap.Error(err))
		}
	}
}

// ProcessBatch syncs each record independently and returns the ids of the
// records that failed. An empty result means the whole batch succeeded.
func (c *Consumer) ProcessBatch(ctx context.Context, msgs []queue.Message) []string {
	ctx, span := c.tracer.Start(ctx, "CRMSync.ProcessBatch")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", len(msgs)))

	mylogger.Info(
		ctx,
		c.logger,
		"Processing CRM sync batch",
		zap.Int("records", len(msgs)),
	)

	var failed []string
	for _, msg := range msgs {
		if err := c.processRecord(ctx, msg); err != nil {
			consumerErr := &apperr.ConsumerError{MessageID: msg.ID, Err: err}
			span.RecordError(consumerErr)

			mylogger.Error(
				ctx,
				c.logger,
				"Record failed, will be redelivered",
				zap.String("message_id", msg.ID),
				zap.Int64("delivery_count", msg.DeliveryCount),
				zap.Error(consumerErr),
			)

			failed = append(failed, msg.ID)
		}
	}

	span.SetAttributes(attribute.Int("failed", len(failed)))
	return failed
}

func (c *Consumer) processRecord(ctx context.Context, msg queue.Message) error {
	order, err := unwrapOrder(msg.Body)
	if err != nil {
		return err
	}

	if err := c.crm.UpsertOrder(ctx, order); err != nil {
		return fmt.Errorf("crm sync: %w", err)
	}

	mylogger.Info(
		ctx,
		c.logger,
		"Synced order",
		zap.String("message_id", msg.ID),
		zap.String("order_id", order.OrderID),
	)

	return nil
}

// unwrapOrder peels the routed event envelope off the queue message and
// recovers the order payload.
func unwrapOrder(body []byte) (domain.Order, error) {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return domain.Order{}, fmt.Errorf("unwrap envelope: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(event.Detail, &order); err != nil {
		return domain.Order{}, fmt.Errorf("unwrap order detail: %w", err)
	}

	if order.OrderID == "" {
		return domain.Order{}, fmt.Errorf("order detail is missing orderId")
	}

	return order, nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
