// Package alerts consumes the critical-alerts queue and notifies operators.
// Same batch contract as the CRM sync consumer: per-record isolation,
// failed ids reported for selective redelivery.
package alerts

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

type BatchQueue interface {
	EnsureGroup(ctx context.Context, stream string) error
	Receive(ctx context.Context, stream string, max int64, block time.Duration) ([]queue.Message, error)
	Ack(ctx context.Context, stream string, ids ...string) error
}

type Consumer struct {
	queue     BatchQueue
	notifier  Notifier
	stream    string
	batchSize int64
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewConsumer(q BatchQueue, notifier Notifier, stream string, batchSize int64, logger *zap.Logger) *Consumer {
	return &Consumer{
		queue:     q,
		notifier:  notifier,
		stream:    stream,
		batchSize: batchSize,
		logger:    logger,
		tracer:    otel.Tracer("alerts/consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	if err := c.queue.EnsureGroup(ctx, c.stream); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			mylogger.Info(ctx, c.logger, "Alerts consumer stopping")
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
			if !isFailed(failed, msg.ID) {
				acks = append(acks, msg.ID)
			}
		}

		if err := c.queue.Ack(ctx, c.stream, acks...); err != nil {
			mylogger.Error(ctx, c.logger, "Failed to ack batch", zap.Error(err))
		}
	}
}

func (c *Consumer) ProcessBatch(ctx context.Context, msgs []queue.Message) []string {
	ctx, span := c.tracer.Start(ctx, "Alerts.ProcessBatch")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", len(msgs)))

	var failed []string
	for _, msg := range msgs {
		if err := c.processRecord(ctx, msg); err != nil {
			consumerErr := &apperr.ConsumerError{MessageID: msg.ID, Err: err}
			span.RecordError(consumerErr)

			mylogger.Error(
				ctx,
				c.logger,
				"Alert record failed, will be redelivered",
				zap.String("message_id", msg.ID),
				zap.Error(consumerErr),
			)

			failed = append(failed, msg.ID)
		}
	}

	return failed
}

func (c *Consumer) processRecord(ctx context.Context, msg queue.Message) error {
	var event domain.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("unwrap envelope: %w", err)
	}

	var alert domain.CriticalAlert
	if err := json.Unmarshal(event.Detail, &alert); err != nil {
		return fmt.Errorf("unwrap alert detail: %w", err)
	}

	if err := c.notifier.NotifyCriticalAlert(ctx, alert); err != nil {
		return err
	}

	mylogger.Info(
		ctx,
		c.logger,
		"Critical alert handled",
		zap.String("message_id", msg.ID),
		zap.String("ship_id", alert.ShipID),
	)

	return nil
}

func isFailed(failed []string, id string) bool {
	for _, f := range failed {
		if f == id {
			return true
		}
	}
	return false
}
