package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
)

// Rule forwards events whose source and detail type both match exactly.
// No wildcards, no payload inspection.
type Rule struct {
	Source     string
	DetailType string
	Queue      string
}

// DefaultRules are the two static subscriptions of the system.
func DefaultRules(alertsQueue, crmSyncQueue string) []Rule {
	return []Rule{
		{Source: domain.SourceTelemetry, DetailType: domain.DetailTypeCriticalAlert, Queue: alertsQueue},
		{Source: domain.SourceOrders, DetailType: domain.DetailTypeOrderCreated, Queue: crmSyncQueue},
	}
}

// QueueWriter appends a routed event copy to a subscriber queue.
type QueueWriter interface {
	Append(ctx context.Context, queue string, body []byte) (string, error)
}

type Router struct {
	rules  []Rule
	queues QueueWriter
	logger *zap.Logger
	tracer trace.Tracer
}

func NewRouter(rules []Rule, queues QueueWriter, logger *zap.Logger) *Router {
	return &Router{
		rules:  rules,
		queues: queues,
		logger: logger,
		tracer: otel.Tracer("eventbus/router"),
	}
}

// Match returns the target queues for an event, in rule order.
func (r *Router) Match(event domain.Event) []string {
	var queues []string
	for _, rule := range r.rules {
		if rule.Source == event.Source && rule.DetailType == event.DetailType {
			queues = append(queues, rule.Queue)
		}
	}
	return queues
}

// Route delivers a copy of the raw event to every matching queue. A
// delivery failure surfaces so the bus message stays unmarked and the whole
// event is redelivered; consumers tolerate the resulting duplicates.
func (r *Router) Route(ctx context.Context, raw []byte) error {
	ctx, span := r.tracer.Start(ctx, "Router.Route")
	defer span.End()

	var event domain.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		// Poison input: log and drop, redelivery cannot fix it.
		mylogger.Error(ctx, r.logger, "Dropping unparseable event", zap.Error(err))
		return nil
	}

	span.SetAttributes(
		attribute.String("event.source", event.Source),
		attribute.String("event.detail_type", event.DetailType),
	)

	queues := r.Match(event)
	if len(queues) == 0 {
		mylogger.Debug(
			ctx,
			r.logger,
			"No subscription for event",
			zap.String("source", event.Source),
			zap.String("detail_type", event.DetailType),
		)
		return nil
	}

	for _, queue := range queues {
		id, err := r.queues.Append(ctx, queue, raw)
		if err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to deliver event to queue",
				zap.String("queue", queue),
				zap.String("detail_type", event.DetailType),
				zap.Error(err),
			)

			return fmt.Errorf("failed to deliver to %s: %w", queue, err)
		}

		mylogger.Info(
			ctx,
			r.logger,
			"Event routed",
			zap.String("queue", queue),
			zap.String("detail_type", event.DetailType),
			zap.String("message_id", id),
		)
	}

	return nil
}

// Handle adapts Route to the consumer group handler signature.
func (r *Router) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	return r.Route(ctx, msg.Value)
}
