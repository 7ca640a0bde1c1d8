// Package queue implements the subscriber queues on Redis Streams with
// consumer groups. Semantics mirror the delivery contract the consumers
// rely on: a received message stays invisible to other consumers while it
// is pending; unacked messages past the visibility window are reclaimed and
// redelivered; acks are per message, so one failed record in a batch never
// forces redelivery of its siblings.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
)

const bodyField = "body"

// Message is one queue delivery. DeliveryCount starts at 1 and grows on
// every redelivery.
type Message struct {
	ID            string
	Body          []byte
	DeliveryCount int64
}

type Streams struct {
	client        *redis.Client
	group         string
	consumer      string
	visibility    time.Duration
	maxDeliveries int64
	logger        *zap.Logger
	tracer        trace.Tracer
}

type StreamsConfig struct {
	Group         string
	Consumer      string
	Visibility    time.Duration
	MaxDeliveries int64
}

func NewStreams(client *redis.Client, cfg StreamsConfig, logger *zap.Logger) *Streams {
	return &Streams{
		client:        client,
		group:         cfg.Group,
		consumer:      cfg.Consumer,
		visibility:    cfg.Visibility,
		maxDeliveries: cfg.MaxDeliveries,
		logger:        logger,
		tracer:        otel.Tracer("queue/streams"),
	}
}

// Append adds a message to a queue and returns its id. Used by the router
// only; consumers never write to their own queues.
func (s *Streams) Append(ctx context.Context, stream string, body []byte) (string, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{bodyField: string(body)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}

	return id, nil
}

// EnsureGroup creates the consumer group if it does not exist yet, reading
// from the beginning of the stream.
func (s *Streams) EnsureGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", s.group, stream, err)
	}

	return nil
}

// Receive returns up to max messages: first any pending messages whose
// visibility window has expired, then fresh ones. Messages past the max
// delivery count are moved to the dead-letter stream instead of being
// handed out again.
func (s *Streams) Receive(ctx context.Context, stream string, max int64, block time.Duration) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "Streams.Receive")
	defer span.End()

	span.SetAttributes(attribute.String("queue", stream))

	reclaimed, err := s.reclaim(ctx, stream, max)
	if err != nil {
		return nil, err
	}

	msgs := reclaimed
	if remaining := max - int64(len(msgs)); remaining > 0 {
		fresh, err := s.readFresh(ctx, stream, remaining, block)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, fresh...)
	}

	span.SetAttributes(attribute.Int("received", len(msgs)))
	return msgs, nil
}

// Ack marks messages as done so they are never redelivered.
func (s *Streams) Ack(ctx context.Context, stream string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.client.XAck(ctx, stream, s.group, ids...).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", stream, err)
	}

	return nil
}

func (s *Streams) readFresh(ctx context.Context, stream string, count int64, block time.Duration) ([]Message, error) {
	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup %s: %w", stream, err)
	}

	var msgs []Message
	for _, str := range res {
		for _, m := range str.Messages {
			msgs = append(msgs, Message{ID: m.ID, Body: bodyOf(m), DeliveryCount: 1})
		}
	}

	return msgs, nil
}

func (s *Streams) reclaim(ctx context.Context, stream string, count int64) ([]Message, error) {
	claimed, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    s.group,
		Consumer: s.consumer,
		MinIdle:  s.visibility,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xautoclaim %s: %w", stream, err)
	}

	if len(claimed) == 0 {
		return nil, nil
	}

	counts, err := s.deliveryCounts(ctx, stream, claimed[0].ID, claimed[len(claimed)-1].ID, int64(len(claimed)))
	if err != nil {
		return nil, err
	}

	var msgs []Message
	for _, m := range claimed {
		deliveries := counts[m.ID]

		if s.maxDeliveries > 0 && deliveries > s.maxDeliveries {
			if err := s.deadLetter(ctx, stream, m); err != nil {
				return nil, err
			}
			continue
		}

		msgs = append(msgs, Message{ID: m.ID, Body: bodyOf(m), DeliveryCount: deliveries})
	}

	return msgs, nil
}

func (s *Streams) deliveryCounts(ctx context.Context, stream, start, end string, count int64) (map[string]int64, error) {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  s.group,
		Start:  start,
		End:    end,
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending %s: %w", stream, err)
	}

	counts := make(map[string]int64, len(pending))
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}

	return counts, nil
}

func (s *Streams) deadLetter(ctx context.Context, stream string, m redis.XMessage) error {
	dlq := DeadLetterStream(stream)

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: dlq,
		Values: m.Values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", dlq, err)
	}

	if err := s.client.XAck(ctx, stream, s.group, m.ID).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", stream, err)
	}

	mylogger.Warn(
		ctx,
		s.logger,
		"Message exceeded max deliveries, moved to dead letter stream",
		zap.String("queue", stream),
		zap.String("message_id", m.ID),
	)

	return nil
}

func DeadLetterStream(stream string) string { return stream + ":dead" }

func bodyOf(m redis.XMessage) []byte {
	if v, ok := m.Values[bodyField].(string); ok {
		return []byte(v)
	}
	return nil
}
