// Package eventbus carries domain events from producers to subscriber
// queues. Producers publish onto a single Kafka ingress topic; the Router
// consumes it and copies each event to every queue whose static rule
// matches. Delivery past the bus is at-least-once.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
)

type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher creates a sync producer against the bus ingress topic.
// A nil error from Publish means the bus accepted the event, not that any
// subscriber has seen it.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (Publisher, func() error, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating producer: %w", err)
	}

	return &kafkaPublisher{producer: p, topic: topic, logger: logger}, p.Close, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshalling event: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]sarama.RecordHeader, 0, len(carrier)+1)
	headers = append(headers, sarama.RecordHeader{
		Key:   []byte("bus"),
		Value: []byte(event.BusName),
	})
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(event.Source),
		Value:   sarama.ByteEncoder(value),
		Headers: headers,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	mylogger.Debug(
		ctx,
		p.logger,
		"Event accepted by bus",
		zap.String("detail_type", event.DetailType),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}
