// Package kafka publishes session events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/proctor/internal/domain/model"
)

// SinkName identifies the publisher in metrics and logs.
const SinkName = "kafka"

const defaultBatchTimeout = 10 * time.Millisecond

var (
	// ErrNoBrokers is returned when the publisher has nowhere to write.
	ErrNoBrokers = errors.New("kafka: no brokers configured")
	// ErrNoTopic is returned when the topic is empty.
	ErrNoTopic = errors.New("kafka: topic is required")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes one message per event, keyed by session id so a session's
// events stay ordered within a partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithWriter replaces the underlying kafka writer.
func WithWriter(w messageWriter) Option {
	return func(p *Publisher) {
		if w != nil {
			p.writer = w
		}
	}
}

// NewPublisher builds a publisher for topic on brokers.
func NewPublisher(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if topic == "" {
		return nil, ErrNoTopic
	}
	p := &Publisher{topic: topic}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		if len(brokers) == 0 {
			return nil, ErrNoBrokers
		}
		p.writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           defaultBatchTimeout,
			AllowAutoTopicCreation: true,
		}
	}
	return p, nil
}

// Name implements worker.Sink.
func (p *Publisher) Name() string { return SinkName }

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// Publish implements worker.Sink.
func (p *Publisher) Publish(ctx context.Context, e model.SessionEvent) error { //nolint:gocritic // hugeParam: matches Sink
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(e.SessionID),
		Value: payload,
		Time:  e.Event.Timestamp,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(e.Event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
