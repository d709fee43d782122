package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"fraud-detector/internal/models"

	"github.com/nsqio/go-nsq"
)

// nsqPublisher is the part of *nsq.Producer the subscriber uses.
type nsqPublisher interface {
	Publish(topic string, body []byte) error
	Stop()
}

type NSQSubscriber struct {
	producer nsqPublisher
	topic    string
}

// NewNSQProducer connects to nsqd and checks it is reachable.
func NewNSQProducer(addr string) (*nsq.Producer, error) {
	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}
	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("failed to ping NSQ daemon: %w", err)
	}
	return producer, nil
}

func NewNSQSubscriber(producer nsqPublisher, topic string) *NSQSubscriber {
	return &NSQSubscriber{producer: producer, topic: topic}
}

func (s *NSQSubscriber) ID() string { return "nsq:" + s.topic }

// Deliver publishes synchronously; nsq has no context support so the call is
// abandoned, not aborted, when ctx expires.
func (s *NSQSubscriber) Deliver(ctx context.Context, payload models.AlertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.producer.Publish(s.topic, data)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("nsq publish to %s: %w", s.topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *NSQSubscriber) Close() error {
	s.producer.Stop()
	return nil
}
