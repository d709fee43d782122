package broadcast

import (
	"context"

	"fraud-detector/internal/kafka"
	"fraud-detector/internal/models"
)

// KafkaSubscriber forwards alerts to a Kafka topic.
type KafkaSubscriber struct {
	producer kafka.Producer
}

func NewKafkaSubscriber(producer kafka.Producer) *KafkaSubscriber {
	return &KafkaSubscriber{producer: producer}
}

func (s *KafkaSubscriber) ID() string { return "kafka" }

func (s *KafkaSubscriber) Deliver(ctx context.Context, payload models.AlertPayload) error {
	return s.producer.SendAlertEvent(ctx, payload)
}

func (s *KafkaSubscriber) Close() error {
	return s.producer.Close()
}
