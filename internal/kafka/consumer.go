package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/models"

	"github.com/IBM/sarama"
)

type TransactionProcessor interface {
	ProcessTransaction(ctx context.Context, raw models.RawTransaction) (*models.IngestOutcome, error)
}

// Consumer feeds raw transactions from a topic into the pipeline. It runs a
// single consumer loop so transactions are evaluated in partition order.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	processor     TransactionProcessor
	topic         string
	log           *slog.Logger
	wg            sync.WaitGroup
}

func NewConsumer(brokers []string, groupID, topic string, processor TransactionProcessor, log *slog.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info("kafka consumer created",
		slog.String("group_id", groupID),
		slog.String("topic", topic))

	return &Consumer{
		consumerGroup: consumerGroup,
		processor:     processor,
		topic:         topic,
		log:           log,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) {
	c.log.Info("starting kafka consumer", slog.String("topic", c.topic))

	handler := &consumerGroupHandler{processor: c.processor, log: c.log}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consumerGroup.Consume(ctx, []string{c.topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.log.Error("consume failed", slog.String("error", err.Error()))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.log.Error("consumer group error", slog.String("error", err.Error()))
		}
	}()
}

func (c *Consumer) Close(ctx context.Context) error {
	c.log.Info("closing kafka consumer")

	done := make(chan struct{})
	go func() {
		if err := c.consumerGroup.Close(); err != nil {
			c.log.Error("failed to close consumer group", slog.String("error", err.Error()))
		}
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.log.Info("kafka consumer closed")
		return nil
	case <-ctx.Done():
		c.log.Warn("kafka consumer close timeout")
		return ctx.Err()
	}
}

type consumerGroupHandler struct {
	processor TransactionProcessor
	log       *slog.Logger
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks a message once it is committed, skipped as a duplicate
// or rejected as invalid. A store failure ends the claim without marking, so
// the message is redelivered after the rebalance.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.processMessage(session.Context(), message); err != nil {
			h.log.Error("failed to process message",
				slog.String("topic", message.Topic),
				slog.Int64("offset", message.Offset),
				slog.String("error", err.Error()))
			return err
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *consumerGroupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	h.log.Debug("message received",
		slog.String("topic", message.Topic),
		slog.Int("partition", int(message.Partition)),
		slog.Int64("offset", message.Offset))

	var raw models.RawTransaction
	if err := json.Unmarshal(message.Value, &raw); err != nil {
		h.log.Error("undecodable transaction, skipping",
			slog.Int64("offset", message.Offset),
			slog.String("error", err.Error()),
			slog.String("raw_message", string(message.Value)))
		return nil
	}

	outcome, err := h.processor.ProcessTransaction(ctx, raw)
	switch {
	case errors.Is(err, custom_err.ErrMalformedTimestamp), errors.Is(err, custom_err.ErrInvalidInput):
		h.log.Error("invalid transaction, skipping",
			slog.String("transaction_id", raw.ID),
			slog.String("error", err.Error()))
		return nil
	case err != nil:
		return err
	}

	h.log.Info("transaction consumed",
		slog.String("transaction_id", outcome.TransactionID),
		slog.Bool("skipped", outcome.Skipped),
		slog.Int("risk_score", outcome.Score.RiskScore))
	return nil
}
