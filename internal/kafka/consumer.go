package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"

	"bahari-bites/internal/models"
)

// Consumer feeds payment lifecycle events to downstream integrations
// (kitchen display, analytics). It is not part of the reconciliation path;
// the orchestrator's side effects are synchronous.
type Consumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
}

func NewConsumer(brokers []string, groupID string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	topics := []string{"payment-success", "payment-failed", "payment-reversed"}

	return &Consumer{
		consumer: consumer,
		topics:   topics,
	}, nil
}

func (c *Consumer) ConsumePaymentEvents(ctx context.Context, handler func(*models.PaymentEvent) error) error {
	consumerHandler := &PaymentEventHandler{Handler: handler}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
				log.Printf("Error consuming messages: %v", err)
				return err
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

// PaymentEventHandler is exported for testing purposes.
type PaymentEventHandler struct {
	Handler func(*models.PaymentEvent) error
}

func (h *PaymentEventHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *PaymentEventHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *PaymentEventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event models.PaymentEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			continue
		}

		if err := h.Handler(&event); err != nil {
			log.Printf("Failed to handle payment event: %v", err)
			continue
		}

		session.MarkMessage(message, "")
	}

	return nil
}
