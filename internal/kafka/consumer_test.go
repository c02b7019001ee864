package kafka_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bahari-bites/internal/kafka"
	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"
	"bahari-bites/internal/utils"
)

// TestPaymentEventRoundTrip publishes a payment event through the producer
// and waits for the consumer group to deliver it. Requires a running Kafka
// broker; skipped otherwise.
func TestPaymentEventRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = "localhost:29092" // Default from docker-compose
	}

	log := logger.NewLogger()

	producer, err := kafka.NewProducer([]string{kafkaBrokers}, false, log)
	if err != nil {
		t.Skip("Skipping test because Kafka is not available:", err)
		return
	}
	defer producer.Close()

	groupID := "test-consumer-group-" + time.Now().Format("20060102150405")
	consumer, err := kafka.NewConsumer([]string{kafkaBrokers}, groupID)
	require.NoError(t, err)
	defer consumer.Close()

	checkoutRequestID := fmt.Sprintf("ws_CO_test_%d", time.Now().UnixNano())
	received := make(chan *models.PaymentEvent, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := consumer.ConsumePaymentEvents(ctx, func(event *models.PaymentEvent) error {
			if event.CheckoutReqID == checkoutRequestID {
				received <- event
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			t.Logf("Consumer stopped: %v", err)
		}
	}()

	// Give the consumer group time to join before publishing.
	time.Sleep(3 * time.Second)

	event := &models.PaymentEvent{
		Type:          "payment.success",
		CheckoutReqID: checkoutRequestID,
		Transaction: &models.PaymentTransaction{
			CheckoutRequestID: checkoutRequestID,
			ResultCode:        0,
			AmountCents:       350_00,
			ReceiptNumber:     "SFC7RK61TV",
			OrderID:           7,
		},
		Timestamp: time.Now(),
	}
	require.NoError(t, producer.PublishPaymentEvent(event))

	select {
	case got := <-received:
		assert.Equal(t, "payment.success", got.Type)
		require.NotNil(t, got.Transaction)
		assert.Equal(t, int64(350_00), got.Transaction.AmountCents)
		assert.Equal(t, int64(7), got.Transaction.OrderID)
	case <-time.After(20 * time.Second):
		t.Fatalf("Timeout waiting for payment event %s", checkoutRequestID)
	}
}

// TestPaymentEventHandlerDecodes exercises the claim handler directly with a
// canned message, no broker needed.
func TestPaymentEventHandlerDecodes(t *testing.T) {
	var got *models.PaymentEvent
	handler := &kafka.PaymentEventHandler{
		Handler: func(event *models.PaymentEvent) error {
			got = event
			return nil
		},
	}

	event := &models.PaymentEvent{
		EventID:       utils.GenerateEventID(),
		Type:          "payment.failed",
		CheckoutReqID: "ws_CO_9",
		Transaction:   &models.PaymentTransaction{CheckoutRequestID: "ws_CO_9", ResultCode: 1032},
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	session := &stubSession{}
	claim := &stubClaim{messages: []*sarama.ConsumerMessage{{Topic: "payment-failed", Value: data}}}
	require.NoError(t, handler.ConsumeClaim(session, claim))

	require.NotNil(t, got)
	assert.Equal(t, event.EventID, got.EventID)
	assert.Equal(t, "payment.failed", got.Type)
	assert.Equal(t, 1032, got.Transaction.ResultCode)
	assert.True(t, session.marked)
}

type stubSession struct {
	marked bool
}

func (s *stubSession) Claims() map[string][]int32                               { return nil }
func (s *stubSession) MemberID() string                                         { return "" }
func (s *stubSession) GenerationID() int32                                      { return 0 }
func (s *stubSession) MarkOffset(string, int32, int64, string)                  {}
func (s *stubSession) Commit()                                                  {}
func (s *stubSession) ResetOffset(string, int32, int64, string)                 {}
func (s *stubSession) MarkMessage(*sarama.ConsumerMessage, string)              { s.marked = true }
func (s *stubSession) Context() context.Context                                 { return context.Background() }

type stubClaim struct {
	messages []*sarama.ConsumerMessage
}

func (c *stubClaim) Topic() string              { return "payment-failed" }
func (c *stubClaim) Partition() int32           { return 0 }
func (c *stubClaim) InitialOffset() int64       { return 0 }
func (c *stubClaim) HighWaterMarkOffset() int64 { return 0 }
func (c *stubClaim) Messages() <-chan *sarama.ConsumerMessage {
	ch := make(chan *sarama.ConsumerMessage, len(c.messages))
	for _, m := range c.messages {
		ch <- m
	}
	close(ch)
	return ch
}
