package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PaymentTransaction records one gateway round trip. Rows are append-only:
// the orchestrator never rewrites a transaction, a corrective reversal gets
// its own row. Exactly one of OrderID / ReservationID is set.
type PaymentTransaction struct {
	bun.BaseModel `bun:"table:mpesa_transactions"`

	ID                int64     `json:"id" bun:"id,pk,autoincrement"`
	MerchantRequestID string    `json:"merchant_request_id" bun:"merchant_request_id"`
	CheckoutRequestID string    `json:"checkout_request_id" bun:"checkout_request_id,unique"`
	ResultCode        int       `json:"result_code" bun:"result_code"`
	ResultDescription string    `json:"result_description" bun:"result_description"`
	AmountCents       int64     `json:"amount_cents" bun:"amount_cents"`
	ReceiptNumber     string    `json:"mpesa_receipt_number" bun:"mpesa_receipt_number"`
	TransactionDate   time.Time `json:"transaction_date" bun:"transaction_date"`
	Phone             string    `json:"phone_number" bun:"phone_number"`
	OrderID           int64     `json:"order_id,omitempty" bun:"order_id,nullzero"`
	ReservationID     int64     `json:"reservation_id,omitempty" bun:"reservation_id,nullzero"`
	CreatedAt         time.Time `json:"created_at" bun:"created_at"`
}

// DomainRef ties a payment attempt to the order or reservation it pays for.
// Exactly one field must be non-zero.
type DomainRef struct {
	OrderID       int64
	ReservationID int64
}

func (r DomainRef) Valid() bool {
	return (r.OrderID != 0) != (r.ReservationID != 0)
}

type PaymentEvent struct {
	EventID       string              `json:"event_id"`
	Type          string              `json:"type"`
	CheckoutReqID string              `json:"checkout_request_id"`
	Transaction   *PaymentTransaction `json:"transaction"`
	Timestamp     time.Time           `json:"timestamp"`
}
