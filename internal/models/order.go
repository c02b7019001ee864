package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderFailed    OrderStatus = "failed"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID         int64       `json:"id" bun:"id,pk,autoincrement"`
	AccountID  int64       `json:"account_id" bun:"account_id"`
	Status     OrderStatus `json:"status" bun:"status"`
	Phone      string      `json:"phone" bun:"phone"`
	TotalCents int64       `json:"total_cents" bun:"total_cents"`
	CreatedAt  time.Time   `json:"created_at" bun:"created_at"`

	Lines []*OrderLine `json:"lines,omitempty" bun:"-"`
}

// OrderLine is a snapshot of a cart line at checkout time. Name and unit price
// are copied from the menu item so later menu edits cannot change what was sold.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID             int64  `json:"id" bun:"id,pk,autoincrement"`
	OrderID        int64  `json:"order_id" bun:"order_id"`
	MenuItemID     int64  `json:"menu_item_id" bun:"menu_item_id"`
	ItemName       string `json:"item_name" bun:"item_name"`
	UnitPriceCents int64  `json:"unit_price_cents" bun:"unit_price_cents"`
	Quantity       int    `json:"quantity" bun:"quantity"`
}

type CheckoutRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Simulate bool   `json:"simulate"`
}
