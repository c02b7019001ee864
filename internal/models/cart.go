package models

import "github.com/uptrace/bun"

// CartLine is one entry in an account's active cart. At most one active cart
// exists per account (unique key on account_id + menu_item_id); checkout
// consumes every line for the account atomically once payment is reconciled.
type CartLine struct {
	bun.BaseModel `bun:"table:cart_lines"`

	ID         int64 `json:"id" bun:"id,pk,autoincrement"`
	AccountID  int64 `json:"account_id" bun:"account_id"`
	MenuItemID int64 `json:"menu_item_id" bun:"menu_item_id"`
	Quantity   int   `json:"quantity" bun:"quantity"`

	// Joined from menu_items for totals and snapshots.
	ItemName       string `json:"item_name,omitempty" bun:"-"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty" bun:"-"`
}

type AddCartLineRequest struct {
	MenuItemID int64 `json:"menu_item_id" binding:"required"`
	Quantity   int   `json:"quantity" binding:"required,gte=1"`
}

type CartResponse struct {
	Lines      []*CartLine `json:"lines"`
	TotalCents int64       `json:"total_cents"`
}
