package models

import "github.com/uptrace/bun"

type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID          int64  `json:"id" bun:"id,pk,autoincrement"`
	Name        string `json:"name" bun:"name"`
	Description string `json:"description,omitempty" bun:"description"`
	PriceCents  int64  `json:"price_cents" bun:"price_cents"`
	Category    string `json:"category,omitempty" bun:"category"`
	ImageURL    string `json:"image_url,omitempty" bun:"image_url"`
	InventoryID int64  `json:"inventory_id,omitempty" bun:"inventory_id,nullzero"`
}

type InventoryItem struct {
	bun.BaseModel `bun:"table:inventory"`

	ID       int64  `json:"id" bun:"id,pk,autoincrement"`
	ItemName string `json:"item_name" bun:"item_name"`
	Quantity int    `json:"quantity" bun:"quantity"`
}

type MenuItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents" binding:"required,gt=0"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	InventoryID int64  `json:"inventory_id"`
}
