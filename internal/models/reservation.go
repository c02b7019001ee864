package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationFailed    ReservationStatus = "failed"
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID              int64             `json:"id" bun:"id,pk,autoincrement"`
	AccountID       int64             `json:"account_id" bun:"account_id"`
	ReservationTime time.Time         `json:"reservation_time" bun:"reservation_time"`
	TableNumber     int               `json:"table_number" bun:"table_number"`
	Phone           string            `json:"phone" bun:"phone"`
	Status          ReservationStatus `json:"status" bun:"status"`
	CreatedAt       time.Time         `json:"created_at" bun:"created_at"`
}

type ReservationRequest struct {
	ReservationTime string `json:"reservation_time" binding:"required"`
	TableNumber     int    `json:"table_number" binding:"required,gte=1"`
	Phone           string `json:"phone" binding:"required"`
	Simulate        bool   `json:"simulate"`
}
