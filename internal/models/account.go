package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

type Account struct {
	bun.BaseModel `bun:"table:accounts"`

	ID           int64     `json:"id" bun:"id,pk,autoincrement"`
	Username     string    `json:"username" bun:"username,unique"`
	Email        string    `json:"email" bun:"email,unique"`
	Phone        string    `json:"phone,omitempty" bun:"phone,unique,nullzero"`
	PasswordHash string    `json:"-" bun:"password_hash"`
	Role         Role      `json:"role" bun:"role"`
	CreatedAt    time.Time `json:"created_at" bun:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

// LoginRequest accepts either the username or the email in Credential.
type LoginRequest struct {
	Credential string `json:"credential" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
