package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the explicit role carried by an identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return true
	default:
		return false
	}
}

// IsStaff reports whether r is allowed to work on any order.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// OrderMessage is one entry of the conversation attached to an order.
type OrderMessage struct {
	ID         uuid.UUID `json:"id" db:"id"`
	OrderID    uuid.UUID `json:"orderId" db:"order_id"`
	SenderID   uuid.UUID `json:"senderId" db:"sender_id"`
	SenderRole Role      `json:"senderRole" db:"sender_role"`
	Message    string    `json:"message" db:"message"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// SendMessageRequest is the payload for posting a message.
type SendMessageRequest struct {
	Message string `json:"message"`
}
