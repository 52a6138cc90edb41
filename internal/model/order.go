package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType is how the customer receives the order.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDineIn   OrderType = "dine_in"
)

// ParseOrderType maps a raw value onto a known order type.
// Empty or unrecognised values fall back to delivery.
func ParseOrderType(s string) OrderType {
	switch OrderType(s) {
	case OrderTypeDelivery, OrderTypePickup, OrderTypeDineIn:
		return OrderType(s)
	default:
		return OrderTypeDelivery
	}
}

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// forward position of each non-cancelled status
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusPreparing:  1,
	OrderStatusReady:      2,
	OrderStatusDelivering: 3,
	OrderStatusDelivered:  4,
}

// IsValid reports whether s is part of the status vocabulary.
func (s OrderStatus) IsValid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether an order of the given type may move from one
// status to another. Moves are forward only, skipping is allowed, cancelled is
// reachable from every non-terminal status and delivering exists only for
// delivery orders.
func CanTransition(from, to OrderStatus, orderType OrderType) bool {
	if !from.IsValid() || !to.IsValid() || from.IsTerminal() || from == to {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	if to == OrderStatusDelivering && orderType != OrderTypeDelivery {
		return false
	}
	return orderStatusRank[to] > orderStatusRank[from]
}

// PaymentStatus tracks whether an order has been paid.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// IsValid reports whether s is a known payment status.
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid
}

// MoneyPlaces is the number of decimal places prices and totals carry.
const MoneyPlaces = 2

// MaxOrderTotal is the largest total the order store can hold.
var MaxOrderTotal = decimal.RequireFromString("9999999999.99")

// IsWholeCents reports whether d needs no more than MoneyPlaces decimals.
func IsWholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ItemID   string          `json:"itemId" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"gte=1"`
}

// Subtotal returns price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTotal sums the subtotals of all items.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Order represents a customer order.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	CustomerID      *uuid.UUID      `json:"customerId,omitempty" db:"customer_id"`
	CustomerName    string          `json:"customerName" db:"customer_name"`
	CustomerEmail   string          `json:"customerEmail" db:"customer_email"`
	CustomerPhone   string          `json:"customerPhone" db:"customer_phone"`
	Items           []OrderItem     `json:"items" db:"items"`
	Total           decimal.Decimal `json:"total" db:"total"`
	OrderType       OrderType       `json:"orderType" db:"order_type"`
	DeliveryAddress *string         `json:"deliveryAddress,omitempty" db:"delivery_address"`
	PaymentMethod   string          `json:"paymentMethod" db:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	Status          OrderStatus     `json:"status" db:"status"`
	SpecialRequests *string         `json:"specialRequests,omitempty" db:"special_requests"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsGuest reports whether the order was placed without a registered customer.
func (o *Order) IsGuest() bool {
	return o.CustomerID == nil
}

// OrderDraft is the payload accepted by checkout and staff order entry.
type OrderDraft struct {
	CustomerID      *uuid.UUID       `json:"customerId,omitempty"`
	CustomerName    string           `json:"customerName" validate:"omitempty,max=200"`
	CustomerEmail   string           `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone   string           `json:"customerPhone" validate:"omitempty,max=40"`
	Items           []OrderItem      `json:"items" validate:"required,min=1,dive"`
	Total           *decimal.Decimal `json:"total,omitempty"`
	OrderType       string           `json:"orderType"`
	DeliveryAddress *string          `json:"deliveryAddress,omitempty"`
	PaymentMethod   string           `json:"paymentMethod" validate:"max=100"`
	SpecialRequests *string          `json:"specialRequests,omitempty" validate:"omitempty,max=2000"`
}

// StatusUpdateRequest is the payload for order status changes.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

// PaymentUpdateRequest is the payload for payment status changes.
type PaymentUpdateRequest struct {
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}
