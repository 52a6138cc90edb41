package repository

import (
	"context"
	"time"

	"bistro/internal/model"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts a new order.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order by its ID. Returns nil, nil when no row matches.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByCustomer retrieves a customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error)

	// ListAll retrieves every order, newest first.
	ListAll(ctx context.Context) ([]model.Order, error)

	// UpdateStatus moves an order from one status to another. The write only
	// applies while the stored status still equals from; otherwise
	// model.ErrInvalidTransition is returned. Cancelling an order that is out
	// for delivery returns its driver to the available pool in the same write.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error

	// UpdatePaymentStatus sets the payment status of an order.
	// Returns model.ErrOrderNotFound when no row matches.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error
}

// AssignmentRepository defines the interface for delivery assignment data access.
// Both write operations touch the assignment, its order and its driver and are
// applied atomically.
type AssignmentRepository interface {
	// Assign claims the driver (available -> delivering), inserts the
	// assignment and moves the order from orderFrom to delivering.
	// Returns model.ErrDriverUnavailable, model.ErrAssignmentExists or
	// model.ErrInvalidTransition when a precondition no longer holds.
	Assign(ctx context.Context, assignment *model.DeliveryAssignment, orderFrom model.OrderStatus) error

	// GetByOrderID retrieves the assignment of an order. Returns nil, nil when none exists.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.DeliveryAssignment, error)

	// Advance moves the assignment from one status to another. Moving to
	// delivered stamps deliveredAt, marks the order delivered and returns the
	// driver to the available pool. Returns model.ErrInvalidTransition when
	// the stored status no longer equals from.
	Advance(ctx context.Context, id uuid.UUID, from, to model.AssignmentStatus, at time.Time) error
}

// DriverRepository defines the interface for driver roster data access.
type DriverRepository interface {
	// List retrieves drivers ordered by name. An empty status lists every driver.
	List(ctx context.Context, status model.DriverStatus) ([]model.Driver, error)

	// GetByID retrieves a driver. Returns nil, nil when no row matches.
	GetByID(ctx context.Context, id string) (*model.Driver, error)

	// Upsert inserts or refreshes roster entries. The status of a driver that
	// is currently delivering is preserved.
	Upsert(ctx context.Context, drivers []model.Driver) error
}

// MessageRepository defines the interface for order message data access.
type MessageRepository interface {
	// Create appends a message.
	Create(ctx context.Context, message *model.OrderMessage) error

	// ListByOrder retrieves the messages of an order, oldest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderMessage, error)
}

// Store bundles the repositories backed by one data source.
type Store struct {
	Orders      OrderRepository
	Assignments AssignmentRepository
	Drivers     DriverRepository
	Messages    MessageRepository

	// Mode names the backing data source ("postgres" or "memory").
	Mode string
}

// Durable reports whether data written to the store survives a restart.
func (s *Store) Durable() bool {
	return s.Mode != ModeMemory
}

// Store modes.
const (
	ModePostgres = "postgres"
	ModeMemory   = "memory"
)
