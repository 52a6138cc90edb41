package service

import (
	"context"

	"bistro/internal/model"

	"github.com/google/uuid"
)

// OrderService defines operations for the order lifecycle.
type OrderService interface {
	// CreateOrder validates a draft and stores it as a new pending order.
	CreateOrder(ctx context.Context, draft *model.OrderDraft) (*model.Order, error)

	// GetOrderByID retrieves an order. Returns model.ErrOrderNotFound when it does not exist.
	GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListOrdersForCustomer retrieves a customer's orders, newest first.
	ListOrdersForCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error)

	// ListAllOrders retrieves every order, newest first.
	ListAllOrders(ctx context.Context) ([]model.Order, error)

	// UpdateOrderStatus moves an order to a new status along the lifecycle.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	// UpdatePaymentStatus records the payment state of an order.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error)
}

// DeliveryService defines operations for driver assignment and delivery progress.
type DeliveryService interface {
	// AssignDriver attaches an available driver to a delivery order.
	AssignDriver(ctx context.Context, orderID uuid.UUID, driverID string) (*model.DeliveryAssignment, error)

	// UpdateDeliveryStatus advances the assignment of an order.
	UpdateDeliveryStatus(ctx context.Context, orderID uuid.UUID, status model.AssignmentStatus) (*model.DeliveryAssignment, error)

	// GetAssignmentForOrder retrieves the assignment of an order.
	GetAssignmentForOrder(ctx context.Context, orderID uuid.UUID) (*model.DeliveryAssignment, error)

	// ListDrivers retrieves the roster, optionally filtered by status.
	ListDrivers(ctx context.Context, status model.DriverStatus) ([]model.Driver, error)

	// GetDriver retrieves a single driver.
	GetDriver(ctx context.Context, id string) (*model.Driver, error)
}

// MessageService defines operations for the per-order conversation.
type MessageService interface {
	// SendMessage appends a message from the sender to the order's conversation.
	SendMessage(ctx context.Context, orderID, senderID uuid.UUID, role model.Role, text string) (*model.OrderMessage, error)

	// GetMessages retrieves the conversation of an order, oldest first.
	GetMessages(ctx context.Context, orderID uuid.UUID) ([]model.OrderMessage, error)

	// Stream calls emit with the conversation history and then with each
	// batch of new messages until ctx is done or emit fails. No message is
	// emitted twice.
	Stream(ctx context.Context, orderID uuid.UUID, emit func([]model.OrderMessage) error) error
}
