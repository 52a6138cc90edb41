package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bistro/internal/model"
	"bistro/internal/realtime"
	"bistro/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orders      repository.OrderRepository
	assignments repository.AssignmentRepository
	publisher   realtime.Publisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	assignments repository.AssignmentRepository,
	publisher realtime.Publisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orders:      orders,
		assignments: assignments,
		publisher:   publisher,
		logger:      logger.With().Str("service", "order").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates the draft, prices it and stores a pending order.
func (s *orderService) CreateOrder(ctx context.Context, draft *model.OrderDraft) (*model.Order, error) {
	order, err := s.buildOrder(draft)
	if err != nil {
		s.logger.Warn().Err(err).Msg("order draft rejected")
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, persistenceError(err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_type", string(order.OrderType)).
		Int("item_count", len(order.Items)).
		Str("total", order.Total.StringFixed(2)).
		Bool("guest", order.IsGuest()).
		Msg("order created successfully")

	publish(ctx, s.publisher, s.logger, realtime.TableOrders, realtime.EventInsert, order.ID, order.ID, order)

	return order, nil
}

func (s *orderService) buildOrder(draft *model.OrderDraft) (*model.Order, error) {
	if draft == nil {
		return nil, model.ValidationError("order draft is required")
	}

	if err := validate.Struct(draft); err != nil {
		return nil, validationError(err)
	}

	for i, item := range draft.Items {
		if item.Price.IsNegative() {
			return nil, model.ValidationError(fmt.Sprintf("items[%d].price must not be negative", i))
		}
		if !model.IsWholeCents(item.Price) {
			return nil, model.ValidationError(fmt.Sprintf("items[%d].price must have at most %d decimal places", i, model.MoneyPlaces))
		}
	}

	orderType := model.ParseOrderType(draft.OrderType)
	if draft.OrderType != "" && string(orderType) != draft.OrderType {
		s.logger.Warn().
			Str("order_type", draft.OrderType).
			Msg("unknown order type, falling back to delivery")
	}

	var address *string
	if orderType == model.OrderTypeDelivery {
		if draft.DeliveryAddress == nil || strings.TrimSpace(*draft.DeliveryAddress) == "" {
			return nil, model.ValidationError("deliveryAddress is required for delivery orders")
		}
		trimmed := strings.TrimSpace(*draft.DeliveryAddress)
		address = &trimmed
	}

	name := strings.TrimSpace(draft.CustomerName)
	email := strings.TrimSpace(draft.CustomerEmail)
	phone := strings.TrimSpace(draft.CustomerPhone)
	if draft.CustomerID == nil && (name == "" || email == "" || phone == "") {
		return nil, model.ValidationError("guest orders require customerName, customerEmail and customerPhone")
	}

	total := model.OrderTotal(draft.Items)
	if total.GreaterThan(model.MaxOrderTotal) {
		return nil, model.ValidationError(fmt.Sprintf("total must not exceed %s", model.MaxOrderTotal.StringFixed(model.MoneyPlaces)))
	}
	if draft.Total != nil && !draft.Total.Equal(total) {
		return nil, model.ValidationError(fmt.Sprintf("total %s does not match the items (%s)", draft.Total.StringFixed(2), total.StringFixed(2)))
	}

	var requests *string
	if draft.SpecialRequests != nil && strings.TrimSpace(*draft.SpecialRequests) != "" {
		trimmed := strings.TrimSpace(*draft.SpecialRequests)
		requests = &trimmed
	}

	now := s.now()
	return &model.Order{
		ID:              uuid.New(),
		CustomerID:      draft.CustomerID,
		CustomerName:    name,
		CustomerEmail:   email,
		CustomerPhone:   phone,
		Items:           append([]model.OrderItem(nil), draft.Items...),
		Total:           total,
		OrderType:       orderType,
		DeliveryAddress: address,
		PaymentMethod:   strings.TrimSpace(draft.PaymentMethod),
		PaymentStatus:   model.PaymentStatusPending,
		Status:          model.OrderStatusPending,
		SpecialRequests: requests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// GetOrderByID retrieves an order and reconciles it with its delivery.
func (s *orderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	// A completed delivery always reports the order as delivered.
	if order.Status == model.OrderStatusDelivering {
		a, err := s.assignments.GetByOrderID(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get assignment")
			return nil, persistenceError(err)
		}
		if a != nil && a.Status == model.AssignmentStatusDelivered {
			s.logger.Warn().Str("order_id", id.String()).Msg("order status behind delivered assignment")
			order.Status = model.OrderStatusDelivered
		}
	}

	return order, nil
}

func (s *orderService) load(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, persistenceError(err)
	}
	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersForCustomer retrieves a customer's orders, newest first.
func (s *orderService) ListOrdersForCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID.String()).Msg("failed to list orders")
		return nil, persistenceError(err)
	}
	return orders, nil
}

// ListAllOrders retrieves every order, newest first.
func (s *orderService) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, persistenceError(err)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order along the lifecycle table.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.IsValid() {
		return nil, model.ValidationError(fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	// delivering and (for delivery orders) delivered belong to the assignment workflow
	if status == model.OrderStatusDelivering ||
		(status == model.OrderStatusDelivered && order.OrderType == model.OrderTypeDelivery) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("status is driven by the delivery workflow")
		return nil, model.NewDomainError(model.ErrCodeInvalidTransition,
			fmt.Sprintf("Status %s is set by the delivery workflow", status))
	}

	if !model.CanTransition(order.Status, status, order.OrderType) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("invalid status transition")
		return nil, model.NewDomainError(model.ErrCodeInvalidTransition,
			fmt.Sprintf("Cannot move order from %s to %s", order.Status, status))
	}

	if err := s.orders.UpdateStatus(ctx, id, order.Status, status); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return nil, persistenceError(err)
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("from", string(order.Status)).
		Str("to", string(status)).
		Msg("order status updated")

	order.Status = status
	order.UpdatedAt = s.now()
	publish(ctx, s.publisher, s.logger, realtime.TableOrders, realtime.EventUpdate, order.ID, order.ID, order)

	return order, nil
}

// UpdatePaymentStatus records the payment state of an order.
func (s *orderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error) {
	if !status.IsValid() {
		return nil, model.ValidationError(fmt.Sprintf("unknown payment status %q", status))
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdatePaymentStatus(ctx, id, status); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update payment status")
		return nil, persistenceError(err)
	}

	order.PaymentStatus = status
	order.UpdatedAt = s.now()
	publish(ctx, s.publisher, s.logger, realtime.TableOrders, realtime.EventUpdate, order.ID, order.ID, order)

	return order, nil
}
