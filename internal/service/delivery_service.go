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

// deliveryService implements DeliveryService.
type deliveryService struct {
	orders      repository.OrderRepository
	assignments repository.AssignmentRepository
	drivers     repository.DriverRepository
	publisher   realtime.Publisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDeliveryService creates a new delivery service.
func NewDeliveryService(
	orders repository.OrderRepository,
	assignments repository.AssignmentRepository,
	drivers repository.DriverRepository,
	publisher realtime.Publisher,
	logger zerolog.Logger,
) DeliveryService {
	return &deliveryService{
		orders:      orders,
		assignments: assignments,
		drivers:     drivers,
		publisher:   publisher,
		logger:      logger.With().Str("service", "delivery").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AssignDriver attaches an available driver to a delivery order and moves
// the order to delivering.
func (s *deliveryService) AssignDriver(ctx context.Context, orderID uuid.UUID, driverID string) (*model.DeliveryAssignment, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, model.ValidationError("driverId is required")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OrderType != model.OrderTypeDelivery {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("order_type", string(order.OrderType)).
			Msg("cannot assign a driver to a non-delivery order")
		return nil, model.ErrNotDeliveryOrder
	}
	if !model.CanTransition(order.Status, model.OrderStatusDelivering, order.OrderType) {
		return nil, model.NewDomainError(model.ErrCodeInvalidTransition,
			fmt.Sprintf("Cannot assign a driver to an order that is %s", order.Status))
	}

	existing, err := s.assignments.GetByOrderID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get assignment")
		return nil, persistenceError(err)
	}
	if existing != nil {
		return nil, model.ErrAssignmentExists
	}

	driver, err := s.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.Status != model.DriverStatusAvailable {
		s.logger.Warn().
			Str("driver_id", driverID).
			Str("driver_status", string(driver.Status)).
			Msg("driver not available")
		return nil, model.ErrDriverUnavailable
	}

	assignment := &model.DeliveryAssignment{
		ID:         uuid.New(),
		OrderID:    orderID,
		DriverID:   driver.ID,
		DriverName: driver.Name,
		Status:     model.AssignmentStatusAssigned,
		AssignedAt: s.now(),
	}

	if err := s.assignments.Assign(ctx, assignment, order.Status); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Str("driver_id", driverID).
			Msg("failed to assign driver")
		return nil, persistenceError(err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("driver_id", driverID).
		Str("assignment_id", assignment.ID.String()).
		Msg("driver assigned")

	order.Status = model.OrderStatusDelivering
	order.UpdatedAt = assignment.AssignedAt
	publish(ctx, s.publisher, s.logger, realtime.TableAssignments, realtime.EventInsert, assignment.ID, orderID, assignment)
	publish(ctx, s.publisher, s.logger, realtime.TableOrders, realtime.EventUpdate, order.ID, order.ID, order)

	return assignment, nil
}

// UpdateDeliveryStatus advances the assignment. Delivery completes the order
// and frees the driver.
func (s *deliveryService) UpdateDeliveryStatus(ctx context.Context, orderID uuid.UUID, status model.AssignmentStatus) (*model.DeliveryAssignment, error) {
	if !status.IsValid() {
		return nil, model.ValidationError(fmt.Sprintf("unknown delivery status %q", status))
	}

	assignment, err := s.GetAssignmentForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !model.CanAdvance(assignment.Status, status) {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("from", string(assignment.Status)).
			Str("to", string(status)).
			Msg("invalid delivery transition")
		return nil, model.NewDomainError(model.ErrCodeInvalidTransition,
			fmt.Sprintf("Cannot move delivery from %s to %s", assignment.Status, status))
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusDelivering {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("order_status", string(order.Status)).
			Msg("order is not out for delivery")
		return nil, model.NewDomainError(model.ErrCodeInvalidTransition,
			fmt.Sprintf("Order is %s, not out for delivery", order.Status))
	}

	at := s.now()
	if err := s.assignments.Advance(ctx, assignment.ID, assignment.Status, status, at); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to update delivery status")
		return nil, persistenceError(err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from", string(assignment.Status)).
		Str("to", string(status)).
		Msg("delivery status updated")

	assignment.Status = status
	if status == model.AssignmentStatusDelivered {
		assignment.DeliveredAt = &at
	}
	publish(ctx, s.publisher, s.logger, realtime.TableAssignments, realtime.EventUpdate, assignment.ID, orderID, assignment)

	if status == model.AssignmentStatusDelivered {
		order.Status = model.OrderStatusDelivered
		order.UpdatedAt = at
		publish(ctx, s.publisher, s.logger, realtime.TableOrders, realtime.EventUpdate, order.ID, order.ID, order)
	}

	return assignment, nil
}

// GetAssignmentForOrder retrieves the assignment of an order.
func (s *deliveryService) GetAssignmentForOrder(ctx context.Context, orderID uuid.UUID) (*model.DeliveryAssignment, error) {
	assignment, err := s.assignments.GetByOrderID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get assignment")
		return nil, persistenceError(err)
	}
	if assignment == nil {
		s.logger.Debug().Str("order_id", orderID.String()).Msg("assignment not found")
		return nil, model.ErrAssignmentNotFound
	}
	return assignment, nil
}

// ListDrivers retrieves the roster, optionally filtered by status.
func (s *deliveryService) ListDrivers(ctx context.Context, status model.DriverStatus) ([]model.Driver, error) {
	if status != "" && !status.IsValid() {
		return nil, model.ValidationError(fmt.Sprintf("unknown driver status %q", status))
	}

	drivers, err := s.drivers.List(ctx, status)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list drivers")
		return nil, persistenceError(err)
	}
	return drivers, nil
}

// GetDriver retrieves a single driver.
func (s *deliveryService) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	driver, err := s.drivers.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("driver_id", id).Msg("failed to get driver")
		return nil, persistenceError(err)
	}
	if driver == nil {
		s.logger.Debug().Str("driver_id", id).Msg("driver not found")
		return nil, model.ErrDriverNotFound
	}
	return driver, nil
}

func (s *deliveryService) loadOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, persistenceError(err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}
