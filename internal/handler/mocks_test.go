package handler

import (
	"context"
	"net/http"

	"bistro/internal/middleware"
	"bistro/internal/model"
	"bistro/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, draft *model.OrderDraft) (*model.Order, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListOrdersForCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockDeliveryService is a mock implementation of DeliveryService.
type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) AssignDriver(ctx context.Context, orderID uuid.UUID, driverID string) (*model.DeliveryAssignment, error) {
	args := m.Called(ctx, orderID, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryAssignment), args.Error(1)
}

func (m *MockDeliveryService) UpdateDeliveryStatus(ctx context.Context, orderID uuid.UUID, status model.AssignmentStatus) (*model.DeliveryAssignment, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryAssignment), args.Error(1)
}

func (m *MockDeliveryService) GetAssignmentForOrder(ctx context.Context, orderID uuid.UUID) (*model.DeliveryAssignment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryAssignment), args.Error(1)
}

func (m *MockDeliveryService) ListDrivers(ctx context.Context, status model.DriverStatus) ([]model.Driver, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Driver), args.Error(1)
}

func (m *MockDeliveryService) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Driver), args.Error(1)
}

// MockMessageService is a mock implementation of MessageService.
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) SendMessage(ctx context.Context, orderID, senderID uuid.UUID, role model.Role, text string) (*model.OrderMessage, error) {
	args := m.Called(ctx, orderID, senderID, role, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderMessage), args.Error(1)
}

func (m *MockMessageService) GetMessages(ctx context.Context, orderID uuid.UUID) ([]model.OrderMessage, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderMessage), args.Error(1)
}

func (m *MockMessageService) Stream(ctx context.Context, orderID uuid.UUID, emit func([]model.OrderMessage) error) error {
	args := m.Called(ctx, orderID, emit)
	return args.Error(0)
}

// MockStore is a mock implementation of storage.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (*storage.Object, error) {
	args := m.Called(ctx, bucket, objectPath, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Object), args.Error(1)
}

func (m *MockStore) PublicURL(bucket, objectPath string) string {
	return m.Called(bucket, objectPath).String(0)
}

var (
	staffIdentity    = &model.Identity{UserID: uuid.MustParse("0d7d2b3e-55a1-4c36-9a35-5b2f8b1b7c01"), Email: "sam@bistro.test", Role: model.RoleStaff}
	customerIdentity = &model.Identity{UserID: uuid.MustParse("7f3c9a10-2c4e-4b8e-9f51-0c1d2e3f4a5b"), Email: "cara@bistro.test", Role: model.RoleCustomer}
)

// as attaches id to the request the way Authenticate does.
func as(req *http.Request, id *model.Identity) *http.Request {
	if id == nil {
		return req
	}
	return req.WithContext(middleware.WithIdentity(req.Context(), id))
}

func ownedOrder(owner uuid.UUID) *model.Order {
	return &model.Order{
		ID:         uuid.New(),
		CustomerID: &owner,
		OrderType:  model.OrderTypeDelivery,
		Status:     model.OrderStatusPending,
	}
}
