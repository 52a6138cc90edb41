package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bistro/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPostgresStore wires the PostgreSQL repositories over one pool.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{
		Orders:      NewOrderRepository(pool, logger),
		Assignments: NewAssignmentRepository(pool, logger),
		Drivers:     NewDriverRepository(pool, logger),
		Messages:    NewMessageRepository(pool, logger),
		Mode:        ModePostgres,
	}
}

// NewMemoryStore wires the in-memory repositories. Nothing written to it
// survives a restart.
func NewMemoryStore() *Store {
	m := newMemoryData()
	return &Store{
		Orders:      memoryOrders{m},
		Assignments: memoryAssignments{m},
		Drivers:     memoryDrivers{m},
		Messages:    memoryMessages{m},
		Mode:        ModeMemory,
	}
}

// memoryData holds every table behind a single lock so composite writes
// are applied atomically.
type memoryData struct {
	mu          sync.RWMutex
	orders      map[uuid.UUID]model.Order
	assignments map[uuid.UUID]model.DeliveryAssignment // keyed by order ID
	drivers     map[string]model.Driver
	messages    map[uuid.UUID][]model.OrderMessage
}

func newMemoryData() *memoryData {
	return &memoryData{
		orders:      make(map[uuid.UUID]model.Order),
		assignments: make(map[uuid.UUID]model.DeliveryAssignment),
		drivers:     make(map[string]model.Driver),
		messages:    make(map[uuid.UUID][]model.OrderMessage),
	}
}

func cloneOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	return o
}

type memoryOrders struct{ m *memoryData }

func (r memoryOrders) Create(_ context.Context, order *model.Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.orders[order.ID]; ok {
		return fmt.Errorf("failed to create order: duplicate id %s", order.ID)
	}
	r.m.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r memoryOrders) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	o, ok := r.m.orders[id]
	if !ok {
		return nil, nil
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r memoryOrders) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]model.Order, error) {
	return r.list(func(o model.Order) bool {
		return o.CustomerID != nil && *o.CustomerID == customerID
	}), nil
}

func (r memoryOrders) ListAll(_ context.Context) ([]model.Order, error) {
	return r.list(func(model.Order) bool { return true }), nil
}

func (r memoryOrders) list(keep func(model.Order) bool) []model.Order {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	orders := []model.Order{}
	for _, o := range r.m.orders {
		if keep(o) {
			orders = append(orders, cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
	return orders
}

func (r memoryOrders) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	o, ok := r.m.orders[id]
	if !ok || o.Status != from {
		return model.ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.m.orders[id] = o

	if to == model.OrderStatusCancelled && from == model.OrderStatusDelivering {
		if a, ok := r.m.assignments[id]; ok && a.Status != model.AssignmentStatusDelivered {
			r.m.releaseDriver(a.DriverID)
		}
	}
	return nil
}

func (r memoryOrders) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status model.PaymentStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	o, ok := r.m.orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	o.PaymentStatus = status
	o.UpdatedAt = time.Now().UTC()
	r.m.orders[id] = o
	return nil
}

// releaseDriver must be called with mu held.
func (m *memoryData) releaseDriver(id string) {
	if d, ok := m.drivers[id]; ok && d.Status == model.DriverStatusDelivering {
		d.Status = model.DriverStatusAvailable
		m.drivers[id] = d
	}
}

type memoryAssignments struct{ m *memoryData }

func (r memoryAssignments) Assign(_ context.Context, a *model.DeliveryAssignment, orderFrom model.OrderStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	d, ok := r.m.drivers[a.DriverID]
	if !ok || d.Status != model.DriverStatusAvailable {
		return model.ErrDriverUnavailable
	}
	if _, exists := r.m.assignments[a.OrderID]; exists {
		return model.ErrAssignmentExists
	}
	o, ok := r.m.orders[a.OrderID]
	if !ok || o.Status != orderFrom {
		return model.ErrInvalidTransition
	}

	// Every precondition holds; apply all three writes.
	d.Status = model.DriverStatusDelivering
	r.m.drivers[d.ID] = d
	r.m.assignments[a.OrderID] = *a
	o.Status = model.OrderStatusDelivering
	o.UpdatedAt = a.AssignedAt
	r.m.orders[o.ID] = o
	return nil
}

func (r memoryAssignments) GetByOrderID(_ context.Context, orderID uuid.UUID) (*model.DeliveryAssignment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	a, ok := r.m.assignments[orderID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memoryAssignments) Advance(_ context.Context, id uuid.UUID, from, to model.AssignmentStatus, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var (
		a     model.DeliveryAssignment
		found bool
	)
	for _, candidate := range r.m.assignments {
		if candidate.ID == id {
			a, found = candidate, true
			break
		}
	}
	if !found || a.Status != from {
		return model.ErrInvalidTransition
	}

	o, ok := r.m.orders[a.OrderID]
	if !ok || o.Status != model.OrderStatusDelivering {
		return model.ErrInvalidTransition
	}

	if to == model.AssignmentStatusDelivered {
		o.Status = model.OrderStatusDelivered
		o.UpdatedAt = at
		r.m.orders[o.ID] = o
		r.m.releaseDriver(a.DriverID)

		deliveredAt := at
		a.DeliveredAt = &deliveredAt
	}

	a.Status = to
	r.m.assignments[a.OrderID] = a
	return nil
}

type memoryDrivers struct{ m *memoryData }

func (r memoryDrivers) List(_ context.Context, status model.DriverStatus) ([]model.Driver, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	drivers := []model.Driver{}
	for _, d := range r.m.drivers {
		if status == "" || d.Status == status {
			drivers = append(drivers, d)
		}
	}
	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].Name != drivers[j].Name {
			return drivers[i].Name < drivers[j].Name
		}
		return drivers[i].ID < drivers[j].ID
	})
	return drivers, nil
}

func (r memoryDrivers) GetByID(_ context.Context, id string) (*model.Driver, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	d, ok := r.m.drivers[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r memoryDrivers) Upsert(_ context.Context, drivers []model.Driver) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, d := range drivers {
		if existing, ok := r.m.drivers[d.ID]; ok && existing.Status == model.DriverStatusDelivering {
			d.Status = existing.Status
		}
		r.m.drivers[d.ID] = d
	}
	return nil
}

type memoryMessages struct{ m *memoryData }

func (r memoryMessages) Create(_ context.Context, msg *model.OrderMessage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.orders[msg.OrderID]; !ok {
		return fmt.Errorf("failed to create message: unknown order %s", msg.OrderID)
	}
	r.m.messages[msg.OrderID] = append(r.m.messages[msg.OrderID], *msg)
	return nil
}

func (r memoryMessages) ListByOrder(_ context.Context, orderID uuid.UUID) ([]model.OrderMessage, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	messages := append([]model.OrderMessage{}, r.m.messages[orderID]...)
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID.String() < messages[j].ID.String()
	})
	return messages, nil
}
