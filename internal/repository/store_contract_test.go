package repository

import (
	"context"
	"testing"
	"time"

	"bistro/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The same behaviour is required of every store; memory_test.go and
// postgres_test.go run this suite against each backend.

func testOrder(customerID *uuid.UUID, status model.OrderStatus, createdAt time.Time) *model.Order {
	address := "12 Harbour Rd"
	return &model.Order{
		ID:            uuid.New(),
		CustomerID:    customerID,
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "555-0100",
		Items: []model.OrderItem{
			{ItemID: "pizza", Name: "Margherita", Price: decimal.RequireFromString("200"), Quantity: 1},
			{ItemID: "wings", Name: "Wings", Price: decimal.RequireFromString("150"), Quantity: 2},
		},
		Total:           decimal.RequireFromString("500"),
		OrderType:       model.OrderTypeDelivery,
		DeliveryAddress: &address,
		PaymentMethod:   "card",
		PaymentStatus:   model.PaymentStatusPending,
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func testDriver(status model.DriverStatus) model.Driver {
	return model.Driver{
		ID:          "drv-" + uuid.NewString()[:8],
		Name:        "Dee",
		Phone:       "555-0199",
		Status:      status,
		VehicleType: "scooter",
		Rating:      4.5,
	}
}

func testAssignment(orderID uuid.UUID, driver model.Driver) *model.DeliveryAssignment {
	return &model.DeliveryAssignment{
		ID:         uuid.New(),
		OrderID:    orderID,
		DriverID:   driver.ID,
		DriverName: driver.Name,
		Status:     model.AssignmentStatusAssigned,
		AssignedAt: time.Now().UTC(),
	}
}

func mustCreateOrder(t *testing.T, s *Store, o *model.Order) *model.Order {
	t.Helper()
	require.NoError(t, s.Orders.Create(context.Background(), o))
	return o
}

func mustDriver(t *testing.T, s *Store, status model.DriverStatus) model.Driver {
	t.Helper()
	d := testDriver(status)
	require.NoError(t, s.Drivers.Upsert(context.Background(), []model.Driver{d}))
	return d
}

func driverStatus(t *testing.T, s *Store, id string) model.DriverStatus {
	t.Helper()
	d, err := s.Drivers.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d.Status
}

func orderStatus(t *testing.T, s *Store, id uuid.UUID) model.OrderStatus {
	t.Helper()
	o, err := s.Orders.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o.Status
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) *Store) {
	t.Run("Orders", func(t *testing.T) { testOrders(t, newStore(t)) })
	t.Run("OrderStatus", func(t *testing.T) { testOrderStatus(t, newStore(t)) })
	t.Run("Assign", func(t *testing.T) { testAssign(t, newStore(t)) })
	t.Run("Advance", func(t *testing.T) { testAdvance(t, newStore(t)) })
	t.Run("CancelReleasesDriver", func(t *testing.T) { testCancelReleasesDriver(t, newStore(t)) })
	t.Run("Drivers", func(t *testing.T) { testDrivers(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
}

func testOrders(t *testing.T, s *Store) {
	ctx := context.Background()
	customer := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond)

	older := mustCreateOrder(t, s, testOrder(&customer, model.OrderStatusPending, base))
	newer := mustCreateOrder(t, s, testOrder(&customer, model.OrderStatusPending, base.Add(time.Second)))
	guest := testOrder(nil, model.OrderStatusPending, base)
	guest.OrderType = model.OrderTypePickup
	guest.DeliveryAddress = nil
	mustCreateOrder(t, s, guest)

	got, err := s.Orders.GetByID(ctx, older.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, older.ID, got.ID)
	require.NotNil(t, got.CustomerID)
	assert.Equal(t, customer, *got.CustomerID)
	assert.True(t, got.Total.Equal(older.Total))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "wings", got.Items[1].ItemID)
	assert.True(t, got.Items[1].Price.Equal(decimal.RequireFromString("150")))
	require.NotNil(t, got.DeliveryAddress)
	assert.Equal(t, "12 Harbour Rd", *got.DeliveryAddress)
	assert.WithinDuration(t, base, got.CreatedAt, time.Millisecond)

	got, err = s.Orders.GetByID(ctx, guest.ID)
	require.NoError(t, err)
	assert.True(t, got.IsGuest())
	assert.Nil(t, got.DeliveryAddress)

	missing, err := s.Orders.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	mine, err := s.Orders.ListByCustomer(ctx, customer)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID, "newest first")
	assert.Equal(t, older.ID, mine[1].ID)

	none, err := s.Orders.ListByCustomer(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := s.Orders.ListAll(ctx)
	require.NoError(t, err)
	ids := make(map[uuid.UUID]bool, len(all))
	for _, o := range all {
		ids[o.ID] = true
	}
	assert.True(t, ids[older.ID] && ids[newer.ID] && ids[guest.ID])

	require.NoError(t, s.Orders.UpdatePaymentStatus(ctx, older.ID, model.PaymentStatusPaid))
	got, err = s.Orders.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)

	err = s.Orders.UpdatePaymentStatus(ctx, uuid.New(), model.PaymentStatusPaid)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	cents := testOrder(nil, model.OrderStatusPending, base)
	cents.Items = []model.OrderItem{
		{ItemID: "tea", Name: "Tea", Price: decimal.RequireFromString("0.10"), Quantity: 3},
		{ItemID: "cake", Name: "Cake", Price: decimal.RequireFromString("19.99"), Quantity: 1},
	}
	cents.Total = model.OrderTotal(cents.Items)
	mustCreateOrder(t, s, cents)

	got, err = s.Orders.GetByID(ctx, cents.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("20.29")), "got %s", got.Total)
	assert.True(t, got.Total.Equal(model.OrderTotal(got.Items)), "stored total matches the stored items")
}

func testOrderStatus(t *testing.T, s *Store) {
	ctx := context.Background()
	o := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusPending, time.Now().UTC()))

	require.NoError(t, s.Orders.UpdateStatus(ctx, o.ID, model.OrderStatusPending, model.OrderStatusPreparing))
	assert.Equal(t, model.OrderStatusPreparing, orderStatus(t, s, o.ID))

	// A writer holding a stale status loses.
	err := s.Orders.UpdateStatus(ctx, o.ID, model.OrderStatusPending, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, model.OrderStatusPreparing, orderStatus(t, s, o.ID))

	err = s.Orders.UpdateStatus(ctx, uuid.New(), model.OrderStatusPending, model.OrderStatusPreparing)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func testAssign(t *testing.T, s *Store) {
	ctx := context.Background()
	order := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusReady, time.Now().UTC()))
	driver := mustDriver(t, s, model.DriverStatusAvailable)
	spare := mustDriver(t, s, model.DriverStatusAvailable)

	a := testAssignment(order.ID, driver)
	require.NoError(t, s.Assignments.Assign(ctx, a, model.OrderStatusReady))

	assert.Equal(t, model.OrderStatusDelivering, orderStatus(t, s, order.ID))
	assert.Equal(t, model.DriverStatusDelivering, driverStatus(t, s, driver.ID))

	got, err := s.Assignments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, driver.ID, got.DriverID)
	assert.Equal(t, model.AssignmentStatusAssigned, got.Status)
	assert.Nil(t, got.DeliveredAt)

	t.Run("second assignment rolls back the driver claim", func(t *testing.T) {
		err := s.Assignments.Assign(ctx, testAssignment(order.ID, spare), model.OrderStatusDelivering)
		assert.ErrorIs(t, err, model.ErrAssignmentExists)
		assert.Equal(t, model.DriverStatusAvailable, driverStatus(t, s, spare.ID))
	})

	t.Run("busy driver", func(t *testing.T) {
		other := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusPending, time.Now().UTC()))
		err := s.Assignments.Assign(ctx, testAssignment(other.ID, driver), model.OrderStatusPending)
		assert.ErrorIs(t, err, model.ErrDriverUnavailable)
		assert.Equal(t, model.OrderStatusPending, orderStatus(t, s, other.ID))

		none, err := s.Assignments.GetByOrderID(ctx, other.ID)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("order moved on", func(t *testing.T) {
		other := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusCancelled, time.Now().UTC()))
		err := s.Assignments.Assign(ctx, testAssignment(other.ID, spare), model.OrderStatusReady)
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
		assert.Equal(t, model.DriverStatusAvailable, driverStatus(t, s, spare.ID))

		none, err := s.Assignments.GetByOrderID(ctx, other.ID)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("unknown driver", func(t *testing.T) {
		other := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusPending, time.Now().UTC()))
		ghost := testDriver(model.DriverStatusAvailable)
		err := s.Assignments.Assign(ctx, testAssignment(other.ID, ghost), model.OrderStatusPending)
		assert.ErrorIs(t, err, model.ErrDriverUnavailable)
	})
}

func testAdvance(t *testing.T, s *Store) {
	ctx := context.Background()
	order := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusPending, time.Now().UTC()))
	driver := mustDriver(t, s, model.DriverStatusAvailable)
	a := testAssignment(order.ID, driver)
	require.NoError(t, s.Assignments.Assign(ctx, a, model.OrderStatusPending))

	require.NoError(t, s.Assignments.Advance(ctx, a.ID, model.AssignmentStatusAssigned, model.AssignmentStatusPickedUp, time.Now().UTC()))
	assert.Equal(t, model.OrderStatusDelivering, orderStatus(t, s, order.ID))

	err := s.Assignments.Advance(ctx, a.ID, model.AssignmentStatusAssigned, model.AssignmentStatusPickedUp, time.Now().UTC())
	assert.ErrorIs(t, err, model.ErrInvalidTransition, "stale status")

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.Assignments.Advance(ctx, a.ID, model.AssignmentStatusPickedUp, model.AssignmentStatusDelivered, at))

	got, err := s.Assignments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	assert.WithinDuration(t, at, *got.DeliveredAt, time.Millisecond)

	assert.Equal(t, model.OrderStatusDelivered, orderStatus(t, s, order.ID))
	assert.Equal(t, model.DriverStatusAvailable, driverStatus(t, s, driver.ID))

	err = s.Assignments.Advance(ctx, uuid.New(), model.AssignmentStatusAssigned, model.AssignmentStatusPickedUp, time.Now().UTC())
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func testCancelReleasesDriver(t *testing.T, s *Store) {
	ctx := context.Background()
	order := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusPreparing, time.Now().UTC()))
	driver := mustDriver(t, s, model.DriverStatusAvailable)
	require.NoError(t, s.Assignments.Assign(ctx, testAssignment(order.ID, driver), model.OrderStatusPreparing))

	require.NoError(t, s.Orders.UpdateStatus(ctx, order.ID, model.OrderStatusDelivering, model.OrderStatusCancelled))

	assert.Equal(t, model.OrderStatusCancelled, orderStatus(t, s, order.ID))
	assert.Equal(t, model.DriverStatusAvailable, driverStatus(t, s, driver.ID))

	// The delivery of a cancelled order cannot move on.
	a, err := s.Assignments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	err = s.Assignments.Advance(ctx, a.ID, model.AssignmentStatusAssigned, model.AssignmentStatusPickedUp, time.Now().UTC())
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	a, err = s.Assignments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusAssigned, a.Status)

	// The freed driver can take the next order.
	next := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusPending, time.Now().UTC()))
	require.NoError(t, s.Assignments.Assign(ctx, testAssignment(next.ID, driver), model.OrderStatusPending))
}

func testDrivers(t *testing.T, s *Store) {
	ctx := context.Background()
	available := mustDriver(t, s, model.DriverStatusAvailable)
	offline := mustDriver(t, s, model.DriverStatusOffline)

	got, err := s.Drivers.GetByID(ctx, available.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, available, *got)

	missing, err := s.Drivers.GetByID(ctx, "drv-nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := s.Drivers.List(ctx, model.DriverStatusOffline)
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, d := range list {
		assert.Equal(t, model.DriverStatusOffline, d.Status)
		ids[d.ID] = true
	}
	assert.True(t, ids[offline.ID])
	assert.False(t, ids[available.ID])

	all, err := s.Drivers.List(ctx, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 2)

	// A roster reload refreshes details but never frees a driver mid-delivery.
	order := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusPending, time.Now().UTC()))
	require.NoError(t, s.Assignments.Assign(ctx, testAssignment(order.ID, available), model.OrderStatusPending))

	reloaded := available
	reloaded.Phone = "555-0111"
	reloaded.Status = model.DriverStatusAvailable
	require.NoError(t, s.Drivers.Upsert(ctx, []model.Driver{reloaded}))

	got, err = s.Drivers.GetByID(ctx, available.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0111", got.Phone)
	assert.Equal(t, model.DriverStatusDelivering, got.Status)

	require.NoError(t, s.Drivers.Upsert(ctx, nil))
}

func testMessages(t *testing.T, s *Store) {
	ctx := context.Background()
	order := mustCreateOrder(t, s, testOrder(nil, model.OrderStatusPending, time.Now().UTC()))
	base := time.Now().UTC().Truncate(time.Millisecond)

	texts := []string{"third", "first", "second"}
	offsets := []time.Duration{2 * time.Second, 0, time.Second}
	for i, text := range texts {
		require.NoError(t, s.Messages.Create(ctx, &model.OrderMessage{
			ID:         uuid.New(),
			OrderID:    order.ID,
			SenderID:   uuid.New(),
			SenderRole: model.RoleCustomer,
			Message:    text,
			CreatedAt:  base.Add(offsets[i]),
		}))
	}

	msgs, err := s.Messages.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)
	assert.Equal(t, "third", msgs[2].Message)

	empty, err := s.Messages.ListByOrder(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)

	err = s.Messages.Create(ctx, &model.OrderMessage{
		ID:         uuid.New(),
		OrderID:    uuid.New(),
		SenderID:   uuid.New(),
		SenderRole: model.RoleStaff,
		Message:    "hello?",
		CreatedAt:  base,
	})
	assert.Error(t, err, "messages belong to an existing order")
}
