package model

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus is the physical progress of a delivery.
type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusPickedUp  AssignmentStatus = "picked_up"
	AssignmentStatusDelivered AssignmentStatus = "delivered"
)

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusAssigned: {AssignmentStatusPickedUp, AssignmentStatusDelivered},
	AssignmentStatusPickedUp: {AssignmentStatusDelivered},
}

// IsValid reports whether s is a known assignment status.
func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentStatusAssigned, AssignmentStatusPickedUp, AssignmentStatusDelivered:
		return true
	default:
		return false
	}
}

// CanAdvance reports whether an assignment may move from one status to another.
func CanAdvance(from, to AssignmentStatus) bool {
	for _, next := range assignmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DeliveryAssignment links a delivery order to the driver carrying it.
type DeliveryAssignment struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	OrderID     uuid.UUID        `json:"orderId" db:"order_id"`
	DriverID    string           `json:"driverId" db:"driver_id"`
	DriverName  string           `json:"driverName" db:"driver_name"`
	Status      AssignmentStatus `json:"status" db:"status"`
	AssignedAt  time.Time        `json:"assignedAt" db:"assigned_at"`
	DeliveredAt *time.Time       `json:"deliveredAt,omitempty" db:"delivered_at"`
}

// AssignDriverRequest is the payload for creating an assignment.
type AssignDriverRequest struct {
	DriverID string `json:"driverId"`
}

// DeliveryStatusRequest is the payload for reporting delivery progress.
type DeliveryStatusRequest struct {
	Status AssignmentStatus `json:"status"`
}

// DriverStatus is the availability of a driver.
type DriverStatus string

const (
	DriverStatusAvailable  DriverStatus = "available"
	DriverStatusDelivering DriverStatus = "delivering"
	DriverStatusOffline    DriverStatus = "offline"
)

// IsValid reports whether s is a known driver status.
func (s DriverStatus) IsValid() bool {
	switch s {
	case DriverStatusAvailable, DriverStatusDelivering, DriverStatusOffline:
		return true
	default:
		return false
	}
}

// Driver is roster reference data for delivery drivers.
type Driver struct {
	ID          string       `json:"id" db:"id" yaml:"id"`
	Name        string       `json:"name" db:"name" yaml:"name"`
	Phone       string       `json:"phone" db:"phone" yaml:"phone"`
	Status      DriverStatus `json:"status" db:"status" yaml:"status"`
	VehicleType string       `json:"vehicleType" db:"vehicle_type" yaml:"vehicle_type"`
	Rating      float64      `json:"rating" db:"rating" yaml:"rating"`
}
