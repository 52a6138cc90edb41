// Package realtime delivers row-level change events to subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Table names used as event sources.
const (
	TableOrders      = "orders"
	TableAssignments = "delivery_assignments"
	TableMessages    = "order_messages"
)

// EventType is the kind of row change.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event describes a single row change.
type Event struct {
	Table    string          `json:"table"`
	Type     EventType       `json:"type"`
	RecordID uuid.UUID       `json:"recordId"`
	OrderID  uuid.UUID       `json:"orderId"`
	Record   json.RawMessage `json:"record"`
	At       time.Time       `json:"at"`
}

// NewEvent builds an event for a record, serialising it as the payload.
func NewEvent(table string, eventType EventType, recordID, orderID uuid.UUID, record any) (Event, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Table:    table,
		Type:     eventType,
		RecordID: recordID,
		OrderID:  orderID,
		Record:   payload,
		At:       time.Now().UTC(),
	}, nil
}

// Filter selects which events a subscriber receives.
// Empty Types matches every event type; a nil OrderID matches every order.
type Filter struct {
	Table   string
	Types   []EventType
	OrderID uuid.UUID
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(e Event) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.OrderID != uuid.Nil && f.OrderID != e.OrderID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}

// Publisher sends change events to the realtime channel.
type Publisher interface {
	// Publish emits the event to every matching subscriber.
	Publish(ctx context.Context, event Event) error

	// Close releases resources held by the publisher.
	Close() error
}

// Subscriber registers interest in change events.
type Subscriber interface {
	// Subscribe registers onEvent for events matching filter.
	Subscribe(filter Filter, onEvent func(Event)) *Subscription

	// Unsubscribe stops delivery to the subscription.
	Unsubscribe(sub *Subscription)
}
