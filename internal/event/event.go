// Package event defines the domain events fanned out to live sessions and
// rendered into notification feeds.
package event

import "time"

// Type tags an event variant.
type Type string

const (
	TableStatusChanged   Type = "table_status_changed"
	NewOrder             Type = "new_order"
	ItemReady            Type = "item_ready"
	OrderPaid            Type = "order_paid"
	ItemStatusChanged    Type = "item_status_changed"
	Message              Type = "message"
	NotificationsCleared Type = "notifications_cleared"
)

// Known reports whether t is one of the declared variants.
func (t Type) Known() bool {
	switch t {
	case TableStatusChanged, NewOrder, ItemReady, OrderPaid, ItemStatusChanged, Message, NotificationsCleared:
		return true
	}
	return false
}

// Notifiable reports whether events of this type are persisted to feeds.
func (t Type) Notifiable() bool {
	switch t {
	case TableStatusChanged, NewOrder, ItemReady, OrderPaid, Message:
		return true
	}
	return false
}

// Payload carries display fields such as product name and table title.
type Payload map[string]any

// Event is a committed domain change.
type Event struct {
	Type         Type      `json:"type"`
	DepartmentID int64     `json:"departmentId"`
	ItemID       int64     `json:"itemId,omitempty"`
	OrderID      int64     `json:"orderId,omitempty"`
	TableID      int64     `json:"tableId,omitempty"`
	Version      int       `json:"version,omitempty"`
	Payload      Payload   `json:"payload"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// ShardKey groups events that must keep their relative order.
func (e Event) ShardKey() int64 {
	if e.ItemID != 0 {
		return e.ItemID
	}
	if e.OrderID != 0 {
		return e.OrderID
	}
	return e.TableID
}

// Publisher accepts committed events. Implementations must not block on
// slow consumers.
type Publisher interface {
	Publish(e Event)
}

// Multi publishes to each publisher in order.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}
