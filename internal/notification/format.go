// Package notification renders domain events into per-user feed entries,
// reconciles feeds with client caches and delivers new entries through the
// notifier worker pool.
package notification

import (
	"fmt"
	"strings"
	"time"

	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
)

// Payload keys understood by the formatter.
const (
	KeyProduct      = "productName"
	KeyTable        = "tableTitle"
	KeyAvailability = "availability"
	KeyMessage      = "message"
	KeyUnserved     = "unservedCount"
)

const (
	fallbackItem    = "An item"
	fallbackTable   = "a table"
	fallbackStatus  = "updated"
	fallbackMessage = "New notification"
)

// Render turns an event into its display message. Missing payload fields
// degrade to generic labels.
func Render(e event.Event) string {
	switch e.Type {
	case event.ItemReady:
		return fmt.Sprintf("%s is ready on %s", itemLabel(e), tableLabel(e))
	case event.NewOrder:
		return fmt.Sprintf("New order %s on %s", orderLabel(e), tableLabel(e))
	case event.TableStatusChanged:
		return fmt.Sprintf("%s is now %s", capitalize(tableLabel(e)), label(e.Payload, KeyAvailability, fallbackStatus))
	case event.OrderPaid:
		return fmt.Sprintf("Order %s on %s has been paid", orderLabel(e), tableLabel(e))
	default:
		return label(e.Payload, KeyMessage, fallbackMessage)
	}
}

// Format builds the feed entry for one recipient. The entry is not yet
// persisted, so it carries no identifier.
func Format(e event.Event, userID int64) model.Notification {
	typ := e.Type
	if !typ.Notifiable() {
		typ = event.Message
	}

	payload := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		payload[k] = v
	}
	if e.ItemID != 0 {
		payload["itemId"] = e.ItemID
	}
	if e.OrderID != 0 {
		payload["orderId"] = e.OrderID
	}
	if e.TableID != 0 {
		payload["tableId"] = e.TableID
	}

	createdAt := e.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return model.Notification{
		UserID:       userID,
		Type:         string(typ),
		Payload:      payload,
		Message:      Render(e),
		CreatedAt:    createdAt,
		DepartmentID: e.DepartmentID,
	}
}

func itemLabel(e event.Event) string {
	return label(e.Payload, KeyProduct, fallbackItem)
}

func tableLabel(e event.Event) string {
	if v := label(e.Payload, KeyTable, ""); v != "" {
		return v
	}
	if e.TableID != 0 {
		return fmt.Sprintf("table %d", e.TableID)
	}
	return fallbackTable
}

func orderLabel(e event.Event) string {
	if e.OrderID != 0 {
		return fmt.Sprintf("#%d", e.OrderID)
	}
	return "#?"
}

func label(p event.Payload, key, fallback string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
