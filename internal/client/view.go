// Package client holds the consumer-side state a connected kitchen, floor or
// admin screen keeps: the focused item or table, optimistic item state and a
// cache of unseen notifications that survives disconnects.
package client

import (
	"sync"

	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
)

// FocusKind says what a view renders in detail.
type FocusKind int

const (
	FocusNone FocusKind = iota
	FocusItem
	FocusTable
)

// Focus is the record currently rendered in detail.
type Focus struct {
	Kind FocusKind
	ID   int64
}

// Relevant reports whether e changes data shown for f.
func Relevant(f Focus, e event.Event) bool {
	switch f.Kind {
	case FocusItem:
		return e.ItemID != 0 && e.ItemID == f.ID
	case FocusTable:
		return e.TableID != 0 && e.TableID == f.ID
	default:
		return false
	}
}

// ItemState is the view's knowledge of one item.
type ItemState struct {
	Status     model.ItemStatus
	Version    int
	Optimistic bool

	confirmed model.ItemStatus
}

// View tracks a session's focus and item states. Pushed events update data
// in place and never move the focus.
type View struct {
	mu      sync.Mutex
	focus   Focus
	items   map[int64]ItemState
	refresh func(Focus, event.Event)
}

// NewView creates a view that calls refresh whenever an applied event is
// relevant to the current focus.
func NewView(refresh func(Focus, event.Event)) *View {
	if refresh == nil {
		refresh = func(Focus, event.Event) {}
	}
	return &View{items: make(map[int64]ItemState), refresh: refresh}
}

// SetFocus records a local navigation choice.
func (v *View) SetFocus(f Focus) {
	v.mu.Lock()
	v.focus = f
	v.mu.Unlock()
}

// Focus returns the current focus.
func (v *View) Focus() Focus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.focus
}

// Item returns what the view knows about an item.
func (v *View) Item(id int64) (ItemState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st, ok := v.items[id]
	return st, ok
}

// Intend shows status for an item before the server confirms the command.
func (v *View) Intend(itemID int64, status model.ItemStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.items[itemID]
	if !st.Optimistic {
		st.confirmed = st.Status
	}
	st.Status = status
	st.Optimistic = true
	v.items[itemID] = st
}

// Rollback drops an optimistic status after the command failed.
func (v *View) Rollback(itemID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st, ok := v.items[itemID]
	if !ok || !st.Optimistic {
		return
	}
	st.Status = st.confirmed
	st.Optimistic = false
	v.items[itemID] = st
}

// Apply folds a pushed event into the view. Events older than what the view
// already holds for the item are ignored. It returns whether the focus was
// refreshed.
func (v *View) Apply(e event.Event) bool {
	v.mu.Lock()
	if e.ItemID != 0 && e.Version != 0 {
		st := v.items[e.ItemID]
		if e.Version <= st.Version {
			v.mu.Unlock()
			return false
		}
		st.Version = e.Version
		if s, ok := e.Payload["status"].(string); ok {
			st.Status = model.ItemStatus(s)
			st.confirmed = st.Status
			st.Optimistic = false
		}
		v.items[e.ItemID] = st
	}
	focus := v.focus
	v.mu.Unlock()

	if !Relevant(focus, e) {
		return false
	}
	v.refresh(focus, e)
	return true
}
