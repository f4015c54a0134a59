// Package table derives a table's occupancy and its ready-to-serve queue
// from the table's current unpaid order.
package table

import (
	"context"
	"errors"
	"fmt"

	"hotel-kitchen-backend/internal/model"
	"hotel-kitchen-backend/internal/store"
)

// Availability is the derived occupancy of a table.
type Availability string

const (
	Available Availability = "Available"
	Occupied  Availability = "Occupied"
)

// Status is the read-only projection served to floor staff.
type Status struct {
	TableID        int64        `json:"tableId"`
	Title          string       `json:"title"`
	Availability   Availability `json:"availability"`
	UnservedCount  int          `json:"unservedCount"`
	CurrentOrderID int64        `json:"currentOrderId,omitempty"`
}

// Derive computes the status of t given its latest unpaid order, which may
// be nil.
func Derive(t model.Table, current *model.Order) Status {
	st := Status{TableID: t.ID, Title: t.Title, Availability: Available}
	if current == nil || !current.Unpaid() {
		return st
	}

	st.Availability = Occupied
	st.CurrentOrderID = current.ID
	st.UnservedCount = UnservedCount(current.Items)
	return st
}

// UnservedCount counts items that are ready but not yet served.
func UnservedCount(items []model.OrderItem) int {
	n := 0
	for _, it := range items {
		if it.Status == model.ItemDone {
			n++
		}
	}
	return n
}

// Source is the subset of the store the aggregator reads and writes.
type Source interface {
	GetTable(ctx context.Context, id int64) (*model.Table, error)
	LatestUnpaidOrder(ctx context.Context, tableID int64) (*model.Order, error)
	SetTableAvailable(ctx context.Context, tableID int64, available bool) error
}

// Aggregator recomputes table projections whenever a contributing order
// changes.
type Aggregator struct {
	src Source
}

// NewAggregator creates an Aggregator over the given source.
func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Status returns the current derived status without writing anything.
func (a *Aggregator) Status(ctx context.Context, tableID int64) (Status, error) {
	t, current, err := a.load(ctx, tableID)
	if err != nil {
		return Status{}, err
	}
	return Derive(*t, current), nil
}

// Recompute derives the status and stores the availability flag when it
// changed. flipped reports whether the flag changed.
func (a *Aggregator) Recompute(ctx context.Context, tableID int64) (st Status, flipped bool, err error) {
	t, current, err := a.load(ctx, tableID)
	if err != nil {
		return Status{}, false, err
	}

	st = Derive(*t, current)
	available := st.Availability == Available
	if t.Available == available {
		return st, false, nil
	}
	if err := a.src.SetTableAvailable(ctx, tableID, available); err != nil {
		return st, false, fmt.Errorf("failed to store availability of table %d: %w", tableID, err)
	}
	return st, true, nil
}

func (a *Aggregator) load(ctx context.Context, tableID int64) (*model.Table, *model.Order, error) {
	t, err := a.src.GetTable(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	current, err := a.src.LatestUnpaidOrder(ctx, tableID)
	if errors.Is(err, store.ErrNotFound) {
		return t, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return t, current, nil
}
