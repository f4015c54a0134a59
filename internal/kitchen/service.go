// Package kitchen implements the order item state machine and the order
// commands that feed the table aggregator. Every committed change is
// published as an event while the per-item lock is held, so sessions see
// one item's events in commit order. Publishers must not block.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
	"hotel-kitchen-backend/internal/notification"
	"hotel-kitchen-backend/internal/store"
	"hotel-kitchen-backend/internal/table"
)

// ErrInvalidArgument reports a malformed command.
var ErrInvalidArgument = errors.New("invalid argument")

// Service executes kitchen and floor commands.
type Service struct {
	store  store.Store
	tables *table.Aggregator
	pub    event.Publisher

	itemLocks  stripes
	tableLocks stripes
	now        func() time.Time
}

// NewService wires the state machine to its store, aggregator and event sink.
func NewService(s store.Store, tables *table.Aggregator, pub event.Publisher) *Service {
	if pub == nil {
		pub = event.Multi(nil)
	}
	return &Service{
		store:  s,
		tables: tables,
		pub:    pub,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Accept moves a Pending item to Preparing for workerID.
func (s *Service) Accept(ctx context.Context, itemID, workerID int64) (*model.OrderItem, error) {
	actor, err := s.actor(ctx, workerID, model.RoleKitchen, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	unlock := s.itemLocks.lock(itemID)
	defer unlock()

	current, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if current.HeldBy(actor.ID) {
		return current, nil
	}

	item, err := s.store.AcceptItem(ctx, itemID, actor.ID)
	if err != nil {
		return nil, err
	}
	s.emitItem(ctx, event.ItemStatusChanged, item)
	return item, nil
}

// Complete moves the worker's Preparing item to Done.
func (s *Service) Complete(ctx context.Context, itemID, workerID int64) (*model.OrderItem, error) {
	return s.release(ctx, itemID, workerID, model.ItemDone)
}

// Reject moves the worker's Preparing item to Reject by chef.
func (s *Service) Reject(ctx context.Context, itemID, workerID int64) (*model.OrderItem, error) {
	return s.release(ctx, itemID, workerID, model.ItemRejected)
}

// release finishes preparation. Only the holder may do so, except an admin,
// whose override also frees the holder's hold.
func (s *Service) release(ctx context.Context, itemID, workerID int64, to model.ItemStatus) (*model.OrderItem, error) {
	actor, err := s.actor(ctx, workerID)
	if err != nil {
		return nil, err
	}

	unlock := s.itemLocks.lock(itemID)
	defer unlock()

	current, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if current.Status != model.ItemPreparing || current.PreparedBy == nil {
		return nil, fmt.Errorf("%w: item %d is %s", store.ErrInvalidState, itemID, current.Status)
	}

	holder := *current.PreparedBy
	if holder != actor.ID && actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: item %d is prepared by worker %d", store.ErrForbidden, itemID, holder)
	}

	item, err := s.store.ReleaseItem(ctx, itemID, holder, to)
	if err != nil {
		return nil, err
	}

	typ := event.ItemStatusChanged
	if to == model.ItemDone {
		typ = event.ItemReady
	}
	s.emitItem(ctx, typ, item)
	return item, nil
}

// MarkServed moves a Done item to Served. Any floor worker may serve.
func (s *Service) MarkServed(ctx context.Context, itemID, actorID int64) (*model.OrderItem, error) {
	if _, err := s.actor(ctx, actorID, model.RoleFloor, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock := s.itemLocks.lock(itemID)
	defer unlock()

	item, err := s.store.ServeItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	s.emitItem(ctx, event.ItemStatusChanged, item)
	return item, nil
}

// LineItem is one requested product of a new order.
type LineItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
	Description string `json:"description"`
}

// OpenOrderRequest describes an order placed against a table.
type OpenOrderRequest struct {
	TableID      int64      `json:"tableId" binding:"required"`
	Channel      string     `json:"channel" binding:"required"`
	DepartmentID int64      `json:"departmentId" binding:"required"`
	Items        []LineItem `json:"items" binding:"required"`
}

func (r OpenOrderRequest) validate() error {
	if strings.TrimSpace(r.Channel) == "" {
		return fmt.Errorf("%w: channel is required", ErrInvalidArgument)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: an order needs at least one item", ErrInvalidArgument)
	}
	for i, it := range r.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrInvalidArgument, i, it.Quantity)
		}
		if strings.TrimSpace(it.ProductName) == "" {
			return fmt.Errorf("%w: item %d has no product name", ErrInvalidArgument, i)
		}
	}
	return nil
}

// OpenOrder creates an unpaid order and occupies its table.
func (s *Service) OpenOrder(ctx context.Context, actorID int64, req OpenOrderRequest) (*model.Order, error) {
	if _, err := s.actor(ctx, actorID, model.RoleFloor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	unlock := s.tableLocks.lock(req.TableID)
	defer unlock()

	order := &model.Order{
		TableID:      req.TableID,
		Channel:      strings.TrimSpace(req.Channel),
		DepartmentID: req.DepartmentID,
		OrderedAt:    s.now(),
	}
	for _, it := range req.Items {
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Description: it.Description,
		})
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	st, flipped, err := s.tables.Recompute(ctx, order.TableID)
	if err != nil {
		log.Printf("order %d created but table %d was not recomputed: %v", order.ID, order.TableID, err)
	}

	s.pub.Publish(event.Event{
		Type:         event.NewOrder,
		DepartmentID: order.DepartmentID,
		OrderID:      order.ID,
		TableID:      order.TableID,
		Payload: event.Payload{
			notification.KeyTable: st.Title,
			"channel":             order.Channel,
			"itemCount":           len(order.Items),
		},
		OccurredAt: s.now(),
	})
	if flipped {
		s.emitTable(order.DepartmentID, st)
	}
	return order, nil
}

// PayOrder settles an order and frees its table when nothing else is open.
func (s *Service) PayOrder(ctx context.Context, orderID, actorID int64) (*model.Order, error) {
	if _, err := s.actor(ctx, actorID, model.RoleFloor, model.RoleAdmin); err != nil {
		return nil, err
	}

	existing, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	unlock := s.tableLocks.lock(existing.TableID)
	defer unlock()

	order, err := s.store.MarkOrderPaid(ctx, orderID, s.now())
	if err != nil {
		return nil, err
	}

	st, flipped, err := s.tables.Recompute(ctx, order.TableID)
	if err != nil {
		log.Printf("order %d paid but table %d was not recomputed: %v", order.ID, order.TableID, err)
	}

	s.pub.Publish(event.Event{
		Type:         event.OrderPaid,
		DepartmentID: order.DepartmentID,
		OrderID:      order.ID,
		TableID:      order.TableID,
		Payload:      event.Payload{notification.KeyTable: st.Title},
		OccurredAt:   s.now(),
	})
	if flipped {
		s.emitTable(order.DepartmentID, st)
	}
	return order, nil
}

// Announce broadcasts a free-text message to a department.
func (s *Service) Announce(ctx context.Context, actorID, departmentID int64, text string) error {
	if _, err := s.actor(ctx, actorID, model.RoleAdmin); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidArgument)
	}

	s.pub.Publish(event.Event{
		Type:         event.Message,
		DepartmentID: departmentID,
		Payload:      event.Payload{notification.KeyMessage: text},
		OccurredAt:   s.now(),
	})
	return nil
}

// TableStatus returns the derived status of a table.
func (s *Service) TableStatus(ctx context.Context, tableID int64) (table.Status, error) {
	return s.tables.Status(ctx, tableID)
}

// actor loads the worker and checks its role against allowed. No roles means
// any role.
func (s *Service) actor(ctx context.Context, workerID int64, allowed ...model.Role) (*model.Worker, error) {
	w, err := s.store.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		return w, nil
	}
	for _, r := range allowed {
		if w.Role == r {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: role %s may not do this", store.ErrForbidden, w.Role)
}

func (s *Service) emitItem(ctx context.Context, typ event.Type, item *model.OrderItem) {
	order := item.Order
	payload := event.Payload{
		notification.KeyProduct: item.ProductName,
		notification.KeyTable:   order.Table.Title,
		"status":                string(item.Status),
		"quantity":              item.Quantity,
	}
	if item.PreparedBy != nil {
		payload["preparedBy"] = *item.PreparedBy
	}
	if st, err := s.tables.Status(ctx, order.TableID); err == nil {
		payload[notification.KeyUnserved] = st.UnservedCount
	}

	s.pub.Publish(event.Event{
		Type:         typ,
		DepartmentID: order.DepartmentID,
		ItemID:       item.ID,
		OrderID:      item.OrderID,
		TableID:      order.TableID,
		Version:      item.Version,
		Payload:      payload,
		OccurredAt:   s.now(),
	})
}

func (s *Service) emitTable(departmentID int64, st table.Status) {
	s.pub.Publish(event.Event{
		Type:         event.TableStatusChanged,
		DepartmentID: departmentID,
		TableID:      st.TableID,
		Payload: event.Payload{
			notification.KeyTable:        st.Title,
			notification.KeyAvailability: string(st.Availability),
			notification.KeyUnserved:     st.UnservedCount,
		},
		OccurredAt: s.now(),
	})
}
