package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hotel-kitchen-backend/internal/model"
)

// CreateOrder opens an order with its items. A table holds at most one
// unpaid order per channel; the partial unique index enforces it across
// instances.
func (s *gormStore) CreateOrder(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table model.Table
		if err := tx.First(&table, order.TableID).Error; err != nil {
			return notFound(err)
		}

		var open int64
		if err := tx.Model(&model.Order{}).
			Where("table_id = ? AND channel = ? AND payment_status = ?", order.TableID, order.Channel, model.PaymentUnpaid).
			Count(&open).Error; err != nil {
			return fmt.Errorf("failed to count open orders for table %d: %w", order.TableID, err)
		}
		if open > 0 {
			return fmt.Errorf("%w: table %d already has an open %s order", ErrConflict, order.TableID, order.Channel)
		}

		order.PaymentStatus = model.PaymentUnpaid
		if order.OrderedAt.IsZero() {
			order.OrderedAt = time.Now().UTC()
		}
		for i := range order.Items {
			order.Items[i].Status = model.ItemPending
			order.Items[i].PreparedBy = nil
		}

		if err := tx.Omit("Table").Create(order).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: table %d already has an open %s order", ErrConflict, order.TableID, order.Channel)
			}
			return fmt.Errorf("failed to create order for table %d: %w", order.TableID, err)
		}
		order.Table = table
		return nil
	})
}

// GetOrder loads an order with its items and table.
func (s *gormStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := s.db.WithContext(ctx).Preload("Items").Preload("Table").First(&order, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// MarkOrderPaid settles an unpaid order.
func (s *gormStore) MarkOrderPaid(ctx context.Context, id int64, at time.Time) (*model.Order, error) {
	var paid model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND payment_status = ?", id, model.PaymentUnpaid).
			Updates(map[string]any{"payment_status": model.PaymentPaid, "paid_at": at})
		if res.Error != nil {
			return fmt.Errorf("failed to mark order %d paid: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			var existing model.Order
			if err := tx.First(&existing, id).Error; err != nil {
				return notFound(err)
			}
			return fmt.Errorf("%w: order %d is already paid", ErrInvalidState, id)
		}
		return tx.Preload("Items").Preload("Table").First(&paid, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &paid, nil
}

// GetTable loads a table.
func (s *gormStore) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	var table model.Table
	if err := s.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &table, nil
}

// LatestUnpaidOrder returns the most recent unpaid order on the table, or
// ErrNotFound when the table is free.
func (s *gormStore) LatestUnpaidOrder(ctx context.Context, tableID int64) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("table_id = ? AND payment_status = ?", tableID, model.PaymentUnpaid).
		Order("ordered_at DESC").Order("id DESC").
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// SetTableAvailable stores the derived availability flag.
func (s *gormStore) SetTableAvailable(ctx context.Context, tableID int64, available bool) error {
	res := s.db.WithContext(ctx).Model(&model.Table{}).Where("id = ?", tableID).Update("available", available)
	if res.Error != nil {
		return fmt.Errorf("failed to update table %d: %w", tableID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
