package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-kitchen-backend/internal/model"
)

// GetItem loads an order item together with its order and table.
func (s *gormStore) GetItem(ctx context.Context, id int64) (*model.OrderItem, error) {
	return loadItem(s.db.WithContext(ctx), id)
}

// AcceptItem moves a Pending item to Preparing for the worker. The hold row
// and the status write are both conditional and share one transaction, so
// a lost race on either leaves no trace.
func (s *gormStore) AcceptItem(ctx context.Context, itemID, workerID int64) (*model.OrderItem, error) {
	var accepted *model.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.OrderItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return notFound(err)
		}

		switch {
		case item.HeldBy(workerID):
			// Repeated accept by the holder is a no-op.
			loaded, err := loadItem(tx, itemID)
			accepted = loaded
			return err
		case item.Status == model.ItemPreparing:
			return ErrItemTaken
		case item.Status != model.ItemPending:
			return fmt.Errorf("%w: item %d is %s", ErrInvalidState, itemID, item.Status)
		}

		now := time.Now().UTC()
		hold := model.WorkerHold{WorkerID: workerID, ItemID: itemID, CreatedAt: now}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&hold)
		if res.Error != nil {
			return fmt.Errorf("failed to record hold for worker %d: %w", workerID, res.Error)
		}
		if res.RowsAffected == 0 {
			var existing model.WorkerHold
			if err := tx.First(&existing, "worker_id = ?", workerID).Error; err == nil && existing.ItemID != itemID {
				return ErrWorkerBusy
			}
			return ErrItemTaken
		}

		res = tx.Model(&model.OrderItem{}).
			Where("id = ? AND status = ?", itemID, model.ItemPending).
			Updates(map[string]any{
				"status":      model.ItemPreparing,
				"prepared_by": workerID,
				"version":     gorm.Expr("version + 1"),
				"updated_at":  now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to accept item %d: %w", itemID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrItemTaken
		}

		loaded, err := loadItem(tx, itemID)
		accepted = loaded
		return err
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// ReleaseItem finishes preparation of an item held by holderID, moving it to
// Done or Reject by chef and dropping the holder's hold.
func (s *gormStore) ReleaseItem(ctx context.Context, itemID, holderID int64, to model.ItemStatus) (*model.OrderItem, error) {
	if to != model.ItemDone && to != model.ItemRejected {
		return nil, fmt.Errorf("%w: cannot release item into %s", ErrInvalidState, to)
	}

	var released *model.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.OrderItem{}).
			Where("id = ? AND status = ? AND prepared_by = ?", itemID, model.ItemPreparing, holderID).
			Updates(map[string]any{
				"status":      to,
				"prepared_by": nil,
				"version":     gorm.Expr("version + 1"),
				"updated_at":  time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to release item %d: %w", itemID, res.Error)
		}
		if res.RowsAffected == 0 {
			return explainMiss(tx, itemID, model.ItemPreparing)
		}

		if err := tx.Where("worker_id = ? AND item_id = ?", holderID, itemID).Delete(&model.WorkerHold{}).Error; err != nil {
			return fmt.Errorf("failed to drop hold of worker %d: %w", holderID, err)
		}

		loaded, err := loadItem(tx, itemID)
		released = loaded
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ServeItem moves a Done item to Served.
func (s *gormStore) ServeItem(ctx context.Context, itemID int64) (*model.OrderItem, error) {
	var served *model.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.OrderItem{}).
			Where("id = ? AND status = ?", itemID, model.ItemDone).
			Updates(map[string]any{
				"status":     model.ItemServed,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to serve item %d: %w", itemID, res.Error)
		}
		if res.RowsAffected == 0 {
			return explainMiss(tx, itemID, model.ItemDone)
		}

		loaded, err := loadItem(tx, itemID)
		served = loaded
		return err
	})
	if err != nil {
		return nil, err
	}
	return served, nil
}

// WorkerHold returns the hold currently owned by the worker.
func (s *gormStore) WorkerHold(ctx context.Context, workerID int64) (*model.WorkerHold, error) {
	var hold model.WorkerHold
	if err := s.db.WithContext(ctx).First(&hold, "worker_id = ?", workerID).Error; err != nil {
		return nil, notFound(err)
	}
	return &hold, nil
}

func loadItem(tx *gorm.DB, id int64) (*model.OrderItem, error) {
	var item model.OrderItem
	if err := tx.Preload("Order.Table").First(&item, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// explainMiss turns a conditional write that matched nothing into the
// matching sentinel error.
func explainMiss(tx *gorm.DB, itemID int64, expected model.ItemStatus) error {
	var item model.OrderItem
	if err := tx.First(&item, itemID).Error; err != nil {
		return notFound(err)
	}
	if item.Status != expected {
		return fmt.Errorf("%w: item %d is %s", ErrInvalidState, itemID, item.Status)
	}
	return ErrConflict
}
