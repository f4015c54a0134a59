package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hotel-kitchen-backend/internal/model"
)

// AppendNotification inserts at the head of the user's feed and trims the
// feed to the newest retention entries.
func (s *gormStore) AppendNotification(ctx context.Context, n *model.Notification, retention int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return fmt.Errorf("failed to append notification for user %d: %w", n.UserID, err)
		}
		if retention <= 0 {
			return nil
		}

		var keep []int64
		if err := tx.Model(&model.Notification{}).
			Where("user_id = ?", n.UserID).
			Order("id DESC").
			Limit(retention).
			Pluck("id", &keep).Error; err != nil {
			return fmt.Errorf("failed to read feed of user %d: %w", n.UserID, err)
		}

		if err := tx.Where("user_id = ? AND id NOT IN ?", n.UserID, keep).Delete(&model.Notification{}).Error; err != nil {
			return fmt.Errorf("failed to trim feed of user %d: %w", n.UserID, err)
		}
		return nil
	})
}

// ListNotifications returns the user's feed newest first.
func (s *gormStore) ListNotifications(ctx context.Context, userID int64, unseenOnly bool, limit int) ([]model.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unseenOnly {
		q = q.Where("seen = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var feed []model.Notification
	if err := q.Order("id DESC").Find(&feed).Error; err != nil {
		return nil, err
	}
	return feed, nil
}

// CountUnseen returns the user's unread counter.
func (s *gormStore) CountUnseen(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND seen = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkNotificationSeen flags one of the user's entries as seen.
func (s *gormStore) MarkNotificationSeen(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("seen", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearNotifications empties the user's feed and moves the clear watermark
// to now.
func (s *gormStore) ClearNotifications(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Notification{}).Error; err != nil {
			return fmt.Errorf("failed to clear feed of user %d: %w", userID, err)
		}
		res := tx.Model(&model.Worker{}).Where("id = ?", userID).Update("feed_cleared_at", time.Now().UTC())
		if res.Error != nil {
			return fmt.Errorf("failed to store clear watermark of user %d: %w", userID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FeedClearedAt returns when the user last cleared the feed, or the zero
// time if never.
func (s *gormStore) FeedClearedAt(ctx context.Context, userID int64) (time.Time, error) {
	var w model.Worker
	err := s.db.WithContext(ctx).Select("id", "feed_cleared_at").First(&w, userID).Error
	if err != nil {
		return time.Time{}, notFound(err)
	}
	if w.FeedClearedAt == nil {
		return time.Time{}, nil
	}
	return *w.FeedClearedAt, nil
}
