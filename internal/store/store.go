package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"hotel-kitchen-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// Order items
	GetItem(ctx context.Context, id int64) (*model.OrderItem, error)
	AcceptItem(ctx context.Context, itemID, workerID int64) (*model.OrderItem, error)
	ReleaseItem(ctx context.Context, itemID, holderID int64, to model.ItemStatus) (*model.OrderItem, error)
	ServeItem(ctx context.Context, itemID int64) (*model.OrderItem, error)
	WorkerHold(ctx context.Context, workerID int64) (*model.WorkerHold, error)

	// Orders and tables
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	MarkOrderPaid(ctx context.Context, id int64, at time.Time) (*model.Order, error)
	GetTable(ctx context.Context, id int64) (*model.Table, error)
	LatestUnpaidOrder(ctx context.Context, tableID int64) (*model.Order, error)
	SetTableAvailable(ctx context.Context, tableID int64, available bool) error

	// Workers and push subscriptions
	GetWorker(ctx context.Context, id int64) (*model.Worker, error)
	ListRecipients(ctx context.Context, departmentID int64) ([]model.Worker, error)
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	ListPushSubscriptions(ctx context.Context, workerID int64) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error

	// Notification feeds
	AppendNotification(ctx context.Context, n *model.Notification, retention int) error
	ListNotifications(ctx context.Context, userID int64, unseenOnly bool, limit int) ([]model.Notification, error)
	CountUnseen(ctx context.Context, userID int64) (int64, error)
	MarkNotificationSeen(ctx context.Context, userID, id int64) error
	ClearNotifications(ctx context.Context, userID int64) error
	FeedClearedAt(ctx context.Context, userID int64) (time.Time, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for handlers that need ad hoc queries.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
