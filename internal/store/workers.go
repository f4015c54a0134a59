package store

import (
	"context"

	"gorm.io/gorm/clause"

	"hotel-kitchen-backend/internal/model"
)

// GetWorker loads a worker by id.
func (s *gormStore) GetWorker(ctx context.Context, id int64) (*model.Worker, error) {
	var worker model.Worker
	if err := s.db.WithContext(ctx).First(&worker, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &worker, nil
}

// ListRecipients returns every worker of the department plus all admins.
func (s *gormStore) ListRecipients(ctx context.Context, departmentID int64) ([]model.Worker, error) {
	var workers []model.Worker
	err := s.db.WithContext(ctx).
		Where("department_id = ? OR role = ?", departmentID, model.RoleAdmin).
		Order("id").
		Find(&workers).Error
	return workers, err
}

// SavePushSubscription creates or replaces a browser push subscription.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"worker_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

// ListPushSubscriptions returns the worker's registered devices.
func (s *gormStore) ListPushSubscriptions(ctx context.Context, workerID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).Where("worker_id = ?", workerID).Find(&subs).Error
	return subs, err
}

// DeletePushSubscription removes a subscription by endpoint.
func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}
