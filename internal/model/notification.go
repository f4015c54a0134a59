package model

import "time"

// Notification is an entry in one user's feed.
type Notification struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	UserID       int64          `gorm:"index:idx_notifications_user_seen;not null" json:"userId"`
	Type         string         `gorm:"size:32;not null" json:"type"`
	Payload      map[string]any `gorm:"serializer:json;type:text" json:"payload"`
	Message      string         `gorm:"type:text;not null" json:"message"`
	CreatedAt    time.Time      `gorm:"not null" json:"createdAt"`
	Seen         bool           `gorm:"index:idx_notifications_user_seen;not null;default:false" json:"seen"`
	DepartmentID int64          `gorm:"not null" json:"departmentId"`
}
