package model

import "time"

// Role is a staff member's function.
type Role string

const (
	RoleKitchen Role = "kitchen"
	RoleFloor   Role = "floor"
	RoleDriver  Role = "driver"
	RoleAdmin   Role = "admin"
)

// Worker is a staff identity attributed to a department.
type Worker struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:128;not null" json:"name"`
	DepartmentID int64  `gorm:"index;not null" json:"departmentId"`
	Role         Role   `gorm:"size:16;not null" json:"role"`
	// FeedClearedAt is when the worker last cleared the notification feed.
	FeedClearedAt *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// WorkerHold records the single item a worker is currently preparing.
type WorkerHold struct {
	WorkerID  int64     `gorm:"primaryKey;autoIncrement:false"`
	ItemID    int64     `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
