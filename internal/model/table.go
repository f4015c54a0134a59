package model

import "time"

// Table is a physical seating location.
type Table struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:64;not null" json:"title"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	Available bool      `gorm:"not null" json:"available"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
