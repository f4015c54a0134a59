package model

import "time"

// ItemStatus is the preparation state of a single order line.
type ItemStatus string

const (
	ItemPending   ItemStatus = "Pending"
	ItemPreparing ItemStatus = "Preparing"
	ItemDone      ItemStatus = "Done"
	ItemRejected  ItemStatus = "Reject by chef"
	ItemServed    ItemStatus = "Served"
)

// Terminal reports whether no further transition is possible.
func (s ItemStatus) Terminal() bool {
	return s == ItemServed || s == ItemRejected
}

// OrderItem is one product line within an order.
type OrderItem struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	OrderID     int64      `gorm:"index;not null" json:"orderId"`
	ProductID   int64      `gorm:"not null" json:"productId"`
	ProductName string     `gorm:"size:128;not null" json:"productName"`
	Quantity    int        `gorm:"not null" json:"quantity"`
	Description string     `gorm:"type:text" json:"description"`
	Status      ItemStatus `gorm:"size:20;not null;default:Pending;index" json:"status"`
	PreparedBy  *int64     `gorm:"index" json:"preparedBy"`
	Version     int        `gorm:"not null;default:0" json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Order Order `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// HeldBy reports whether the given worker is preparing this item.
func (i OrderItem) HeldBy(workerID int64) bool {
	return i.Status == ItemPreparing && i.PreparedBy != nil && *i.PreparedBy == workerID
}
