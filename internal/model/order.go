package model

import "time"

// PaymentStatus tracks whether an order has been settled.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Order groups the line items ordered against a table through one channel.
type Order struct {
	ID            int64         `gorm:"primaryKey" json:"id"`
	TableID       int64         `gorm:"index;not null" json:"tableId"`
	Channel       string        `gorm:"size:32;not null" json:"channel"` // cafe, bar, restaurant
	DepartmentID  int64         `gorm:"index;not null" json:"departmentId"`
	PaymentStatus PaymentStatus `gorm:"size:16;not null;default:unpaid" json:"paymentStatus"`
	OrderedAt     time.Time     `gorm:"not null" json:"orderedAt"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`

	// Associations
	Table Table       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// Unpaid reports whether the order still counts against its table.
func (o Order) Unpaid() bool {
	return o.PaymentStatus != PaymentPaid
}
