package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStatus values mirror what the payment gateway reports; only
// PaymentPaid unlocks a paid subscription.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Payment records one gateway transaction backing a subscription cycle.
// Recurring billing creates a new row per cycle.
type Payment struct {
	gorm.Model
	UserID         uint   `gorm:"index;not null"`
	CourseID       uint   `gorm:"index;not null"`
	SubscriptionID *uint  `gorm:"index"`
	Reference      string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Amount         decimal.Decimal `gorm:"type:numeric(10,2)"`
	Currency       string          `gorm:"type:varchar(3)"`
	Status         PaymentStatus   `gorm:"type:varchar(16);default:pending;index"`
	PaidAt         *time.Time
	GatewayPayload datatypes.JSON // raw gateway notification, kept for audits

	User   User   `gorm:"foreignKey:UserID"`
	Course Course `gorm:"foreignKey:CourseID"`
}
