package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentTypeFull      = "full"
	PaymentTypeAdvance   = "advance"
	PaymentTypeRemaining = "remaining"
)

const (
	PaymentStatusPending         = "pending"
	PaymentStatusCompleted       = "completed"
	PaymentStatusFailed          = "failed"
	PaymentStatusCancelled       = "cancelled"
	PaymentStatusRefund          = "refund"
	PaymentStatusRefundCompleted = "refund_completed"
)

type Payment struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	BookingID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Booking          *Booking  `gorm:"foreignKey:BookingID"`
	Amount           float64   `gorm:"not null"`
	Type             string    `gorm:"not null"`
	Mode             string    `gorm:"not null"`
	GatewayOrderID   *string   `gorm:"index"`
	GatewayPaymentID *string
	GatewaySignature *string
	WalletAmountUsed float64 `gorm:"not null;default:0"`
	Status           string  `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}

const (
	OrderStatusCreated   = "created"
	OrderStatusAttempted = "attempted"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

// PaymentOrder mirrors a gateway-side payment intent. At most one
// active (created/attempted, unexpired) order exists per booking.
type PaymentOrder struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	BookingID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Booking          *Booking  `gorm:"foreignKey:BookingID"`
	GatewayOrderID   string    `gorm:"not null;unique"`
	Amount           float64   `gorm:"not null"`
	OriginalAmount   float64   `gorm:"not null"`
	WalletAmountUsed float64   `gorm:"not null;default:0"`
	Status           string    `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (order *PaymentOrder) BeforeCreate(tx *gorm.DB) (err error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return
}

func (order *PaymentOrder) Expired(now time.Time) bool {
	return now.After(order.ExpiresAt)
}
