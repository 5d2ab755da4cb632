package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RefundTypeCancellation = "cancellation"
	RefundTypeNoShow       = "no_show"
	RefundTypeAdmin        = "admin_refund"
)

const (
	RefundStatusPending    = "pending"
	RefundStatusProcessing = "processing"
	RefundStatusProcessed  = "processed"
	RefundStatusFailed     = "failed"
	RefundStatusRejected   = "rejected"
)

const (
	RefundMethodGateway = "gateway"
	RefundMethodWallet  = "wallet"
)

type Refund struct {
	ID                    uuid.UUID `gorm:"type:uuid;primary_key"`
	BookingID             uuid.UUID `gorm:"type:uuid;not null;index"`
	Booking               *Booking  `gorm:"foreignKey:BookingID"`
	OriginalPaymentID     uuid.UUID `gorm:"type:uuid;not null"`
	OriginalPayment       *Payment  `gorm:"foreignKey:OriginalPaymentID"`
	RefundType            string    `gorm:"not null"`
	RefundMethod          string    `gorm:"not null;default:'gateway'"`
	OriginalAmount        float64   `gorm:"not null"`
	CancellationFeeAmount float64   `gorm:"not null;default:0"`
	RefundAmount          float64   `gorm:"not null"`
	Status                string    `gorm:"not null"`
	GatewayRefundID       *string
	RequestedBy           uuid.UUID `gorm:"type:uuid;not null"`
	Reason                *string
	ProcessedAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (refund *Refund) BeforeCreate(tx *gorm.DB) (err error) {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	return
}
