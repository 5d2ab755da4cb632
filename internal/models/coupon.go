package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DiscountTypeFlat    = "flat"
	DiscountTypePercent = "percent"
)

type Coupon struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key"`
	Code           string         `gorm:"not null;unique"`
	DiscountType   string         `gorm:"not null"`
	DiscountValue  float64        `gorm:"not null"`
	MaxDiscount    *float64
	HotelID        *uuid.UUID     `gorm:"type:uuid;index"`
	MinOrderAmount float64        `gorm:"not null;default:0"`
	UsageLimit     int            `gorm:"not null"`
	UsedCount      int            `gorm:"not null;default:0"`
	BookingType    *string
	ValidFrom      time.Time      `gorm:"not null"`
	ExpiresAt      time.Time      `gorm:"not null"`
	Active         bool           `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (coupon *Coupon) BeforeCreate(tx *gorm.DB) (err error) {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	return
}

// CouponUsage is one redemption of a coupon against a booking. The
// coupon's used_count is incremented in the same transaction that
// inserts this row.
type CouponUsage struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	BookingID      uuid.UUID `gorm:"type:uuid;not null;index"`
	CouponID       uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`
	DiscountAmount float64   `gorm:"not null"`
	CreatedAt      time.Time
}

func (usage *CouponUsage) BeforeCreate(tx *gorm.DB) (err error) {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return
}
