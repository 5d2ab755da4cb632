package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BookingTypeDaily  = "daily"
	BookingTypeHourly = "hourly"
)

const (
	BookingStatusPending       = "pending"
	BookingStatusConfirmed     = "confirmed"
	BookingStatusCancelled     = "cancelled"
	BookingStatusCheckedIn     = "checked_in"
	BookingStatusCompleted     = "completed"
	BookingStatusPaymentFailed = "payment_failed"
)

const (
	BookingPaymentPending   = "pending"
	BookingPaymentPartial   = "partial"
	BookingPaymentCompleted = "completed"
	BookingPaymentFailed    = "failed"
	BookingPaymentRefunded  = "refunded"
)

const (
	PaymentModeOnline  = "online"
	PaymentModeOffline = "offline"
)

type Booking struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	GuestID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Guest           *User     `gorm:"foreignKey:GuestID"`
	HotelID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Hotel           *Hotel    `gorm:"foreignKey:HotelID"`
	RoomID          uuid.UUID `gorm:"type:uuid;not null;index"`
	Room            *Room     `gorm:"foreignKey:RoomID"`
	CheckIn         time.Time `gorm:"not null;index"`
	CheckOut        time.Time `gorm:"not null"`
	Type            string    `gorm:"not null"`
	GuestCount      int       `gorm:"not null"`
	TotalAmount     float64   `gorm:"not null"`
	PaymentMode     string    `gorm:"not null"`
	Status          string    `gorm:"not null"`
	PaymentStatus   string    `gorm:"not null"`
	AdvanceAmount   float64
	RemainingAmount float64
	CancelledBy     *uuid.UUID `gorm:"type:uuid"`
	CancelledAt     *time.Time
	CancelReason    *string
	Addons          []BookingAddon
	Payments        []Payment
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (booking *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return
}

// BookingAddon is a price-snapshot line item attached to a booking.
type BookingAddon struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;index"`
	AddonID   uuid.UUID `gorm:"type:uuid;not null"`
	Name      string    `gorm:"not null"`
	Price     float64   `gorm:"not null"`
	Quantity  int       `gorm:"not null;default:1"`
	CreatedAt time.Time
}

func (line *BookingAddon) BeforeCreate(tx *gorm.DB) (err error) {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return
}
