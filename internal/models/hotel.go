package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Hotel struct {
	gorm.Model
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	Name           string    `gorm:"not null"`
	City           string    `gorm:"not null"`
	Address        string    `gorm:"not null"`
	OwnerID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner          User
	AllowsOnline   bool    `gorm:"not null;default:true"`
	AllowsOffline  bool    `gorm:"not null;default:false"`
	AdvancePercent float64 `gorm:"not null;default:0"`
	Rooms          []Room
}

func (hotel *Hotel) BeforeCreate(tx *gorm.DB) (err error) {
	if hotel.ID == uuid.Nil {
		hotel.ID = uuid.New()
	}
	return
}

type Room struct {
	gorm.Model
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	HotelID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Hotel         Hotel
	Name          string  `gorm:"not null"`
	Capacity      int     `gorm:"not null"`
	PricePerNight float64 `gorm:"not null"`
	AllowsDaily   bool    `gorm:"not null;default:true"`
	AllowsHourly  bool    `gorm:"not null;default:false"`
	HourlyStays   []HourlyStay
}

func (room *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	return
}

// HourlyStay is a fixed-duration price tier for rooms that rent by the hour.
type HourlyStay struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Hours     int       `gorm:"not null"`
	Price     float64   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (stay *HourlyStay) BeforeCreate(tx *gorm.DB) (err error) {
	if stay.ID == uuid.Nil {
		stay.ID = uuid.New()
	}
	return
}

type Addon struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	HotelID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Price     float64   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (addon *Addon) BeforeCreate(tx *gorm.DB) (err error) {
	if addon.ID == uuid.Nil {
		addon.ID = uuid.New()
	}
	return
}
