package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleGuest = "guest"
	RoleHotel = "hotel"
	RoleAdmin = "admin"
)

type User struct {
	gorm.Model
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Name        string    `gorm:"not null"`
	Email       string    `gorm:"unique;not null"`
	PhoneNumber string    `gorm:"not null"`
	Role        string    `gorm:"not null;default:'guest'"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}
