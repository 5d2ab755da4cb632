package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusDead    = "dead"
)

const (
	NotificationPriorityLow    = "low"
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
)

// Notification is a transactional outbox row. The business transaction
// that triggers a notification inserts it; the dispatch worker owns
// delivery, retries and the dead-letter transition.
type Notification struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Channel       string    `gorm:"not null"`
	Title         string    `gorm:"not null"`
	Body          string    `gorm:"not null"`
	Priority      string    `gorm:"not null;default:'normal'"`
	Data          []byte    `gorm:"type:jsonb"`
	Status        string    `gorm:"not null;default:'pending';index"`
	Attempts      int       `gorm:"not null;default:0"`
	NextAttemptAt time.Time `gorm:"not null;index"`
	LastError     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
