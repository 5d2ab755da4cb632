package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/models"
	"gorm.io/gorm"
)

// Message is a fire-and-forget delivery request.
type Message struct {
	UserID   uuid.UUID
	Channel  string
	Title    string
	Body     string
	Priority string
	Data     map[string]interface{}
}

// Queue writes outbox rows. EnqueueTx lets a business transaction make
// the notification intent part of its atomic unit; delivery is the
// worker's problem.
type Queue struct {
	db *gorm.DB
}

func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db}
}

func (q *Queue) Enqueue(ctx context.Context, msg Message) (uuid.UUID, error) {
	return q.EnqueueTx(q.db.WithContext(ctx), msg)
}

func (q *Queue) EnqueueTx(tx *gorm.DB, msg Message) (uuid.UUID, error) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return uuid.Nil, err
	}

	priority := msg.Priority
	if priority == "" {
		priority = models.NotificationPriorityNormal
	}

	row := models.Notification{
		UserID:        msg.UserID,
		Channel:       msg.Channel,
		Title:         msg.Title,
		Body:          msg.Body,
		Priority:      priority,
		Data:          data,
		Status:        models.NotificationStatusPending,
		NextAttemptAt: time.Now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}
