package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/models"
	"gorm.io/gorm"
)

// Store is the worker's view of the outbox table.
type Store interface {
	Due(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, nextAttempt time.Time, reason string) error
	MarkDead(ctx context.Context, id uuid.UUID, reason string) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Due(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.NotificationStatusPending, models.NotificationStatusFailed}).
		Where("next_attempt_at <= ?", now).
		Order("next_attempt_at").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) MarkSent(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   models.NotificationStatusSent,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (s *GormStore) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, nextAttempt time.Time, reason string) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.NotificationStatusFailed,
			"attempts":        attempts,
			"next_attempt_at": nextAttempt,
			"last_error":      reason,
		}).Error
}

func (s *GormStore) MarkDead(ctx context.Context, id uuid.UUID, reason string) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.NotificationStatusDead,
			"last_error": reason,
		}).Error
}
