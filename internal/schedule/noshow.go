package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/cancellation"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Sweeper periodically cancels confirmed bookings whose check-in time
// passed more than Buffer ago without a check-in, using the same
// cancellation primitives as a manual cancel.
type Sweeper struct {
	db       *gorm.DB
	resolver *cancellation.Resolver
	logger   *logrus.Logger
	systemID uuid.UUID
	Buffer   time.Duration
	Interval time.Duration
}

func NewSweeper(db *gorm.DB, resolver *cancellation.Resolver, logger *logrus.Logger, systemID uuid.UUID, buffer, interval time.Duration) *Sweeper {
	return &Sweeper{
		db:       db,
		resolver: resolver,
		logger:   logger,
		systemID: systemID,
		Buffer:   buffer,
		Interval: interval,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx, time.Now()); err != nil {
				s.logger.WithError(err).Error("no-show sweep failed")
			}
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-s.Buffer)

	var stale []models.Booking
	err := s.db.WithContext(ctx).
		Where("status = ? AND check_in < ?", models.BookingStatusConfirmed, cutoff).
		Limit(100).
		Find(&stale).Error
	if err != nil {
		return err
	}

	actor := cancellation.Actor{ID: s.systemID, Role: models.RoleAdmin}
	for _, booking := range stale {
		if _, err := s.resolver.CancelNoShow(ctx, booking.ID, actor); err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).
				Warn("no-show cancellation failed")
		}
	}

	if len(stale) > 0 {
		s.logger.WithField("count", len(stale)).Info("no-show bookings swept")
	}
	return nil
}
