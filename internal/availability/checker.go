package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/models"
	"gorm.io/gorm"
)

// Result is advisory: the booking engine re-runs the conflict check
// inside its transaction before writing anything.
type Result struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type Checker struct {
	db *gorm.DB
}

func NewChecker(db *gorm.DB) *Checker {
	return &Checker{db: db}
}

func (c *Checker) Check(ctx context.Context, room *models.Room, checkIn, checkOut time.Time, bookingType string, guestCount int) (*Result, error) {
	if !checkIn.Before(checkOut) {
		return nil, apperrors.Validation("Check-in must be before check-out.")
	}

	if guestCount > room.Capacity {
		return &Result{Available: false, Reason: "Guest count exceeds room capacity."}, nil
	}

	switch bookingType {
	case models.BookingTypeDaily:
		if !room.AllowsDaily {
			return &Result{Available: false, Reason: "Room does not support daily bookings."}, nil
		}
	case models.BookingTypeHourly:
		if !room.AllowsHourly {
			return &Result{Available: false, Reason: "Room does not support hourly bookings."}, nil
		}
	default:
		return nil, apperrors.Validation("Booking type must be daily or hourly.")
	}

	conflicts, err := c.CountConflicts(ctx, c.db, room.ID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if conflicts > 0 {
		return &Result{Available: false, Reason: "Room is already booked for the requested interval."}, nil
	}

	return &Result{Available: true}, nil
}

// CountConflicts counts non-cancelled bookings overlapping the
// half-open interval [checkIn, checkOut). It takes the db handle as a
// parameter so the booking engine can run it on its own transaction.
func (c *Checker) CountConflicts(ctx context.Context, db *gorm.DB, roomID uuid.UUID, checkIn, checkOut time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("room_id = ?", roomID).
		Where("status <> ?", models.BookingStatusCancelled).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
