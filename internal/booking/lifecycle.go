package booking

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/models"
	"gorm.io/gorm"
)

func (s *Service) Get(ctx context.Context, bookingID, requesterID uuid.UUID, role string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Addons").
		Preload("Payments").
		Preload("Hotel").
		First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Booking not found.")
		}
		return nil, err
	}

	switch role {
	case models.RoleAdmin:
	case models.RoleHotel:
		if booking.Hotel == nil || booking.Hotel.OwnerID != requesterID {
			return nil, apperrors.Forbidden("You don't have access to this booking.")
		}
	default:
		if booking.GuestID != requesterID {
			return nil, apperrors.Forbidden("You don't have access to this booking.")
		}
	}

	return &booking, nil
}

func (s *Service) ListForGuest(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&bookings).Error
	return bookings, err
}

// CheckInCode builds the signed payload encoded into the guest's
// check-in QR image.
func (s *Service) CheckInCode(ctx context.Context, bookingID, guestID uuid.UUID) (string, error) {
	booking, err := s.Get(ctx, bookingID, guestID, models.RoleGuest)
	if err != nil {
		return "", err
	}
	if booking.Status != models.BookingStatusConfirmed {
		return "", apperrors.Conflict("Only confirmed bookings can be checked in.")
	}
	return buildCheckInPayload(booking.ID, booking.GuestID, s.checkInKey), nil
}

// CheckIn validates a scanned QR payload and moves the booking from
// confirmed to checked_in. Only the hotel's operator or an admin may
// do this.
func (s *Service) CheckIn(ctx context.Context, qrData string, operatorID uuid.UUID, role string) (*models.Booking, error) {
	bookingID, err := parseCheckInPayload(qrData)
	if err != nil {
		return nil, apperrors.Validation("Invalid check-in code format.")
	}

	var booking models.Booking
	err = s.db.WithContext(ctx).Preload("Hotel").First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Booking not found.")
		}
		return nil, err
	}

	if !validateCheckInPayload(qrData, booking.ID, booking.GuestID, s.checkInKey) {
		return nil, apperrors.Forbidden("Invalid check-in code signature.")
	}

	if role != models.RoleAdmin {
		if booking.Hotel == nil || booking.Hotel.OwnerID != operatorID {
			return nil, apperrors.Forbidden("You don't have permission to check in this booking.")
		}
	}

	if booking.Status != models.BookingStatusConfirmed {
		return nil, apperrors.Conflict("Booking is not in a check-in-able state.")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&booking).
		Update("status", models.BookingStatusCheckedIn).Error; err != nil {
		return nil, err
	}
	booking.Status = models.BookingStatusCheckedIn
	booking.UpdatedAt = now

	return &booking, nil
}

// Complete closes out a checked-in stay.
func (s *Service) Complete(ctx context.Context, bookingID, operatorID uuid.UUID, role string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).Preload("Hotel").First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Booking not found.")
		}
		return nil, err
	}

	if role != models.RoleAdmin {
		if booking.Hotel == nil || booking.Hotel.OwnerID != operatorID {
			return nil, apperrors.Forbidden("You don't have permission to complete this booking.")
		}
	}

	if booking.Status != models.BookingStatusCheckedIn {
		return nil, apperrors.Conflict("Only checked-in bookings can be completed.")
	}

	if err := s.db.WithContext(ctx).Model(&booking).
		Update("status", models.BookingStatusCompleted).Error; err != nil {
		return nil, err
	}
	booking.Status = models.BookingStatusCompleted

	return &booking, nil
}

func checkInSignature(bookingID, guestID uuid.UUID, secret string) string {
	data := fmt.Sprintf("%s:%s", bookingID.String(), guestID.String())
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func buildCheckInPayload(bookingID, guestID uuid.UUID, secret string) string {
	return fmt.Sprintf("booking:%s;guest:%s;signature:%s",
		bookingID.String(), guestID.String(), checkInSignature(bookingID, guestID, secret))
}

func parseCheckInPayload(qrData string) (uuid.UUID, error) {
	parts := strings.Split(qrData, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[0], "booking:") || !strings.HasPrefix(parts[2], "signature:") {
		return uuid.Nil, fmt.Errorf("invalid QR data format")
	}
	return uuid.Parse(strings.TrimPrefix(parts[0], "booking:"))
}

func validateCheckInPayload(qrData string, bookingID, guestID uuid.UUID, secret string) bool {
	parts := strings.Split(qrData, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "signature:") {
		return false
	}
	signature := strings.TrimPrefix(parts[2], "signature:")
	expected := checkInSignature(bookingID, guestID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
