package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/rishabhdev/roomio/internal/pricing"
	"gorm.io/gorm"
)

// Redemption is a validated coupon with the discount it yields for a
// specific order amount. The validator never mutates used_count; the
// booking engine increments it inside its transaction.
type Redemption struct {
	Coupon         *models.Coupon
	DiscountAmount float64
}

type Validator struct {
	db *gorm.DB
}

func NewValidator(db *gorm.DB) *Validator {
	return &Validator{db: db}
}

func (v *Validator) Validate(ctx context.Context, code string, hotelID uuid.UUID, orderAmount float64, userID uuid.UUID, bookingType string) (*Redemption, error) {
	var coupon models.Coupon
	err := v.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Coupon not found.")
		}
		return nil, err
	}

	if !coupon.Active {
		return nil, apperrors.Validation("Coupon is no longer active.")
	}

	now := time.Now()
	if now.Before(coupon.ValidFrom) {
		return nil, apperrors.Validation("Coupon is not valid yet.")
	}
	if now.After(coupon.ExpiresAt) {
		return nil, apperrors.Validation("Coupon has expired.")
	}

	if coupon.HotelID != nil && *coupon.HotelID != hotelID {
		return nil, apperrors.Validation("Coupon is not valid for this hotel.")
	}

	if coupon.BookingType != nil && *coupon.BookingType != bookingType {
		return nil, apperrors.Validationf("Coupon only applies to %s bookings.", *coupon.BookingType)
	}

	if orderAmount < coupon.MinOrderAmount {
		return nil, apperrors.Validationf("Order amount must be at least %.2f to use this coupon.", coupon.MinOrderAmount)
	}

	if coupon.UsedCount >= coupon.UsageLimit {
		return nil, apperrors.Conflict("Coupon usage limit reached.")
	}

	return &Redemption{
		Coupon:         &coupon,
		DiscountAmount: Discount(&coupon, orderAmount),
	}, nil
}

// Discount computes the amount a coupon takes off a given order total.
func Discount(coupon *models.Coupon, orderAmount float64) float64 {
	var discount float64
	switch coupon.DiscountType {
	case models.DiscountTypePercent:
		discount = orderAmount * coupon.DiscountValue / 100
		if coupon.MaxDiscount != nil && discount > *coupon.MaxDiscount {
			discount = *coupon.MaxDiscount
		}
	default:
		discount = coupon.DiscountValue
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	return pricing.Round(discount)
}
