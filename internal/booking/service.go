package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/availability"
	"github.com/rishabhdev/roomio/internal/coupons"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/rishabhdev/roomio/internal/notifications"
	"github.com/rishabhdev/roomio/internal/pricing"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AddonSelection struct {
	AddonID  uuid.UUID
	Quantity int
}

type CreateParams struct {
	GuestID        uuid.UUID
	RoomID         uuid.UUID
	CheckIn        time.Time
	CheckOut       time.Time
	Type           string
	GuestCount     int
	PaymentMode    string
	Addons         []AddonSelection
	CouponCode     *string
	SubmittedTotal float64
}

type QuoteParams struct {
	GuestID    uuid.UUID
	RoomID     uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	Type       string
	Addons     []AddonSelection
	CouponCode *string
}

// Service is the booking transaction engine. All collaborators come in
// at construction; the only shared state is the database.
type Service struct {
	db         *gorm.DB
	calculator *pricing.Calculator
	checker    *availability.Checker
	coupons    *coupons.Validator
	outbox     *notifications.Queue
	checkInKey string
	logger     *logrus.Logger
}

func NewService(db *gorm.DB, calculator *pricing.Calculator, checker *availability.Checker, validator *coupons.Validator, outbox *notifications.Queue, checkInKey string, logger *logrus.Logger) *Service {
	return &Service{
		db:         db,
		calculator: calculator,
		checker:    checker,
		coupons:    validator,
		outbox:     outbox,
		checkInKey: checkInKey,
		logger:     logger,
	}
}

// preparation is everything CreateBooking validates before it opens
// the transaction. Nothing in here has written to the database.
type preparation struct {
	hotel      *models.Hotel
	room       *models.Room
	quote      *pricing.Quote
	addonLines []pricing.AddonLine
	redemption *coupons.Redemption
}

// Quote computes the price breakdown for a prospective stay without
// writing anything. It backs the public computePrice endpoint.
func (s *Service) Quote(ctx context.Context, params QuoteParams) (*pricing.Quote, error) {
	prep, err := s.prepare(ctx, CreateParams{
		GuestID:    params.GuestID,
		RoomID:     params.RoomID,
		CheckIn:    params.CheckIn,
		CheckOut:   params.CheckOut,
		Type:       params.Type,
		Addons:     params.Addons,
		CouponCode: params.CouponCode,
	}, false)
	if err != nil {
		return nil, err
	}
	return prep.quote, nil
}

// CreateBooking validates everything up front, then commits the
// booking, its payment shells, the coupon redemption and the addon
// lines as one atomic unit. No partial booking is ever visible.
func (s *Service) CreateBooking(ctx context.Context, params CreateParams) (*models.Booking, error) {
	prep, err := s.prepare(ctx, params, true)
	if err != nil {
		return nil, err
	}

	if !pricing.AmountsMatch(params.SubmittedTotal, prep.quote.Total) {
		return nil, apperrors.Validationf(
			"Submitted total %.2f does not match expected total %.2f.",
			params.SubmittedTotal, prep.quote.Total,
		)
	}

	conflict, err := s.checker.Check(ctx, prep.room, params.CheckIn, params.CheckOut, params.Type, params.GuestCount)
	if err != nil {
		return nil, err
	}
	if !conflict.Available {
		return nil, apperrors.Conflict(conflict.Reason)
	}

	var booking *models.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the room row so concurrent requests for the same room
		// serialize on the overlap re-check.
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", prep.room.ID).Error; err != nil {
			return err
		}

		conflicts, err := s.checker.CountConflicts(ctx, tx, room.ID, params.CheckIn, params.CheckOut)
		if err != nil {
			return err
		}
		if conflicts > 0 {
			return apperrors.Conflict("Room is already booked for the requested interval.")
		}

		booking = &models.Booking{
			GuestID:       params.GuestID,
			HotelID:       prep.hotel.ID,
			RoomID:        room.ID,
			CheckIn:       params.CheckIn,
			CheckOut:      params.CheckOut,
			Type:          params.Type,
			GuestCount:    params.GuestCount,
			TotalAmount:   prep.quote.Total,
			PaymentMode:   params.PaymentMode,
			Status:        models.BookingStatusConfirmed,
			PaymentStatus: models.BookingPaymentPending,
		}

		if err := s.applyPaymentSplit(booking, prep.hotel); err != nil {
			return err
		}
		if err := tx.Create(booking).Error; err != nil {
			return err
		}

		if err := s.createPaymentShells(tx, booking); err != nil {
			return err
		}

		if prep.redemption != nil {
			if err := s.redeemCoupon(tx, booking, params.GuestID, prep.redemption); err != nil {
				return err
			}
		}

		for _, line := range prep.addonLines {
			record := models.BookingAddon{
				BookingID: booking.ID,
				AddonID:   line.Addon.ID,
				Name:      line.Addon.Name,
				Price:     line.Addon.Price,
				Quantity:  line.Quantity,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		if _, err := s.outbox.EnqueueTx(tx, notifications.Message{
			UserID:  params.GuestID,
			Channel: "booking",
			Title:   "Booking confirmed",
			Body:    "Your booking at " + prep.hotel.Name + " is confirmed.",
			Data: map[string]interface{}{
				"booking_id": booking.ID,
				"check_in":   booking.CheckIn,
			},
		}); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"guest_id":   params.GuestID,
		"room_id":    booking.RoomID,
		"total":      booking.TotalAmount,
	}).Info("booking created")

	return booking, nil
}

func (s *Service) prepare(ctx context.Context, params CreateParams, checkPaymentMode bool) (*preparation, error) {
	if !params.CheckIn.Before(params.CheckOut) {
		return nil, apperrors.Validation("Check-in must be before check-out.")
	}

	var room models.Room
	err := s.db.WithContext(ctx).Preload("HourlyStays").First(&room, "id = ?", params.RoomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Room not found.")
		}
		return nil, err
	}

	var hotel models.Hotel
	if err := s.db.WithContext(ctx).First(&hotel, "id = ?", room.HotelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Hotel not found.")
		}
		return nil, err
	}

	if checkPaymentMode {
		switch params.PaymentMode {
		case models.PaymentModeOnline:
			if !hotel.AllowsOnline {
				return nil, apperrors.Validation("Hotel does not accept online payment.")
			}
		case models.PaymentModeOffline:
			if !hotel.AllowsOffline {
				return nil, apperrors.Validation("Hotel does not accept offline payment.")
			}
		default:
			return nil, apperrors.Validation("Payment mode must be online or offline.")
		}
	}

	addonLines, err := s.resolveAddons(ctx, hotel.ID, params.Addons)
	if err != nil {
		return nil, err
	}

	// Discount is computed against the pre-discount total, so quote
	// twice: once without the coupon, once with it.
	quote, err := s.calculator.Quote(&room, params.CheckIn, params.CheckOut, params.Type, addonLines, 0)
	if err != nil {
		return nil, err
	}

	var redemption *coupons.Redemption
	if params.CouponCode != nil && *params.CouponCode != "" {
		redemption, err = s.coupons.Validate(ctx, *params.CouponCode, hotel.ID, quote.Total, params.GuestID, params.Type)
		if err != nil {
			return nil, err
		}
		quote, err = s.calculator.Quote(&room, params.CheckIn, params.CheckOut, params.Type, addonLines, redemption.DiscountAmount)
		if err != nil {
			return nil, err
		}
	}

	return &preparation{
		hotel:      &hotel,
		room:       &room,
		quote:      quote,
		addonLines: addonLines,
		redemption: redemption,
	}, nil
}

func (s *Service) resolveAddons(ctx context.Context, hotelID uuid.UUID, selections []AddonSelection) ([]pricing.AddonLine, error) {
	if len(selections) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(selections))
	for _, sel := range selections {
		ids = append(ids, sel.AddonID)
	}

	var addons []models.Addon
	if err := s.db.WithContext(ctx).Where("hotel_id = ? AND id IN ?", hotelID, ids).Find(&addons).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Addon, len(addons))
	for _, addon := range addons {
		byID[addon.ID] = addon
	}

	lines := make([]pricing.AddonLine, 0, len(selections))
	for _, sel := range selections {
		addon, ok := byID[sel.AddonID]
		if !ok {
			return nil, apperrors.NotFound("Addon not found for this hotel.")
		}
		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}
		lines = append(lines, pricing.AddonLine{Addon: addon, Quantity: qty})
	}
	return lines, nil
}

// applyPaymentSplit sets advance/remaining for offline bookings at
// hotels that take an advance. Online bookings are paid in full.
func (s *Service) applyPaymentSplit(booking *models.Booking, hotel *models.Hotel) error {
	if booking.PaymentMode == models.PaymentModeOffline && hotel.AdvancePercent > 0 {
		if hotel.AdvancePercent >= 100 {
			return apperrors.Validation("Hotel advance percent is misconfigured.")
		}
		booking.AdvanceAmount = pricing.Round(booking.TotalAmount * hotel.AdvancePercent / 100)
		booking.RemainingAmount = pricing.Round(booking.TotalAmount - booking.AdvanceAmount)
	}
	return nil
}

func (s *Service) createPaymentShells(tx *gorm.DB, booking *models.Booking) error {
	if booking.AdvanceAmount > 0 {
		advance := models.Payment{
			BookingID: booking.ID,
			Amount:    booking.AdvanceAmount,
			Type:      models.PaymentTypeAdvance,
			Mode:      models.PaymentModeOnline,
			Status:    models.PaymentStatusPending,
		}
		if err := tx.Create(&advance).Error; err != nil {
			return err
		}
		remaining := models.Payment{
			BookingID: booking.ID,
			Amount:    booking.RemainingAmount,
			Type:      models.PaymentTypeRemaining,
			Mode:      models.PaymentModeOffline,
			Status:    models.PaymentStatusPending,
		}
		return tx.Create(&remaining).Error
	}

	full := models.Payment{
		BookingID: booking.ID,
		Amount:    booking.TotalAmount,
		Type:      models.PaymentTypeFull,
		Mode:      booking.PaymentMode,
		Status:    models.PaymentStatusPending,
	}
	return tx.Create(&full).Error
}

// redeemCoupon records the usage and bumps used_count with a relative,
// limit-guarded update. Two concurrent redemptions of a nearly
// exhausted coupon race on this row; the loser gets a conflict and the
// whole booking rolls back.
func (s *Service) redeemCoupon(tx *gorm.DB, booking *models.Booking, guestID uuid.UUID, redemption *coupons.Redemption) error {
	result := tx.Model(&models.Coupon{}).
		Where("id = ? AND used_count < usage_limit", redemption.Coupon.ID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("Coupon usage limit reached.")
	}

	usage := models.CouponUsage{
		BookingID:      booking.ID,
		CouponID:       redemption.Coupon.ID,
		UserID:         guestID,
		DiscountAmount: redemption.DiscountAmount,
	}
	return tx.Create(&usage).Error
}
