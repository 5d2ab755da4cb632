package booking

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/availability"
	"github.com/rishabhdev/roomio/internal/coupons"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/rishabhdev/roomio/internal/notifications"
	"github.com/rishabhdev/roomio/internal/pricing"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	calculator := pricing.NewCalculator(pricing.Settings{TaxPercent: 10, PlatformFee: 50})
	svc := NewService(gdb, calculator, availability.NewChecker(gdb),
		coupons.NewValidator(gdb), notifications.NewQueue(gdb), "check-in-key", log)
	return svc, mock
}

func roomColumns() []string {
	return []string{"id", "hotel_id", "name", "capacity", "price_per_night", "allows_daily", "allows_hourly"}
}

func hotelColumns() []string {
	return []string{"id", "name", "city", "address", "owner_id", "allows_online", "allows_offline", "advance_percent"}
}

func expectRoomAndHotel(mock sqlmock.Sqlmock, roomID, hotelID uuid.UUID) {
	mock.ExpectQuery(`SELECT (.+) FROM "rooms"`).
		WillReturnRows(sqlmock.NewRows(roomColumns()).
			AddRow(roomID, hotelID, "Deluxe", 2, 1000.0, true, false))
	mock.ExpectQuery(`SELECT (.+) FROM "hourly_stays"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "hours", "price"}))
	mock.ExpectQuery(`SELECT (.+) FROM "hotels"`).
		WillReturnRows(sqlmock.NewRows(hotelColumns()).
			AddRow(hotelID, "Sea View", "Goa", "Beach Road", uuid.New(), true, false, 0.0))
}

func TestCreateBookingTotalMismatch(t *testing.T) {
	svc, mock := newMockService(t)
	roomID := uuid.New()

	expectRoomAndHotel(mock, roomID, uuid.New())

	checkIn := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := svc.CreateBooking(context.Background(), CreateParams{
		GuestID:        uuid.New(),
		RoomID:         roomID,
		CheckIn:        checkIn,
		CheckOut:       checkIn.Add(48 * time.Hour),
		Type:           models.BookingTypeDaily,
		GuestCount:     2,
		PaymentMode:    models.PaymentModeOnline,
		SubmittedTotal: 2200,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Contains(t, err.Error(), "2250")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRoomNotFound(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SELECT (.+) FROM "rooms"`).
		WillReturnRows(sqlmock.NewRows(roomColumns()))

	checkIn := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := svc.CreateBooking(context.Background(), CreateParams{
		GuestID:        uuid.New(),
		RoomID:         uuid.New(),
		CheckIn:        checkIn,
		CheckOut:       checkIn.Add(24 * time.Hour),
		Type:           models.BookingTypeDaily,
		GuestCount:     1,
		PaymentMode:    models.PaymentModeOnline,
		SubmittedTotal: 1150,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCreateBookingOfflineNotAccepted(t *testing.T) {
	svc, mock := newMockService(t)
	roomID := uuid.New()

	expectRoomAndHotel(mock, roomID, uuid.New())

	checkIn := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := svc.CreateBooking(context.Background(), CreateParams{
		GuestID:        uuid.New(),
		RoomID:         roomID,
		CheckIn:        checkIn,
		CheckOut:       checkIn.Add(24 * time.Hour),
		Type:           models.BookingTypeDaily,
		GuestCount:     1,
		PaymentMode:    models.PaymentModeOffline,
		SubmittedTotal: 1150,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestQuoteAppliesCouponToPreDiscountTotal(t *testing.T) {
	svc, mock := newMockService(t)
	roomID := uuid.New()
	hotelID := uuid.New()

	expectRoomAndHotel(mock, roomID, hotelID)
	mock.ExpectQuery(`SELECT (.+) FROM "coupons"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "discount_type", "discount_value", "max_discount",
			"hotel_id", "min_order_amount", "usage_limit", "used_count",
			"booking_type", "valid_from", "expires_at", "active",
		}).AddRow(
			uuid.New(), "SAVE10", "percent", 10.0, nil,
			nil, 0.0, 100, 0,
			nil, time.Now().Add(-time.Hour), time.Now().Add(time.Hour), true,
		))

	code := "SAVE10"
	checkIn := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	quote, err := svc.Quote(context.Background(), QuoteParams{
		GuestID:    uuid.New(),
		RoomID:     roomID,
		CheckIn:    checkIn,
		CheckOut:   checkIn.Add(48 * time.Hour),
		Type:       models.BookingTypeDaily,
		CouponCode: &code,
	})
	require.NoError(t, err)

	// 10% off the pre-discount total of 2250
	assert.Equal(t, 225.0, quote.Discount)
	assert.Equal(t, 2025.0, quote.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentSplit(t *testing.T) {
	svc, _ := newMockService(t)

	booking := &models.Booking{TotalAmount: 2250, PaymentMode: models.PaymentModeOffline}
	hotel := &models.Hotel{AdvancePercent: 20}

	require.NoError(t, svc.applyPaymentSplit(booking, hotel))
	assert.Equal(t, 450.0, booking.AdvanceAmount)
	assert.Equal(t, 1800.0, booking.RemainingAmount)
}

func TestApplyPaymentSplitOnlineUnchanged(t *testing.T) {
	svc, _ := newMockService(t)

	booking := &models.Booking{TotalAmount: 2250, PaymentMode: models.PaymentModeOnline}
	hotel := &models.Hotel{AdvancePercent: 20}

	require.NoError(t, svc.applyPaymentSplit(booking, hotel))
	assert.Equal(t, 0.0, booking.AdvanceAmount)
	assert.Equal(t, 0.0, booking.RemainingAmount)
}

func TestApplyPaymentSplitMisconfigured(t *testing.T) {
	svc, _ := newMockService(t)

	booking := &models.Booking{TotalAmount: 2250, PaymentMode: models.PaymentModeOffline}
	hotel := &models.Hotel{AdvancePercent: 100}

	err := svc.applyPaymentSplit(booking, hotel)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCheckInPayloadRoundTrip(t *testing.T) {
	bookingID := uuid.New()
	guestID := uuid.New()

	payload := buildCheckInPayload(bookingID, guestID, "check-in-key")

	parsed, err := parseCheckInPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, bookingID, parsed)
	assert.True(t, validateCheckInPayload(payload, bookingID, guestID, "check-in-key"))
}

func TestCheckInPayloadTampered(t *testing.T) {
	bookingID := uuid.New()
	guestID := uuid.New()

	payload := buildCheckInPayload(bookingID, guestID, "check-in-key")

	assert.False(t, validateCheckInPayload(payload, bookingID, uuid.New(), "check-in-key"))
	assert.False(t, validateCheckInPayload(payload, bookingID, guestID, "other-key"))

	_, err := parseCheckInPayload("not-a-payload")
	require.Error(t, err)
}
