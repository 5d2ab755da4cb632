package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/gateway"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/rishabhdev/roomio/internal/notifications"
	"github.com/rishabhdev/roomio/internal/wallet"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubGateway struct {
	createCalls int
	fetchCalls  int
	refundCalls int
	payment     *gateway.PaymentInfo
	fetchErr    error
}

func (g *stubGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error) {
	g.createCalls++
	return &gateway.Order{ID: "order_stub", Amount: amountMinor, Currency: currency}, nil
}

func (g *stubGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.PaymentInfo, error) {
	g.fetchCalls++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.payment, nil
}

func (g *stubGateway) Refund(ctx context.Context, paymentID string, amountMinor int64) (*gateway.RefundResult, error) {
	g.refundCalls++
	return &gateway.RefundResult{ID: "rfnd_stub"}, nil
}

func newMockService(t *testing.T, gw gateway.Client) (*Service, sqlmock.Sqlmock) {
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

	svc := NewService(gdb, gw, wallet.NewLedger(gdb, log), notifications.NewQueue(gdb), Config{
		Currency:        "INR",
		SignatureSecret: "webhook-secret",
	}, log)
	return svc, mock
}

func orderColumns() []string {
	return []string{
		"id", "booking_id", "gateway_order_id", "amount", "original_amount",
		"wallet_amount_used", "status", "expires_at",
	}
}

func TestVerifyCallbackAlreadyPaid(t *testing.T) {
	gw := &stubGateway{}
	svc, mock := newMockService(t, gw)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payment_orders" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(orderColumns()).AddRow(
			uuid.New(), uuid.New(), "order_1", 2250.0, 2250.0,
			0.0, models.OrderStatusPaid, time.Now().Add(10*time.Minute),
		))
	mock.ExpectRollback()

	signature := gateway.Sign("order_1", "pay_1", "webhook-secret")
	_, err := svc.VerifyCallback(context.Background(), Callback{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		Signature:        signature,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, 0, gw.fetchCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCallbackUnknownOrder(t *testing.T) {
	gw := &stubGateway{}
	svc, mock := newMockService(t, gw)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payment_orders" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(orderColumns()))
	mock.ExpectRollback()

	_, err := svc.VerifyCallback(context.Background(), Callback{
		GatewayOrderID:   "order_missing",
		GatewayPaymentID: "pay_1",
		Signature:        "sig",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.Equal(t, 0, gw.fetchCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCallbackBadSignature(t *testing.T) {
	gw := &stubGateway{}
	svc, mock := newMockService(t, gw)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payment_orders" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(orderColumns()).AddRow(
			uuid.New(), uuid.New(), "order_1", 2250.0, 2250.0,
			0.0, models.OrderStatusCreated, time.Now().Add(10*time.Minute),
		))
	mock.ExpectRollback()

	// failure bookkeeping runs outside the rolled-back transaction
	mock.ExpectQuery(`SELECT (.+) FROM "payment_orders"`).
		WillReturnRows(sqlmock.NewRows(orderColumns()))

	_, err := svc.VerifyCallback(context.Background(), Callback{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		Signature:        "forged",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindGateway))
	assert.Equal(t, 0, gw.fetchCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	svc, mock := newMockService(t, &stubGateway{})

	_, err := svc.CreateOrder(context.Background(), uuid.New(), uuid.New(), 0, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderForbiddenForOtherGuest(t *testing.T) {
	gw := &stubGateway{}
	svc, mock := newMockService(t, gw)
	bookingID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "bookings" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "guest_id", "status", "payment_status"}).
			AddRow(bookingID, uuid.New(), models.BookingStatusConfirmed, models.BookingPaymentPending))
	mock.ExpectRollback()

	_, err := svc.CreateOrder(context.Background(), bookingID, uuid.New(), 2250, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
	assert.Equal(t, 0, gw.createCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderAlreadyPaid(t *testing.T) {
	gw := &stubGateway{}
	svc, mock := newMockService(t, gw)
	bookingID := uuid.New()
	guestID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "bookings" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "guest_id", "status", "payment_status"}).
			AddRow(bookingID, guestID, models.BookingStatusConfirmed, models.BookingPaymentCompleted))
	mock.ExpectRollback()

	_, err := svc.CreateOrder(context.Background(), bookingID, guestID, 2250, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, 0, gw.createCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderReusesFreshOrder(t *testing.T) {
	gw := &stubGateway{}
	svc, mock := newMockService(t, gw)
	bookingID := uuid.New()
	guestID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "bookings" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "guest_id", "status", "payment_status"}).
			AddRow(bookingID, guestID, models.BookingStatusConfirmed, models.BookingPaymentPending))
	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "amount", "type", "mode", "status"}).
			AddRow(uuid.New(), bookingID, 2250.0, models.PaymentTypeFull, models.PaymentModeOnline, models.PaymentStatusPending))
	mock.ExpectQuery(`SELECT (.+) FROM "payment_orders"`).
		WillReturnRows(sqlmock.NewRows(orderColumns()).AddRow(
			uuid.New(), bookingID, "order_live", 2250.0, 2250.0,
			0.0, models.OrderStatusCreated, time.Now().Add(10*time.Minute),
		))
	mock.ExpectCommit()

	result, err := svc.CreateOrder(context.Background(), bookingID, guestID, 2250, 0)
	require.NoError(t, err)

	assert.Equal(t, "order_live", result.OrderID)
	assert.Equal(t, 0, gw.createCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(225000), MinorUnits(2250))
	assert.Equal(t, int64(10), MinorUnits(0.1))
	assert.Equal(t, int64(1999), MinorUnits(19.99))
}

func TestOrderExpiry(t *testing.T) {
	order := models.PaymentOrder{ExpiresAt: time.Now()}
	assert.False(t, order.Expired(order.ExpiresAt))
	assert.True(t, order.Expired(order.ExpiresAt.Add(time.Second)))
}
