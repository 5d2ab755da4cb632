package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/gateway"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/rishabhdev/roomio/internal/notifications"
	"github.com/rishabhdev/roomio/internal/pricing"
	"github.com/rishabhdev/roomio/internal/wallet"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Config struct {
	OrderTTL        time.Duration
	Currency        string
	SignatureSecret string
}

const DefaultOrderTTL = 15 * time.Minute

// Service bridges the external payment gateway with local state. Wallet
// debits happen only after capture is confirmed, inside the same
// transaction that marks the payment completed.
type Service struct {
	db     *gorm.DB
	gw     gateway.Client
	ledger *wallet.Ledger
	outbox *notifications.Queue
	cfg    Config
	logger *logrus.Logger
}

func NewService(db *gorm.DB, gw gateway.Client, ledger *wallet.Ledger, outbox *notifications.Queue, cfg Config, logger *logrus.Logger) *Service {
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = DefaultOrderTTL
	}
	return &Service{db: db, gw: gw, ledger: ledger, outbox: outbox, cfg: cfg, logger: logger}
}

type CreateOrderResult struct {
	OrderID          string  `json:"order_id"`
	Amount           float64 `json:"amount"`
	WalletAmountUsed float64 `json:"wallet_amount_used"`
}

// CreateOrder opens a gateway intent for amount minus the wallet
// portion. A fresh unexpired order for the booking is reused; a stale
// one is cancelled and replaced.
func (s *Service) CreateOrder(ctx context.Context, bookingID, userID uuid.UUID, amount, walletAmount float64) (*CreateOrderResult, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("Amount must be positive.")
	}
	if walletAmount < 0 {
		return nil, apperrors.Validation("Wallet amount cannot be negative.")
	}
	if walletAmount >= amount {
		return nil, apperrors.Validation("Wallet amount must be less than the payable amount.")
	}

	if walletAmount > 0 {
		balance, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		if walletAmount > balance {
			return nil, apperrors.InsufficientBalance("Wallet balance is lower than the requested wallet amount.")
		}
	}

	var result *CreateOrderResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the booking row so concurrent order creation for the
		// same booking serializes on the active-order check.
		var booking models.Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, "id = ?", bookingID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Booking not found.")
			}
			return err
		}
		if booking.GuestID != userID {
			return apperrors.Forbidden("You don't have access to this booking.")
		}
		if booking.PaymentStatus == models.BookingPaymentCompleted {
			return apperrors.Conflict("Booking is already fully paid.")
		}
		if booking.Status == models.BookingStatusCancelled {
			return apperrors.Conflict("Booking is cancelled.")
		}

		payment, err := s.pendingOnlinePayment(tx, bookingID)
		if err != nil {
			return err
		}
		if !pricing.AmountsMatch(amount, payment.Amount) {
			return apperrors.Validationf(
				"Amount %.2f does not match the amount due %.2f.", amount, payment.Amount)
		}

		if existing, err := s.freshActiveOrder(tx, bookingID); err != nil {
			return err
		} else if existing != nil {
			if pricing.AmountsMatch(existing.OriginalAmount, amount) && pricing.AmountsMatch(existing.WalletAmountUsed, walletAmount) {
				result = &CreateOrderResult{
					OrderID:          existing.GatewayOrderID,
					Amount:           existing.Amount,
					WalletAmountUsed: existing.WalletAmountUsed,
				}
				return nil
			}
			if err := s.cancelOrder(tx, existing); err != nil {
				return err
			}
		}

		amountFinal := pricing.Round(amount - walletAmount)
		receipt := fmt.Sprintf("bkg-%s", bookingID.String()[:8])

		remote, err := s.gw.CreateOrder(ctx, MinorUnits(amountFinal), s.cfg.Currency, receipt)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", bookingID).Error("gateway order creation failed")
			return apperrors.Gateway("Failed to create payment order.", err)
		}

		order := models.PaymentOrder{
			BookingID:        bookingID,
			GatewayOrderID:   remote.ID,
			Amount:           amountFinal,
			OriginalAmount:   amount,
			WalletAmountUsed: walletAmount,
			Status:           models.OrderStatusCreated,
			ExpiresAt:        time.Now().Add(s.cfg.OrderTTL),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]interface{}{
				"gateway_order_id":   remote.ID,
				"wallet_amount_used": walletAmount,
			}).Error; err != nil {
			return err
		}

		result = &CreateOrderResult{
			OrderID:          order.GatewayOrderID,
			Amount:           order.Amount,
			WalletAmountUsed: order.WalletAmountUsed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type Callback struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

type VerifyResult struct {
	PaymentID uuid.UUID `json:"payment_id"`
	BookingID uuid.UUID `json:"booking_id"`
	Amount    float64   `json:"amount"`
}

// VerifyCallback commits a gateway success callback: signature check,
// authoritative capture check, amount reconciliation, then payment,
// order, booking and wallet updates in one atomic unit. A repeat
// callback for an already-paid order is rejected with no side effects.
func (s *Service) VerifyCallback(ctx context.Context, cb Callback) (*VerifyResult, error) {
	var result *VerifyResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.PaymentOrder
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("gateway_order_id = ?", cb.GatewayOrderID).
			First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Payment order not found.")
			}
			return err
		}

		if order.Status == models.OrderStatusPaid {
			return apperrors.Conflict("Payment already processed.")
		}

		if !gateway.VerifySignature(cb.GatewayOrderID, cb.GatewayPaymentID, cb.Signature, s.cfg.SignatureSecret) {
			return apperrors.Gateway("Invalid payment signature.", nil)
		}

		info, err := s.gw.FetchPayment(ctx, cb.GatewayPaymentID)
		if err != nil {
			return apperrors.Gateway("Failed to fetch payment from gateway.", err)
		}
		if info.Status != gateway.PaymentStatusCaptured {
			return apperrors.Gateway(fmt.Sprintf("Payment not captured (status %s).", info.Status), nil)
		}
		if info.Amount != MinorUnits(order.Amount) {
			return apperrors.Gateway("Payment amount does not match the order amount.", nil)
		}

		var payment models.Payment
		err = tx.Where("gateway_order_id = ?", cb.GatewayOrderID).First(&payment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Payment record not found for this order.")
			}
			return err
		}

		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Updates(map[string]interface{}{
				"status":             models.PaymentStatusCompleted,
				"gateway_payment_id": cb.GatewayPaymentID,
				"gateway_signature":  cb.Signature,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.PaymentOrder{}).Where("id = ?", order.ID).
			Update("status", models.OrderStatusPaid).Error; err != nil {
			return err
		}

		var booking models.Booking
		if err := tx.First(&booking, "id = ?", order.BookingID).Error; err != nil {
			return err
		}

		paymentStatus := models.BookingPaymentCompleted
		if payment.Type == models.PaymentTypeAdvance {
			paymentStatus = models.BookingPaymentPartial
		}
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).
			Updates(map[string]interface{}{
				"status":         models.BookingStatusConfirmed,
				"payment_status": paymentStatus,
			}).Error; err != nil {
			return err
		}

		if order.WalletAmountUsed > 0 {
			refID := payment.ID
			if _, err := s.ledger.DebitTx(tx, booking.GuestID, order.WalletAmountUsed, "booking_payment", &refID, "payment"); err != nil {
				return err
			}
		}

		if _, err := s.outbox.EnqueueTx(tx, notifications.Message{
			UserID:  booking.GuestID,
			Channel: "payment",
			Title:   "Payment received",
			Body:    fmt.Sprintf("We received your payment of %.2f.", order.Amount),
			Data: map[string]interface{}{
				"booking_id": booking.ID,
				"payment_id": payment.ID,
			},
		}); err != nil {
			return err
		}

		result = &VerifyResult{PaymentID: payment.ID, BookingID: booking.ID, Amount: order.Amount}
		return nil
	})

	if err != nil {
		if apperrors.IsKind(err, apperrors.KindGateway) {
			s.markVerificationFailed(ctx, cb.GatewayOrderID, err)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"gateway_order_id": cb.GatewayOrderID,
		"payment_id":       result.PaymentID,
		"booking_id":       result.BookingID,
	}).Info("payment verified")

	return result, nil
}

// markVerificationFailed runs outside the rolled-back unit: the order,
// payment and booking get their failed states, and the guest is told.
// Errors here are logged and swallowed.
func (s *Service) markVerificationFailed(ctx context.Context, gatewayOrderID string, cause error) {
	var order models.PaymentOrder
	if err := s.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error; err != nil {
		s.logger.WithError(err).Warn("could not load order to mark failed")
		return
	}

	if err := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("id = ? AND status <> ?", order.ID, models.OrderStatusPaid).
		Update("status", models.OrderStatusFailed).Error; err != nil {
		s.logger.WithError(err).Warn("could not mark order failed")
	}

	if err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("gateway_order_id = ? AND status = ?", gatewayOrderID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed).Error; err != nil {
		s.logger.WithError(err).Warn("could not mark payment failed")
	}

	if err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ?", order.BookingID).
		Update("payment_status", models.BookingPaymentFailed).Error; err != nil {
		s.logger.WithError(err).Warn("could not mark booking payment failed")
	}

	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, "id = ?", order.BookingID).Error; err == nil {
		_, _ = s.outbox.Enqueue(ctx, notifications.Message{
			UserID:  booking.GuestID,
			Channel: "payment",
			Title:   "Payment failed",
			Body:    "Your payment could not be verified. Please try again.",
			Data: map[string]interface{}{
				"booking_id": booking.ID,
				"reason":     cause.Error(),
			},
		})
	}
}

func (s *Service) pendingOnlinePayment(tx *gorm.DB, bookingID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := tx.
		Where("booking_id = ? AND status = ? AND mode = ?",
			bookingID, models.PaymentStatusPending, models.PaymentModeOnline).
		Order("created_at").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("No pending online payment for this booking.")
		}
		return nil, err
	}
	return &payment, nil
}

// freshActiveOrder returns the booking's live order if it has not hit
// its TTL; an expired one is cancelled so a new intent can be opened.
// It runs on the caller's transaction, under the booking row lock.
func (s *Service) freshActiveOrder(tx *gorm.DB, bookingID uuid.UUID) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := tx.
		Where("booking_id = ? AND status IN ?",
			bookingID, []string{models.OrderStatusCreated, models.OrderStatusAttempted}).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if order.Expired(time.Now()) {
		if err := s.cancelOrder(tx, &order); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &order, nil
}

func (s *Service) cancelOrder(tx *gorm.DB, order *models.PaymentOrder) error {
	return tx.Model(&models.PaymentOrder{}).
		Where("id = ?", order.ID).
		Update("status", models.OrderStatusCancelled).Error
}

// MinorUnits converts a decimal amount to the gateway's integer minor
// units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
