package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/gateway"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/rishabhdev/roomio/internal/notifications"
	"github.com/rishabhdev/roomio/internal/payments"
	"github.com/rishabhdev/roomio/internal/pricing"
	"github.com/rishabhdev/roomio/internal/wallet"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Settings struct {
	CancellationFeePercent float64
	NoShowFeePercent       float64
}

type Actor struct {
	ID   uuid.UUID
	Role string
}

type Result struct {
	Booking *models.Booking `json:"booking"`
	Refund  *models.Refund  `json:"refund,omitempty"`
}

// Resolver decides refund-vs-direct-cancel. A booking with any
// completed payment always yields a pending Refund; one with no
// completed payment is cancelled outright.
type Resolver struct {
	db       *gorm.DB
	gw       gateway.Client
	ledger   *wallet.Ledger
	outbox   *notifications.Queue
	settings Settings
	logger   *logrus.Logger
}

func NewResolver(db *gorm.DB, gw gateway.Client, ledger *wallet.Ledger, outbox *notifications.Queue, settings Settings, logger *logrus.Logger) *Resolver {
	return &Resolver{db: db, gw: gw, ledger: ledger, outbox: outbox, settings: settings, logger: logger}
}

func (r *Resolver) Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor, reason string) (*Result, error) {
	return r.cancel(ctx, bookingID, actor, reason, models.RefundTypeCancellation)
}

// CancelNoShow is the sweep's entry point: same primitives, no-show
// refund type and fee.
func (r *Resolver) CancelNoShow(ctx context.Context, bookingID uuid.UUID, systemActor Actor) (*Result, error) {
	return r.cancel(ctx, bookingID, systemActor, "Guest did not show up.", models.RefundTypeNoShow)
}

func (r *Resolver) cancel(ctx context.Context, bookingID uuid.UUID, actor Actor, reason, refundType string) (*Result, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Preload("Hotel").
		First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Booking not found.")
		}
		return nil, err
	}

	if err := r.authorize(&booking, actor); err != nil {
		return nil, err
	}

	switch booking.Status {
	case models.BookingStatusCancelled:
		return nil, apperrors.Conflict("Booking is already cancelled.")
	case models.BookingStatusCompleted:
		return nil, apperrors.Conflict("Completed bookings cannot be cancelled.")
	}

	if paymentUnderRefund(booking.Payments) {
		return nil, apperrors.Conflict("A refund is already pending for this booking.")
	}

	completedPayment := firstCompletedPayment(booking.Payments)

	var result *Result
	if completedPayment != nil {
		refund, err := r.createRefundRequest(ctx, &booking, completedPayment, actor, reason, refundType)
		if err != nil {
			return nil, err
		}
		result = &Result{Booking: &booking, Refund: refund}
	} else {
		if err := r.directCancel(ctx, &booking, actor, reason); err != nil {
			return nil, err
		}
		result = &Result{Booking: &booking}
	}

	r.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
		"refunded":   result.Refund != nil,
	}).Info("cancellation resolved")

	return result, nil
}

func (r *Resolver) authorize(booking *models.Booking, actor Actor) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleHotel:
		if booking.Hotel != nil && booking.Hotel.OwnerID == actor.ID {
			return nil
		}
		return apperrors.Forbidden("You can only cancel bookings at your own hotels.")
	default:
		if booking.GuestID == actor.ID {
			return nil
		}
		return apperrors.Forbidden("You can only cancel your own bookings.")
	}
}

// createRefundRequest leaves the booking's status alone; the status
// flips to cancelled when the refund is processed.
func (r *Resolver) createRefundRequest(ctx context.Context, booking *models.Booking, payment *models.Payment, actor Actor, reason, refundType string) (*models.Refund, error) {
	feePercent := r.feePercent(actor, refundType)
	fee := pricing.Round(payment.Amount * feePercent / 100)
	refundAmount := pricing.Round(payment.Amount - fee)

	method := models.RefundMethodWallet
	if payment.Mode == models.PaymentModeOnline && payment.GatewayPaymentID != nil {
		method = models.RefundMethodGateway
	}

	refund := models.Refund{
		BookingID:             booking.ID,
		OriginalPaymentID:     payment.ID,
		RefundType:            refundType,
		RefundMethod:          method,
		OriginalAmount:        payment.Amount,
		CancellationFeeAmount: fee,
		RefundAmount:          refundAmount,
		Status:                models.RefundStatusPending,
		RequestedBy:           actor.ID,
	}
	if reason != "" {
		refund.Reason = &reason
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claim the payment with a guarded transition. Two cancels that
		// both read it as completed race on this row; the loser rolls
		// back without a second Refund.
		claim := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusCompleted).
			Update("status", models.PaymentStatusRefund)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return apperrors.Conflict("A refund is already in progress for this payment.")
		}

		if err := tx.Create(&refund).Error; err != nil {
			return err
		}
		_, err := r.outbox.EnqueueTx(tx, notifications.Message{
			UserID:  booking.GuestID,
			Channel: "booking",
			Title:   "Cancellation received",
			Body:    fmt.Sprintf("A refund of %.2f is pending review.", refundAmount),
			Data: map[string]interface{}{
				"booking_id": booking.ID,
				"refund_id":  refund.ID,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *Resolver) directCancel(ctx context.Context, booking *models.Booking, actor Actor, reason string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":        models.BookingStatusCancelled,
			"cancelled_by":  actor.ID,
			"cancelled_at":  now,
			"cancel_reason": reason,
		}
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Payment{}).
			Where("booking_id = ? AND status = ?", booking.ID, models.PaymentStatusPending).
			Update("status", models.PaymentStatusCancelled).Error; err != nil {
			return err
		}

		booking.Status = models.BookingStatusCancelled
		booking.CancelledBy = &actor.ID
		booking.CancelledAt = &now
		booking.CancelReason = &reason

		_, err := r.outbox.EnqueueTx(tx, notifications.Message{
			UserID:  booking.GuestID,
			Channel: "booking",
			Title:   "Booking cancelled",
			Body:    "Your booking has been cancelled.",
			Data: map[string]interface{}{
				"booking_id": booking.ID,
			},
		})
		return err
	})
}

// ProcessRefund settles a pending refund: the gateway reversal or
// wallet credit, the refund/payment/booking rows and the wallet entry
// commit together.
func (r *Resolver) ProcessRefund(ctx context.Context, refundID uuid.UUID, actor Actor, approve bool) (*models.Refund, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("Only admins can process refunds.")
	}

	var refund models.Refund
	err := r.db.WithContext(ctx).
		Preload("OriginalPayment").
		Preload("Booking").
		First(&refund, "id = ?", refundID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Refund not found.")
		}
		return nil, err
	}

	if refund.Status != models.RefundStatusPending {
		return nil, apperrors.Conflict("Refund is not pending.")
	}

	if !approve {
		res := r.db.WithContext(ctx).Model(&models.Refund{}).
			Where("id = ? AND status = ?", refund.ID, models.RefundStatusPending).
			Update("status", models.RefundStatusRejected)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, apperrors.Conflict("Refund is not pending.")
		}
		refund.Status = models.RefundStatusRejected
		return &refund, nil
	}

	// Claim the refund before talking to the gateway; concurrent
	// approvals race on this row and only the winner calls Refund.
	claim := r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND status = ?", refund.ID, models.RefundStatusPending).
		Update("status", models.RefundStatusProcessing)
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		return nil, apperrors.Conflict("Refund is not pending.")
	}

	var gatewayRefundID *string
	if refund.RefundMethod == models.RefundMethodGateway {
		if refund.OriginalPayment == nil || refund.OriginalPayment.GatewayPaymentID == nil {
			return nil, apperrors.Conflict("Original payment has no gateway reference.")
		}
		remote, err := r.gw.Refund(ctx, *refund.OriginalPayment.GatewayPaymentID, payments.MinorUnits(refund.RefundAmount))
		if err != nil {
			r.markRefundFailed(ctx, refund.ID, err)
			return nil, apperrors.Gateway("Gateway refund failed.", err)
		}
		gatewayRefundID = &remote.ID
	}

	now := time.Now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if refund.RefundMethod == models.RefundMethodWallet && refund.RefundAmount > 0 {
			refID := refund.ID
			if _, err := r.ledger.CreditTx(tx, refund.Booking.GuestID, refund.RefundAmount, "refund", &refID, "refund"); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Refund{}).Where("id = ?", refund.ID).
			Updates(map[string]interface{}{
				"status":            models.RefundStatusProcessed,
				"processed_at":      now,
				"gateway_refund_id": gatewayRefundID,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Payment{}).Where("id = ?", refund.OriginalPaymentID).
			Update("status", models.PaymentStatusRefundCompleted).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Booking{}).Where("id = ?", refund.BookingID).
			Updates(map[string]interface{}{
				"status":         models.BookingStatusCancelled,
				"payment_status": models.BookingPaymentRefunded,
				"cancelled_by":   refund.RequestedBy,
				"cancelled_at":   now,
			}).Error; err != nil {
			return err
		}

		_, err := r.outbox.EnqueueTx(tx, notifications.Message{
			UserID:  refund.Booking.GuestID,
			Channel: "refund",
			Title:   "Refund processed",
			Body:    fmt.Sprintf("Your refund of %.2f has been processed.", refund.RefundAmount),
			Data: map[string]interface{}{
				"refund_id":  refund.ID,
				"booking_id": refund.BookingID,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	refund.Status = models.RefundStatusProcessed
	refund.ProcessedAt = &now
	refund.GatewayRefundID = gatewayRefundID

	r.logger.WithFields(logrus.Fields{
		"refund_id":  refund.ID,
		"booking_id": refund.BookingID,
		"amount":     refund.RefundAmount,
		"method":     refund.RefundMethod,
	}).Info("refund processed")

	return &refund, nil
}

func (r *Resolver) markRefundFailed(ctx context.Context, refundID uuid.UUID, cause error) {
	if err := r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ?", refundID).
		Update("status", models.RefundStatusFailed).Error; err != nil {
		r.logger.WithError(err).Warn("could not mark refund failed")
	}
	r.logger.WithError(cause).WithField("refund_id", refundID).Error("refund processing failed")
}

func (r *Resolver) feePercent(actor Actor, refundType string) float64 {
	if refundType == models.RefundTypeNoShow {
		return r.settings.NoShowFeePercent
	}
	if actor.Role == models.RoleGuest {
		return r.settings.CancellationFeePercent
	}
	// Hotel- and admin-initiated cancellations don't penalize the guest.
	return 0
}

// firstCompletedPayment gates refund-vs-direct-cancel: any completed
// row (advance or full) means money was taken and must come back via a
// refund.
func firstCompletedPayment(paymentRows []models.Payment) *models.Payment {
	for i := range paymentRows {
		if paymentRows[i].Status == models.PaymentStatusCompleted {
			return &paymentRows[i]
		}
	}
	return nil
}

// paymentUnderRefund reports whether money is already on its way back:
// a payment in refund or refund_completed must not be direct-cancelled
// past.
func paymentUnderRefund(paymentRows []models.Payment) bool {
	for i := range paymentRows {
		switch paymentRows[i].Status {
		case models.PaymentStatusRefund, models.PaymentStatusRefundCompleted:
			return true
		}
	}
	return false
}
