package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/helpers"
	"github.com/rishabhdev/roomio/internal/middleware"
	"github.com/rishabhdev/roomio/internal/payments"
)

type CreateOrderRequest struct {
	BookingID    uuid.UUID `json:"booking_id" binding:"required"`
	Amount       float64   `json:"amount" binding:"required"`
	WalletAmount float64   `json:"wallet_amount"`
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

type PaymentHandler struct {
	svc *payments.Service
}

func NewPaymentHandler(svc *payments.Service) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	result, err := h.svc.CreateOrder(c.Request.Context(), req.BookingID, userID, req.Amount, req.WalletAmount)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// VerifyPayment is the gateway's callback target; it carries its own
// signature, so it does not sit behind the JWT middleware.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	result, err := h.svc.VerifyCallback(c.Request.Context(), payments.Callback{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
