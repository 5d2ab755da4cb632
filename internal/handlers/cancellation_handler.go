package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/cancellation"
	"github.com/rishabhdev/roomio/internal/helpers"
	"github.com/rishabhdev/roomio/internal/middleware"
)

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type ProcessRefundRequest struct {
	Approve bool `json:"approve"`
}

type CancellationHandler struct {
	resolver *cancellation.Resolver
}

func NewCancellationHandler(resolver *cancellation.Resolver) *CancellationHandler {
	return &CancellationHandler{resolver: resolver}
}

func (h *CancellationHandler) CancelBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	}

	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	result, err := h.resolver.Cancel(c.Request.Context(), bookingID,
		cancellation.Actor{ID: userID, Role: role}, req.Reason)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CancellationHandler) ProcessRefund(c *gin.Context) {
	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid refund ID.")
		return
	}

	var req ProcessRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	refund, err := h.resolver.ProcessRefund(c.Request.Context(), refundID,
		cancellation.Actor{ID: userID, Role: role}, req.Approve)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, refund)
}
