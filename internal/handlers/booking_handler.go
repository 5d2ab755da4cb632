package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/booking"
	"github.com/rishabhdev/roomio/internal/helpers"
	"github.com/rishabhdev/roomio/internal/middleware"
	"github.com/skip2/go-qrcode"
)

type AddonRequest struct {
	AddonID  uuid.UUID `json:"addon_id" binding:"required"`
	Quantity int       `json:"quantity"`
}

type QuoteRequest struct {
	RoomID     uuid.UUID      `json:"room_id" binding:"required"`
	CheckIn    time.Time      `json:"check_in" binding:"required"`
	CheckOut   time.Time      `json:"check_out" binding:"required"`
	Type       string         `json:"type" binding:"required"`
	Addons     []AddonRequest `json:"addons"`
	CouponCode *string        `json:"coupon_code"`
}

type CreateBookingRequest struct {
	RoomID      uuid.UUID      `json:"room_id" binding:"required"`
	CheckIn     time.Time      `json:"check_in" binding:"required"`
	CheckOut    time.Time      `json:"check_out" binding:"required"`
	Type        string         `json:"type" binding:"required"`
	GuestCount  int            `json:"guest_count" binding:"required,min=1"`
	PaymentMode string         `json:"payment_mode" binding:"required"`
	Addons      []AddonRequest `json:"addons"`
	CouponCode  *string        `json:"coupon_code"`
	Total       float64        `json:"total" binding:"required"`
}

type CheckInRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

type BookingHandler struct {
	svc *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) ComputePrice(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	quote, err := h.svc.Quote(c.Request.Context(), booking.QuoteParams{
		GuestID:    userID,
		RoomID:     req.RoomID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Type:       req.Type,
		Addons:     toSelections(req.Addons),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	created, err := h.svc.CreateBooking(c.Request.Context(), booking.CreateParams{
		GuestID:        userID,
		RoomID:         req.RoomID,
		CheckIn:        req.CheckIn,
		CheckOut:       req.CheckOut,
		Type:           req.Type,
		GuestCount:     req.GuestCount,
		PaymentMode:    req.PaymentMode,
		Addons:         toSelections(req.Addons),
		CouponCode:     req.CouponCode,
		SubmittedTotal: req.Total,
	})
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	}

	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	found, err := h.svc.Get(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	page, err := helpers.StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}
	limit, err := helpers.StringToInt(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	bookings, err := h.svc.ListForGuest(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"page":     page,
		"limit":    limit,
	})
}

// CheckInQR renders the guest's signed check-in code as a PNG.
func (h *BookingHandler) CheckInQR(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	}

	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	payload, err := h.svc.CheckInCode(c.Request.Context(), bookingID, userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	qrImage, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

func (h *BookingHandler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	updated, err := h.svc.CheckIn(c.Request.Context(), req.QRData, userID, role)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Guest checked in successfully.",
		"booking": updated,
	})
}

func (h *BookingHandler) Complete(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	}

	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	updated, err := h.svc.Complete(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking completed.",
		"booking": updated,
	})
}

func toSelections(addons []AddonRequest) []booking.AddonSelection {
	selections := make([]booking.AddonSelection, 0, len(addons))
	for _, addon := range addons {
		selections = append(selections, booking.AddonSelection{
			AddonID:  addon.AddonID,
			Quantity: addon.Quantity,
		})
	}
	return selections
}
