package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/availability"
	"github.com/rishabhdev/roomio/internal/helpers"
	"github.com/rishabhdev/roomio/internal/models"
	"gorm.io/gorm"
)

type AvailabilityHandler struct {
	db      *gorm.DB
	checker *availability.Checker
}

func NewAvailabilityHandler(db *gorm.DB, checker *availability.Checker) *AvailabilityHandler {
	return &AvailabilityHandler{db: db, checker: checker}
}

func (h *AvailabilityHandler) CheckAvailability(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid room ID.")
		return
	}

	checkIn, err := helpers.ParseTime(c.Query("check_in"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "check_in must be an RFC3339 timestamp.")
		return
	}
	checkOut, err := helpers.ParseTime(c.Query("check_out"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "check_out must be an RFC3339 timestamp.")
		return
	}

	bookingType := c.DefaultQuery("type", models.BookingTypeDaily)
	guests, err := helpers.StringToInt(c.DefaultQuery("guests", "1"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid guest count.")
		return
	}

	var room models.Room
	if err := h.db.First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Room not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving room.")
		return
	}

	result, err := h.checker.Check(c.Request.Context(), &room, checkIn, checkOut, bookingType, guests)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
