package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rishabhdev/roomio/internal/helpers"
	"github.com/rishabhdev/roomio/internal/middleware"
	"github.com/rishabhdev/roomio/internal/wallet"
)

type WalletHandler struct {
	ledger *wallet.Ledger
}

func NewWalletHandler(ledger *wallet.Ledger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *WalletHandler) ListTransactions(c *gin.Context) {
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
	limit, err := helpers.StringToInt(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	entries, err := h.ledger.Transactions(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": entries,
		"page":         page,
		"limit":        limit,
	})
}
