package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casino-backend/internal/ledger"
	"casino-backend/internal/wallet"
)

type WalletHandler struct {
	walletService *wallet.Service
}

func NewWalletHandler(walletService *wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	balance, err := h.walletService.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (h *WalletHandler) GetEntries(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.walletService.Entries(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ledger entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type withdrawalRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents is required"})
		return
	}

	w, err := h.walletService.RequestWithdrawal(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		case errors.Is(err, ledger.ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Withdrawal could not be processed"})
		}
		return
	}

	c.JSON(http.StatusOK, w)
}

func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	userID := c.GetInt64("user_id")

	withdrawals, err := h.walletService.Withdrawals(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load withdrawals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}
