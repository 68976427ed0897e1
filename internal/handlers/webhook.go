package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casino-backend/internal/wallet"
)

const webhookSignatureHeader = "X-Webhook-Signature"

// PaymentEvent is the payment provider's webhook payload. Deliveries are
// at-least-once; every handler path below is idempotent.
type PaymentEvent struct {
	Type         string `json:"type"`
	UserID       int64  `json:"user_id,omitempty"`
	AmountCents  int64  `json:"amount_cents,omitempty"`
	ProviderRef  string `json:"provider_ref,omitempty"`
	WithdrawalID string `json:"withdrawal_id,omitempty"`
}

type WebhookHandler struct {
	walletService *wallet.Service
	secret        string
	log           zerolog.Logger
}

func NewWebhookHandler(walletService *wallet.Service, secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		walletService: walletService,
		secret:        secret,
		log:           log,
	}
}

// HandlePayment verifies the signature over the raw body and dispatches
// the event. With no secret configured verification is skipped, which is
// only acceptable in development.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if h.secret != "" {
		if !verifySignature(body, c.GetHeader(webhookSignatureHeader), h.secret) {
			h.log.Warn().Str("remote", c.ClientIP()).Msg("webhook signature mismatch")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
	}

	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	ctx := c.Request.Context()

	switch event.Type {
	case "deposit_confirmed":
		if event.UserID == 0 || event.ProviderRef == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and provider_ref are required"})
			return
		}
		res, err := h.walletService.Deposit(ctx, event.UserID, event.AmountCents, event.ProviderRef)
		if err != nil {
			if errors.Is(err, wallet.ErrInvalidAmount) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
				return
			}
			h.log.Error().Err(err).Int64("user_id", event.UserID).
				Str("provider_ref", event.ProviderRef).Msg("deposit webhook failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Deposit failed"})
			return
		}
		c.JSON(http.StatusOK, res)

	case "withdrawal_paid":
		if err := h.walletService.MarkWithdrawalPaid(ctx, event.WithdrawalID); err != nil {
			h.handleWithdrawalError(c, event, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})

	case "withdrawal_failed":
		if err := h.walletService.RefundWithdrawal(ctx, event.WithdrawalID); err != nil {
			h.handleWithdrawalError(c, event, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})

	default:
		// Unknown event types are acknowledged so the provider stops
		// redelivering them.
		h.log.Info().Str("type", event.Type).Msg("ignoring unknown webhook event")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (h *WebhookHandler) handleWithdrawalError(c *gin.Context, event PaymentEvent, err error) {
	if errors.Is(err, wallet.ErrWithdrawalNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Withdrawal not found"})
		return
	}
	h.log.Error().Err(err).Str("withdrawal_id", event.WithdrawalID).
		Str("type", event.Type).Msg("withdrawal webhook failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Withdrawal update failed"})
}

func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
