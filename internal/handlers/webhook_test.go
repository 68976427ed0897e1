package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casino-backend/internal/handlers"
	"casino-backend/internal/ledger"
	"casino-backend/internal/wallet"
)

func newWebhookRouter(t *testing.T, secret string) (*gin.Engine, *ledger.MemStore, *wallet.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := ledger.NewMemStore()
	svc := wallet.NewService(store, wallet.NewMemWithdrawalStore(), nil, zerolog.Nop())
	handler := handlers.NewWebhookHandler(svc, secret, zerolog.Nop())

	router := gin.New()
	router.POST("/webhooks/payments", handler.HandlePayment)
	return router, store, svc
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postEvent(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookDepositSigned(t *testing.T) {
	secret := "webhook-test-secret"
	router, store, _ := newWebhookRouter(t, secret)

	body, _ := json.Marshal(handlers.PaymentEvent{
		Type:        "deposit_confirmed",
		UserID:      42,
		AmountCents: 12500,
		ProviderRef: "prov-1",
	})

	w := postEvent(router, body, sign(body, secret))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	wl, _ := store.Wallet(context.Background(), 42)
	if wl.Balance != 12500 {
		t.Errorf("Expected balance 12500, got %d", wl.Balance)
	}
}

func TestWebhookBadSignatureRejected(t *testing.T) {
	router, store, _ := newWebhookRouter(t, "webhook-test-secret")

	body, _ := json.Marshal(handlers.PaymentEvent{
		Type:        "deposit_confirmed",
		UserID:      42,
		AmountCents: 12500,
		ProviderRef: "prov-1",
	})

	if w := postEvent(router, body, "deadbeef"); w.Code != http.StatusUnauthorized {
		t.Errorf("Tampered signature should be rejected, got %d", w.Code)
	}
	if w := postEvent(router, body, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Missing signature should be rejected, got %d", w.Code)
	}

	wl, _ := store.Wallet(context.Background(), 42)
	if wl.Balance != 0 {
		t.Errorf("Rejected webhook must not credit, got %d", wl.Balance)
	}
}

func TestWebhookNoSecretSkipsVerification(t *testing.T) {
	router, store, _ := newWebhookRouter(t, "")

	body, _ := json.Marshal(handlers.PaymentEvent{
		Type:        "deposit_confirmed",
		UserID:      7,
		AmountCents: 1000,
		ProviderRef: "prov-open",
	})

	if w := postEvent(router, body, ""); w.Code != http.StatusOK {
		t.Fatalf("No-secret mode should accept unsigned events, got %d", w.Code)
	}

	wl, _ := store.Wallet(context.Background(), 7)
	if wl.Balance != 1000 {
		t.Errorf("Expected balance 1000, got %d", wl.Balance)
	}
}

func TestWebhookDepositRedelivery(t *testing.T) {
	secret := "webhook-test-secret"
	router, store, _ := newWebhookRouter(t, secret)

	body, _ := json.Marshal(handlers.PaymentEvent{
		Type:        "deposit_confirmed",
		UserID:      42,
		AmountCents: 5000,
		ProviderRef: "prov-dup",
	})
	signature := sign(body, secret)

	for i := 0; i < 3; i++ {
		if w := postEvent(router, body, signature); w.Code != http.StatusOK {
			t.Fatalf("Delivery %d failed with %d", i+1, w.Code)
		}
	}

	wl, _ := store.Wallet(context.Background(), 42)
	if wl.Balance != 5000 {
		t.Errorf("Redeliveries must not stack credits, got %d", wl.Balance)
	}
}

func TestWebhookWithdrawalPaid(t *testing.T) {
	secret := "webhook-test-secret"
	router, store, svc := newWebhookRouter(t, secret)

	if _, err := svc.Deposit(context.Background(), 42, 10000, "prov-seed"); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	wd, err := svc.RequestWithdrawal(context.Background(), 42, 4000)
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}

	body, _ := json.Marshal(handlers.PaymentEvent{
		Type:         "withdrawal_paid",
		WithdrawalID: wd.ID,
	})

	if w := postEvent(router, body, sign(body, secret)); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	wl, _ := store.Wallet(context.Background(), 42)
	if wl.Balance != 6000 || wl.LockedBalance != 0 {
		t.Errorf("Expected 6000 / 0 after payout, got %d / %d", wl.Balance, wl.LockedBalance)
	}
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	secret := "webhook-test-secret"
	router, _, _ := newWebhookRouter(t, secret)

	body, _ := json.Marshal(handlers.PaymentEvent{Type: "kyc_updated"})
	if w := postEvent(router, body, sign(body, secret)); w.Code != http.StatusOK {
		t.Errorf("Unknown events should be acknowledged, got %d", w.Code)
	}
}
