package webhooks

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/mercaline/tienda-backend/internal/webhooks/stripe"
)

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

func newStripeHandler(t *testing.T, ordersSvc *stubOrdersService) http.HandlerFunc {
	t.Helper()
	svc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders: ordersSvc,
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("webhook service: %v", err)
	}
	return StripeWebhook(svc, &fakeSigningClient{secret: "whsec_test"}, nil)
}

func buildSignedIntentEvent(t *testing.T, intentID string) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(&stripe.PaymentIntent{ID: intentID})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_1",
		APIVersion: stripe.APIVersion,
		Type:       stripe.EventTypePaymentIntentSucceeded,
		Object:     "event",
		Data:       &stripe.EventData{Raw: raw},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, buildStripeSignatureHeader(payload, "whsec_test", time.Now().Unix())
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeWebhook_MarksOrderPaid(t *testing.T) {
	ordersSvc := &stubOrdersService{}
	handler := newStripeHandler(t, ordersSvc)
	payload, header := buildSignedIntentEvent(t, "pi_123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(ordersSvc.paidTx) != 1 || ordersSvc.paidTx[0] != "pi_123" {
		t.Fatalf("expected pi_123 marked paid, got %v", ordersSvc.paidTx)
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	ordersSvc := &stubOrdersService{}
	handler := newStripeHandler(t, ordersSvc)
	payload, _ := buildSignedIntentEvent(t, "pi_123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if len(ordersSvc.paidTx) != 0 {
		t.Fatal("order should not be marked paid on invalid signature")
	}
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	ordersSvc := &stubOrdersService{}
	handler := newStripeHandler(t, ordersSvc)
	payload, _ := buildSignedIntentEvent(t, "pi_123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
