package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	paymentsvc "github.com/mercaline/tienda-backend/internal/payments"
)

func newPaymentsHandlerService(t *testing.T, devMode bool) paymentsvc.Service {
	t.Helper()
	svc, err := paymentsvc.NewService(
		paymentsvc.NewMemoryStore(10*time.Minute),
		testLogger(),
		paymentsvc.Config{TTL: 10 * time.Minute, DevMode: devMode},
	)
	if err != nil {
		t.Fatalf("payments service: %v", err)
	}
	return svc
}

func paymentsRouter(svc paymentsvc.Service) *chi.Mux {
	router := chi.NewRouter()
	router.Post("/api/v1/payments/sessions", CreatePaymentSession(svc, testLogger()))
	router.Get("/api/v1/payments/sessions/{paymentID}", GetPaymentSession(svc, testLogger()))
	router.Patch("/api/v1/payments/sessions/{paymentID}/status", UpdatePaymentSession(svc, testLogger()))
	return router
}

func TestCreatePaymentSessionReturnsQRPayload(t *testing.T) {
	router := paymentsRouter(newPaymentsHandlerService(t, false))

	body := `{"amount": "25000", "description": "Pedido 10", "reference": "doc-10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data struct {
			ID        string `json:"id"`
			Status    string `json:"status"`
			QRPayload string `json:"qr_payload"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data.ID == "" {
		t.Fatal("expected a session id")
	}
	if payload.Data.Status != "pending" {
		t.Fatalf("expected pending status, got %s", payload.Data.Status)
	}
	if !strings.HasPrefix(payload.Data.QRPayload, "nequi://pay?") {
		t.Fatalf("unexpected qr payload %s", payload.Data.QRPayload)
	}
}

func TestCreatePaymentSessionRejectsNonPositiveAmount(t *testing.T) {
	router := paymentsRouter(newPaymentsHandlerService(t, false))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/sessions", strings.NewReader(`{"amount": 0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestGetPaymentSessionMaterializesUnknownID(t *testing.T) {
	router := paymentsRouter(newPaymentsHandlerService(t, false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/sessions/poll-before-create", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data.ID != "poll-before-create" || payload.Data.Status != "pending" {
		t.Fatalf("expected fresh pending session, got %+v", payload.Data)
	}
}

func TestUpdatePaymentSessionDevModeOnly(t *testing.T) {
	router := paymentsRouter(newPaymentsHandlerService(t, false))

	body := `{"status": "completed"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/payments/sessions/sess-1/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 outside dev mode, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestUpdatePaymentSessionCompletesInDevMode(t *testing.T) {
	router := paymentsRouter(newPaymentsHandlerService(t, true))

	body := `{"status": "completed"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/payments/sessions/sess-1/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data.Status != "completed" {
		t.Fatalf("expected completed, got %s", payload.Data.Status)
	}
}
