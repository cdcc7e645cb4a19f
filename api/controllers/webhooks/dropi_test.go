package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mercaline/tienda-backend/internal/orders"
	dropiwebhook "github.com/mercaline/tienda-backend/internal/webhooks/dropi"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type stubOrdersService struct {
	applied []orders.CourierEvent
	paidTx  []string
	err     error
}

func (s *stubOrdersService) Create(context.Context, orders.CreateOrderInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrdersService) Get(context.Context, string) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrdersService) List(context.Context, orders.ListFilters) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersService) UpdateStatus(context.Context, int64, orders.UpdateStatusInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrdersService) ApplyCourierEvent(_ context.Context, event orders.CourierEvent) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.applied = append(s.applied, event)
	return &models.Order{ID: 1, ShippingStatus: enums.ShippingStatusDelivered}, nil
}

func (s *stubOrdersService) MarkPaidByTransaction(_ context.Context, transactionID string) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.paidTx = append(s.paidTx, transactionID)
	return &models.Order{ID: 1, Status: enums.OrderStatusPaid}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newDropiHandler(t *testing.T, ordersSvc orders.Service, secret string) http.HandlerFunc {
	t.Helper()
	svc, err := dropiwebhook.NewService(dropiwebhook.ServiceParams{
		Orders: ordersSvc,
		Secret: secret,
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("webhook service: %v", err)
	}
	return DropiWebhook(svc, nil)
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestDropiWebhook_AppliesEvent(t *testing.T) {
	ordersSvc := &stubOrdersService{}
	handler := newDropiHandler(t, ordersSvc, "")

	body := []byte(`{"order_id":"D-42","status":"entregado","tracking_number":"TN1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/dropi", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(ordersSvc.applied) != 1 {
		t.Fatalf("expected one applied event, got %d", len(ordersSvc.applied))
	}
	if ordersSvc.applied[0].DropiOrderID != "D-42" {
		t.Fatalf("unexpected reference %q", ordersSvc.applied[0].DropiOrderID)
	}
	if ordersSvc.applied[0].Status != "entregado" {
		t.Fatalf("unexpected status %q", ordersSvc.applied[0].Status)
	}
}

func TestDropiWebhook_SignatureChecked(t *testing.T) {
	ordersSvc := &stubOrdersService{}
	handler := newDropiHandler(t, ordersSvc, "hook-secret")

	body := []byte(`{"order_id":"D-42","status":"despachado"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/dropi", bytes.NewReader(body))
	req.Header.Set(dropiSignatureHeader, "bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", rec.Code)
	}
	if len(ordersSvc.applied) != 0 {
		t.Fatal("event should not be applied on bad signature")
	}

	signed := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/dropi", bytes.NewReader(body))
	signed.Header.Set(dropiSignatureHeader, signBody("hook-secret", body))
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, signed)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid signature, got %d (%s)", rec2.Code, rec2.Body.String())
	}
}

func TestDropiWebhook_UnknownOrder(t *testing.T) {
	ordersSvc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	handler := newDropiHandler(t, ordersSvc, "")

	body := []byte(`{"order_id":"missing","status":"entregado"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/dropi", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestDropiWebhook_MalformedPayload(t *testing.T) {
	ordersSvc := &stubOrdersService{}
	handler := newDropiHandler(t, ordersSvc, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/dropi", bytes.NewReader([]byte(`{not json`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}
