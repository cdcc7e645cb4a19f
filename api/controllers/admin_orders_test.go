package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	supplierssvc "github.com/mercaline/tienda-backend/internal/suppliers"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
)

type stubSuppliersService struct {
	resyncRef string
	result    *supplierssvc.SyncResult
	err       error
}

func (s *stubSuppliersService) SendOrder(context.Context, *models.Order) *supplierssvc.SyncResult {
	return s.result
}

func (s *stubSuppliersService) Resync(_ context.Context, orderRef string) (*supplierssvc.SyncResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.resyncRef = orderRef
	return s.result, nil
}

func TestResyncOrderReturnsShipmentResults(t *testing.T) {
	svc := &stubSuppliersService{
		result: &supplierssvc.SyncResult{
			Success:      true,
			AllSucceeded: false,
			Results: []supplierssvc.ShipmentResult{
				{IDOrder: "42-1", Success: true, DropiOrderID: "D-42-1"},
				{IDOrder: "42-2", Success: false, Error: "supplier returned 502"},
			},
		},
	}

	router := chi.NewRouter()
	router.Post("/api/v1/admin/orders/{orderRef}/resync", ResyncOrder(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/42/resync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.resyncRef != "42" {
		t.Fatalf("expected resync of order 42, got %q", svc.resyncRef)
	}
	var payload struct {
		Data supplierssvc.SyncResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if !payload.Data.Success || payload.Data.AllSucceeded {
		t.Fatalf("expected partial success reported, got %+v", payload.Data)
	}
	if len(payload.Data.Results) != 2 {
		t.Fatalf("expected two shipment results, got %d", len(payload.Data.Results))
	}
}

func TestResyncOrderNotFound(t *testing.T) {
	svc := &stubSuppliersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}

	router := chi.NewRouter()
	router.Post("/api/v1/admin/orders/{orderRef}/resync", ResyncOrder(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/999/resync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
