package suppliers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercaline/tienda-backend/internal/orders"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/dropi"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

// FailureReason classifies why a supplier sync could not proceed.
type FailureReason string

const (
	ReasonNone               FailureReason = ""
	ReasonNoOrder            FailureReason = "no_order"
	ReasonNoItems            FailureReason = "no_items"
	ReasonMissingCredentials FailureReason = "missing_credentials"
	ReasonNoSupplierProducts FailureReason = "no_supplier_products"
	ReasonUnexpected         FailureReason = "unexpected_error"
)

// ShipmentResult is the outcome of one shipment dispatch.
type ShipmentResult struct {
	IDOrder      string          `json:"id_order"`
	SupplierID   string          `json:"supplier_id,omitempty"`
	Items        int             `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Success      bool            `json:"success"`
	DropiOrderID string          `json:"dropi_order_id,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// SyncResult aggregates a full fan-out run. Success means at least one
// shipment went through; AllSucceeded distinguishes full from partial
// success without changing that policy.
type SyncResult struct {
	Success      bool             `json:"success"`
	AllSucceeded bool             `json:"all_succeeded"`
	Reason       FailureReason    `json:"reason,omitempty"`
	Results      []ShipmentResult `json:"results"`
}

type productResolver interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindByDocumentID(ctx context.Context, documentID string) (*models.Product, error)
}

type orderDispatcher interface {
	CreateOrder(ctx context.Context, payload dropi.OrderPayload) (*dropi.OrderResponse, error)
}

// Service fans an order out to the dropshipping supplier, one shipment
// per supplier group.
type Service interface {
	SendOrder(ctx context.Context, order *models.Order) *SyncResult
	Resync(ctx context.Context, orderRef string) (*SyncResult, error)
}

type service struct {
	products   productResolver
	dispatcher orderDispatcher
	ordersRepo orders.Repository
	ordersSvc  orders.Service
	logg       *logger.Logger
}

// NewService builds the supplier sync service. dispatcher may be nil when
// the supplier credentials are not configured; every sync then fails
// early with ReasonMissingCredentials.
func NewService(
	products productResolver,
	dispatcher orderDispatcher,
	ordersRepo orders.Repository,
	ordersSvc orders.Service,
	logg *logger.Logger,
) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product resolver required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		products:   products,
		dispatcher: dispatcher,
		ordersRepo: ordersRepo,
		ordersSvc:  ordersSvc,
		logg:       logg,
	}, nil
}

// SendOrder never panics outward and never returns a Go error: every
// failure mode is folded into the result so callers (checkout, resync,
// webhooks) can report it without special-casing.
func (s *service) SendOrder(ctx context.Context, order *models.Order) (result *SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(ctx, "supplier sync panicked", fmt.Errorf("%v", r))
			result = &SyncResult{Reason: ReasonUnexpected}
		}
	}()

	if order == nil || order.ID == 0 {
		s.logg.Warn(ctx, "supplier sync called without an order")
		return &SyncResult{Reason: ReasonNoOrder}
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	if len(order.Items) == 0 {
		s.logg.Warn(ctx, "supplier sync called with no items")
		return &SyncResult{Reason: ReasonNoItems}
	}
	if s.dispatcher == nil {
		s.logg.Warn(ctx, "supplier credentials not configured")
		return &SyncResult{Reason: ReasonMissingCredentials}
	}

	shipments := s.groupShipments(ctx, order)
	if len(shipments) == 0 {
		s.logg.Warn(ctx, "no items with a supplier catalog reference")
		return &SyncResult{Reason: ReasonNoSupplierProducts}
	}

	result = &SyncResult{Results: make([]ShipmentResult, 0, len(shipments))}
	var succeededRefs []string
	for i, ship := range shipments {
		payload := buildPayload(order, ship, i, len(shipments))
		entry := ShipmentResult{
			IDOrder:    payload.IDOrder,
			SupplierID: ship.supplierID,
			Items:      len(payload.Items),
			Total:      payload.TotalOrder,
		}

		shipCtx := s.logg.WithSupplierID(ctx, ship.supplierID)
		resp, err := s.dispatcher.CreateOrder(shipCtx, payload)
		if err != nil {
			entry.Error = err.Error()
			s.logg.Error(shipCtx, "shipment dispatch failed", err)
		} else {
			entry.Success = true
			entry.DropiOrderID = resp.OrderID
			if resp.OrderID != "" {
				succeededRefs = append(succeededRefs, resp.OrderID)
			} else {
				succeededRefs = append(succeededRefs, payload.IDOrder)
			}
		}
		result.Results = append(result.Results, entry)
	}

	result.Success = len(succeededRefs) > 0
	result.AllSucceeded = len(succeededRefs) == len(shipments)
	if result.Success {
		s.foldResult(ctx, order, succeededRefs)
	}
	return result
}

// groupShipments resolves every order item to its catalog product, drops
// unresolvable items and items without a supplier catalog reference, and
// groups the survivors by supplier. Resolution failures are logged per
// item and never abort the order.
func (s *service) groupShipments(ctx context.Context, order *models.Order) []shipment {
	grouped := map[string][]shipmentItem{}
	var keys []string

	for _, line := range order.Items {
		product := s.resolveProduct(ctx, line)
		if product == nil || product.DropiID == nil || strings.TrimSpace(*product.DropiID) == "" {
			continue
		}
		supplierID := ""
		if product.SupplierID != nil {
			supplierID = *product.SupplierID
		}
		if _, seen := grouped[supplierID]; !seen {
			keys = append(keys, supplierID)
		}
		grouped[supplierID] = append(grouped[supplierID], shipmentItem{line: line, product: product})
	}

	// Stable shipment ordering keeps the delivery-cost allocation and the
	// composite refs deterministic between retries.
	sort.Strings(keys)
	shipments := make([]shipment, 0, len(keys))
	for _, key := range keys {
		shipments = append(shipments, shipment{supplierID: key, items: grouped[key]})
	}
	return shipments
}

func (s *service) resolveProduct(ctx context.Context, line models.OrderItem) *models.Product {
	if line.ProductID != nil {
		product, err := s.products.FindByID(ctx, *line.ProductID)
		if err == nil {
			return product
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, fmt.Sprintf("resolving product %d: %v", *line.ProductID, err))
		}
	}
	if line.ProductDocumentID != nil && *line.ProductDocumentID != "" {
		product, err := s.products.FindByDocumentID(ctx, *line.ProductDocumentID)
		if err == nil {
			return product
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, fmt.Sprintf("resolving product %s: %v", *line.ProductDocumentID, err))
		}
	}
	s.logg.Warn(ctx, fmt.Sprintf("order item %d excluded: product not resolvable", line.ID))
	return nil
}

// foldResult persists the supplier references on the order. Split
// shipments join with commas; the courier webhook matches any element.
func (s *service) foldResult(ctx context.Context, order *models.Order, refs []string) {
	joined := strings.Join(refs, ",")
	if err := s.ordersRepo.Update(ctx, order.ID, map[string]any{"dropi_order_id": joined}); err != nil {
		s.logg.Error(ctx, "persisting supplier order refs failed", err)
		return
	}
	order.DropiOrderID = &joined
}

// Resync re-fetches the order and re-runs the fan-out. The order's own
// status is untouched here; only the fan-out's result folding persists
// changes.
func (s *service) Resync(ctx context.Context, orderRef string) (*SyncResult, error) {
	order, err := s.ordersSvc.Get(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	return s.SendOrder(ctx, order), nil
}
