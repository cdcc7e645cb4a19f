package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mercaline/tienda-backend/api/middleware"
	"github.com/mercaline/tienda-backend/api/responses"
	"github.com/mercaline/tienda-backend/api/validators"
	ordersvc "github.com/mercaline/tienda-backend/internal/orders"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
	"github.com/mercaline/tienda-backend/pkg/types"
)

// CreateOrder handles storefront checkout submission.
func CreateOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		// Checkout payloads come from several storefront builds with extra
		// keys, so unknown fields are tolerated here.
		var payload ordersvc.CreateOrderInput
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			payload.UserID = &userID
		}

		order, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// ListOrders returns the caller's orders. Admin-token callers may filter
// by any user id instead.
func ListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := ordersvc.ListFilters{Limit: limit, Offset: offset}

		if middleware.IsAdminContext(r.Context()) {
			if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
				filters.UserID = &userID
			}
		} else {
			userID := middleware.UserIDFromContext(r.Context())
			if userID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			filters.UserID = &userID
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.OrderStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": raw}))
				return
			}
			filters.Status = &status
		}

		orders, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(orders))
		for i := range orders {
			items = append(items, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": items})
	}
}

// GetOrder returns one order by numeric id or document id.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		order, err := svc.Get(r.Context(), chi.URLParam(r, "orderRef"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type orderResponse struct {
	ID              int64                  `json:"id"`
	DocumentID      string                 `json:"document_id"`
	UserID          *string                `json:"user_id,omitempty"`
	Items           []orderItemResponse    `json:"items"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	DeliveryCost    decimal.Decimal        `json:"delivery_cost"`
	Total           decimal.Decimal        `json:"total"`
	Status          string                 `json:"status"`
	ShippingStatus  string                 `json:"shipping_status"`
	PaymentMethod   string                 `json:"payment_method"`
	DeliveryMethod  types.DeliveryMethod   `json:"delivery_method"`
	ShippingAddress *types.ShippingAddress `json:"shipping_address,omitempty"`
	TransactionID   *string                `json:"transaction_id,omitempty"`
	DropiOrderID    *string                `json:"dropi_order_id,omitempty"`
	TrackingNumber  *string                `json:"tracking_number,omitempty"`
	TrackingURL     *string                `json:"tracking_url,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type orderItemResponse struct {
	ID                int64           `json:"id"`
	ProductID         *int64          `json:"product_id,omitempty"`
	ProductDocumentID *string         `json:"product_document_id,omitempty"`
	Name              string          `json:"name"`
	Quantity          int             `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:                item.ID,
			ProductID:         item.ProductID,
			ProductDocumentID: item.ProductDocumentID,
			Name:              item.Name,
			Quantity:          item.Quantity,
			Price:             item.Price,
		})
	}
	return orderResponse{
		ID:              order.ID,
		DocumentID:      order.DocumentID,
		UserID:          order.UserID,
		Items:           items,
		Subtotal:        order.Subtotal,
		DeliveryCost:    order.DeliveryCost,
		Total:           order.Total,
		Status:          string(order.Status),
		ShippingStatus:  string(order.ShippingStatus),
		PaymentMethod:   string(order.PaymentMethod),
		DeliveryMethod:  order.DeliveryMethod,
		ShippingAddress: order.ShippingAddress,
		TransactionID:   order.TransactionID,
		DropiOrderID:    order.DropiOrderID,
		TrackingNumber:  order.TrackingNumber,
		TrackingURL:     order.TrackingURL,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
