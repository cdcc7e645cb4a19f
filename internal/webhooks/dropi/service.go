package dropiwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mercaline/tienda-backend/internal/orders"
	"github.com/mercaline/tienda-backend/internal/webhooks"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

// Event is the courier status callback. The courier sends the shipment
// reference under either "order_id" or "id" depending on the event age.
type Event struct {
	OrderID        string  `json:"order_id"`
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
	TrackingURL    *string `json:"tracking_url,omitempty"`
}

// Ref returns the shipment reference regardless of which key carried it.
func (e Event) Ref() string {
	if ref := strings.TrimSpace(e.OrderID); ref != "" {
		return ref
	}
	return strings.TrimSpace(e.ID)
}

type ServiceParams struct {
	Orders orders.Service
	Guard  *webhooks.IdempotencyGuard
	Secret string
	Logger *logger.Logger
}

// Service applies courier status callbacks to local orders.
type Service struct {
	orders orders.Service
	guard  *webhooks.IdempotencyGuard
	secret string
	logg   *logger.Logger
}

// NewService builds the courier webhook service. Guard is optional;
// without it the handler relies on the transition functions being
// idempotent. Secret is optional; without it signatures are not checked.
func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders: params.Orders,
		guard:  params.Guard,
		secret: params.Secret,
		logg:   params.Logger,
	}, nil
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body. With no
// configured secret every payload passes.
func (s *Service) VerifySignature(body []byte, signature string) error {
	if s.secret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	return nil
}

// HandleEvent looks the order up by its supplier reference and applies
// the courier transition. Redeliveries are no-ops either via the guard
// or via the idempotent transition itself.
func (s *Service) HandleEvent(ctx context.Context, event Event) (*models.Order, error) {
	ref := event.Ref()
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}

	eventID := fmt.Sprintf("%s:%s", ref, strings.ToLower(strings.TrimSpace(event.Status)))
	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, eventID)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("webhook idempotency check failed: %v", err))
		} else if seen {
			s.logg.Info(ctx, "duplicate courier event ignored")
			return nil, nil
		}
	}

	order, err := s.orders.ApplyCourierEvent(ctx, orders.CourierEvent{
		DropiOrderID:   ref,
		Status:         event.Status,
		TrackingNumber: event.TrackingNumber,
		TrackingURL:    event.TrackingURL,
	})
	if err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, eventID); delErr != nil {
				s.logg.Warn(ctx, fmt.Sprintf("releasing webhook idempotency mark: %v", delErr))
			}
		}
		return nil, err
	}
	return order, nil
}
