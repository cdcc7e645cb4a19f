package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/mercaline/tienda-backend/internal/orders"
	"github.com/mercaline/tienda-backend/internal/webhooks"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

type ServiceParams struct {
	Orders orders.Service
	Guard  *webhooks.IdempotencyGuard
	Logger *logger.Logger
}

// Service folds Stripe payment events into order state. Orders are
// correlated through the transaction id captured at checkout.
type Service struct {
	orders orders.Service
	guard  *webhooks.IdempotencyGuard
	logg   *logger.Logger
}

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
		logg:   params.Logger,
	}, nil
}

// HandleEvent marks the matching order paid on successful payment
// intents. Events for unknown transactions are logged and acknowledged
// so Stripe stops redelivering them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}

	if s.guard != nil && event.ID != "" {
		seen, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("webhook idempotency check failed: %v", err))
		} else if seen {
			return nil
		}
	}

	err := s.processEvent(ctx, event)
	if err != nil && s.guard != nil && event.ID != "" {
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
			s.logg.Warn(ctx, fmt.Sprintf("releasing webhook idempotency mark: %v", delErr))
		}
	}
	return err
}

func (s *Service) processEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
		}
		return s.markPaid(ctx, intent.ID)
	case stripe.EventTypeCheckoutSessionCompleted:
		intentID := event.GetObjectValue("payment_intent")
		if intentID == "" {
			return nil
		}
		return s.markPaid(ctx, intentID)
	default:
		return nil
	}
}

func (s *Service) markPaid(ctx context.Context, transactionID string) error {
	order, err := s.orders.MarkPaidByTransaction(ctx, transactionID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.logg.Warn(ctx, fmt.Sprintf("stripe payment %s has no matching order", transactionID))
			return nil
		}
		return err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID), "order marked paid from stripe event")
	return nil
}
