package stripewebhook

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/mercaline/tienda-backend/internal/orders"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

type stubOrders struct {
	paid []string
	err  error
}

func (s *stubOrders) Create(context.Context, orders.CreateOrderInput) (*models.Order, error) {
	return nil, nil
}
func (s *stubOrders) Get(context.Context, string) (*models.Order, error) { return nil, nil }
func (s *stubOrders) List(context.Context, orders.ListFilters) ([]models.Order, error) {
	return nil, nil
}
func (s *stubOrders) UpdateStatus(context.Context, int64, orders.UpdateStatusInput) (*models.Order, error) {
	return nil, nil
}
func (s *stubOrders) ApplyCourierEvent(context.Context, orders.CourierEvent) (*models.Order, error) {
	return nil, nil
}
func (s *stubOrders) MarkPaidByTransaction(_ context.Context, transactionID string) (*models.Order, error) {
	s.paid = append(s.paid, transactionID)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: 42}, nil
}

func newStripeService(t *testing.T, stub *stubOrders) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "stripe-webhook-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Orders: stub, Logger: logg})
	require.NoError(t, err)
	return svc
}

func paymentIntentEvent(t *testing.T, intentID string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"id": intentID})
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypePaymentIntentSucceeded,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventMarksOrderPaid(t *testing.T) {
	stub := &stubOrders{}
	svc := newStripeService(t, stub)

	err := svc.HandleEvent(context.Background(), paymentIntentEvent(t, "pi_123"))
	require.NoError(t, err)
	assert.Equal(t, []string{"pi_123"}, stub.paid)
}

func TestHandleEventUnknownTransactionAcknowledged(t *testing.T) {
	stub := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newStripeService(t, stub)

	err := svc.HandleEvent(context.Background(), paymentIntentEvent(t, "pi_unknown"))
	require.NoError(t, err)
	assert.Equal(t, []string{"pi_unknown"}, stub.paid)
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	stub := &stubOrders{}
	svc := newStripeService(t, stub)

	err := svc.HandleEvent(context.Background(), &stripe.Event{
		ID:   "evt_2",
		Type: stripe.EventTypeCustomerCreated,
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	})
	require.NoError(t, err)
	assert.Empty(t, stub.paid)
}

func TestHandleEventDependencyErrorPropagates(t *testing.T) {
	stub := &stubOrders{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	svc := newStripeService(t, stub)

	err := svc.HandleEvent(context.Background(), paymentIntentEvent(t, "pi_123"))
	require.Error(t, err)
}
