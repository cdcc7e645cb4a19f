package dropiwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercaline/tienda-backend/internal/orders"
	"github.com/mercaline/tienda-backend/internal/webhooks"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

type stubOrders struct {
	events []orders.CourierEvent
	err    error
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
func (s *stubOrders) ApplyCourierEvent(_ context.Context, event orders.CourierEvent) (*models.Order, error) {
	s.events = append(s.events, event)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: 42}, nil
}
func (s *stubOrders) MarkPaidByTransaction(context.Context, string) (*models.Order, error) {
	return nil, nil
}

type memIdemStore struct {
	keys map[string]bool
}

func (m *memIdemStore) Get(context.Context, string) (string, error) { return "", nil }
func (m *memIdemStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}
func (m *memIdemStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }
func (m *memIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func newWebhookService(t *testing.T, stub *stubOrders, guard *webhooks.IdempotencyGuard, secret string) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Orders: stub, Guard: guard, Secret: secret, Logger: logg})
	require.NoError(t, err)
	return svc
}

func TestHandleEventAppliesTransition(t *testing.T) {
	stub := &stubOrders{}
	svc := newWebhookService(t, stub, nil, "")

	tracking := "TRK-1"
	order, err := svc.HandleEvent(context.Background(), Event{
		OrderID:        "D-42",
		Status:         "entregado",
		TrackingNumber: &tracking,
	})
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Len(t, stub.events, 1)
	assert.Equal(t, "D-42", stub.events[0].DropiOrderID)
	assert.Equal(t, "entregado", stub.events[0].Status)
}

func TestHandleEventAcceptsLegacyIDField(t *testing.T) {
	stub := &stubOrders{}
	svc := newWebhookService(t, stub, nil, "")

	_, err := svc.HandleEvent(context.Background(), Event{ID: "D-42", Status: "shipped"})
	require.NoError(t, err)
	require.Len(t, stub.events, 1)
	assert.Equal(t, "D-42", stub.events[0].DropiOrderID)
}

func TestHandleEventMissingRef(t *testing.T) {
	svc := newWebhookService(t, &stubOrders{}, nil, "")

	_, err := svc.HandleEvent(context.Background(), Event{Status: "shipped"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestHandleEventDuplicateIsNoOp(t *testing.T) {
	guard, err := webhooks.NewIdempotencyGuard(&memIdemStore{}, time.Hour, "dropi")
	require.NoError(t, err)
	stub := &stubOrders{}
	svc := newWebhookService(t, stub, guard, "")

	event := Event{OrderID: "D-42", Status: "shipped"}
	_, err = svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	order, err := svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Len(t, stub.events, 1)

	// A different status for the same shipment is a new event.
	_, err = svc.HandleEvent(context.Background(), Event{OrderID: "D-42", Status: "entregado"})
	require.NoError(t, err)
	assert.Len(t, stub.events, 2)
}

func TestHandleEventFailureReleasesMark(t *testing.T) {
	guard, err := webhooks.NewIdempotencyGuard(&memIdemStore{}, time.Hour, "dropi")
	require.NoError(t, err)
	stub := &stubOrders{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	svc := newWebhookService(t, stub, guard, "")

	event := Event{OrderID: "D-42", Status: "shipped"}
	_, err = svc.HandleEvent(context.Background(), event)
	require.Error(t, err)

	// The retry must reach the orders service again.
	stub.err = nil
	_, err = svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Len(t, stub.events, 2)
}

func TestVerifySignature(t *testing.T) {
	svc := newWebhookService(t, &stubOrders{}, nil, "topsecret")
	body := []byte(`{"order_id":"D-42","status":"entregado"}`)

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.NoError(t, svc.VerifySignature(body, valid))
	assert.Error(t, svc.VerifySignature(body, "deadbeef"))

	// Without a configured secret all payloads pass.
	open := newWebhookService(t, &stubOrders{}, nil, "")
	assert.NoError(t, open.VerifySignature(body, ""))
}
