package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercaline/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

type strictStore struct {
	inner *MemoryStore
	known map[string]bool
}

func (s *strictStore) Get(ctx context.Context, id string) (*Session, error) {
	if !s.known[id] {
		return nil, ErrSessionNotFound
	}
	return s.inner.Get(ctx, id)
}

func (s *strictStore) Set(ctx context.Context, session *Session) error {
	if s.known == nil {
		s.known = map[string]bool{}
	}
	s.known[session.ID] = true
	return s.inner.Set(ctx, session)
}

func (s *strictStore) Delete(ctx context.Context, id string) error {
	delete(s.known, id)
	return s.inner.Delete(ctx, id)
}

func newPaymentsService(t *testing.T, store Store, cfg Config) *service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	svc, err := NewService(store, logg, cfg)
	require.NoError(t, err)
	return svc.(*service)
}

func TestCreateSession(t *testing.T) {
	svc := newPaymentsService(t, NewMemoryStore(time.Minute), Config{TTL: 10 * time.Minute})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	session, err := svc.Create(context.Background(), CreateSessionInput{Amount: "58000", Reference: "order-42"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, enums.PaymentSessionPending, session.Status)
	assert.Equal(t, "COP", session.Currency)
	assert.Contains(t, session.QRPayload, session.ID)
	assert.Equal(t, base.Add(10*time.Minute), session.ExpiresAt)

	_, err = svc.Create(context.Background(), CreateSessionInput{Amount: "garbage"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestGetStatusLazyExpiryIsMonotonic(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	svc := newPaymentsService(t, store, Config{TTL: 10 * time.Minute})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	session, err := svc.Create(context.Background(), CreateSessionInput{Amount: 1000})
	require.NoError(t, err)

	// Still pending just before the deadline.
	svc.now = func() time.Time { return base.Add(9 * time.Minute) }
	got, err := svc.GetStatus(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentSessionPending, got.Status)

	// Past the deadline the read itself expires it.
	svc.now = func() time.Time { return base.Add(11 * time.Minute) }
	got, err = svc.GetStatus(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentSessionExpired, got.Status)

	// Terminal states never revert, even if the clock goes backwards.
	svc.now = func() time.Time { return base }
	got, err = svc.GetStatus(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentSessionExpired, got.Status)
}

func TestGetStatusMaterializesUnknownIDInDevStore(t *testing.T) {
	svc := newPaymentsService(t, NewMemoryStore(time.Minute), Config{TTL: time.Minute})

	got, err := svc.GetStatus(context.Background(), "never-created")
	require.NoError(t, err)
	assert.Equal(t, "never-created", got.ID)
	assert.Equal(t, enums.PaymentSessionPending, got.Status)
}

func TestGetStatusUnknownIDInStrictStore(t *testing.T) {
	svc := newPaymentsService(t, &strictStore{inner: NewMemoryStore(time.Minute)}, Config{TTL: time.Minute})

	_, err := svc.GetStatus(context.Background(), "never-created")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestGetStatusSimulatedCompletion(t *testing.T) {
	svc := newPaymentsService(t, NewMemoryStore(time.Minute), Config{
		TTL:           10 * time.Minute,
		DevMode:       true,
		SimulateAfter: 15 * time.Second,
	})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	session, err := svc.Create(context.Background(), CreateSessionInput{Amount: 1000})
	require.NoError(t, err)

	// Too young to simulate even with a winning roll.
	svc.roll = func() float64 { return 0 }
	svc.now = func() time.Time { return base.Add(5 * time.Second) }
	got, err := svc.GetStatus(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentSessionPending, got.Status)

	// Old enough but losing roll stays pending.
	svc.roll = func() float64 { return 0.9 }
	svc.now = func() time.Time { return base.Add(30 * time.Second) }
	got, err = svc.GetStatus(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentSessionPending, got.Status)

	// Winning roll completes it, and completion sticks.
	svc.roll = func() float64 { return 0 }
	got, err = svc.GetStatus(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentSessionCompleted, got.Status)

	svc.roll = func() float64 { return 0.9 }
	got, err = svc.GetStatus(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentSessionCompleted, got.Status)
}

func TestUpdateStatusDevModeOnly(t *testing.T) {
	svc := newPaymentsService(t, NewMemoryStore(time.Minute), Config{TTL: time.Minute})

	_, err := svc.UpdateStatus(context.Background(), "any", "completed")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc := newPaymentsService(t, NewMemoryStore(time.Minute), Config{TTL: 10 * time.Minute, DevMode: true})
	svc.roll = func() float64 { return 1 }

	session, err := svc.Create(context.Background(), CreateSessionInput{Amount: 1000})
	require.NoError(t, err)

	got, err := svc.UpdateStatus(context.Background(), session.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentSessionCompleted, got.Status)

	// Idempotent re-apply is fine, any other transition out is not.
	_, err = svc.UpdateStatus(context.Background(), session.ID, "completed")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), session.ID, "expired")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	_, err = svc.UpdateStatus(context.Background(), session.ID, "bogus")
	require.Error(t, err)
}
