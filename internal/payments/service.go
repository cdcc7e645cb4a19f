package payments

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
	"github.com/mercaline/tienda-backend/pkg/numeric"
)

// CreateSessionInput is the create-payment payload. Amount tolerates
// string-encoded numbers like every other client-facing amount.
type CreateSessionInput struct {
	Amount      any    `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// Service drives the mock payment gateway sessions.
type Service interface {
	Create(ctx context.Context, input CreateSessionInput) (*Session, error)
	GetStatus(ctx context.Context, id string) (*Session, error)
	UpdateStatus(ctx context.Context, id string, status string) (*Session, error)
}

// Config carries the session tunables.
type Config struct {
	// TTL is the pending-session lifetime before lazy expiry.
	TTL time.Duration
	// DevMode enables the explicit status-update path and the simulated
	// completion used by local checkout testing.
	DevMode bool
	// SimulateAfter is the minimum pending age before a dev-mode read may
	// simulate a completed payment.
	SimulateAfter time.Duration
}

type service struct {
	store Store
	logg  *logger.Logger
	cfg   Config
	now   func() time.Time
	roll  func() float64
}

// NewService builds the payment session service.
func NewService(store Store, logg *logger.Logger, cfg Config) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.SimulateAfter <= 0 {
		cfg.SimulateAfter = 15 * time.Second
	}
	return &service{
		store: store,
		logg:  logg,
		cfg:   cfg,
		now:   time.Now,
		roll:  rand.Float64,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateSessionInput) (*Session, error) {
	amount := numeric.CoerceDecimal(input.Amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "COP"
	}

	now := s.now()
	session := &Session{
		ID:          uuid.NewString(),
		Amount:      amount,
		Currency:    currency,
		Description: strings.TrimSpace(input.Description),
		Reference:   strings.TrimSpace(input.Reference),
		Status:      enums.PaymentSessionPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.TTL),
	}
	session.QRPayload = qrPayload(session)

	if err := s.store.Set(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment session")
	}

	s.logg.Info(s.logg.WithField(ctx, "payment_id", session.ID), "payment session created")
	return session, nil
}

// GetStatus reads a session and applies lazy transitions: a pending
// session past its expiry flips to expired; in dev mode an old-enough
// pending session may flip to completed to simulate the gateway. Terminal
// states never change.
func (s *service) GetStatus(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment session")
	}

	if session.Status.IsTerminal() {
		return session, nil
	}

	now := s.now()
	switch {
	case now.After(session.ExpiresAt):
		session.Status = enums.PaymentSessionExpired
	case s.cfg.DevMode && now.Sub(session.CreatedAt) >= s.cfg.SimulateAfter && s.roll() < 0.5:
		session.Status = enums.PaymentSessionCompleted
	default:
		return session, nil
	}

	if err := s.store.Set(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment session")
	}
	return session, nil
}

// UpdateStatus sets a session status explicitly. Dev-mode only; terminal
// sessions are immutable.
func (s *service) UpdateStatus(ctx context.Context, id string, status string) (*Session, error) {
	if !s.cfg.DevMode {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment status updates are disabled")
	}

	parsed, err := enums.ParsePaymentSessionStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	session, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == parsed {
		return session, nil
	}
	if session.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment session already finalized")
	}

	session.Status = parsed
	if err := s.store.Set(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment session")
	}
	return session, nil
}

// qrPayload encodes the session as the string a storefront renders into
// a payment QR code.
func qrPayload(session *Session) string {
	return fmt.Sprintf("nequi://pay?id=%s&amount=%s&currency=%s",
		session.ID, session.Amount.Round(0), session.Currency)
}
