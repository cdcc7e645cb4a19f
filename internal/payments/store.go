package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/mercaline/tienda-backend/pkg/enums"
	redisclient "github.com/mercaline/tienda-backend/pkg/redis"
)

// ErrSessionNotFound is returned by stores that do not materialize
// unknown ids.
var ErrSessionNotFound = errors.New("payment session not found")

// Session is one mock-gateway payment attempt.
type Session struct {
	ID          string                     `json:"id"`
	Amount      decimal.Decimal            `json:"amount"`
	Currency    string                     `json:"currency"`
	Description string                     `json:"description,omitempty"`
	Reference   string                     `json:"reference,omitempty"`
	Status      enums.PaymentSessionStatus `json:"status"`
	QRPayload   string                     `json:"qr_payload"`
	CreatedAt   time.Time                  `json:"created_at"`
	ExpiresAt   time.Time                  `json:"expires_at"`
}

// Store persists payment sessions. The dev store materializes unknown
// ids; the Redis store does not.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is the process-local dev/test store. Reading an unknown id
// creates a fresh pending session, tolerating create/poll ordering races
// between client and server. Contents are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore builds the in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		copied := *session
		return &copied, nil
	}

	now := s.now()
	session := &Session{
		ID:        id,
		Status:    enums.PaymentSessionPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.sessions[id] = session
	copied := *session
	return &copied, nil
}

func (s *MemoryStore) Set(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// RedisStore persists sessions in Redis for production deployments.
// Unknown ids return ErrSessionNotFound instead of materializing, so a
// production caller cannot mint arbitrary "valid" sessions.
type RedisStore struct {
	client *redisclient.Client
	// retention keeps the session readable for a while after expiry so
	// clients polling late still see the terminal state.
	retention time.Duration
}

// NewRedisStore builds the Redis-backed session store.
func NewRedisStore(client *redisclient.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{client: client, retention: time.Hour}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.client.PaymentSessionKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading payment session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decoding payment session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Set(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id required")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding payment session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + s.retention
	if ttl <= 0 {
		ttl = s.retention
	}
	return s.client.Set(ctx, s.client.PaymentSessionKey(session.ID), string(raw), ttl)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.client.PaymentSessionKey(id))
}
