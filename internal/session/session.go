// Package session owns the portal's sessions: one bearer token per session key,
// hydrated from durable storage and torn down on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pet-adoption-portal/internal/auth"
)

var (
	ErrNotFound   = errors.New("session: not found")
	ErrGuestToken = errors.New("session: token carries no usable identity")
)

// Store persists a token per session key. Implementations must treat expired
// entries as absent.
type Store interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, token string, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
}

type Session struct {
	Key      string
	Token    string
	Identity auth.Identity
}

// Guest is the empty session.
func Guest(key string) Session { return Session{Key: key} }

func (s Session) Authenticated() bool { return s.Token != "" && s.Identity.IsAuthenticated() }

// FromToken builds a session directly from a bearer token, without storage.
// Undecodable tokens produce a Guest session.
func FromToken(token string) Session {
	id := auth.Decode(token)
	if !id.IsAuthenticated() {
		return Session{}
	}
	return Session{Token: token, Identity: id}
}

type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

func NewManager(store Store, ttl time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, ttl: ttl, now: time.Now, log: log.Named("session")}
}

// SetClock replaces the time source; tests only.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Begin decodes token and persists it under key. The entry lives until the
// token's own expiry or the manager's ttl, whichever comes first.
func (m *Manager) Begin(ctx context.Context, key, token string) (Session, error) {
	id := auth.Decode(token)
	if !id.IsAuthenticated() {
		return Guest(key), ErrGuestToken
	}
	now := m.now()
	if id.Expired(now) {
		return Guest(key), ErrGuestToken
	}
	exp := now.Add(m.ttl)
	if !id.ExpiresAt.IsZero() && id.ExpiresAt.Before(exp) {
		exp = id.ExpiresAt
	}
	if err := m.store.Save(ctx, key, token, exp); err != nil {
		return Guest(key), fmt.Errorf("session: save: %w", err)
	}
	m.log.Debug("session started", zap.String("email", id.Email), zap.Stringer("role", id.Role))
	return Session{Key: key, Token: token, Identity: id}, nil
}

// Hydrate restores the session stored under key. A missing entry is a Guest
// session; an expired or undecodable token is removed and also yields Guest.
// Only storage failures are returned as errors.
func (m *Manager) Hydrate(ctx context.Context, key string) (Session, error) {
	if key == "" {
		return Guest(key), nil
	}
	token, err := m.store.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Guest(key), nil
	}
	if err != nil {
		return Guest(key), fmt.Errorf("session: load: %w", err)
	}

	id := auth.Decode(token)
	if !id.IsAuthenticated() || id.Expired(m.now()) {
		m.log.Info("dropping unusable session token", zap.String("key", key))
		if err := m.store.Delete(ctx, key); err != nil {
			m.log.Warn("drop session", zap.Error(err))
		}
		return Guest(key), nil
	}
	return Session{Key: key, Token: token, Identity: id}, nil
}

// End clears the stored token. Ending an unknown session is not an error.
func (m *Manager) End(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}
