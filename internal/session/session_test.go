package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pet-adoption-portal/internal/auth"
	"pet-adoption-portal/internal/session"
)

var now = time.Now().UTC().Truncate(time.Second)

func token(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user@example.com", "roles": role}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func newManager(store session.Store) *session.Manager {
	m := session.NewManager(store, time.Hour, zap.NewNop())
	m.SetClock(func() time.Time { return now })
	return m
}

func TestBeginHydrateEnd(t *testing.T) {
	ctx := context.Background()
	m := newManager(session.NewMemoryStore())

	tok := token(t, "ROLE_USER", now.Add(30*time.Minute))
	s, err := m.Begin(ctx, "k1", tok)
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
	assert.True(t, s.Identity.IsUser())

	got, err := m.Hydrate(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, tok, got.Token)
	assert.Equal(t, "user@example.com", got.Identity.Email)

	require.NoError(t, m.End(ctx, "k1"))
	got, err = m.Hydrate(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, got.Authenticated())

	// idempotent
	require.NoError(t, m.End(ctx, "k1"))
}

func TestBeginRejectsGuestToken(t *testing.T) {
	m := newManager(session.NewMemoryStore())
	_, err := m.Begin(context.Background(), "k", "not-a-token")
	assert.ErrorIs(t, err, session.ErrGuestToken)

	_, err = m.Begin(context.Background(), "k", token(t, "ROLE_USER", now.Add(-time.Second)))
	assert.ErrorIs(t, err, session.ErrGuestToken)
}

func TestHydrateDropsBadToken(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "k", "junk", time.Time{}))

	m := newManager(store)
	s, err := m.Hydrate(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, auth.Guest, s.Identity.Role)

	_, err = store.Load(ctx, "k")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestHydrateUnknownKey(t *testing.T) {
	m := newManager(session.NewMemoryStore())
	s, err := m.Hydrate(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.Equal(t, "missing", s.Key)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "old", "t", time.Now().Add(-time.Minute)))
	require.NoError(t, store.Save(ctx, "new", "t", time.Now().Add(time.Minute)))

	_, err := store.Load(ctx, "old")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.Save(ctx, "old", "t", time.Now().Add(-time.Minute)))
	n, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	tok, err := store.Load(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "t", tok)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fs := session.NewFileStore(filepath.Join(t.TempDir(), "nested", "token"))

	_, err := fs.Load(ctx, "")
	assert.ErrorIs(t, err, session.ErrNotFound)

	m := newManager(fs)
	tok := token(t, "ROLE_SHELTER", time.Time{})
	_, err = m.Begin(ctx, "", tok)
	require.NoError(t, err)

	s, err := m.Hydrate(ctx, "cli")
	require.NoError(t, err)
	assert.True(t, s.Identity.IsShelter())

	require.NoError(t, m.End(ctx, "cli"))
	require.NoError(t, fs.Delete(ctx, ""))
	_, err = fs.Load(ctx, "")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestFromToken(t *testing.T) {
	assert.False(t, session.FromToken("").Authenticated())
	s := session.FromToken(token(t, "ROLE_ADMIN", time.Time{}))
	assert.True(t, s.Identity.IsAdmin())

	ctx := session.NewContext(context.Background(), s)
	assert.Equal(t, s, session.FromContext(ctx))
	assert.False(t, session.FromContext(context.Background()).Authenticated())
}
