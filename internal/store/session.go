package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"pet-adoption-portal/internal/session"
)

// Load returns the token for id, or session.ErrNotFound when missing or expired.
func (s *Store) Load(ctx context.Context, id string) (string, error) {
	var token string
	err := s.pool.QueryRow(ctx,
		`SELECT token FROM portal_sessions WHERE id = $1 AND expires_at > NOW()`, id,
	).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", session.ErrNotFound
	}
	return token, err
}

// Save upserts: logging in again on the same browser replaces the old token.
func (s *Store) Save(ctx context.Context, id, token string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO portal_sessions (id, token, expires_at) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at`,
		id, token, expiresAt,
	)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE id = $1`, id)
	return err
}

// Purge removes expired rows and reports how many were deleted.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ session.Store = (*Store)(nil)
