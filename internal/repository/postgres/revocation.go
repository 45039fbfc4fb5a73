package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/utafrali/ForumGo/pkg/database"
)

// RevocationStore implements repository.RevocationStore on the
// revoked_tokens table. Rows are keyed by the SHA-256 digest of the token.
type RevocationStore struct {
	db    database.DBTX
	clock clockwork.Clock
}

// NewRevocationStore creates a PostgreSQL-backed revocation store.
func NewRevocationStore(db database.DBTX, clock clockwork.Clock) *RevocationStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RevocationStore{db: db, clock: clock}
}

// TokenKey returns the storage key of a credential.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Revoke upserts the revocation entry for token.
func (s *RevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) (err error) {
	query := `
		INSERT INTO revoked_tokens (token_hash, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET expires_at = EXCLUDED.expires_at, revoked_at = EXCLUDED.revoked_at`

	ctx, end := database.TraceQuery(ctx, "Revoke", query)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, query, TokenKey(token), expiresAt.UTC(), s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("upsert revoked token: %w", err)
	}

	return nil
}

// IsRevoked looks up token and lazily deletes a stale entry.
func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (revoked bool, err error) {
	query := `SELECT expires_at FROM revoked_tokens WHERE token_hash = $1`

	ctx, end := database.TraceQuery(ctx, "IsRevoked", query)
	defer func() { end(err) }()

	key := TokenKey(token)
	var expiresAt time.Time
	err = s.db.QueryRow(ctx, query, key).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("scan revoked token: %w", err)
	}

	now := s.clock.Now().UTC()
	if expiresAt.After(now) {
		return true, nil
	}

	// The expiry guard keeps a concurrent re-revoke with a later expiry.
	if _, err = s.db.Exec(ctx,
		`DELETE FROM revoked_tokens WHERE token_hash = $1 AND expires_at <= $2`,
		key, now,
	); err != nil {
		return false, fmt.Errorf("delete stale revoked token: %w", err)
	}

	return false, nil
}

// PurgeExpired removes every entry that expired at or before now.
func (s *RevocationStore) PurgeExpired(ctx context.Context, now time.Time) (n int64, err error) {
	query := `DELETE FROM revoked_tokens WHERE expires_at <= $1`

	ctx, end := database.TraceQuery(ctx, "PurgeExpired", query)
	defer func() { end(err) }()

	ct, err := s.db.Exec(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}
