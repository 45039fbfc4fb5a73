package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ForumGo/pkg/database"
)

const (
	keyPrefix = "revoked:"
	scanBatch = 200
)

// deleteIfUnchanged removes a key only while it still holds the expiry that
// was judged stale, so a concurrent re-revoke survives.
var deleteIfUnchanged = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RevocationStore implements repository.RevocationStore using Redis. Each
// entry is a string key holding the credential expiry in unix milliseconds.
type RevocationStore struct {
	client *redis.Client
	clock  clockwork.Clock
}

// NewRevocationStore creates a new Redis-backed revocation store.
func NewRevocationStore(client *redis.Client, clock clockwork.Clock) *RevocationStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RevocationStore{client: client, clock: clock}
}

// Key returns the Redis key of a credential.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Revoke stores the expiry of token. The key also carries a native TTL
// matching the expiry so Redis drops it even if nobody reads it again.
func (s *RevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) (err error) {
	ctx, end := database.TraceRedis(ctx, "Revoke", "SET revoked:* PX")
	defer func() { end(err) }()

	key := Key(token)
	ttl := expiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		// Already past expiry: an entry would read as not revoked anyway.
		if err = s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del revoked token: %w", err)
		}
		return nil
	}

	if err = s.client.Set(ctx, key, expiresAt.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked token: %w", err)
	}

	return nil
}

// IsRevoked reports whether token has an unexpired entry and lazily removes
// a stale one.
func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (revoked bool, err error) {
	ctx, end := database.TraceRedis(ctx, "IsRevoked", "GET revoked:*")
	defer func() { end(err) }()

	key := Key(token)
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get revoked token: %w", err)
	}

	stale, err := isStale(raw, s.clock.Now())
	if err != nil {
		return false, err
	}
	if !stale {
		return true, nil
	}

	if err = deleteIfUnchanged.Run(ctx, s.client, []string{key}, raw).Err(); err != nil {
		return false, fmt.Errorf("redis delete stale revoked token: %w", err)
	}

	return false, nil
}

// PurgeExpired scans every revocation key and deletes the stale ones.
func (s *RevocationStore) PurgeExpired(ctx context.Context, now time.Time) (removed int64, err error) {
	ctx, end := database.TraceRedis(ctx, "PurgeExpired", "SCAN revoked:*")
	defer func() { end(err) }()

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("redis get %s: %w", key, err)
		}

		stale, err := isStale(raw, now)
		if err != nil {
			return removed, err
		}
		if !stale {
			continue
		}

		n, err := deleteIfUnchanged.Run(ctx, s.client, []string{key}, raw).Int64()
		if err != nil {
			return removed, fmt.Errorf("redis delete %s: %w", key, err)
		}
		removed += n
	}
	if err = iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan revoked tokens: %w", err)
	}

	return removed, nil
}

func isStale(raw string, now time.Time) (bool, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revoked token expiry %q: %w", raw, err)
	}
	return ms <= now.UnixMilli(), nil
}
