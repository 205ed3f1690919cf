package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/floppfun/walletauth/core"
	"github.com/redis/go-redis/v9"
)

const consumedMarker = "consumed"

// consumeScript swaps an issued nonce for the consumed marker, keeping its TTL.
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return false
end
if v == ARGV[1] then
	return v
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return v
`)

// RedisStore is a Redis implementation of the challenge and session stores
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "walletauth:",
	}
}

func (s *RedisStore) challengeKey(nonce string) string { return s.prefix + "challenge:" + nonce }
func (s *RedisStore) sessionKey(token string) string   { return s.prefix + "session:" + token }
func (s *RedisStore) revokedKey(tokenID string) string { return s.prefix + "revoked:" + tokenID }

// Issue records a fresh nonce with SET NX so a nonce can never be issued twice
func (s *RedisStore) Issue(ctx context.Context, nonce string, issuedAt time.Time, ttl time.Duration) error {
	value := strconv.FormatInt(issuedAt.UnixMilli(), 10)

	ok, err := s.client.SetNX(ctx, s.challengeKey(nonce), value, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to issue challenge: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	if !ok {
		return core.ErrChallengeDuplicate
	}

	return nil
}

// Consume atomically marks an issued nonce as consumed
func (s *RedisStore) Consume(ctx context.Context, nonce string) (time.Time, error) {
	val, err := consumeScript.Run(ctx, s.client, []string{s.challengeKey(nonce)}, consumedMarker).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, core.ErrChallengeNotFound
		}
		return time.Time{}, fmt.Errorf("failed to consume challenge: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	if val == consumedMarker {
		return time.Time{}, core.ErrChallengeConsumed
	}

	issuedMillis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt challenge record %q: %w", val, core.ErrStoreOperationFailed)
	}

	return time.UnixMilli(issuedMillis), nil
}

type sessionRecord struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// Save stores an opaque session token
func (s *RedisStore) Save(ctx context.Context, token string, session *core.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sessionRecord{
		ID:        session.ID,
		Address:   session.Address,
		IssuedAt:  session.IssuedAt.UnixMilli(),
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.sessionKey(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	return nil
}

// Lookup returns the session stored for an opaque token
func (s *RedisStore) Lookup(ctx context.Context, token string) (*core.Session, error) {
	payload, err := s.client.Get(ctx, s.sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to lookup session: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", core.ErrStoreOperationFailed)
	}

	return &core.Session{
		ID:        rec.ID,
		Address:   rec.Address,
		IssuedAt:  time.UnixMilli(rec.IssuedAt),
		ExpiresAt: time.UnixMilli(rec.ExpiresAt),
	}, nil
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	// Set key with expiration
	if err := s.client.Set(ctx, s.revokedKey(tokenID), "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	return val > 0, nil
}
