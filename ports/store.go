package ports

import (
	"context"
	"time"

	"github.com/floppfun/walletauth/core"
)

// ChallengeStore is the single-use ledger of issued nonces
type ChallengeStore interface {
	// Issue records a fresh nonce; it fails with core.ErrChallengeDuplicate if the nonce exists.
	Issue(ctx context.Context, nonce string, issuedAt time.Time, ttl time.Duration) error

	// Consume atomically moves an issued nonce to consumed and returns when it was issued.
	// Unknown or evicted nonces yield core.ErrChallengeNotFound, used ones core.ErrChallengeConsumed.
	Consume(ctx context.Context, nonce string) (time.Time, error)
}

// SessionStore keeps opaque session lookups and token invalidation
type SessionStore interface {
	Save(ctx context.Context, token string, session *core.Session, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (*core.Session, error)

	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
