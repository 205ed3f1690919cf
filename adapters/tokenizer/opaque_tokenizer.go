package tokenizer

import (
	"context"
	"fmt"

	"github.com/floppfun/walletauth/core"
	"github.com/floppfun/walletauth/ports"
)

// OpaqueTokenizer issues bare random session tokens. The token carries no
// claims; every validation is a lookup in the session store.
type OpaqueTokenizer struct {
	store ports.SessionStore
}

// NewOpaqueTokenizer creates a tokenizer backed by store
func NewOpaqueTokenizer(store ports.SessionStore) *OpaqueTokenizer {
	return &OpaqueTokenizer{store: store}
}

// SessionToToken mints a random token and records the session under it
func (o *OpaqueTokenizer) SessionToToken(ctx context.Context, session *core.Session) (string, error) {
	token, err := core.GenerateSessionToken()
	if err != nil {
		return "", err
	}

	ttl := session.ExpiresAt.Sub(session.IssuedAt)
	if ttl <= 0 {
		return "", fmt.Errorf("session has no lifetime: %w", core.ErrInvalidToken)
	}

	if err := o.store.Save(ctx, token, session, ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// TokenToSession looks the token up in the session store
func (o *OpaqueTokenizer) TokenToSession(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	session, err := o.store.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	return session, nil
}
