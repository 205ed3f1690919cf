package ports

import (
	"context"

	"github.com/floppfun/walletauth/core"
)

// Tokenizer converts between sessions and bearer tokens
type Tokenizer interface {
	SessionToToken(ctx context.Context, session *core.Session) (string, error)
	TokenToSession(ctx context.Context, token string) (*core.Session, error)
}
