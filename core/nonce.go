package core

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/mr-tron/base58"
)

// NonceSize is the number of random bytes in nonces and opaque session tokens.
const NonceSize = 32

// GenerateNonce returns 32 bytes from crypto/rand encoded as base58.
func GenerateNonce() (string, error) {
	return GenerateNonceFrom(rand.Reader)
}

// GenerateNonceFrom is GenerateNonce with an explicit entropy source.
func GenerateNonceFrom(r io.Reader) (string, error) {
	buf := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to read entropy: %w", err)
	}
	return base58.Encode(buf), nil
}

// NewChallenge creates a challenge issued at now.
func NewChallenge(now time.Time) (*Challenge, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &Challenge{
		Nonce:    nonce,
		IssuedAt: now,
	}, nil
}

// GenerateSessionToken returns an opaque session token. It carries no claims;
// callers must keep a server-side table mapping the token to its session.
func GenerateSessionToken() (string, error) {
	token, err := GenerateNonceFrom(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return token, nil
}
