package walletauth

import (
	"context"
	"crypto/ed25519"
	"errors"

	"github.com/floppfun/walletauth/core"
)

// Signer is the wallet side of the handshake: it owns the key and signs
// the auth message. Browser and mobile wallets implement it out of process.
type Signer interface {
	// Address returns the base58 wallet address
	Address() string

	// SignMessage returns a detached Ed25519 signature of message
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// KeySigner signs with an in-memory Ed25519 key
type KeySigner struct {
	key ed25519.PrivateKey
}

// NewKeySigner wraps an Ed25519 private key
func NewKeySigner(key ed25519.PrivateKey) (*KeySigner, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid ed25519 private key")
	}
	return &KeySigner{key: key}, nil
}

// GenerateKeySigner creates a signer with a fresh random key
func GenerateKeySigner() (*KeySigner, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: priv}, nil
}

// Address returns the base58 encoding of the signer's public key
func (s *KeySigner) Address() string {
	return core.EncodeAddress(s.key.Public().(ed25519.PublicKey))
}

// SignMessage signs message with the wrapped key. It never fails.
func (s *KeySigner) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	return ed25519.Sign(s.key, message), nil
}
