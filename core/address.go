package core

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// MaxAddressLength is the longest base58 rendering of a 32-byte public key.
const MaxAddressLength = 44

// DecodeAddress decodes a base58 wallet address into an Ed25519 public key.
func DecodeAddress(address string) (ed25519.PublicKey, error) {
	if address == "" {
		return nil, fmt.Errorf("empty address: %w", ErrMalformedAddress)
	}
	if len(address) > MaxAddressLength {
		return nil, fmt.Errorf("address longer than %d characters: %w", MaxAddressLength, ErrMalformedAddress)
	}

	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("base58 decode failed: %w", ErrMalformedAddress)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key length %d, want %d: %w", len(decoded), ed25519.PublicKeySize, ErrMalformedAddress)
	}

	return ed25519.PublicKey(decoded), nil
}

// IsValidAddress reports whether address decodes to a 32-byte public key.
func IsValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// EncodeAddress renders a public key as a wallet address.
func EncodeAddress(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}
