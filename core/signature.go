package core

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

// Upper bounds on the text forms of a 64-byte signature. Longer input is
// rejected before any decoding.
const (
	MaxSignatureLength    = 88
	MaxHexSignatureLength = 2 + 2*ed25519.SignatureSize
)

// DecodeSignature normalizes a text signature to its 64 raw bytes.
// Wallets return base58; a 0x prefix selects hex, which some bridges emit.
func DecodeSignature(signature string) ([]byte, error) {
	var (
		decoded []byte
		err     error
	)

	switch {
	case signature == "":
		return nil, fmt.Errorf("empty signature: %w", ErrMalformedSignature)
	case strings.HasPrefix(signature, "0x"), strings.HasPrefix(signature, "0X"):
		if len(signature) > MaxHexSignatureLength {
			return nil, fmt.Errorf("hex signature longer than %d characters: %w", MaxHexSignatureLength, ErrMalformedSignature)
		}
		decoded, err = hexutil.Decode("0x" + signature[2:])
	case len(signature) > MaxSignatureLength:
		return nil, fmt.Errorf("signature longer than %d characters: %w", MaxSignatureLength, ErrMalformedSignature)
	default:
		decoded, err = base58.Decode(signature)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", ErrMalformedSignature)
	}

	if len(decoded) != ed25519.SignatureSize {
		return nil, fmt.Errorf("signature must be %d bytes, got %d: %w", ed25519.SignatureSize, len(decoded), ErrMalformedSignature)
	}

	return decoded, nil
}

// CheckSignature verifies a text signature and reports the precise outcome.
func CheckSignature(walletAddress, signature, message string) Reason {
	sig, err := DecodeSignature(signature)
	if err != nil {
		if !IsValidAddress(walletAddress) {
			return MalformedAddress
		}
		return MalformedSignature
	}
	return CheckSignatureBytes(walletAddress, sig, message)
}

// CheckSignatureBytes verifies a raw detached signature over the UTF-8 bytes of message.
func CheckSignatureBytes(walletAddress string, signature []byte, message string) Reason {
	pub, err := DecodeAddress(walletAddress)
	if err != nil {
		return MalformedAddress
	}
	if len(signature) != ed25519.SignatureSize {
		return MalformedSignature
	}
	if !ed25519.Verify(pub, []byte(message), signature) {
		return InvalidSignature
	}
	return Valid
}

// VerifySignature reports whether signature is a valid detached Ed25519
// signature of message by walletAddress. It never panics.
func VerifySignature(walletAddress, signature, message string) bool {
	return CheckSignature(walletAddress, signature, message) == Valid
}

// VerifySignatureBytes is VerifySignature for an already-decoded signature.
func VerifySignatureBytes(walletAddress string, signature []byte, message string) bool {
	return CheckSignatureBytes(walletAddress, signature, message) == Valid
}
