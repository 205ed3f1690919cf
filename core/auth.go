package core

import "time"

// Challenge is a nonce handed to a wallet for signing
type Challenge struct {
	Nonce    string    // Base58 encoded 32 random bytes
	IssuedAt time.Time // When the challenge was created
}

// Submission is a signed challenge returned by a wallet
type Submission struct {
	WalletAddress string // Base58 Ed25519 public key
	Signature     string // Base58 (or 0x-hex) detached signature
	Nonce         string // Nonce from the challenge
	Timestamp     int64  // Unix milliseconds embedded in the signed message
}

// Session represents an authenticated wallet session
type Session struct {
	ID        string    // Unique session identifier, used for revocation
	Address   string    // Wallet address of the user
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session stops being accepted
}

// ChallengeState is the lifecycle state of an issued nonce
type ChallengeState string

const (
	ChallengeIssued   ChallengeState = "issued"
	ChallengeConsumed ChallengeState = "consumed"
	ChallengeExpired  ChallengeState = "expired"
)

// ChallengeRecord is the ledger entry kept for every issued nonce
type ChallengeRecord struct {
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	State     ChallengeState
}

// StateAt reports the effective state of the record at the given time.
func (r ChallengeRecord) StateAt(now time.Time) ChallengeState {
	if r.State == ChallengeIssued && !now.Before(r.ExpiresAt) {
		return ChallengeExpired
	}
	return r.State
}
