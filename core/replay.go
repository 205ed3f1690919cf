package core

import "time"

const (
	// DefaultMaxAge is how long a signed challenge stays acceptable.
	DefaultMaxAge = 5 * time.Minute

	// DefaultClockSkew is how far in the future a timestamp may be.
	DefaultClockSkew = time.Minute
)

// ReplayGuard bounds the timestamp of a submission and checks its signature.
// It does not know whether a nonce was issued or already used; pair it with a
// challenge ledger to make challenges single-use.
type ReplayGuard struct {
	MaxAge    time.Duration
	ClockSkew time.Duration
}

// DefaultReplayGuard returns a guard with a five minute window and one minute of skew.
func DefaultReplayGuard() ReplayGuard {
	return ReplayGuard{
		MaxAge:    DefaultMaxAge,
		ClockSkew: DefaultClockSkew,
	}
}

// Verify checks sub against the clock value now. Rules are applied in order
// and the first failing one decides the verdict.
func (g ReplayGuard) Verify(sub Submission, now time.Time) Verdict {
	nowMillis := now.UnixMilli()

	// Compared as ts < now-maxAge so a hostile timestamp cannot overflow the subtraction.
	if sub.Timestamp < nowMillis-g.MaxAge.Milliseconds() {
		return reject(ExpiredChallenge)
	}

	if sub.Timestamp > nowMillis+g.ClockSkew.Milliseconds() {
		return reject(FutureTimestamp)
	}

	message := BuildAuthMessage(sub.WalletAddress, sub.Nonce, sub.Timestamp)
	if reason := CheckSignature(sub.WalletAddress, sub.Signature, message); reason != Valid {
		return reject(reason)
	}

	return accept()
}

// VerifyChallenge verifies sub with the default guard.
func VerifyChallenge(sub Submission, now time.Time) Verdict {
	return DefaultReplayGuard().Verify(sub, now)
}
