package core

// Reason is the tagged outcome of a challenge verification
type Reason int

const (
	Valid Reason = iota
	ExpiredChallenge
	FutureTimestamp
	InvalidSignature
	MalformedAddress
	MalformedSignature
	// UnknownChallenge is reported when the nonce was never issued or was already used.
	UnknownChallenge
)

// String returns the reason code, suitable for logs.
func (r Reason) String() string {
	switch r {
	case Valid:
		return "Valid"
	case ExpiredChallenge:
		return "ExpiredChallenge"
	case FutureTimestamp:
		return "FutureTimestamp"
	case InvalidSignature:
		return "InvalidSignature"
	case MalformedAddress:
		return "MalformedAddress"
	case MalformedSignature:
		return "MalformedSignatureEncoding"
	case UnknownChallenge:
		return "UnknownChallenge"
	default:
		return "Unknown"
	}
}

// Message returns the non-sensitive text shown to clients. Malformed inputs
// share the invalid signature text so the response does not reveal which part failed.
func (r Reason) Message() string {
	switch r {
	case Valid:
		return ""
	case ExpiredChallenge:
		return "Challenge expired"
	case FutureTimestamp:
		return "Invalid timestamp"
	case UnknownChallenge:
		return "Invalid challenge"
	default:
		return "Invalid signature"
	}
}

// Verdict is the result of verifying a submission
type Verdict struct {
	Valid  bool
	Reason Reason
}

// Message returns the wire reason, empty for a valid verdict.
func (v Verdict) Message() string {
	if v.Valid {
		return ""
	}
	return v.Reason.Message()
}

func accept() Verdict {
	return Verdict{Valid: true, Reason: Valid}
}

func reject(r Reason) Verdict {
	return Verdict{Valid: false, Reason: r}
}
