package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")

	ErrMalformedAddress   = errors.New("malformed wallet address")
	ErrMalformedSignature = errors.New("malformed signature encoding")

	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeConsumed  = errors.New("challenge already consumed")
	ErrChallengeDuplicate = errors.New("challenge already issued")

	ErrStoreOperationFailed = errors.New("store operation failed")
)
