package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the claims carried by a session access token.
// The subject is the wallet address and the ID is the session ID.
type SessionClaims struct {
	jwt.RegisteredClaims
	MessageVersion int `json:"mv,omitempty"`
}
