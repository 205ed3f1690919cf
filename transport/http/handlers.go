package http

import (
	"errors"
	"net/http"

	"github.com/floppfun/walletauth/core"
	"github.com/floppfun/walletauth/service"
	"github.com/gin-gonic/gin"
)

// ChallengeResponse is returned by the challenge endpoint
type ChallengeResponse struct {
	Nonce          string `json:"nonce"`
	IssuedAt       int64  `json:"issuedAt"`
	MessageVersion int    `json:"messageVersion"`
}

// maxLoginBodyBytes caps the login request body
const maxLoginBodyBytes = 4 << 10

// LoginRequest is a signed challenge submitted by a wallet
type LoginRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required,max=44"`
	Signature     string `json:"signature" binding:"required,max=130"`
	Nonce         string `json:"nonce" binding:"required,max=44"`
	Timestamp     int64  `json:"timestamp" binding:"required"`
}

// LoginResponse carries the verdict and, on success, the session token
type LoginResponse struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
	Token     string `json:"token,omitempty"`
	TokenType string `json:"tokenType,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
	Address   string `json:"address,omitempty"`
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// Challenge issues a fresh nonce
func (h *AuthHandlers) Challenge(c *gin.Context) {
	challenge, err := h.authService.CreateChallenge(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, ChallengeResponse{
		Nonce:          challenge.Nonce,
		IssuedAt:       challenge.IssuedAt.UnixMilli(),
		MessageVersion: core.MessageVersion,
	})
}

// Login verifies a signed challenge
func (h *AuthHandlers) Login(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLoginBodyBytes)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.authService.Login(c.Request.Context(), core.Submission{
		WalletAddress: req.WalletAddress,
		Signature:     req.Signature,
		Nonce:         req.Nonce,
		Timestamp:     req.Timestamp,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		return
	}

	if !res.Verdict.Valid {
		c.JSON(http.StatusUnauthorized, LoginResponse{
			Valid:  false,
			Reason: res.Verdict.Message(),
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Valid:     true,
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresAt: res.Session.ExpiresAt.UnixMilli(),
		Address:   res.Session.Address,
	})
}

// Verify reports whether the bearer token is a live session
func (h *AuthHandlers) Verify(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Invalid authorization header"})
		return
	}

	session, err := h.authService.ValidateSessionToken(c.Request.Context(), token)
	if err != nil {
		status, msg := sessionError(err)
		c.JSON(status, gin.H{"valid": false, "error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"address":   session.Address,
		"expiresAt": session.ExpiresAt.UnixMilli(),
	})
}

// Logout invalidates the bearer token
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		status, msg := sessionError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated wallet
func (h *AuthHandlers) Me(c *gin.Context) {
	// Wallet address is set by the auth middleware
	address, exists := c.Get(ContextAddressKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":   address,
		"sessionId": c.GetString(ContextSessionKey),
	})
}

// Health reports liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sessionError maps session validation errors to a status code and client message
func sessionError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, core.ErrTokenInvalidated):
		return http.StatusUnauthorized, "Token has been invalidated"
	case errors.Is(err, core.ErrStoreOperationFailed):
		return http.StatusInternalServerError, "Session lookup failed"
	default:
		return http.StatusUnauthorized, "Invalid token"
	}
}
