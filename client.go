// Package walletauth is the client for the wallet authentication service.
// It fetches a challenge, has a Signer sign the auth message and trades the
// signature for a session token.
package walletauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/floppfun/walletauth/core"
	"github.com/mr-tron/base58"
)

// Challenge is a nonce issued by the server
type Challenge struct {
	Nonce          string `json:"nonce"`
	IssuedAt       int64  `json:"issuedAt"`
	MessageVersion int    `json:"messageVersion"`
}

// Session is a verified login
type Session struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresAt int64  `json:"expiresAt"`
	Address   string `json:"address"`
}

type loginRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Nonce         string `json:"nonce"`
	Timestamp     int64  `json:"timestamp"`
}

type loginResponse struct {
	Session
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

type verifyResponse struct {
	Valid     bool   `json:"valid"`
	Address   string `json:"address"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Client talks to the wallet authentication service
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Token returns the current session token, empty before Login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Challenge requests a fresh nonce.
func (c *Client) Challenge(ctx context.Context) (*Challenge, error) {
	var ch Challenge
	if err := c.do(ctx, http.MethodPost, "/auth/challenge", "", nil, &ch); err != nil {
		return nil, fmt.Errorf("client.Challenge: %w", err)
	}
	return &ch, nil
}

// Login runs the full handshake with signer and stores the session token.
func (c *Client) Login(ctx context.Context, signer Signer) (*Session, error) {
	ch, err := c.Challenge(ctx)
	if err != nil {
		return nil, err
	}
	if ch.MessageVersion != core.MessageVersion {
		return nil, fmt.Errorf("client.Login: unsupported message version %d", ch.MessageVersion)
	}

	address := signer.Address()
	message := core.BuildAuthMessage(address, ch.Nonce, ch.IssuedAt)

	sig, err := signer.SignMessage(ctx, []byte(message))
	if err != nil {
		return nil, fmt.Errorf("client.Login: sign message: %w", err)
	}

	req := loginRequest{
		WalletAddress: address,
		Signature:     base58.Encode(sig),
		Nonce:         ch.Nonce,
		Timestamp:     ch.IssuedAt,
	}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if !resp.Valid || resp.Token == "" {
		return nil, fmt.Errorf("client.Login: %w", &APIError{StatusCode: http.StatusOK, Reason: resp.Reason})
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()

	session := resp.Session
	return &session, nil
}

// Verify checks the current session token and returns the wallet address it belongs to.
func (c *Client) Verify(ctx context.Context) (string, error) {
	token := c.Token()
	if token == "" {
		return "", fmt.Errorf("client.Verify: %w", ErrNotAuthenticated)
	}

	var resp verifyResponse
	if err := c.do(ctx, http.MethodPost, "/auth/verify", token, nil, &resp); err != nil {
		return "", fmt.Errorf("client.Verify: %w", err)
	}
	return resp.Address, nil
}

// Logout invalidates the current session token.
func (c *Client) Logout(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return nil
	}

	if err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}

	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Reason: errorReason(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorReason pulls "reason" or "error" out of an error body
func errorReason(data []byte) string {
	var body struct {
		Reason string `json:"reason"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Reason != "" {
		return body.Reason
	}
	return body.Error
}

// IsReason reports whether err is an APIError carrying the given reason text.
func IsReason(err error, reason string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Reason == reason
}
