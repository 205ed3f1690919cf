package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/floppfun/walletauth/core"
	"github.com/floppfun/walletauth/ports"
	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an issued session token stays valid
const DefaultSessionTTL = 24 * time.Hour

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer  ports.Tokenizer
	challenges ports.ChallengeStore
	sessions   ports.SessionStore
	eventPub   ports.EventPublisher
	logger     watermill.LoggerAdapter

	guard      core.ReplayGuard
	sessionTTL time.Duration
	now        func() time.Time
}

// Option configures an AuthService
type Option func(*AuthService)

// WithReplayGuard sets the timestamp window used to verify submissions.
func WithReplayGuard(g core.ReplayGuard) Option {
	return func(s *AuthService) { s.guard = g }
}

// WithSessionTTL sets the lifetime of issued session tokens.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *AuthService) { s.sessionTTL = ttl }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger watermill.LoggerAdapter) Option {
	return func(s *AuthService) { s.logger = logger }
}

// LoginResult is the outcome of a login attempt. Token and Session are set
// only when the verdict is valid.
type LoginResult struct {
	Verdict core.Verdict
	Token   string
	Session *core.Session
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	challenges ports.ChallengeStore,
	sessions ports.SessionStore,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		tokenizer:  tokenizer,
		challenges: challenges,
		sessions:   sessions,
		eventPub:   eventPub,
		logger:     watermill.NopLogger{},
		guard:      core.DefaultReplayGuard(),
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateChallenge generates a new authentication challenge and records it in the ledger
func (s *AuthService) CreateChallenge(ctx context.Context) (*core.Challenge, error) {
	challenge, err := core.NewChallenge(s.now())
	if err != nil {
		return nil, err
	}

	// A signed challenge is acceptable until MaxAge after its timestamp, which may lead issuance by ClockSkew.
	ttl := s.guard.MaxAge + s.guard.ClockSkew
	if err := s.challenges.Issue(ctx, challenge.Nonce, challenge.IssuedAt, ttl); err != nil {
		return nil, fmt.Errorf("failed to record challenge: %w", err)
	}

	s.logger.Debug("Challenge issued", watermill.LogFields{
		"nonce":     challenge.Nonce,
		"issued_at": challenge.IssuedAt.UnixMilli(),
	})

	return challenge, nil
}

// Login verifies a signed challenge and issues a session token.
// A challenge is consumed by the first attempt, whatever its outcome.
// Negative verdicts are returned with a nil error; errors mean the
// surrounding infrastructure failed.
func (s *AuthService) Login(ctx context.Context, sub core.Submission) (*LoginResult, error) {
	fields := watermill.LogFields{"address": sub.WalletAddress, "nonce": sub.Nonce}

	issuedAt, err := s.challenges.Consume(ctx, sub.Nonce)
	if err != nil {
		if errors.Is(err, core.ErrChallengeNotFound) || errors.Is(err, core.ErrChallengeConsumed) {
			s.logger.Info("Login rejected", fields.Add(watermill.LogFields{
				"reason": core.UnknownChallenge.String(),
				"cause":  err.Error(),
			}))
			return &LoginResult{Verdict: core.Verdict{Reason: core.UnknownChallenge}}, nil
		}
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}

	now := s.now()
	verdict := s.guard.Verify(sub, now)
	if !verdict.Valid {
		s.logger.Info("Login rejected", fields.Add(watermill.LogFields{
			"reason":    verdict.Reason.String(),
			"issued_at": issuedAt.UnixMilli(),
			"timestamp": sub.Timestamp,
		}))
		return &LoginResult{Verdict: verdict}, nil
	}

	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   sub.WalletAddress,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, session.Address, session.ID); err != nil {
		// The session is already valid; a lost notification is not fatal
		s.logger.Error("Failed to publish login event", err, fields)
	}

	s.logger.Info("Login verified", fields.Add(watermill.LogFields{"session_id": session.ID}))

	return &LoginResult{
		Verdict: verdict,
		Token:   token,
		Session: session,
	}, nil
}

// ValidateSessionToken returns the session behind a token if it is still usable
func (s *AuthService) ValidateSessionToken(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.TokenToSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	if !s.now().Before(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.sessions.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	return session, nil
}

// Logout invalidates a session token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.ValidateSessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) || errors.Is(err, core.ErrTokenInvalidated) {
			// Nothing left to revoke
			return nil
		}
		return err
	}

	remaining := session.ExpiresAt.Sub(s.now())
	if err := s.sessions.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
		s.logger.Error("Failed to publish logout event", err, watermill.LogFields{
			"address":    session.Address,
			"session_id": session.ID,
		})
	}

	return nil
}
