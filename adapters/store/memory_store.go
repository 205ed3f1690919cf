package store

import (
	"context"
	"sync"
	"time"

	"github.com/floppfun/walletauth/core"
)

type sessionEntry struct {
	session   core.Session
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the challenge and session stores.
// Expired entries are ignored on read and dropped by Sweep.
type MemoryStore struct {
	challenges        map[string]core.ChallengeRecord
	sessions          map[string]sessionEntry
	invalidatedTokens map[string]time.Time
	now               func() time.Time
	mu                sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an in-memory store reading time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		challenges:        make(map[string]core.ChallengeRecord),
		sessions:          make(map[string]sessionEntry),
		invalidatedTokens: make(map[string]time.Time),
		now:               now,
	}
}

// Issue records a fresh nonce in the ledger
func (s *MemoryStore) Issue(ctx context.Context, nonce string, issuedAt time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, exists := s.challenges[nonce]; exists && now.Before(rec.ExpiresAt) {
		return core.ErrChallengeDuplicate
	}

	s.challenges[nonce] = core.ChallengeRecord{
		Nonce:     nonce,
		IssuedAt:  issuedAt,
		ExpiresAt: now.Add(ttl),
		State:     core.ChallengeIssued,
	}

	return nil
}

// Consume marks an issued nonce as consumed
func (s *MemoryStore) Consume(ctx context.Context, nonce string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.challenges[nonce]
	if !exists {
		return time.Time{}, core.ErrChallengeNotFound
	}

	switch rec.StateAt(s.now()) {
	case core.ChallengeConsumed:
		return time.Time{}, core.ErrChallengeConsumed
	case core.ChallengeExpired:
		delete(s.challenges, nonce)
		return time.Time{}, core.ErrChallengeNotFound
	}

	rec.State = core.ChallengeConsumed
	s.challenges[nonce] = rec

	return rec.IssuedAt, nil
}

// Save stores an opaque session token
func (s *MemoryStore) Save(ctx context.Context, token string, session *core.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = sessionEntry{
		session:   *session,
		expiresAt: s.now().Add(ttl),
	}

	return nil
}

// Lookup returns the session stored for an opaque token
func (s *MemoryStore) Lookup(ctx context.Context, token string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.sessions[token]
	if !exists || !s.now().Before(entry.expiresAt) {
		return nil, core.ErrInvalidToken
	}

	session := entry.session
	return &session, nil
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidatedTokens[tokenID] = s.now().Add(expiry)

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	// Check if the token invalidation has expired
	if s.now().After(expiryTime) {
		return false, nil
	}

	return true, nil
}

// Sweep drops every entry whose TTL has passed and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0

	for nonce, rec := range s.challenges {
		if !now.Before(rec.ExpiresAt) {
			delete(s.challenges, nonce)
			removed++
		}
	}
	for token, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	for id, expiry := range s.invalidatedTokens {
		if now.After(expiry) {
			delete(s.invalidatedTokens, id)
			removed++
		}
	}

	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
