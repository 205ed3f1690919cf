package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/floppfun/walletauth/adapters/store"
	"github.com/floppfun/walletauth/adapters/tokenizer"
	"github.com/floppfun/walletauth/core"
	"github.com/floppfun/walletauth/ports"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	logins  []string
	logouts []string
	err     error
}

func (p *recordingPublisher) PublishLogin(_ context.Context, address, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, address)
	return p.err
}

func (p *recordingPublisher) PublishLogout(_ context.Context, address, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, address)
	return p.err
}

type failingChallenges struct{}

func (failingChallenges) Issue(context.Context, string, time.Time, time.Duration) error {
	return core.ErrStoreOperationFailed
}

func (failingChallenges) Consume(context.Context, string) (time.Time, error) {
	return time.Time{}, core.ErrStoreOperationFailed
}

type fixture struct {
	svc   *AuthService
	pub   *recordingPublisher
	now   time.Time
	priv  ed25519.PrivateKey
	addr  string
	store *store.MemoryStore
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) sign(nonce string, ts int64) core.Submission {
	msg := core.BuildAuthMessage(f.addr, nonce, ts)
	return core.Submission{
		WalletAddress: f.addr,
		Signature:     base58.Encode(ed25519.Sign(f.priv, []byte(msg))),
		Nonce:         nonce,
		Timestamp:     ts,
	}
}

func newFixture(t *testing.T, opaque bool, opts ...Option) *fixture {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	f := &fixture{
		pub:  &recordingPublisher{},
		now:  time.UnixMilli(1_700_000_000_000),
		priv: priv,
		addr: core.EncodeAddress(pub),
	}
	f.store = store.NewMemoryStoreWithClock(f.clock)

	var tok ports.Tokenizer
	if opaque {
		tok = tokenizer.NewOpaqueTokenizer(f.store)
	} else {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		tok = tokenizer.NewJWTTokenizerWithClock(key, f.clock)
	}

	opts = append([]Option{WithClock(f.clock)}, opts...)
	f.svc = NewAuthService(tok, f.store, f.store, f.pub, opts...)
	return f
}

func TestLoginFlow(t *testing.T) {
	for _, opaque := range []bool{false, true} {
		f := newFixture(t, opaque)
		ctx := context.Background()

		challenge, err := f.svc.CreateChallenge(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.now, challenge.IssuedAt)

		sub := f.sign(challenge.Nonce, challenge.IssuedAt.UnixMilli())
		f.now = f.now.Add(time.Second)

		res, err := f.svc.Login(ctx, sub)
		require.NoError(t, err)
		require.True(t, res.Verdict.Valid)
		require.NotEmpty(t, res.Token)
		assert.Equal(t, f.addr, res.Session.Address)
		assert.Equal(t, []string{f.addr}, f.pub.logins)

		session, err := f.svc.ValidateSessionToken(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, res.Session.ID, session.ID)
		assert.Equal(t, f.addr, session.Address)
	}
}

func TestLoginRejectsReplay(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	challenge, err := f.svc.CreateChallenge(ctx)
	require.NoError(t, err)
	sub := f.sign(challenge.Nonce, challenge.IssuedAt.UnixMilli())

	res, err := f.svc.Login(ctx, sub)
	require.NoError(t, err)
	require.True(t, res.Verdict.Valid)

	res, err = f.svc.Login(ctx, sub)
	require.NoError(t, err)
	assert.False(t, res.Verdict.Valid)
	assert.Equal(t, core.UnknownChallenge, res.Verdict.Reason)
	assert.Empty(t, res.Token)
	assert.Len(t, f.pub.logins, 1)
}

func TestLoginRejectsUnissuedNonce(t *testing.T) {
	f := newFixture(t, false)
	nonce, err := core.GenerateNonce()
	require.NoError(t, err)

	res, err := f.svc.Login(context.Background(), f.sign(nonce, f.now.UnixMilli()))
	require.NoError(t, err)
	assert.False(t, res.Verdict.Valid)
	assert.Equal(t, "Invalid challenge", res.Verdict.Message())
}

func TestLoginFailureBurnsChallenge(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	challenge, err := f.svc.CreateChallenge(ctx)
	require.NoError(t, err)

	sub := f.sign(challenge.Nonce, challenge.IssuedAt.UnixMilli())
	forged := sub
	other, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	forged.WalletAddress = core.EncodeAddress(other)

	res, err := f.svc.Login(ctx, forged)
	require.NoError(t, err)
	assert.Equal(t, core.InvalidSignature, res.Verdict.Reason)
	assert.Equal(t, "Invalid signature", res.Verdict.Message())

	// the honest submission can no longer use the burned nonce
	res, err = f.svc.Login(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, core.UnknownChallenge, res.Verdict.Reason)
}

func TestLoginTimestampWindow(t *testing.T) {
	f := newFixture(t, false, WithReplayGuard(core.ReplayGuard{MaxAge: 10 * time.Second, ClockSkew: time.Second}))
	ctx := context.Background()

	challenge, err := f.svc.CreateChallenge(ctx)
	require.NoError(t, err)
	future, err := f.svc.CreateChallenge(ctx)
	require.NoError(t, err)

	stale := f.sign(challenge.Nonce, f.now.Add(-11*time.Second).UnixMilli())
	res, err := f.svc.Login(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, core.ExpiredChallenge, res.Verdict.Reason)

	ahead := f.sign(future.Nonce, f.now.Add(2*time.Second).UnixMilli())
	res, err = f.svc.Login(ctx, ahead)
	require.NoError(t, err)
	assert.Equal(t, core.FutureTimestamp, res.Verdict.Reason)
}

func TestChallengeLedgerEvictsAfterWindow(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	challenge, err := f.svc.CreateChallenge(ctx)
	require.NoError(t, err)
	sub := f.sign(challenge.Nonce, challenge.IssuedAt.UnixMilli())

	f.now = f.now.Add(core.DefaultMaxAge + core.DefaultClockSkew)
	res, err := f.svc.Login(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, core.UnknownChallenge, res.Verdict.Reason)
}

func TestLoginStoreFailure(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	mem := store.NewMemoryStore()
	svc := NewAuthService(tokenizer.NewJWTTokenizer(key), failingChallenges{}, mem, &recordingPublisher{})

	_, err = svc.CreateChallenge(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreOperationFailed)

	_, err = svc.Login(context.Background(), core.Submission{Nonce: "n"})
	assert.ErrorIs(t, err, core.ErrStoreOperationFailed)
}

func TestPublishFailureDoesNotFailLogin(t *testing.T) {
	f := newFixture(t, false)
	f.pub.err = errors.New("broker down")
	ctx := context.Background()

	challenge, err := f.svc.CreateChallenge(ctx)
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, f.sign(challenge.Nonce, challenge.IssuedAt.UnixMilli()))
	require.NoError(t, err)
	assert.True(t, res.Verdict.Valid)

	assert.NoError(t, f.svc.Logout(ctx, res.Token))
}

func TestLogout(t *testing.T) {
	for _, opaque := range []bool{false, true} {
		f := newFixture(t, opaque)
		ctx := context.Background()

		challenge, err := f.svc.CreateChallenge(ctx)
		require.NoError(t, err)
		res, err := f.svc.Login(ctx, f.sign(challenge.Nonce, challenge.IssuedAt.UnixMilli()))
		require.NoError(t, err)
		require.True(t, res.Verdict.Valid)

		require.NoError(t, f.svc.Logout(ctx, res.Token))
		assert.Equal(t, []string{f.addr}, f.pub.logouts)

		_, err = f.svc.ValidateSessionToken(ctx, res.Token)
		assert.ErrorIs(t, err, core.ErrTokenInvalidated)

		// a second logout is a no-op
		require.NoError(t, f.svc.Logout(ctx, res.Token))
		assert.Len(t, f.pub.logouts, 1)
	}
}

func TestSessionExpiry(t *testing.T) {
	f := newFixture(t, false, WithSessionTTL(time.Minute))
	ctx := context.Background()

	challenge, err := f.svc.CreateChallenge(ctx)
	require.NoError(t, err)
	res, err := f.svc.Login(ctx, f.sign(challenge.Nonce, challenge.IssuedAt.UnixMilli()))
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	_, err = f.svc.ValidateSessionToken(ctx, res.Token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	assert.NoError(t, f.svc.Logout(ctx, res.Token))
}

func TestValidateSessionTokenRejectsGarbage(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.ValidateSessionToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
