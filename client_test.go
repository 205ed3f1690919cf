package walletauth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/floppfun/walletauth/adapters/events"
	"github.com/floppfun/walletauth/adapters/store"
	"github.com/floppfun/walletauth/adapters/tokenizer"
	"github.com/floppfun/walletauth/core"
	"github.com/floppfun/walletauth/service"
	transport "github.com/floppfun/walletauth/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	mem := store.NewMemoryStore()
	svc := service.NewAuthService(tokenizer.NewJWTTokenizer(key), mem, mem, events.NopPublisher{})

	srv := httptest.NewServer(transport.SetupRouter(svc, nil))
	t.Cleanup(srv.Close)
	return srv
}

type wrongKeySigner struct {
	*KeySigner
	address string
}

func (s wrongKeySigner) Address() string { return s.address }

type brokenSigner struct{ address string }

func (s brokenSigner) Address() string { return s.address }
func (brokenSigner) SignMessage(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("user rejected the request")
}

func TestClientLoginVerifyLogout(t *testing.T) {
	ctx := context.Background()
	c := New(newTestServer(t).URL + "/")

	signer, err := GenerateKeySigner()
	require.NoError(t, err)
	require.True(t, core.IsValidAddress(signer.Address()))

	session, err := c.Login(ctx, signer)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), session.Address)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, session.Token, c.Token())

	address, err := c.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), address)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())

	_, err = c.Verify(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.NoError(t, c.Logout(ctx))
}

func TestClientLoginRejectedSignature(t *testing.T) {
	ctx := context.Background()
	c := New(newTestServer(t).URL)

	victim, err := GenerateKeySigner()
	require.NoError(t, err)
	attacker, err := GenerateKeySigner()
	require.NoError(t, err)

	_, err = c.Login(ctx, wrongKeySigner{KeySigner: attacker, address: victim.Address()})
	require.Error(t, err)
	assert.True(t, IsReason(err, "Invalid signature"), err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Empty(t, c.Token())
}

func TestClientSignerFailure(t *testing.T) {
	c := New(newTestServer(t).URL)
	signer, err := GenerateKeySigner()
	require.NoError(t, err)

	_, err = c.Login(context.Background(), brokenSigner{address: signer.Address()})
	assert.ErrorContains(t, err, "user rejected the request")
}

func TestClientStaleTokenRejected(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)

	signer, err := GenerateKeySigner()
	require.NoError(t, err)

	first := New(srv.URL)
	_, err = first.Login(ctx, signer)
	require.NoError(t, err)

	second := New(srv.URL)
	second.token = first.Token()
	require.NoError(t, first.Logout(ctx))

	_, err = second.Verify(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Token has been invalidated", apiErr.Reason)
}

func TestNewKeySigner(t *testing.T) {
	_, err := NewKeySigner(make([]byte, 10))
	assert.Error(t, err)

	s, err := GenerateKeySigner()
	require.NoError(t, err)
	again, err := NewKeySigner(s.key)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), again.Address())
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "HTTP 500", (&APIError{StatusCode: 500}).Error())
	assert.Equal(t, "HTTP 401: Invalid signature", (&APIError{StatusCode: 401, Reason: "Invalid signature"}).Error())
}
