package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/storefront-bridge/internal/b2b"
	"github.com/mkravets/storefront-bridge/internal/commerce"
	"github.com/mkravets/storefront-bridge/internal/models"
)

type fakeIdentity struct {
	loginResult *commerce.LoginResult
	loginErr    error
	logoutErr   error
	revoked     []string
}

func (f *fakeIdentity) Login(_ context.Context, _, _ string) (*commerce.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeIdentity) Logout(_ context.Context, accessToken string) error {
	f.revoked = append(f.revoked, accessToken)
	return f.logoutErr
}

type fakeExchanger struct {
	token string
	err   error
	calls int
}

func (f *fakeExchanger) Exchange(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeEngine struct {
	err   error
	calls []string
}

func (f *fakeEngine) Reconcile(_ context.Context, sessionID, oldCartID, newCartID string) error {
	f.calls = append(f.calls, sessionID+":"+oldCartID+":"+newCartID)
	return f.err
}

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) Publish(_ context.Context, eventType, _ string, _ map[string]any) error {
	f.events = append(f.events, eventType)
	return nil
}

func loginResult() *commerce.LoginResult {
	return &commerce.LoginResult{
		AccessToken:     "primary-token",
		CustomerID:      "customer-1",
		Name:            "Jane Shopper",
		Email:           "jane@example.com",
		AnonymousCartID: "anon-cart",
	}
}

func TestLogin_AttachesSecondaryToken(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{loginResult: loginResult()}
	exchanger := &fakeExchanger{token: "secondary-token"}
	pub := &fakePublisher{}
	b := New(identity, exchanger, &fakeEngine{}, pub)

	sess, err := b.Login(context.Background(), "jane", "secret")
	require.NoError(t, err)

	assert.Equal(t, "customer-1", sess.CustomerID)
	assert.Equal(t, "primary-token", sess.AccessToken)
	assert.Equal(t, "secondary-token", sess.B2BToken)
	assert.Equal(t, "anon-cart", sess.CartID)
	assert.Equal(t, []string{"session_login"}, pub.events)
}

func TestLogin_SecondaryOutageIsTolerated(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{loginResult: loginResult()}
	exchanger := &fakeExchanger{err: b2b.ErrUnavailable}
	b := New(identity, exchanger, &fakeEngine{}, nil)

	sess, err := b.Login(context.Background(), "jane", "secret")
	require.NoError(t, err, "a B2B outage must never fail the login")

	assert.Equal(t, "primary-token", sess.AccessToken)
	assert.Empty(t, sess.B2BToken)
	assert.Equal(t, 1, exchanger.calls)
}

func TestLogin_NoAnonymousCart(t *testing.T) {
	t.Parallel()

	res := loginResult()
	res.AnonymousCartID = ""
	b := New(&fakeIdentity{loginResult: res}, &fakeExchanger{token: "tok"}, &fakeEngine{}, nil)

	sess, err := b.Login(context.Background(), "jane", "secret")
	require.NoError(t, err)
	assert.Empty(t, sess.CartID)
}

func TestLogin_PrimaryFailurePropagates(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{loginErr: commerce.ErrInvalidCredentials}
	exchanger := &fakeExchanger{}
	b := New(identity, exchanger, &fakeEngine{}, nil)

	sess, err := b.Login(context.Background(), "jane", "wrong")
	assert.ErrorIs(t, err, commerce.ErrInvalidCredentials)
	assert.Nil(t, sess)
	assert.Zero(t, exchanger.calls)
}

func TestLogout_RevokesPrimaryToken(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{}
	b := New(identity, &fakeExchanger{}, &fakeEngine{}, nil)

	err := b.Logout(context.Background(), &models.Session{AccessToken: "primary-token"})
	require.NoError(t, err)
	assert.Equal(t, []string{"primary-token"}, identity.revoked)
}

func TestSecondaryCartCreated_AdoptsWhenNoCart(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	b := New(&fakeIdentity{}, &fakeExchanger{}, engine, nil)
	sess := &models.Session{CustomerID: "customer-1"}

	id, err := b.SecondaryCartCreated(context.Background(), sess, "cart-b")
	require.NoError(t, err)
	assert.Equal(t, "cart-b", id)
	assert.Equal(t, "cart-b", sess.CartID)
	assert.Empty(t, engine.calls, "nothing to merge without a prior cart")
}

func TestSecondaryCartCreated_DuplicateIsNoOp(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	b := New(&fakeIdentity{}, &fakeExchanger{}, engine, nil)
	sess := &models.Session{CustomerID: "customer-1", CartID: "cart-b"}

	id, err := b.SecondaryCartCreated(context.Background(), sess, "cart-b")
	require.NoError(t, err)
	assert.Equal(t, "cart-b", id)
	assert.Empty(t, engine.calls)
}

func TestSecondaryCartCreated_ReconcilesAndAdvances(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	pub := &fakePublisher{}
	b := New(&fakeIdentity{}, &fakeExchanger{}, engine, pub)
	sess := &models.Session{CustomerID: "customer-1", CartID: "cart-a"}

	id, err := b.SecondaryCartCreated(context.Background(), sess, "cart-b")
	require.NoError(t, err)
	assert.Equal(t, "cart-b", id)
	assert.Equal(t, "cart-b", sess.CartID)
	assert.Equal(t, []string{"customer-1:cart-a:cart-b"}, engine.calls)
	assert.Equal(t, []string{"cart_reconciled"}, pub.events)
}

func TestSecondaryCartCreated_FailureKeepsOldPointer(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{err: errors.New("merge failed")}
	pub := &fakePublisher{}
	b := New(&fakeIdentity{}, &fakeExchanger{}, engine, pub)
	sess := &models.Session{CustomerID: "customer-1", CartID: "cart-a"}

	id, err := b.SecondaryCartCreated(context.Background(), sess, "cart-b")
	require.Error(t, err)
	assert.Equal(t, "cart-a", id)
	assert.Equal(t, "cart-a", sess.CartID, "the pointer must not advance on a reported failure")
	assert.Equal(t, []string{"cart_reconcile_failed"}, pub.events)
}

func TestSecondaryCartCreated_EmptyIDRejected(t *testing.T) {
	t.Parallel()

	b := New(&fakeIdentity{}, &fakeExchanger{}, &fakeEngine{}, nil)
	sess := &models.Session{CustomerID: "customer-1", CartID: "cart-a"}

	id, err := b.SecondaryCartCreated(context.Background(), sess, "")
	assert.ErrorIs(t, err, ErrCartIDRequired)
	assert.Equal(t, "cart-a", id)
}
