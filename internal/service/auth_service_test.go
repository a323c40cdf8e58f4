package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alanyoungcy/tradejournal/internal/auth"
	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/notify"
)

type authFixture struct {
	svc      *AuthService
	users    *memUsers
	accounts *memAccounts
	limiter  *fakeLimiter
	revoker  *fakeRevoker
	notifier *recordingNotifier
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		Secret: []byte(strings.Repeat("k", auth.MinSecretLen)),
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	f := authFixture{
		accounts: newMemAccounts(),
		limiter:  &fakeLimiter{allow: true},
		revoker:  &fakeRevoker{},
		notifier: &recordingNotifier{},
	}
	f.users = newMemUsers(f.accounts)
	f.svc = NewAuthService(f.users, issuer, f.revoker, f.limiter, &memAudit{}, f.notifier,
		AuthConfig{BcryptCost: bcrypt.MinCost, LoginLimit: 5, LoginWindow: time.Minute},
		discardLogger())
	return f
}

func TestSignupCreatesDefaultAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Signup(ctx, SignupInput{Email: "  Ada@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.Equal(t, "ada", sess.User.Name)
	assert.NotEmpty(t, sess.Token.Value)

	accounts, err := f.accounts.ListByUser(ctx, sess.User.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, domain.DefaultAccountName, accounts[0].Name)
	assert.True(t, accounts[0].IsDefault)
	assert.Equal(t, []string{notify.EventSignup}, f.notifier.events)
}

func TestSignupRejects(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, SignupInput{Email: "ADA@example.com", Password: "another pass"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = f.svc.Signup(ctx, SignupInput{Email: "not-an-email", Password: "correct horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Signup(ctx, SignupInput{Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	signed, err := f.svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	sess, err := f.svc.Login(ctx, "ADA@example.com", "correct horse", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, sess.User.ID)
	assert.Equal(t, []string{"login:10.0.0.1"}, f.limiter.keys)

	_, err = f.svc.Login(ctx, "ada@example.com", "wrong password", "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.Login(ctx, "nobody@example.com", "correct horse", "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginUnknownEmailChecksDecoyHash(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(f.svc.decoyHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	var checked []string
	f.svc.checkPassword = func(hash, password string) error {
		checked = append(checked, hash)
		return auth.CheckPassword(hash, password)
	}

	_, err = f.svc.Login(ctx, "nobody@example.com", "correct horse", "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	require.Len(t, checked, 1)
	assert.Equal(t, f.svc.decoyHash, checked[0])

	_, err = f.svc.Login(ctx, "ada@example.com", "wrong password", "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	require.Len(t, checked, 2)
	assert.NotEqual(t, f.svc.decoyHash, checked[1])
}

func TestLoginRateLimited(t *testing.T) {
	f := newAuthFixture(t)
	f.limiter.allow = false
	_, err := f.svc.Login(context.Background(), "ada@example.com", "correct horse", "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	signed, err := f.svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	sess, err := f.svc.Authenticate(ctx, signed.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, sess.UserID)

	require.NoError(t, f.svc.Logout(ctx, sess))
	_, err = f.svc.Authenticate(ctx, signed.Token.Value)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	signed, err := f.svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse", Name: "Ada"})
	require.NoError(t, err)

	u, err := f.svc.Me(ctx, signed.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	_, err = f.svc.Me(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
