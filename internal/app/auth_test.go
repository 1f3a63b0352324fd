package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/user"
	"subastas-marketplace/internal/ports/inbound"
)

type authFixture struct {
	*fixture
	auth *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := newFixture()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	u := f.store.users[f.bidderA.ID]
	u.PasswordHash = string(hash)
	f.store.users[u.ID] = u

	return &authFixture{
		fixture: f,
		auth: NewAuthService(AuthServiceParams{
			UserRepo:      userRepoStub{f.store},
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
			Clock:         func() time.Time { return f.now },
			Logger:        zerolog.Nop(),
		}),
	}
}

func TestSignIn(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, err := f.auth.SignIn(ctx, inbound.SignInRequest{Email: " A@Buyer.cl ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, f.bidderA.ID, session.User.ID)
	assert.NotEmpty(t, session.Tokens.AccessToken)
	assert.NotEqual(t, session.Tokens.AccessToken, session.Tokens.RefreshToken)
	assert.Equal(t, f.now.Add(15*time.Minute), session.Tokens.AccessExpiresAt)

	p, err := f.auth.Authenticate(ctx, session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.bidderA.ID, p.UserID)
	assert.Equal(t, f.tenant.ID, p.TenantID)
	require.NotNil(t, p.CompanyID)
	assert.Equal(t, f.buyer.ID, *p.CompanyID)
	assert.Equal(t, user.RoleMember, p.Role)
}

func TestSignIn_Failures(t *testing.T) {
	f := newAuthFixture(t)

	inactive := f.store.users[f.bidderB.ID]
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	inactive.PasswordHash = string(hash)
	inactive.IsActive = false
	f.store.users[inactive.ID] = inactive

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"missing password", "a@buyer.cl", "", shared.ErrSignInParse},
		{"missing email", "  ", "x", shared.ErrSignInParse},
		{"unknown member", "nobody@buyer.cl", "s3cret-pass", shared.ErrMemberNotFound},
		{"inactive member", "b@buyer.cl", "s3cret-pass", shared.ErrMemberNotActive},
		{"wrong password", "a@buyer.cl", "wrong-pass", shared.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.SignIn(context.Background(), inbound.SignInRequest{Email: tt.email, Password: tt.password})
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, errors.Is(err, shared.ErrSignIn), "every sign in failure belongs to the family")
		})
	}
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, err := f.auth.SignIn(ctx, inbound.SignInRequest{Email: "a@buyer.cl", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, inbound.RefreshRequest{RefreshToken: session.Tokens.AccessToken})
	assert.ErrorIs(t, err, shared.ErrInvalidToken, "access tokens cannot refresh")

	_, err = f.auth.Authenticate(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, shared.ErrInvalidToken, "refresh tokens cannot authenticate")

	f.advance(time.Hour)
	_, err = f.auth.Authenticate(ctx, session.Tokens.AccessToken)
	assert.ErrorIs(t, err, shared.ErrInvalidToken, "access token expired")

	pair, err := f.auth.Refresh(ctx, inbound.RefreshRequest{RefreshToken: session.Tokens.RefreshToken})
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, pair.AccessToken)
	assert.NoError(t, err)

	f.advance(48 * time.Hour)
	_, err = f.auth.Refresh(ctx, inbound.RefreshRequest{RefreshToken: pair.RefreshToken})
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestAuthenticate_RejectsForeignAlgorithms(t *testing.T) {
	f := newAuthFixture(t)

	claims := tokenClaims{
		UserID: f.bidderA.ID.String(),
		Type:   tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(f.now.Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = f.auth.Authenticate(context.Background(), unsigned)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)

	_, err = f.auth.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}
