package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/user"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// tokenClaims is the payload of both access and refresh tokens
type tokenClaims struct {
	UserID    string `json:"uid"`
	TenantID  string `json:"tid,omitempty"`
	CompanyID string `json:"cid,omitempty"`
	Role      string `json:"role"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

// AuthService implements sign in, refresh and token verification
type AuthService struct {
	userRepo      outbound.UserRepository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           Clock
	logger        zerolog.Logger
}

type AuthServiceParams struct {
	UserRepo      outbound.UserRepository
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         Clock
	Logger        zerolog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(params AuthServiceParams) *AuthService {
	accessTTL, refreshTTL := params.AccessTTL, params.RefreshTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		userRepo:      params.UserRepo,
		accessSecret:  []byte(params.AccessSecret),
		refreshSecret: []byte(params.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           clockOrDefault(params.Clock),
		logger:        params.Logger.With().Str("component", "auth_service").Logger(),
	}
}

// SignIn checks credentials and issues a token pair
func (s *AuthService) SignIn(ctx context.Context, req inbound.SignInRequest) (*inbound.Session, error) {
	email := user.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, shared.ErrSignInParse
	}

	u, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, shared.ErrUserNotFound) {
		return nil, shared.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}

	if !u.IsActive {
		s.logger.Warn().Str("user_id", u.ID.String()).Msg("Inactive user attempted sign in")
		return nil, shared.ErrMemberNotActive
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}

	pair, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", u.ID.String()).Msg("User signed in")
	return &inbound.Session{User: u.Safe(), Tokens: *pair}, nil
}

// Refresh exchanges a valid refresh token for a new pair. Membership changes
// since the last sign in are picked up here.
func (s *AuthService) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.TokenPair, error) {
	claims, err := s.parse(req.RefreshToken, s.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, shared.ErrInvalidToken
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, shared.ErrUserNotFound) {
		return nil, shared.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, shared.ErrMemberNotActive
	}

	return s.issue(u)
}

// Authenticate verifies an access token
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (*inbound.Principal, error) {
	claims, err := s.parse(strings.TrimSpace(accessToken), s.accessSecret, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, shared.ErrInvalidToken
	}

	p := &inbound.Principal{UserID: userID, Role: user.Role(claims.Role)}
	if claims.TenantID != "" {
		if p.TenantID, err = uuid.Parse(claims.TenantID); err != nil {
			return nil, shared.ErrInvalidToken
		}
	}
	if claims.CompanyID != "" {
		companyID, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			return nil, shared.ErrInvalidToken
		}
		p.CompanyID = &companyID
	}
	return p, nil
}

func (s *AuthService) issue(u *user.User) (*inbound.TokenPair, error) {
	now := s.now()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	access, err := s.sign(u, tokenTypeAccess, s.accessSecret, now, accessExp)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(u, tokenTypeRefresh, s.refreshSecret, now, refreshExp)
	if err != nil {
		return nil, err
	}

	return &inbound.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) sign(u *user.User, typ string, secret []byte, now, exp time.Time) (string, error) {
	claims := tokenClaims{
		UserID: u.ID.String(),
		Role:   string(u.Role),
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if u.TenantID != nil {
		claims.TenantID = u.TenantID.String()
	}
	if u.CompanyID != nil {
		claims.CompanyID = u.CompanyID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *AuthService) parse(raw string, secret []byte, typ string) (*tokenClaims, error) {
	if raw == "" {
		return nil, shared.ErrUnauthorized
	}

	claims := &tokenClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !tkn.Valid {
		return nil, shared.ErrInvalidToken
	}
	if claims.Type != typ {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}
