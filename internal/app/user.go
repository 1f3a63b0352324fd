package app

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/user"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

// UserService implements the user account use cases
type UserService struct {
	userRepo    outbound.UserRepository
	companyRepo outbound.CompanyRepository
	tenantRepo  outbound.TenantRepository
	rootDomain  string
	bcryptCost  int
	now         Clock
	logger      zerolog.Logger
}

type UserServiceParams struct {
	UserRepo    outbound.UserRepository
	CompanyRepo outbound.CompanyRepository
	TenantRepo  outbound.TenantRepository
	RootDomain  string
	BcryptCost  int
	Clock       Clock
	Logger      zerolog.Logger
}

// NewUserService creates a new user service
func NewUserService(params UserServiceParams) *UserService {
	cost := params.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo:    params.UserRepo,
		companyRepo: params.CompanyRepo,
		tenantRepo:  params.TenantRepo,
		rootDomain:  params.RootDomain,
		bcryptCost:  cost,
		now:         clockOrDefault(params.Clock),
		logger:      params.Logger.With().Str("component", "user_service").Logger(),
	}
}

// CreateUser hashes the password and stores a new active user
func (s *UserService) CreateUser(ctx context.Context, req inbound.CreateUserRequest) (*user.SafeUser, error) {
	email := user.NormalizeEmail(req.Email)

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, shared.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	u := user.New(email, req.Name, req.Phone, req.Role, string(hash), s.now())
	if err := s.userRepo.Create(ctx, u); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to create user")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", u.ID.String()).
		Str("role", string(u.Role)).
		Msg("User created")

	safe := u.Safe()
	return &safe, nil
}

// GetUser retrieves a user without credentials
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*user.SafeUser, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	safe := u.Safe()
	return &safe, nil
}

// ConnectUser links a user to a company and its tenant
func (s *UserService) ConnectUser(ctx context.Context, req inbound.ConnectUserRequest) (*user.SafeUser, error) {
	u, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if _, err := s.tenantRepo.GetByID(ctx, req.TenantID); err != nil {
		return nil, err
	}

	c, err := s.companyRepo.GetByID(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if !c.BelongsTo(req.TenantID) {
		s.logger.Warn().
			Str("company_id", c.ID.String()).
			Str("tenant_id", req.TenantID.String()).
			Msg("Company does not belong to tenant")
		return nil, shared.ErrCompanyTenantMismatch
	}

	u.ConnectTo(c.ID, req.TenantID, s.now())
	if err := s.userRepo.Update(ctx, u); err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("Failed to connect user")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", u.ID.String()).
		Str("company_id", c.ID.String()).
		Str("tenant_id", req.TenantID.String()).
		Msg("User connected to company and tenant")

	safe := u.Safe()
	return &safe, nil
}

// GetCompanyDomain returns the company and tenant host of a connected user
func (s *UserService) GetCompanyDomain(ctx context.Context, userID uuid.UUID) (*inbound.CompanyDomain, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.CompanyID == nil || u.TenantID == nil {
		return nil, shared.ErrUserNotConnected
	}

	c, err := s.companyRepo.GetByID(ctx, *u.CompanyID)
	if err != nil {
		return nil, err
	}
	t, err := s.tenantRepo.GetByID(ctx, *u.TenantID)
	if err != nil {
		return nil, err
	}

	return &inbound.CompanyDomain{
		UserID:      u.ID,
		CompanyID:   c.ID,
		CompanyName: c.Name,
		TenantID:    t.ID,
		Domain:      t.Domain,
		Host:        t.Host(s.rootDomain),
	}, nil
}
