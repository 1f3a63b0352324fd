package app

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/tenant"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

// TenantService implements the tenant use cases
type TenantService struct {
	tenantRepo outbound.TenantRepository
	now        Clock
	logger     zerolog.Logger
}

type TenantServiceParams struct {
	TenantRepo outbound.TenantRepository
	Clock      Clock
	Logger     zerolog.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(params TenantServiceParams) *TenantService {
	return &TenantService{
		tenantRepo: params.TenantRepo,
		now:        clockOrDefault(params.Clock),
		logger:     params.Logger.With().Str("component", "tenant_service").Logger(),
	}
}

// CreateTenant creates a tenant with a unique subdomain
func (s *TenantService) CreateTenant(ctx context.Context, req inbound.CreateTenantRequest) (*tenant.Tenant, error) {
	t := tenant.New(req.Name, req.Domain, s.now())
	if !tenant.ValidDomain(t.Domain) {
		return nil, shared.NewValidationError(map[string]string{"domain": "domain must be a single DNS label"})
	}

	existing, err := s.tenantRepo.GetByDomain(ctx, t.Domain)
	if err != nil && !errors.Is(err, shared.ErrTenantNotFound) {
		return nil, err
	}
	if existing != nil {
		s.logger.Warn().Str("domain", t.Domain).Msg("Tenant domain already in use")
		return nil, shared.ErrTenantDomainTaken
	}

	if err := s.tenantRepo.Create(ctx, t); err != nil {
		s.logger.Error().Err(err).Str("domain", t.Domain).Msg("Failed to create tenant")
		return nil, err
	}

	s.logger.Info().
		Str("tenant_id", t.ID.String()).
		Str("domain", t.Domain).
		Msg("Tenant created")
	return t, nil
}

// GetTenant retrieves a tenant by ID
func (s *TenantService) GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}

// GetTenantByDomain retrieves a tenant by subdomain
func (s *TenantService) GetTenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return s.tenantRepo.GetByDomain(ctx, tenant.NormalizeDomain(domain))
}

// ListTenants retrieves a page of tenants
func (s *TenantService) ListTenants(ctx context.Context, page shared.Page) ([]*tenant.Tenant, error) {
	return s.tenantRepo.List(ctx, page.Normalize())
}
