package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/domain/company"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

// CompanyService implements the company use cases
type CompanyService struct {
	companyRepo outbound.CompanyRepository
	tenantRepo  outbound.TenantRepository
	now         Clock
	logger      zerolog.Logger
}

type CompanyServiceParams struct {
	CompanyRepo outbound.CompanyRepository
	TenantRepo  outbound.TenantRepository
	Clock       Clock
	Logger      zerolog.Logger
}

// NewCompanyService creates a new company service
func NewCompanyService(params CompanyServiceParams) *CompanyService {
	return &CompanyService{
		companyRepo: params.CompanyRepo,
		tenantRepo:  params.TenantRepo,
		now:         clockOrDefault(params.Clock),
		logger:      params.Logger.With().Str("component", "company_service").Logger(),
	}
}

// CreateCompany creates a company under an existing tenant
func (s *CompanyService) CreateCompany(ctx context.Context, req inbound.CreateCompanyRequest) (*company.Company, error) {
	if _, err := s.tenantRepo.GetByID(ctx, req.TenantID); err != nil {
		s.logger.Warn().Err(err).Str("tenant_id", req.TenantID.String()).Msg("Tenant not found for company")
		return nil, err
	}

	c := company.New(req.TenantID, req.Name, req.RUT, req.Email, req.Phone, s.now())
	if err := s.companyRepo.Create(ctx, c); err != nil {
		s.logger.Error().Err(err).Str("tenant_id", req.TenantID.String()).Msg("Failed to create company")
		return nil, err
	}

	s.logger.Info().
		Str("company_id", c.ID.String()).
		Str("tenant_id", c.TenantID.String()).
		Msg("Company created")
	return c, nil
}

// GetCompany retrieves a company inside a tenant
func (s *CompanyService) GetCompany(ctx context.Context, tenantID, id uuid.UUID) (*company.Company, error) {
	c, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inTenant(c.TenantID, tenantID, shared.ErrCompanyNotFound); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCompanies retrieves a page of a tenant's companies
func (s *CompanyService) ListCompanies(ctx context.Context, tenantID uuid.UUID, page shared.Page) ([]*company.Company, error) {
	return s.companyRepo.List(ctx, tenantID, page.Normalize())
}
