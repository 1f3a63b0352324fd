package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/company"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/tenant"
	"subastas-marketplace/internal/domain/user"
)

// TenantService manages tenants
type TenantService interface {
	CreateTenant(ctx context.Context, req CreateTenantRequest) (*tenant.Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	GetTenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context, page shared.Page) ([]*tenant.Tenant, error)
}

// CompanyService manages companies inside a tenant
type CompanyService interface {
	CreateCompany(ctx context.Context, req CreateCompanyRequest) (*company.Company, error)
	GetCompany(ctx context.Context, tenantID, id uuid.UUID) (*company.Company, error)
	ListCompanies(ctx context.Context, tenantID uuid.UUID, page shared.Page) ([]*company.Company, error)
}

// UserService manages user accounts. Users always leave the service as SafeUser.
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*user.SafeUser, error)
	GetUser(ctx context.Context, id uuid.UUID) (*user.SafeUser, error)

	// ConnectUser links a user to one company and the tenant that owns it
	ConnectUser(ctx context.Context, req ConnectUserRequest) (*user.SafeUser, error)

	// GetCompanyDomain returns the company and tenant host a user belongs to
	GetCompanyDomain(ctx context.Context, userID uuid.UUID) (*CompanyDomain, error)
}

// AuthService issues and verifies token pairs
type AuthService interface {
	SignIn(ctx context.Context, req SignInRequest) (*Session, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error)

	// Authenticate verifies an access token and returns its principal
	Authenticate(ctx context.Context, accessToken string) (*Principal, error)
}

// request to create a tenant
type CreateTenantRequest struct {
	Name   string `json:"name" validate:"required,max=120"`
	Domain string `json:"domain" validate:"required,subdomain"`
}

// request to create a company
type CreateCompanyRequest struct {
	TenantID uuid.UUID `json:"-"`
	Name     string    `json:"name" validate:"required,max=200"`
	RUT      string    `json:"rut" validate:"omitempty,max=12"`
	Email    string    `json:"email" validate:"omitempty,email"`
	Phone    string    `json:"phone" validate:"omitempty,cl_phone"`
}

// request to create a user
type CreateUserRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	Name     string    `json:"name" validate:"required,max=200"`
	Phone    string    `json:"phone" validate:"omitempty,cl_phone"`
	Password string    `json:"password" validate:"required,min=8,max=72"`
	Role     user.Role `json:"role" validate:"omitempty,oneof=admin member"`
}

// request to link a user to a company and tenant
type ConnectUserRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	CompanyID uuid.UUID `json:"company_id" validate:"required"`
	TenantID  uuid.UUID `json:"tenant_id" validate:"required"`
}

// CompanyDomain is where a user's company lives
type CompanyDomain struct {
	UserID      uuid.UUID `json:"user_id"`
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Domain      string    `json:"domain"`
	Host        string    `json:"host"`
}

// request to sign in
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is an access token with the refresh token that renews it
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Session is the result of a successful sign in
type Session struct {
	User   user.SafeUser `json:"user"`
	Tokens TokenPair     `json:"tokens"`
}
