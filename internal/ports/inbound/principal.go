package inbound

import (
	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/user"
)

// Principal is the authenticated caller of an operation, resolved from an
// access token. TenantID is the tenant the request runs against, which for
// admins may differ from the tenant in their token.
type Principal struct {
	UserID    uuid.UUID
	TenantID  uuid.UUID
	CompanyID *uuid.UUID
	Role      user.Role
}

// IsAdmin reports whether the caller is a platform administrator
func (p Principal) IsAdmin() bool {
	return p.Role == user.RoleAdmin
}

// InCompany reports whether the caller acts for companyID
func (p Principal) InCompany(companyID uuid.UUID) bool {
	return p.CompanyID != nil && *p.CompanyID == companyID
}
