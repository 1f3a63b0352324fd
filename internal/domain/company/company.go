package company

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/shared"
)

// Company is a seller or buyer organization scoped under a tenant
type Company struct {
	shared.Base
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
	RUT      string    `json:"rut,omitempty"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
}

// New creates a company under tenantID
func New(tenantID uuid.UUID, name, rut, email, phone string, now time.Time) *Company {
	return &Company{
		Base:     shared.NewBase(now),
		TenantID: tenantID,
		Name:     strings.TrimSpace(name),
		RUT:      strings.ToUpper(strings.TrimSpace(rut)),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Phone:    strings.TrimSpace(phone),
	}
}

// BelongsTo reports whether the company is scoped under tenantID
func (c *Company) BelongsTo(tenantID uuid.UUID) bool {
	return c.TenantID == tenantID
}
