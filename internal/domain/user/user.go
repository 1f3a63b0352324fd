package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/shared"
)

// Role is the platform-level role of a user
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is an account that can sign in, bid and observe.
// PasswordHash never leaves the process; use Safe for responses.
type User struct {
	shared.Base
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	PasswordHash string     `json:"-"`
}

// SafeUser is the user shape exposed to clients
type SafeUser struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"is_active"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// New creates an active user with an already hashed password
func New(email, name, phone string, role Role, passwordHash string, now time.Time) *User {
	if !role.Valid() {
		role = RoleMember
	}
	return &User{
		Base:         shared.NewBase(now),
		Email:        NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		Phone:        strings.TrimSpace(phone),
		Role:         role,
		IsActive:     true,
		PasswordHash: passwordHash,
	}
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Safe strips credentials from the user
func (u *User) Safe() SafeUser {
	return SafeUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CompanyID: u.CompanyID,
		TenantID:  u.TenantID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ConnectTo links the user to exactly one company and one tenant
func (u *User) ConnectTo(companyID, tenantID uuid.UUID, now time.Time) {
	u.CompanyID = &companyID
	u.TenantID = &tenantID
	u.Touch(now)
}

// IsAdmin reports whether the user is a platform administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BelongsToTenant reports whether the user is linked to tenantID
func (u *User) BelongsToTenant(tenantID uuid.UUID) bool {
	return u.TenantID != nil && *u.TenantID == tenantID
}

// BelongsToCompany reports whether the user is linked to companyID
func (u *User) BelongsToCompany(companyID uuid.UUID) bool {
	return u.CompanyID != nil && *u.CompanyID == companyID
}
