package rest

import (
	"github.com/labstack/echo/v4"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
)

// SignIn handles POST /auth/sign-in
func (h *Handler) SignIn(c echo.Context) error {
	var req inbound.SignInRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}

	session, err := h.auth.SignIn(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, session)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(c echo.Context) error {
	var req inbound.RefreshRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}

	tokens, err := h.auth.Refresh(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, tokens)
}

// Me handles GET /auth/me
func (h *Handler) Me(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}

	u, err := h.users.GetUser(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return ok(c, u)
}

// CreateTenant handles POST /tenants
func (h *Handler) CreateTenant(c echo.Context) error {
	var req inbound.CreateTenantRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}

	t, err := h.tenants.CreateTenant(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, t)
}

// ListTenants handles GET /tenants
func (h *Handler) ListTenants(c echo.Context) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}

	tenants, err := h.tenants.ListTenants(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return ok(c, tenants)
}

// GetTenant handles GET /tenants/:id. Members only see their own tenant.
func (h *Handler) GetTenant(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if !p.IsAdmin() && p.TenantID != id {
		return shared.ErrTenantNotFound
	}

	t, err := h.tenants.GetTenant(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, t)
}

// CreateCompany handles POST /companies in the resolved tenant
func (h *Handler) CreateCompany(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}

	var req inbound.CreateCompanyRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	req.TenantID = p.TenantID

	company, err := h.companies.CreateCompany(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, company)
}

// ListCompanies handles GET /companies
func (h *Handler) ListCompanies(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	page, err := pageFrom(c)
	if err != nil {
		return err
	}

	companies, err := h.companies.ListCompanies(c.Request().Context(), p.TenantID, page)
	if err != nil {
		return err
	}
	return ok(c, companies)
}

// GetCompany handles GET /companies/:id
func (h *Handler) GetCompany(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	company, err := h.companies.GetCompany(c.Request().Context(), p.TenantID, id)
	if err != nil {
		return err
	}
	return ok(c, company)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(c echo.Context) error {
	var req inbound.CreateUserRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}

	u, err := h.users.CreateUser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, u)
}

// GetUser handles GET /users/:id
func (h *Handler) GetUser(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := selfOrAdmin(p, id); err != nil {
		return err
	}

	u, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, u)
}

// ConnectUser handles POST /user/connect-user-to-company-and-tenant
func (h *Handler) ConnectUser(c echo.Context) error {
	var req inbound.ConnectUserRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}

	u, err := h.users.ConnectUser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, u)
}

// GetCompanyDomain handles GET /users/:id/company-domain
func (h *Handler) GetCompanyDomain(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := selfOrAdmin(p, id); err != nil {
		return err
	}

	domain, err := h.users.GetCompanyDomain(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, domain)
}
