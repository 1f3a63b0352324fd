package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/tenant"
)

const tenantColumns = `id, name, domain, is_deleted, created_at, updated_at, deleted_at`

// TenantRepository implements the tenant repository interface
type TenantRepository struct {
	conn *Connection
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(conn *Connection) *TenantRepository {
	return &TenantRepository{conn: conn}
}

func scanTenant(row scanner) (*tenant.Tenant, error) {
	var t tenant.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Domain, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create creates a new tenant; a taken domain yields ErrTenantDomainTaken
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `INSERT INTO tenants (` + tenantColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		t.ID, t.Name, t.Domain, t.IsDeleted, t.CreatedAt, t.UpdatedAt, t.DeletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrTenantDomainTaken
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 AND NOT is_deleted`

	t, err := scanTenant(r.conn.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, shared.ErrTenantNotFound, "tenant")
	}
	return t, nil
}

// GetByDomain retrieves a tenant by its subdomain
func (r *TenantRepository) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE domain = $1 AND NOT is_deleted`

	t, err := scanTenant(r.conn.querier(ctx).QueryRowContext(ctx, query, tenant.NormalizeDomain(domain)))
	if err != nil {
		return nil, notFound(err, shared.ErrTenantNotFound, "tenant")
	}
	return t, nil
}

// List retrieves tenants ordered by name
func (r *TenantRepository) List(ctx context.Context, page shared.Page) ([]*tenant.Tenant, error) {
	page = page.Normalize()
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE NOT is_deleted
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*tenant.Tenant, 0, page.Size)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}
	return tenants, nil
}
