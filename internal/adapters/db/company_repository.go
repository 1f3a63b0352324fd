package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/company"
	"subastas-marketplace/internal/domain/shared"
)

const companyColumns = `id, tenant_id, name, rut, email, phone, is_deleted, created_at, updated_at, deleted_at`

// CompanyRepository implements the company repository interface
type CompanyRepository struct {
	conn *Connection
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(conn *Connection) *CompanyRepository {
	return &CompanyRepository{conn: conn}
}

func scanCompany(row scanner) (*company.Company, error) {
	var c company.Company
	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.RUT,
		&c.Email,
		&c.Phone,
		&c.IsDeleted,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create creates a new company
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) error {
	query := `INSERT INTO companies (` + companyColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		c.ID, c.TenantID, c.Name, c.RUT, c.Email, c.Phone, c.IsDeleted, c.CreatedAt, c.UpdatedAt, c.DeletedAt)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 AND NOT is_deleted`

	c, err := scanCompany(r.conn.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, shared.ErrCompanyNotFound, "company")
	}
	return c, nil
}

// List retrieves a tenant's companies ordered by name
func (r *CompanyRepository) List(ctx context.Context, tenantID uuid.UUID, page shared.Page) ([]*company.Company, error) {
	page = page.Normalize()
	query := `
		SELECT ` + companyColumns + `
		FROM companies
		WHERE tenant_id = $1 AND NOT is_deleted
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, tenantID, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]*company.Company, 0, page.Size)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}
	return companies, nil
}
