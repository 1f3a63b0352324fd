package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/user"
)

const userColumns = `id, email, name, phone, role, is_active, company_id, tenant_id, password_hash,
		is_deleted, created_at, updated_at, deleted_at`

// UserRepository implements the user repository interface
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new user repository
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

func scanUser(row scanner) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Phone,
		&u.Role,
		&u.IsActive,
		&u.CompanyID,
		&u.TenantID,
		&u.PasswordHash,
		&u.IsDeleted,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND NOT is_deleted`

	u, err := scanUser(r.conn.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, shared.ErrUserNotFound, "user")
	}
	return u, nil
}

// GetByEmail retrieves a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND NOT is_deleted`

	u, err := scanUser(r.conn.querier(ctx).QueryRowContext(ctx, query, user.NormalizeEmail(email)))
	if err != nil {
		return nil, notFound(err, shared.ErrUserNotFound, "user")
	}
	return u, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.Phone,
		u.Role,
		u.IsActive,
		u.CompanyID,
		u.TenantID,
		u.PasswordHash,
		u.IsDeleted,
		u.CreatedAt,
		u.UpdatedAt,
		u.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Update persists profile and membership changes
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET name = $1, phone = $2, role = $3, is_active = $4, company_id = $5, tenant_id = $6,
			password_hash = $7, updated_at = $8
		WHERE id = $9 AND NOT is_deleted
	`

	result, err := r.conn.querier(ctx).ExecContext(ctx, query,
		u.Name,
		u.Phone,
		u.Role,
		u.IsActive,
		u.CompanyID,
		u.TenantID,
		u.PasswordHash,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOne(result, shared.ErrUserNotFound)
}
