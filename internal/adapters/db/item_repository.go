package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/outbound"
)

const itemColumns = `id, tenant_id, company_id, name, description, state, is_deleted, created_at, updated_at, deleted_at`

// ItemRepository implements the item repository interface
type ItemRepository struct {
	conn *Connection
}

// NewItemRepository creates a new item repository
func NewItemRepository(conn *Connection) *ItemRepository {
	return &ItemRepository{conn: conn}
}

func scanItem(row scanner) (*item.Item, error) {
	var i item.Item
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.CompanyID,
		&i.Name,
		&i.Description,
		&i.State,
		&i.IsDeleted,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create creates a new item
func (r *ItemRepository) Create(ctx context.Context, i *item.Item) error {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		i.ID,
		i.TenantID,
		i.CompanyID,
		i.Name,
		i.Description,
		i.State,
		i.IsDeleted,
		i.CreatedAt,
		i.UpdatedAt,
		i.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by ID. Deleted items are not found.
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 AND NOT is_deleted`

	i, err := scanItem(r.conn.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, shared.ErrItemNotFound, "item")
	}
	return i, nil
}

// List retrieves items matching the filter, newest first
func (r *ItemRepository) List(ctx context.Context, filter outbound.ItemFilter) ([]*item.Item, error) {
	page := filter.Page.Normalize()

	query := `SELECT ` + itemColumns + ` FROM items WHERE tenant_id = $1 AND NOT is_deleted`
	args := []interface{}{filter.TenantID}

	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		query += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	if filter.State != nil {
		args = append(args, *filter.State)
		query += fmt.Sprintf(" AND state = $%d", len(args))
	}

	args = append(args, page.Size, page.Offset())
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]*item.Item, 0, page.Size)
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, i)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// UpdateState moves an item from one state to another. Moving to Eliminado
// also soft-deletes the row.
func (r *ItemRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to item.State, now time.Time) error {
	query := `
		UPDATE items
		SET state = $1,
			updated_at = $2,
			is_deleted = $5,
			deleted_at = CASE WHEN $5 THEN $2 ELSE deleted_at END
		WHERE id = $3 AND state = $4 AND NOT is_deleted
	`

	deleted := to == item.StateDeleted
	result, err := r.conn.querier(ctx).ExecContext(ctx, query, to, now, id, from, deleted)
	if err != nil {
		return fmt.Errorf("failed to update item state: %w", err)
	}
	return expectOne(result, shared.ErrStateConflict)
}
