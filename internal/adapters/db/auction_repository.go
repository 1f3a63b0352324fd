package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/shared"
)

const auctionColumns = `id, tenant_id, company_id, title, description, type, state, start_time, end_time,
		is_deleted, created_at, updated_at, deleted_at`

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

func scanAuction(row scanner) (*auction.Auction, error) {
	var a auction.Auction
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.CompanyID,
		&a.Title,
		&a.Description,
		&a.Type,
		&a.State,
		&a.StartTime,
		&a.EndTime,
		&a.IsDeleted,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create creates a new auction
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		a.ID,
		a.TenantID,
		a.CompanyID,
		a.Title,
		a.Description,
		a.Type,
		a.State,
		a.StartTime,
		a.EndTime,
		a.IsDeleted,
		a.CreatedAt,
		a.UpdatedAt,
		a.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 AND NOT is_deleted`

	a, err := scanAuction(r.conn.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, shared.ErrAuctionNotFound, "auction")
	}
	return a, nil
}

// List retrieves a tenant's auctions with an optional state filter
func (r *AuctionRepository) List(ctx context.Context, tenantID uuid.UUID, state *auction.State, page shared.Page) ([]*auction.Auction, error) {
	page = page.Normalize()

	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE tenant_id = $1 AND NOT is_deleted`
	args := []interface{}{tenantID}

	if state != nil {
		args = append(args, *state)
		query += fmt.Sprintf(" AND state = $%d", len(args))
	}

	args = append(args, page.Size, page.Offset())
	query += fmt.Sprintf(" ORDER BY start_time DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	auctions := make([]*auction.Auction, 0, page.Size)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

// UpdateState moves an auction from one state to another
func (r *AuctionRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to auction.State, now time.Time) error {
	query := `
		UPDATE auctions
		SET state = $1, updated_at = $2
		WHERE id = $3 AND state = $4 AND NOT is_deleted
	`

	result, err := r.conn.querier(ctx).ExecContext(ctx, query, to, now, id, from)
	if err != nil {
		return fmt.Errorf("failed to update auction state: %w", err)
	}
	return expectOne(result, shared.ErrStateConflict)
}
