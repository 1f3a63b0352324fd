package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
)

const auctionItemColumns = `id, auction_id, item_id, starting_price, current_price, winning_bid_id, leading_user_id,
		state, version, is_deleted, created_at, updated_at, deleted_at`

// AuctionItemRepository implements the auction item repository interface
type AuctionItemRepository struct {
	conn *Connection
}

// NewAuctionItemRepository creates a new auction item repository
func NewAuctionItemRepository(conn *Connection) *AuctionItemRepository {
	return &AuctionItemRepository{conn: conn}
}

func scanAuctionItem(row scanner) (*auction.AuctionItem, error) {
	var ai auction.AuctionItem
	err := row.Scan(
		&ai.ID,
		&ai.AuctionID,
		&ai.ItemID,
		&ai.StartingPrice,
		&ai.CurrentPrice,
		&ai.WinningBidID,
		&ai.LeadingUserID,
		&ai.State,
		&ai.Version,
		&ai.IsDeleted,
		&ai.CreatedAt,
		&ai.UpdatedAt,
		&ai.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ai, nil
}

// Create creates a new auction item
func (r *AuctionItemRepository) Create(ctx context.Context, ai *auction.AuctionItem) error {
	query := `
		INSERT INTO auction_items (` + auctionItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		ai.ID,
		ai.AuctionID,
		ai.ItemID,
		ai.StartingPrice,
		ai.CurrentPrice,
		ai.WinningBidID,
		ai.LeadingUserID,
		ai.State,
		ai.Version,
		ai.IsDeleted,
		ai.CreatedAt,
		ai.UpdatedAt,
		ai.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrItemAlreadyInAuction
		}
		return fmt.Errorf("failed to create auction item: %w", err)
	}

	return nil
}

// GetByID retrieves an auction item by ID
func (r *AuctionItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.AuctionItem, error) {
	query := `SELECT ` + auctionItemColumns + ` FROM auction_items WHERE id = $1 AND NOT is_deleted`

	ai, err := scanAuctionItem(r.conn.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, shared.ErrAuctionItemNotFound, "auction item")
	}
	return ai, nil
}

// ListByAuction retrieves the items of an auction in insertion order
func (r *AuctionItemRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.AuctionItem, error) {
	query := `
		SELECT ` + auctionItemColumns + `
		FROM auction_items
		WHERE auction_id = $1 AND NOT is_deleted
		ORDER BY created_at, id
	`

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auction items: %w", err)
	}
	defer rows.Close()

	var items []*auction.AuctionItem
	for rows.Next() {
		ai, err := scanAuctionItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction item: %w", err)
		}
		items = append(items, ai)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auction items: %w", err)
	}

	return items, nil
}

// UpdateState moves an auction item from one state to another. The version
// is bumped so an in-flight bid on the old state loses its OCC check.
func (r *AuctionItemRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to item.State, now time.Time) error {
	query := `
		UPDATE auction_items
		SET state = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND state = $4 AND NOT is_deleted
	`

	result, err := r.conn.querier(ctx).ExecContext(ctx, query, to, now, id, from)
	if err != nil {
		return fmt.Errorf("failed to update auction item state: %w", err)
	}
	return expectOne(result, shared.ErrStateConflict)
}
