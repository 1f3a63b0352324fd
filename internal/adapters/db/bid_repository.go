package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/bid"
	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
)

const bidColumns = `id, auction_item_id, auction_id, user_id, offered_price, bid_time, status,
		is_deleted, created_at, updated_at, deleted_at`

// BidRepository implements the bid repository interface
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

func scanBid(row scanner) (*bid.Bid, error) {
	var b bid.Bid
	err := row.Scan(
		&b.ID,
		&b.AuctionItemID,
		&b.AuctionID,
		&b.UserID,
		&b.OfferedPrice,
		&b.BidTime,
		&b.Status,
		&b.IsDeleted,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID retrieves a bid by ID
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1 AND NOT is_deleted`

	b, err := scanBid(r.conn.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, shared.ErrBidNotFound, "bid")
	}
	return b, nil
}

// ListByAuctionItem retrieves all bids for an auction item, best first
func (r *BidRepository) ListByAuctionItem(ctx context.Context, auctionItemID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_item_id = $1 AND NOT is_deleted
		ORDER BY offered_price DESC, bid_time ASC
	`

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, auctionItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// GetHighestBid retrieves the highest accepted bid for an auction item.
// Ties go to the earliest bid.
func (r *BidRepository) GetHighestBid(ctx context.Context, auctionItemID uuid.UUID) (*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_item_id = $1 AND status = $2 AND NOT is_deleted
		ORDER BY offered_price DESC, bid_time ASC
		LIMIT 1
	`

	b, err := scanBid(r.conn.querier(ctx).QueryRowContext(ctx, query, auctionItemID, bid.StatusAccepted))
	if err != nil {
		return nil, notFound(err, shared.ErrNoBidsFound, "highest bid")
	}
	return b, nil
}

// RejectByAuction marks every accepted bid of an auction as rejected
func (r *BidRepository) RejectByAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) (int64, error) {
	query := `
		UPDATE bids
		SET status = $1, updated_at = $2
		WHERE auction_id = $3 AND status = $4 AND NOT is_deleted
	`

	result, err := r.conn.querier(ctx).ExecContext(ctx, query, bid.StatusRejected, now, auctionID, bid.StatusAccepted)
	if err != nil {
		return 0, fmt.Errorf("failed to reject bids: %w", err)
	}

	rejected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rejected, nil
}

/*
PlaceBidWithOCC places a bid using optimistic concurrency control.
 1. Share-locking the auction row so it cannot close mid-placement
 2. Inserting the bid
 3. Advancing the auction item only if its version is still expectedVersion
 4. Failing with ErrBidConflict when anything moved underneath
*/
func (r *BidRepository) PlaceBidWithOCC(ctx context.Context, newBid *bid.Bid, expectedVersion int64) error {
	return r.conn.WithTx(ctx, func(ctx context.Context) error {
		q := r.conn.querier(ctx)

		var state auction.State
		err := q.QueryRowContext(ctx,
			`SELECT state FROM auctions WHERE id = $1 AND NOT is_deleted FOR SHARE`,
			newBid.AuctionID,
		).Scan(&state)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to get auction for OCC: %w", err)
		}

		if state != auction.StateActive {
			return shared.ErrBidConflict
		}

		bidQuery := `
			INSERT INTO bids (` + bidColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`

		_, err = q.ExecContext(ctx, bidQuery,
			newBid.ID,
			newBid.AuctionItemID,
			newBid.AuctionID,
			newBid.UserID,
			newBid.OfferedPrice,
			newBid.BidTime,
			newBid.Status,
			newBid.IsDeleted,
			newBid.CreatedAt,
			newBid.UpdatedAt,
			newBid.DeletedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		updateQuery := `
			UPDATE auction_items
			SET current_price = $1, winning_bid_id = $2, leading_user_id = $3,
				version = version + 1, updated_at = $4
			WHERE id = $5 AND version = $6 AND state = $7 AND NOT is_deleted
		`

		result, err := q.ExecContext(ctx, updateQuery,
			newBid.OfferedPrice,
			newBid.ID,
			newBid.UserID,
			newBid.BidTime,
			newBid.AuctionItemID,
			expectedVersion,
			item.StateOnAuction,
		)
		if err != nil {
			return fmt.Errorf("failed to advance auction item: %w", err)
		}

		// Zero rows means another bid or a close won the race
		return expectOne(result, shared.ErrBidConflict)
	})
}
