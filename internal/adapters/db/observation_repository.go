package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/observation"
)

// ObservationRepository implements the observation repository interface
type ObservationRepository struct {
	conn *Connection
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(conn *Connection) *ObservationRepository {
	return &ObservationRepository{conn: conn}
}

// Create creates a new observation
func (r *ObservationRepository) Create(ctx context.Context, o *observation.Observation) error {
	query := `
		INSERT INTO observations (id, auction_item_id, user_id, comment, is_deleted, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		o.ID, o.AuctionItemID, o.UserID, o.Comment, o.IsDeleted, o.CreatedAt, o.UpdatedAt, o.DeletedAt)
	if err != nil {
		return fmt.Errorf("failed to create observation: %w", err)
	}
	return nil
}

// ListByAuctionItem retrieves an auction item's observations, oldest first
func (r *ObservationRepository) ListByAuctionItem(ctx context.Context, auctionItemID uuid.UUID) ([]*observation.Observation, error) {
	query := `
		SELECT id, auction_item_id, user_id, comment, is_deleted, created_at, updated_at, deleted_at
		FROM observations
		WHERE auction_item_id = $1 AND NOT is_deleted
		ORDER BY created_at, id
	`

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, auctionItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	var observations []*observation.Observation
	for rows.Next() {
		var o observation.Observation
		if err := rows.Scan(&o.ID, &o.AuctionItemID, &o.UserID, &o.Comment, &o.IsDeleted, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, &o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}
	return observations, nil
}
