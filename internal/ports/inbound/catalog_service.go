package inbound

import (
	"context"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/observation"
	"subastas-marketplace/internal/domain/shared"
)

// ItemService manages the items companies put up for auction
type ItemService interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (*item.Item, error)
	GetItem(ctx context.Context, tenantID, id uuid.UUID) (*item.Item, error)
	ListItems(ctx context.Context, req ListItemsRequest) ([]*item.Item, error)

	// SubmitForReview moves an available item to review
	SubmitForReview(ctx context.Context, actor Principal, id uuid.UUID) (*item.Item, error)

	// ApproveItem returns a reviewed item to available. Admin only.
	ApproveItem(ctx context.Context, actor Principal, id uuid.UUID) (*item.Item, error)

	// DeleteItem soft-deletes an item
	DeleteItem(ctx context.Context, actor Principal, id uuid.UUID) error
}

// ObservationService stores comments on auction items
type ObservationService interface {
	AddObservation(ctx context.Context, req CreateObservationRequest) (*observation.Observation, error)
	ListObservations(ctx context.Context, tenantID, auctionItemID uuid.UUID) ([]*observation.Observation, error)
}

// request to create an item
type CreateItemRequest struct {
	Actor       Principal `json:"-"`
	CompanyID   uuid.UUID `json:"company_id"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=4000"`
}

// request to list items
type ListItemsRequest struct {
	TenantID  uuid.UUID   `json:"-"`
	CompanyID *uuid.UUID  `json:"company_id,omitempty"`
	State     *item.State `json:"state,omitempty"`
	Page      shared.Page `json:"page"`
}

// request to comment on an auction item
type CreateObservationRequest struct {
	TenantID      uuid.UUID `json:"-"`
	UserID        uuid.UUID `json:"-"`
	AuctionItemID uuid.UUID `json:"-"`
	Comment       string    `json:"comment" validate:"required,max=2000"`
}
