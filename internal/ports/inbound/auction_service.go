package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/bid"
	"subastas-marketplace/internal/domain/shared"
)

// AuctionService defines the interface for auction operations
type AuctionService interface {
	// CreateAuction creates a new inactive auction and schedules its start and end
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// AddItem places an available item into an inactive auction
	AddItem(ctx context.Context, req AddAuctionItemRequest) (*auction.AuctionItem, error)

	// GetAuction retrieves an auction with its items
	GetAuction(ctx context.Context, tenantID, auctionID uuid.UUID) (*AuctionDetails, error)

	// ListAuctions retrieves a page of auctions in a tenant
	ListAuctions(ctx context.Context, req ListAuctionsRequest) ([]*auction.Auction, error)

	// StartAuction opens an inactive auction for bidding
	StartAuction(ctx context.Context, actor Principal, auctionID uuid.UUID) (*auction.Auction, error)

	// CloseAuction completes an active auction and awards its items
	CloseAuction(ctx context.Context, actor Principal, auctionID uuid.UUID) (*shared.AuctionCloseResult, error)

	// CancelAuction cancels an auction and releases its items
	CancelAuction(ctx context.Context, actor Principal, auctionID uuid.UUID) (*shared.AuctionCloseResult, error)

	// ConfirmSale marks an awarded auction item as sold
	ConfirmSale(ctx context.Context, actor Principal, auctionItemID uuid.UUID) (*auction.AuctionItem, error)
}

// AuctionLifecycle is driven by the scheduler when start or end times pass
type AuctionLifecycle interface {
	// StartScheduled opens the auction if it is still inactive
	StartScheduled(ctx context.Context, auctionID uuid.UUID) error

	// ExpireScheduled closes an active auction or cancels one that never opened
	ExpireScheduled(ctx context.Context, auctionID uuid.UUID) error
}

// BidService defines the interface for bid operations
type BidService interface {
	// PlaceBid places a new bid on an auction item
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*bid.Bid, error)

	// ListBids retrieves bids for an auction item, highest first
	ListBids(ctx context.Context, tenantID, auctionItemID uuid.UUID) ([]*bid.Bid, error)

	// GetHighestBid retrieves the leading bid for an auction item
	GetHighestBid(ctx context.Context, tenantID, auctionItemID uuid.UUID) (*bid.Bid, error)
}

// AuctionDetails is an auction together with its items
type AuctionDetails struct {
	*auction.Auction
	Items []*auction.AuctionItem `json:"items"`
}

// request to create an auction
type CreateAuctionRequest struct {
	Actor       Principal    `json:"-"`
	CompanyID   uuid.UUID    `json:"company_id"`
	Title       string       `json:"title" validate:"required,max=200"`
	Description string       `json:"description" validate:"max=4000"`
	Type        auction.Type `json:"type" validate:"omitempty,oneof=Prueba Real"`
	StartTime   time.Time    `json:"start_time" validate:"required"`
	EndTime     time.Time    `json:"end_time" validate:"required,gtfield=StartTime"`
}

// request to add an item to an auction
type AddAuctionItemRequest struct {
	Actor         Principal       `json:"-"`
	AuctionID     uuid.UUID       `json:"-"`
	ItemID        uuid.UUID       `json:"item_id" validate:"required"`
	StartingPrice decimal.Decimal `json:"starting_price" validate:"gt=0"`
}

// request to list auctions
type ListAuctionsRequest struct {
	TenantID uuid.UUID      `json:"-"`
	State    *auction.State `json:"state,omitempty"`
	Page     shared.Page    `json:"page"`
}

// request to place a bid
type PlaceBidRequest struct {
	TenantID      uuid.UUID       `json:"-"`
	UserID        uuid.UUID       `json:"-"`
	AuctionItemID uuid.UUID       `json:"-"`
	ClientID      string          `json:"-"`
	OfferedPrice  decimal.Decimal `json:"offered_price" validate:"gt=0"`
}
