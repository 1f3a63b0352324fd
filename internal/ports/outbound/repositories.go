package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/bid"
	"subastas-marketplace/internal/domain/company"
	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/observation"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/tenant"
	"subastas-marketplace/internal/domain/user"
)

// Transactor runs fn in a database transaction carried by the context.
// Repositories called with that context join the transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TenantRepository defines the interface for tenant data operations
type TenantRepository interface {
	Create(ctx context.Context, t *tenant.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error)
	List(ctx context.Context, page shared.Page) ([]*tenant.Tenant, error)
}

// CompanyRepository defines the interface for company data operations
type CompanyRepository interface {
	Create(ctx context.Context, c *company.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*company.Company, error)
	List(ctx context.Context, tenantID uuid.UUID, page shared.Page) ([]*company.Company, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*user.User, error)

	// Create creates a new user
	Create(ctx context.Context, u *user.User) error

	// Update persists profile and membership changes
	Update(ctx context.Context, u *user.User) error
}

// ItemFilter narrows an item listing
type ItemFilter struct {
	TenantID  uuid.UUID
	CompanyID *uuid.UUID
	State     *item.State
	Page      shared.Page
}

// ItemRepository defines the interface for item data operations
type ItemRepository interface {
	// Create creates a new item
	Create(ctx context.Context, i *item.Item) error

	// GetByID retrieves an item by ID
	GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error)

	// List retrieves items matching the filter
	List(ctx context.Context, filter ItemFilter) ([]*item.Item, error)

	// UpdateState moves an item from one state to another, failing with
	// ErrStateConflict when the stored state is no longer from
	UpdateState(ctx context.Context, id uuid.UUID, from, to item.State, now time.Time) error
}

// AuctionRepository defines the interface for auction data operations
type AuctionRepository interface {
	// Create creates a new auction
	Create(ctx context.Context, a *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// List retrieves a tenant's auctions with an optional state filter
	List(ctx context.Context, tenantID uuid.UUID, state *auction.State, page shared.Page) ([]*auction.Auction, error)

	// UpdateState moves an auction from one state to another, failing with
	// ErrStateConflict when the stored state is no longer from
	UpdateState(ctx context.Context, id uuid.UUID, from, to auction.State, now time.Time) error
}

// AuctionItemRepository defines the interface for auction item data operations
type AuctionItemRepository interface {
	Create(ctx context.Context, ai *auction.AuctionItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*auction.AuctionItem, error)
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.AuctionItem, error)

	// UpdateState moves an auction item from one state to another, failing
	// with ErrStateConflict when the stored state is no longer from
	UpdateState(ctx context.Context, id uuid.UUID, from, to item.State, now time.Time) error
}

// BidRepository defines the interface for bid data operations
type BidRepository interface {
	// GetByID retrieves a bid by ID
	GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error)

	// ListByAuctionItem retrieves bids ordered by price desc, time asc
	ListByAuctionItem(ctx context.Context, auctionItemID uuid.UUID) ([]*bid.Bid, error)

	// GetHighestBid retrieves the highest accepted bid for an auction item
	GetHighestBid(ctx context.Context, auctionItemID uuid.UUID) (*bid.Bid, error)

	// RejectByAuction marks every accepted bid of an auction as rejected
	RejectByAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) (int64, error)

	// PlaceBidWithOCC inserts the bid and advances the auction item in one
	// transaction, failing with ErrBidConflict when the item's version is no
	// longer expectedVersion or bidding has closed
	PlaceBidWithOCC(ctx context.Context, b *bid.Bid, expectedVersion int64) error
}

// ObservationRepository defines the interface for observation data operations
type ObservationRepository interface {
	Create(ctx context.Context, o *observation.Observation) error
	ListByAuctionItem(ctx context.Context, auctionItemID uuid.UUID) ([]*observation.Observation, error)
}
