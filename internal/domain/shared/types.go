package shared

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionItemResult is the outcome of a single auction item when its auction closes
type AuctionItemResult struct {
	AuctionItemID uuid.UUID        `json:"auction_item_id"`
	ItemID        uuid.UUID        `json:"item_id"`
	WinnerID      *uuid.UUID       `json:"winner_id,omitempty"`
	WinningBidID  *uuid.UUID       `json:"winning_bid_id,omitempty"`
	FinalPrice    *decimal.Decimal `json:"final_price,omitempty"`
	State         string           `json:"state"`
}

// AuctionCloseResult represents the result of ending an auction
type AuctionCloseResult struct {
	AuctionID uuid.UUID           `json:"auction_id"`
	TenantID  uuid.UUID           `json:"tenant_id"`
	Status    string              `json:"status"`
	Items     []AuctionItemResult `json:"items"`
}

// Page describes a pagination window
type Page struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
}

// Normalize applies defaults and clamps the page size
func (p Page) Normalize() Page {
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = 10
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Offset returns the row offset for the page
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
