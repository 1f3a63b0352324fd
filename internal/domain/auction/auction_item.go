package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
)

// AuctionItem places an item in an auction. Version increases on every
// accepted bid and guards concurrent placements.
type AuctionItem struct {
	shared.Base
	AuctionID     uuid.UUID       `json:"auction_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	WinningBidID  *uuid.UUID      `json:"winning_bid_id,omitempty"`
	LeadingUserID *uuid.UUID      `json:"leading_user_id,omitempty"`
	State         item.State      `json:"state"`
	Version       int64           `json:"version"`
}

// NewAuctionItem creates an auction item that is open for bids
func NewAuctionItem(auctionID, itemID uuid.UUID, startingPrice decimal.Decimal, now time.Time) *AuctionItem {
	return &AuctionItem{
		Base:          shared.NewBase(now),
		AuctionID:     auctionID,
		ItemID:        itemID,
		StartingPrice: startingPrice,
		CurrentPrice:  startingPrice,
		State:         item.StateOnAuction,
	}
}

// HasBids reports whether an accepted bid leads the item
func (ai *AuctionItem) HasBids() bool {
	return ai.WinningBidID != nil
}

// ValidateOffer checks an offer against the starting price and the current
// leader. The first bid must exceed the starting price; later bids must beat
// the current price by at least minIncrement.
func (ai *AuctionItem) ValidateOffer(offer, minIncrement decimal.Decimal) error {
	if !offer.IsPositive() {
		return shared.ErrBidAmountInvalid
	}
	if !ai.HasBids() {
		if offer.LessThanOrEqual(ai.StartingPrice) {
			return shared.ErrBidAmountBelowStarting
		}
		return nil
	}
	if offer.LessThan(ai.CurrentPrice.Add(minIncrement)) {
		return shared.ErrBidAmountTooLow
	}
	return nil
}

// MinimumNextOffer returns the lowest offer ValidateOffer accepts when
// prices are expressed with the increment's precision
func (ai *AuctionItem) MinimumNextOffer(minIncrement decimal.Decimal) decimal.Decimal {
	if !ai.HasBids() {
		return ai.StartingPrice.Add(minIncrement)
	}
	return ai.CurrentPrice.Add(minIncrement)
}

// Resolve decides the closing state: awarded with a leader, available without
func (ai *AuctionItem) Resolve(now time.Time) error {
	next := item.StateAvailable
	if ai.HasBids() {
		next = item.StateAwarded
	}
	return ai.TransitionTo(next, now)
}

// TransitionTo moves the auction item through the item state machine
func (ai *AuctionItem) TransitionTo(next item.State, now time.Time) error {
	state, err := ai.State.Transition(next)
	if err != nil {
		return err
	}
	ai.State = state
	ai.Touch(now)
	return nil
}
