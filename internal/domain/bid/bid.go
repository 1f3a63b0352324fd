package bid

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subastas-marketplace/internal/domain/shared"
)

// Status represents the status of a bid
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Bid represents an offer on an auction item
type Bid struct {
	shared.Base
	AuctionItemID uuid.UUID       `json:"auction_item_id"`
	AuctionID     uuid.UUID       `json:"auction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	OfferedPrice  decimal.Decimal `json:"offered_price"`
	BidTime       time.Time       `json:"bid_time"`
	Status        Status          `json:"status"`
}

// New creates an accepted bid stamped at now
func New(auctionID, auctionItemID, userID uuid.UUID, offered decimal.Decimal, now time.Time) *Bid {
	return &Bid{
		Base:          shared.NewBase(now),
		AuctionItemID: auctionItemID,
		AuctionID:     auctionID,
		UserID:        userID,
		OfferedPrice:  offered,
		BidTime:       now,
		Status:        StatusAccepted,
	}
}

// IsValid returns true if the offered price is greater than 0
func (b *Bid) IsValid() bool {
	return b.OfferedPrice.IsPositive()
}

// Reject marks the bid as rejected
func (b *Bid) Reject(now time.Time) {
	b.Status = StatusRejected
	b.Touch(now)
}

// IsAccepted returns true if the bid was accepted
func (b *Bid) IsAccepted() bool {
	return b.Status == StatusAccepted
}
