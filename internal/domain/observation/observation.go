package observation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/shared"
)

// MaxCommentLength bounds an observation comment
const MaxCommentLength = 2000

// Observation is a comment a user leaves on an auction item
type Observation struct {
	shared.Base
	AuctionItemID uuid.UUID `json:"auction_item_id"`
	UserID        uuid.UUID `json:"user_id"`
	Comment       string    `json:"comment"`
}

// New creates an observation with a trimmed comment
func New(auctionItemID, userID uuid.UUID, comment string, now time.Time) *Observation {
	return &Observation{
		Base:          shared.NewBase(now),
		AuctionItemID: auctionItemID,
		UserID:        userID,
		Comment:       strings.TrimSpace(comment),
	}
}
