package outbound

import (
	"context"

	"github.com/google/uuid"
)

// EventType represents the type of event being broadcasted
type EventType string

const (
	EventTypeAuctionCreated   EventType = "auction.created"
	EventTypeAuctionStarted   EventType = "auction.started"
	EventTypeAuctionCompleted EventType = "auction.completed"
	EventTypeAuctionCancelled EventType = "auction.cancelled"
	EventTypeItemAwarded      EventType = "item.awarded"
	EventTypeBidPlaced        EventType = "bid.placed"
	EventTypeBidOutbid        EventType = "bid.outbid"
	EventTypeError            EventType = "error"
)

// Event represents a broadcast event. Sequence is assigned on publish and
// increases per auction.
type Event struct {
	Type      EventType              `json:"type"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Sequence  int64                  `json:"sequence"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Publisher publishes auction events
type Publisher interface {
	// Publish publishes an event to all subscribers of an auction
	Publish(ctx context.Context, auctionID uuid.UUID, event Event) error
}

// Broadcaster fans auction events out to locally connected clients
type Broadcaster interface {
	Publisher

	// Subscribe subscribes a client to events for a specific auction
	// When a client subscribes to multiple auctions, all events are delivered to the same channel
	Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan Event) error

	// Unsubscribe unsubscribes a client from events for a specific auction
	Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error

	// UnsubscribeAll removes a client from every room it joined
	UnsubscribeAll(ctx context.Context, clientID string)

	// GetSubscribers returns the list of client IDs subscribed to an auction
	GetSubscribers(ctx context.Context, auctionID uuid.UUID) ([]string, error)

	// IsSubscribed checks if a client is subscribed to an auction
	IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool
}

// EventJournal keeps recent events per auction for reconnect reconciliation
type EventJournal interface {
	// Since returns journaled events with a sequence greater than after, oldest first
	Since(ctx context.Context, auctionID uuid.UUID, after int64) ([]Event, error)
}
