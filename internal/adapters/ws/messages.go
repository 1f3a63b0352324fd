package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/outbound"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe    MessageType = "subscribe"
	MessageTypeUnsubscribe  MessageType = "unsubscribe"
	MessageTypePlaceBid     MessageType = "place_bid"
	MessageTypeGetAuction   MessageType = "get_auction"
	MessageTypeListAuctions MessageType = "list_auctions"
	MessageTypePing         MessageType = "ping"

	// Server to Client message types. Auction events keep their event type.
	MessageTypeSubscribed   MessageType = "subscribed"
	MessageTypeUnsubscribed MessageType = "unsubscribed"
	MessageTypeBidAccepted  MessageType = "bid_accepted"
	MessageTypeAuction      MessageType = "auction"
	MessageTypeAuctions     MessageType = "auctions"
	MessageTypeError        MessageType = "error"
	MessageTypePong         MessageType = "pong"
)

// ClientMessage is a request sent by a connected client
type ClientMessage struct {
	Type          MessageType      `json:"type"`
	RequestID     string           `json:"request_id,omitempty"`
	AuctionID     *uuid.UUID       `json:"auction_id,omitempty"`
	AuctionItemID *uuid.UUID       `json:"auction_item_id,omitempty"`
	LastSequence  *int64           `json:"last_sequence,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	State         *auction.State   `json:"state,omitempty"`
	Page          int              `json:"page,omitempty"`
	PageSize      int              `json:"page_size,omitempty"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	AuctionID *uuid.UUID  `json:"auction_id,omitempty"`
	Sequence  int64       `json:"sequence,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *string     `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func NewServerMessage(msgType MessageType, data interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, auctionID *uuid.UUID) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		AuctionID: auctionID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// NewEventMessage wraps a broadcast event for the wire
func NewEventMessage(event outbound.Event) *ServerMessage {
	auctionID := event.AuctionID
	return &ServerMessage{
		Type:      MessageType(event.Type),
		AuctionID: &auctionID,
		Sequence:  event.Sequence,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	}
}

// reply builds a response correlated with the request
func (m *ClientMessage) reply(msgType MessageType, data interface{}) *ServerMessage {
	resp := NewServerMessage(msgType, data)
	resp.RequestID = m.RequestID
	resp.AuctionID = m.AuctionID
	return resp
}

func (m *ClientMessage) replyError(err error) *ServerMessage {
	resp := NewErrorMessage(err.Error(), m.AuctionID)
	resp.RequestID = m.RequestID
	return resp
}

func (m *ClientMessage) validateAuctionID() error {
	if m.AuctionID == nil || *m.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}
	return nil
}

// ParseClientMessage parses a JSON message from client. Unknown fields and
// trailing data are rejected.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg ClientMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to parse client message: trailing data after JSON object")
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe, MessageTypeGetAuction:
		return m.validateAuctionID()
	case MessageTypePlaceBid:
		if m.AuctionItemID == nil || *m.AuctionItemID == uuid.Nil {
			return shared.ErrAuctionItemRequired
		}
		if m.Amount == nil || !m.Amount.IsPositive() {
			return shared.ErrInvalidAmount
		}
	case MessageTypeListAuctions:
		if m.State != nil && !m.State.Valid() {
			return shared.ErrInvalidRequest
		}
	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}
