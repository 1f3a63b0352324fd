package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain-specific errors
var (
	// Tenant errors
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantDomainTaken = errors.New("tenant domain already in use")
	ErrTenantMismatch    = errors.New("resource belongs to another tenant")

	// Company errors
	ErrCompanyNotFound       = errors.New("company not found")
	ErrCompanyTenantMismatch = errors.New("company does not belong to tenant")

	// User errors
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotConnected = errors.New("user is not connected to a company")

	// Auction errors
	ErrAuctionNotFound         = errors.New("auction not found")
	ErrAuctionAlreadyEnded     = errors.New("auction already ended")
	ErrAuctionNotAcceptingBids = errors.New("auction is not accepting bids")
	ErrAuctionNotStarted       = errors.New("auction not started")
	ErrAuctionStartInFuture    = errors.New("auction start time has not been reached")
	ErrAuctionNotEditable      = errors.New("auction can only be edited while inactive")
	ErrAuctionHasNoItems       = errors.New("auction has no items")
	ErrInvalidStartTime        = errors.New("start time cannot be in the past")
	ErrInvalidEndTime          = errors.New("end time must be after start time")
	ErrInvalidStartingPrice    = errors.New("starting price must be greater than 0")
	ErrAuctionItemNotFound     = errors.New("auction item not found")

	// Item errors
	ErrItemNotFound         = errors.New("item not found")
	ErrItemNotAvailable     = errors.New("item is not available")
	ErrItemAlreadyInAuction = errors.New("item is already in an active auction")

	// State machine errors
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrStateConflict     = errors.New("state changed concurrently")

	// Bid errors
	ErrBidAmountTooLow        = errors.New("bid amount must be higher than current highest bid")
	ErrBidAmountInvalid       = errors.New("bid amount must be greater than 0")
	ErrBidAmountBelowStarting = errors.New("bid amount must be higher than starting price")
	ErrBidConflict            = errors.New("auction item changed concurrently")
	ErrBidNotFound            = errors.New("bid not found")
	ErrNoBidsFound            = errors.New("no bids found")
	ErrSelfBid                = errors.New("sellers cannot bid on their own items")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access forbidden")
	ErrInvalidToken = errors.New("invalid token")

	// Validation errors
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrInvalidRequest    = errors.New("invalid request")

	// Database errors
	ErrDatabaseConnection  = errors.New("database connection failed")
	ErrDatabaseQuery       = errors.New("database query failed")
	ErrDatabaseTransaction = errors.New("database transaction failed")

	// WebSocket message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionIDRequired   = errors.New("auction_id is required")
	ErrInvalidAmount       = errors.New("valid amount is required")
	ErrAuctionItemRequired = errors.New("auction_item_id is required")
	ErrUnknownMessageType  = errors.New("unknown message type")

	// Broadcasting errors
	ErrBroadcastFailed   = errors.New("broadcast failed")
	ErrUserNotSubscribed = errors.New("user not subscribed to auction")
	ErrClientTooSlow     = errors.New("client send buffer is full")
)

// Sign-in failures all wrap ErrSignIn so callers can match the family or a member.
var (
	ErrSignIn             = errors.New("sign in failed")
	ErrSignInParse        = fmt.Errorf("%w: malformed credentials", ErrSignIn)
	ErrMemberNotFound     = fmt.Errorf("%w: member not found", ErrSignIn)
	ErrMemberNotActive    = fmt.Errorf("%w: member not active", ErrSignIn)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrSignIn)
)

// ValidationError reports per-field validation failures
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

// NewValidationError builds a ValidationError from a field -> message map
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is(err, ErrInvalidRequest) match validation failures
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
