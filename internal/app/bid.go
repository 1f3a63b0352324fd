package app

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/bid"
	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/user"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

const (
	bidOutcomeAccepted = "accepted"
	bidOutcomeRejected = "rejected"
	bidOutcomeConflict = "conflict"
)

// BidService implements the bid use cases
type BidService struct {
	bidRepo         outbound.BidRepository
	auctionRepo     outbound.AuctionRepository
	auctionItemRepo outbound.AuctionItemRepository
	userRepo        outbound.UserRepository
	publisher       outbound.Publisher
	metrics         outbound.BidMetrics
	locks           *KeyLock
	minIncrement    decimal.Decimal
	maxRetries      uint64
	now             Clock
	logger          zerolog.Logger
}

type BidServiceParams struct {
	BidRepo         outbound.BidRepository
	AuctionRepo     outbound.AuctionRepository
	AuctionItemRepo outbound.AuctionItemRepository
	UserRepo        outbound.UserRepository
	Publisher       outbound.Publisher
	Metrics         outbound.BidMetrics
	Locks           *KeyLock
	MinIncrement    decimal.Decimal
	MaxRetries      uint64
	Clock           Clock
	Logger          zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	minIncrement := params.MinIncrement
	if !minIncrement.IsPositive() {
		minIncrement = decimal.NewFromInt(1)
	}
	locks := params.Locks
	if locks == nil {
		locks = NewKeyLock(0)
	}
	maxRetries := params.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	return &BidService{
		bidRepo:         params.BidRepo,
		auctionRepo:     params.AuctionRepo,
		auctionItemRepo: params.AuctionItemRepo,
		userRepo:        params.UserRepo,
		publisher:       params.Publisher,
		metrics:         params.Metrics,
		locks:           locks,
		minIncrement:    minIncrement,
		maxRetries:      maxRetries,
		now:             clockOrDefault(params.Clock),
		logger:          params.Logger.With().Str("component", "bid_service").Logger(),
	}
}

// placement is what one successful OCC attempt observed
type placement struct {
	bid            *bid.Bid
	auction        *auction.Auction
	previousLeader *uuid.UUID
	previousPrice  decimal.Decimal
	version        int64
}

// PlaceBid places a new bid on an auction item. Conflicting placements from
// other nodes are retried with backoff after re-validating the fresh state.
func (s *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	s.logger.Info().
		Str("auction_item_id", req.AuctionItemID.String()).
		Str("user_id", req.UserID.String()).
		Str("offered_price", req.OfferedPrice.String()).
		Msg("Attempting to place bid")

	if !req.OfferedPrice.IsPositive() {
		s.observe(bidOutcomeRejected, 0)
		return nil, shared.ErrBidAmountInvalid
	}

	bidder, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID.String()).Msg("User not found")
		return nil, err
	}
	if !bidder.IsActive {
		s.observe(bidOutcomeRejected, 0)
		return nil, shared.ErrForbidden
	}

	unlock, err := s.locks.Lock(ctx, req.AuctionItemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		placed   *placement
		attempts int
	)
	op := func() error {
		attempts++
		p, err := s.tryPlace(ctx, req, bidder)
		if err == nil {
			placed = p
			return nil
		}
		if errors.Is(err, shared.ErrBidConflict) {
			s.logger.Debug().
				Str("auction_item_id", req.AuctionItemID.String()).
				Int("attempt", attempts).
				Msg("Bid conflicted with a concurrent placement, retrying")
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, s.retryPolicy(ctx)); err != nil {
		outcome := bidOutcomeRejected
		if errors.Is(err, shared.ErrBidConflict) {
			outcome = bidOutcomeConflict
		}
		s.observe(outcome, attempts)
		s.logger.Warn().Err(err).
			Str("auction_item_id", req.AuctionItemID.String()).
			Str("user_id", req.UserID.String()).
			Int("attempts", attempts).
			Msg("Bid not placed")
		return nil, err
	}
	s.observe(bidOutcomeAccepted, attempts)

	s.logger.Info().
		Str("bid_id", placed.bid.ID.String()).
		Str("auction_item_id", req.AuctionItemID.String()).
		Str("user_id", req.UserID.String()).
		Str("offered_price", placed.bid.OfferedPrice.String()).
		Int("attempts", attempts).
		Msg("Bid placed successfully")

	s.broadcast(ctx, req.ClientID, placed)
	return placed.bid, nil
}

func (s *BidService) tryPlace(ctx context.Context, req inbound.PlaceBidRequest, bidder *user.User) (*placement, error) {
	ai, a, err := s.loadInTenant(ctx, req.TenantID, req.AuctionItemID)
	if err != nil {
		return nil, err
	}

	if !bidder.BelongsToTenant(a.TenantID) {
		return nil, shared.ErrForbidden
	}

	now := s.now()
	if !a.CanBid(now) {
		if a.IsActive() && !a.AuctionStarted(now) {
			return nil, shared.ErrAuctionNotStarted
		}
		return nil, shared.ErrAuctionNotAcceptingBids
	}
	if ai.State != item.StateOnAuction {
		return nil, shared.ErrAuctionNotAcceptingBids
	}
	if bidder.BelongsToCompany(a.CompanyID) {
		return nil, shared.ErrSelfBid
	}
	if err := ai.ValidateOffer(req.OfferedPrice, s.minIncrement); err != nil {
		return nil, err
	}

	b := bid.New(a.ID, ai.ID, bidder.ID, req.OfferedPrice, now)
	if err := s.bidRepo.PlaceBidWithOCC(ctx, b, ai.Version); err != nil {
		return nil, err
	}

	return &placement{
		bid:            b,
		auction:        a,
		previousLeader: ai.LeadingUserID,
		previousPrice:  ai.CurrentPrice,
		version:        ai.Version + 1,
	}, nil
}

func (s *BidService) retryPolicy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 10 * time.Millisecond
	exp.MaxInterval = 250 * time.Millisecond
	exp.MaxElapsedTime = 3 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(exp, s.maxRetries), ctx)
}

// broadcast publishes bid.placed and, when the lead changed hands, bid.outbid.
// Failures are logged and never fail the bid.
func (s *BidService) broadcast(ctx context.Context, clientID string, p *placement) {
	if s.publisher == nil {
		return
	}

	b := p.bid
	events := []outbound.Event{{
		Type:      outbound.EventTypeBidPlaced,
		AuctionID: b.AuctionID,
		Data: map[string]interface{}{
			"bid_id":          b.ID,
			"auction_item_id": b.AuctionItemID,
			"user_id":         b.UserID,
			"offered_price":   b.OfferedPrice,
			"current_price":   b.OfferedPrice,
			"bid_time":        b.BidTime,
			"version":         p.version,
			"client_id":       clientID,
		},
		Timestamp: b.BidTime.Unix(),
	}}

	if p.previousLeader != nil && *p.previousLeader != b.UserID {
		events = append(events, outbound.Event{
			Type:      outbound.EventTypeBidOutbid,
			AuctionID: b.AuctionID,
			Data: map[string]interface{}{
				"auction_item_id":    b.AuctionItemID,
				"previous_bidder_id": *p.previousLeader,
				"previous_price":     p.previousPrice,
				"bid_id":             b.ID,
				"user_id":            b.UserID,
				"offered_price":      b.OfferedPrice,
			},
			Timestamp: b.BidTime.Unix(),
		})
	}

	for _, event := range events {
		if err := s.publisher.Publish(ctx, b.AuctionID, event); err != nil {
			s.logger.Error().Err(err).
				Str("bid_id", b.ID.String()).
				Str("event_type", string(event.Type)).
				Msg("Failed to broadcast bid event")
		}
	}
}

func (s *BidService) observe(outcome string, attempts int) {
	if s.metrics != nil {
		s.metrics.ObserveBid(outcome, attempts)
	}
}

// ListBids retrieves bids for an auction item, highest first
func (s *BidService) ListBids(ctx context.Context, tenantID, auctionItemID uuid.UUID) ([]*bid.Bid, error) {
	if _, _, err := s.loadInTenant(ctx, tenantID, auctionItemID); err != nil {
		return nil, err
	}
	return s.bidRepo.ListByAuctionItem(ctx, auctionItemID)
}

// GetHighestBid retrieves the leading bid for an auction item
func (s *BidService) GetHighestBid(ctx context.Context, tenantID, auctionItemID uuid.UUID) (*bid.Bid, error) {
	if _, _, err := s.loadInTenant(ctx, tenantID, auctionItemID); err != nil {
		return nil, err
	}
	return s.bidRepo.GetHighestBid(ctx, auctionItemID)
}

func (s *BidService) loadInTenant(ctx context.Context, tenantID, auctionItemID uuid.UUID) (*auction.AuctionItem, *auction.Auction, error) {
	ai, err := s.auctionItemRepo.GetByID(ctx, auctionItemID)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.auctionRepo.GetByID(ctx, ai.AuctionID)
	if err != nil {
		return nil, nil, err
	}
	if err := inTenant(a.TenantID, tenantID, shared.ErrAuctionItemNotFound); err != nil {
		return nil, nil, err
	}
	return ai, a, nil
}
