package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

// AuctionService implements the auction use cases and inbound.AuctionLifecycle
type AuctionService struct {
	auctionRepo     outbound.AuctionRepository
	auctionItemRepo outbound.AuctionItemRepository
	itemRepo        outbound.ItemRepository
	companyRepo     outbound.CompanyRepository
	bidRepo         outbound.BidRepository
	tx              outbound.Transactor
	publisher       outbound.Publisher
	scheduler       outbound.AuctionScheduler
	now             Clock
	logger          zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo     outbound.AuctionRepository
	AuctionItemRepo outbound.AuctionItemRepository
	ItemRepo        outbound.ItemRepository
	CompanyRepo     outbound.CompanyRepository
	BidRepo         outbound.BidRepository
	Transactor      outbound.Transactor
	Publisher       outbound.Publisher
	Scheduler       outbound.AuctionScheduler
	Clock           Clock
	Logger          zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		auctionRepo:     params.AuctionRepo,
		auctionItemRepo: params.AuctionItemRepo,
		itemRepo:        params.ItemRepo,
		companyRepo:     params.CompanyRepo,
		bidRepo:         params.BidRepo,
		tx:              params.Transactor,
		publisher:       params.Publisher,
		scheduler:       params.Scheduler,
		now:             clockOrDefault(params.Clock),
		logger:          params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// SetScheduler sets the auction scheduler
func (s *AuctionService) SetScheduler(scheduler outbound.AuctionScheduler) {
	s.scheduler = scheduler
}

// CreateAuction creates a new inactive auction
func (s *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	companyID := req.CompanyID
	if companyID == uuid.Nil && req.Actor.CompanyID != nil {
		companyID = *req.Actor.CompanyID
	}
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError(map[string]string{"company_id": "company_id is required"})
	}
	if err := authorizeCompany(req.Actor, companyID); err != nil {
		return nil, err
	}

	c, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := inTenant(c.TenantID, req.Actor.TenantID, shared.ErrCompanyNotFound); err != nil {
		return nil, err
	}

	now := s.now()
	if req.StartTime.Before(now) {
		s.logger.Warn().
			Time("start_time", req.StartTime).
			Time("current_time", now).
			Msg("Start time cannot be in the past")
		return nil, shared.ErrInvalidStartTime
	}
	if !req.EndTime.After(req.StartTime) {
		s.logger.Warn().
			Time("start_time", req.StartTime).
			Time("end_time", req.EndTime).
			Msg("End time must be after start time")
		return nil, shared.ErrInvalidEndTime
	}

	a := auction.New(c.TenantID, c.ID, req.Title, req.Description, req.Type, req.StartTime, req.EndTime, now)
	if err := s.auctionRepo.Create(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to save auction to database")
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("company_id", a.CompanyID.String()).
		Time("start_time", a.StartTime).
		Time("end_time", a.EndTime).
		Msg("Auction created successfully")

	if s.scheduler != nil {
		// Scheduling failures don't fail the creation; the auction can still be
		// started and closed by hand.
		if err := s.scheduler.ScheduleStart(ctx, a.ID, a.StartTime); err != nil {
			s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to schedule auction start")
		}
		if err := s.scheduler.ScheduleEnd(ctx, a.ID, a.EndTime); err != nil {
			s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to schedule auction for expiration")
		}
	}

	s.publish(ctx, a.ID, outbound.EventTypeAuctionCreated, map[string]interface{}{
		"title":      a.Title,
		"type":       a.Type,
		"state":      a.State,
		"start_time": a.StartTime,
		"end_time":   a.EndTime,
	})

	return a, nil
}

// AddItem places an available item of the auction's company into the auction
func (s *AuctionService) AddItem(ctx context.Context, req inbound.AddAuctionItemRequest) (*auction.AuctionItem, error) {
	a, err := s.loadAuction(ctx, req.Actor, req.AuctionID)
	if err != nil {
		return nil, err
	}
	if a.State != auction.StateInactive {
		return nil, shared.ErrAuctionNotEditable
	}
	if !req.StartingPrice.IsPositive() {
		return nil, shared.ErrInvalidStartingPrice
	}

	i, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if err := inTenant(i.TenantID, a.TenantID, shared.ErrItemNotFound); err != nil {
		return nil, err
	}
	if i.CompanyID != a.CompanyID {
		return nil, shared.ErrForbidden
	}
	if i.State != item.StateAvailable {
		return nil, shared.ErrItemNotAvailable
	}

	now := s.now()
	ai := auction.NewAuctionItem(a.ID, i.ID, req.StartingPrice, now)

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.itemRepo.UpdateState(ctx, i.ID, item.StateAvailable, item.StateOnAuction, now); err != nil {
			if errors.Is(err, shared.ErrStateConflict) {
				return shared.ErrItemNotAvailable
			}
			return err
		}
		return s.auctionItemRepo.Create(ctx, ai)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("auction_id", a.ID.String()).
			Str("item_id", i.ID.String()).
			Msg("Failed to add item to auction")
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("auction_item_id", ai.ID.String()).
		Str("starting_price", ai.StartingPrice.String()).
		Msg("Item added to auction")
	return ai, nil
}

// GetAuction retrieves an auction and its items
func (s *AuctionService) GetAuction(ctx context.Context, tenantID, auctionID uuid.UUID) (*inbound.AuctionDetails, error) {
	s.logger.Debug().Str("auction_id", auctionID.String()).Msg("Retrieving auction")

	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if err := inTenant(a.TenantID, tenantID, shared.ErrAuctionNotFound); err != nil {
		return nil, err
	}

	items, err := s.auctionItemRepo.ListByAuction(ctx, a.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to retrieve auction items")
		return nil, err
	}

	return &inbound.AuctionDetails{Auction: a, Items: items}, nil
}

// ListAuctions retrieves a page of a tenant's auctions
func (s *AuctionService) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest) ([]*auction.Auction, error) {
	if req.State != nil && !req.State.Valid() {
		return nil, shared.NewValidationError(map[string]string{"state": "state is not a known auction state"})
	}
	return s.auctionRepo.List(ctx, req.TenantID, req.State, req.Page.Normalize())
}

// StartAuction opens an auction by hand once its start time has passed
func (s *AuctionService) StartAuction(ctx context.Context, actor inbound.Principal, auctionID uuid.UUID) (*auction.Auction, error) {
	a, err := s.loadAuction(ctx, actor, auctionID)
	if err != nil {
		return nil, err
	}
	if !a.AuctionStarted(s.now()) {
		return nil, shared.ErrAuctionStartInFuture
	}
	if err := s.start(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// CloseAuction completes an active auction by hand
func (s *AuctionService) CloseAuction(ctx context.Context, actor inbound.Principal, auctionID uuid.UUID) (*shared.AuctionCloseResult, error) {
	a, err := s.loadAuction(ctx, actor, auctionID)
	if err != nil {
		return nil, err
	}
	return s.close(ctx, a)
}

// CancelAuction cancels an inactive or active auction
func (s *AuctionService) CancelAuction(ctx context.Context, actor inbound.Principal, auctionID uuid.UUID) (*shared.AuctionCloseResult, error) {
	a, err := s.loadAuction(ctx, actor, auctionID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, a)
}

// ConfirmSale marks an awarded auction item and its item as sold
func (s *AuctionService) ConfirmSale(ctx context.Context, actor inbound.Principal, auctionItemID uuid.UUID) (*auction.AuctionItem, error) {
	ai, err := s.auctionItemRepo.GetByID(ctx, auctionItemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadAuction(ctx, actor, ai.AuctionID); err != nil {
		if errors.Is(err, shared.ErrAuctionNotFound) {
			return nil, shared.ErrAuctionItemNotFound
		}
		return nil, err
	}

	now := s.now()
	if err := ai.TransitionTo(item.StateSold, now); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.auctionItemRepo.UpdateState(ctx, ai.ID, item.StateAwarded, item.StateSold, now); err != nil {
			return err
		}
		return s.itemRepo.UpdateState(ctx, ai.ItemID, item.StateAwarded, item.StateSold, now)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("auction_item_id", ai.ID.String()).Msg("Failed to confirm sale")
		return nil, err
	}

	s.logger.Info().
		Str("auction_item_id", ai.ID.String()).
		Str("final_price", ai.CurrentPrice.String()).
		Msg("Sale confirmed")
	return ai, nil
}

// StartScheduled opens an auction whose start time has passed. Auctions
// already moved on, or with nothing to sell, are left alone.
func (s *AuctionService) StartScheduled(ctx context.Context, auctionID uuid.UUID) error {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.State != auction.StateInactive {
		s.logger.Debug().
			Str("auction_id", auctionID.String()).
			Str("state", string(a.State)).
			Msg("Scheduled start skipped")
		return nil
	}

	err = s.start(ctx, a)
	if errors.Is(err, shared.ErrAuctionHasNoItems) {
		s.logger.Warn().Str("auction_id", auctionID.String()).Msg("Auction reached its start time without items")
		return nil
	}
	return err
}

// ExpireScheduled ends an auction whose end time has passed: active auctions
// complete, auctions that never opened are cancelled
func (s *AuctionService) ExpireScheduled(ctx context.Context, auctionID uuid.UUID) error {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}

	switch a.State {
	case auction.StateActive:
		_, err = s.close(ctx, a)
	case auction.StateInactive:
		_, err = s.cancel(ctx, a)
	default:
		return nil
	}

	if errors.Is(err, shared.ErrAuctionAlreadyEnded) {
		return nil
	}
	return err
}

func (s *AuctionService) loadAuction(ctx context.Context, actor inbound.Principal, auctionID uuid.UUID) (*auction.Auction, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if err := inTenant(a.TenantID, actor.TenantID, shared.ErrAuctionNotFound); err != nil {
		return nil, err
	}
	if err := authorizeCompany(actor, a.CompanyID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AuctionService) start(ctx context.Context, a *auction.Auction) error {
	if a.IsEnded() {
		return shared.ErrAuctionAlreadyEnded
	}

	items, err := s.auctionItemRepo.ListByAuction(ctx, a.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return shared.ErrAuctionHasNoItems
	}

	now := s.now()
	if err := a.TransitionTo(auction.StateActive, now); err != nil {
		return err
	}
	if err := s.auctionRepo.UpdateState(ctx, a.ID, auction.StateInactive, auction.StateActive, now); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to start auction")
		return err
	}

	s.logger.Info().
		Str("auction_id", a.ID.String()).
		Int("items", len(items)).
		Msg("Auction started")

	s.publish(ctx, a.ID, outbound.EventTypeAuctionStarted, map[string]interface{}{
		"state":            a.State,
		"end_time":         a.EndTime,
		"auction_item_ids": lo.Map(items, func(ai *auction.AuctionItem, _ int) uuid.UUID { return ai.ID }),
	})
	return nil
}

func (s *AuctionService) close(ctx context.Context, a *auction.Auction) (*shared.AuctionCloseResult, error) {
	s.logger.Info().Str("auction_id", a.ID.String()).Msg("Ending auction")

	if a.IsEnded() {
		s.logger.Warn().Str("auction_id", a.ID.String()).Msg("Auction already ended")
		return nil, shared.ErrAuctionAlreadyEnded
	}

	now := s.now()
	if err := a.TransitionTo(auction.StateCompleted, now); err != nil {
		return nil, err
	}

	var items []*auction.AuctionItem
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		// The auction row is claimed first so a concurrent closer fails here.
		if err := s.auctionRepo.UpdateState(ctx, a.ID, auction.StateActive, auction.StateCompleted, now); err != nil {
			if errors.Is(err, shared.ErrStateConflict) {
				return shared.ErrAuctionAlreadyEnded
			}
			return err
		}

		var err error
		if items, err = s.auctionItemRepo.ListByAuction(ctx, a.ID); err != nil {
			return err
		}

		for _, ai := range items {
			if ai.State != item.StateOnAuction {
				continue
			}
			if err := ai.Resolve(now); err != nil {
				return err
			}
			if err := s.moveItem(ctx, ai, item.StateOnAuction, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to end auction")
		return nil, err
	}

	result := s.closeResult(a, items)
	for _, r := range result.Items {
		if r.WinnerID == nil {
			continue
		}
		s.logger.Info().
			Str("auction_id", a.ID.String()).
			Str("auction_item_id", r.AuctionItemID.String()).
			Str("winner_id", r.WinnerID.String()).
			Str("final_price", r.FinalPrice.String()).
			Msg("Auction item awarded")

		s.publish(ctx, a.ID, outbound.EventTypeItemAwarded, map[string]interface{}{
			"auction_item_id": r.AuctionItemID,
			"item_id":         r.ItemID,
			"winner_id":       r.WinnerID,
			"winning_bid_id":  r.WinningBidID,
			"final_price":     r.FinalPrice,
		})
	}

	s.publish(ctx, a.ID, outbound.EventTypeAuctionCompleted, map[string]interface{}{
		"state": a.State,
		"items": result.Items,
	})
	s.unschedule(ctx, a.ID)

	s.logger.Info().Str("auction_id", a.ID.String()).Msg("Auction ended successfully")
	return result, nil
}

func (s *AuctionService) cancel(ctx context.Context, a *auction.Auction) (*shared.AuctionCloseResult, error) {
	if a.IsEnded() {
		return nil, shared.ErrAuctionAlreadyEnded
	}

	from := a.State
	now := s.now()
	if err := a.TransitionTo(auction.StateCancelled, now); err != nil {
		return nil, err
	}

	var (
		items    []*auction.AuctionItem
		rejected int64
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.auctionRepo.UpdateState(ctx, a.ID, from, auction.StateCancelled, now); err != nil {
			if errors.Is(err, shared.ErrStateConflict) {
				return shared.ErrAuctionAlreadyEnded
			}
			return err
		}

		var err error
		if rejected, err = s.bidRepo.RejectByAuction(ctx, a.ID, now); err != nil {
			return err
		}
		if items, err = s.auctionItemRepo.ListByAuction(ctx, a.ID); err != nil {
			return err
		}

		for _, ai := range items {
			if ai.State != item.StateOnAuction {
				continue
			}
			if err := ai.TransitionTo(item.StateAvailable, now); err != nil {
				return err
			}
			if err := s.moveItem(ctx, ai, item.StateOnAuction, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to cancel auction")
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", a.ID.String()).
		Int64("rejected_bids", rejected).
		Msg("Auction cancelled")

	result := s.closeResult(a, items)
	s.publish(ctx, a.ID, outbound.EventTypeAuctionCancelled, map[string]interface{}{
		"state":         a.State,
		"rejected_bids": rejected,
		"items":         result.Items,
	})
	s.unschedule(ctx, a.ID)
	return result, nil
}

// moveItem persists an auction item's new state and mirrors it on the item
func (s *AuctionService) moveItem(ctx context.Context, ai *auction.AuctionItem, from item.State, now time.Time) error {
	if err := s.auctionItemRepo.UpdateState(ctx, ai.ID, from, ai.State, now); err != nil {
		return err
	}
	return s.itemRepo.UpdateState(ctx, ai.ItemID, from, ai.State, now)
}

func (s *AuctionService) closeResult(a *auction.Auction, items []*auction.AuctionItem) *shared.AuctionCloseResult {
	return &shared.AuctionCloseResult{
		AuctionID: a.ID,
		TenantID:  a.TenantID,
		Status:    string(a.State),
		Items: lo.Map(items, func(ai *auction.AuctionItem, _ int) shared.AuctionItemResult {
			r := shared.AuctionItemResult{
				AuctionItemID: ai.ID,
				ItemID:        ai.ItemID,
				State:         string(ai.State),
			}
			if ai.State == item.StateAwarded && ai.HasBids() {
				r.WinnerID = ai.LeadingUserID
				r.WinningBidID = ai.WinningBidID
				r.FinalPrice = lo.ToPtr(ai.CurrentPrice)
			}
			return r
		}),
	}
}

func (s *AuctionService) unschedule(ctx context.Context, auctionID uuid.UUID) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Unschedule(ctx, auctionID); err != nil {
		s.logger.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to unschedule auction")
	}
}

// publish broadcasts an auction event. Failures are logged, never returned.
func (s *AuctionService) publish(ctx context.Context, auctionID uuid.UUID, typ outbound.EventType, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	event := outbound.Event{
		Type:      typ,
		AuctionID: auctionID,
		Data:      data,
		Timestamp: s.now().Unix(),
	}
	if err := s.publisher.Publish(ctx, auctionID, event); err != nil {
		s.logger.Error().Err(err).
			Str("auction_id", auctionID.String()).
			Str("event_type", string(typ)).
			Msg("Failed to broadcast auction event")
	}
}
