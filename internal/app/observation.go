package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/domain/observation"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

// ObservationService implements comments on auction items
type ObservationService struct {
	observationRepo outbound.ObservationRepository
	auctionItemRepo outbound.AuctionItemRepository
	auctionRepo     outbound.AuctionRepository
	now             Clock
	logger          zerolog.Logger
}

type ObservationServiceParams struct {
	ObservationRepo outbound.ObservationRepository
	AuctionItemRepo outbound.AuctionItemRepository
	AuctionRepo     outbound.AuctionRepository
	Clock           Clock
	Logger          zerolog.Logger
}

// NewObservationService creates a new observation service
func NewObservationService(params ObservationServiceParams) *ObservationService {
	return &ObservationService{
		observationRepo: params.ObservationRepo,
		auctionItemRepo: params.AuctionItemRepo,
		auctionRepo:     params.AuctionRepo,
		now:             clockOrDefault(params.Clock),
		logger:          params.Logger.With().Str("component", "observation_service").Logger(),
	}
}

// AddObservation stores a comment on an auction item of the tenant
func (s *ObservationService) AddObservation(ctx context.Context, req inbound.CreateObservationRequest) (*observation.Observation, error) {
	o := observation.New(req.AuctionItemID, req.UserID, req.Comment, s.now())
	if o.Comment == "" {
		return nil, shared.NewValidationError(map[string]string{"comment": "comment is required"})
	}
	if len([]rune(o.Comment)) > observation.MaxCommentLength {
		return nil, shared.NewValidationError(map[string]string{"comment": "comment is too long"})
	}

	if err := s.checkTenant(ctx, req.TenantID, req.AuctionItemID); err != nil {
		return nil, err
	}

	if err := s.observationRepo.Create(ctx, o); err != nil {
		s.logger.Error().Err(err).Str("auction_item_id", req.AuctionItemID.String()).Msg("Failed to store observation")
		return nil, err
	}

	s.logger.Debug().
		Str("observation_id", o.ID.String()).
		Str("auction_item_id", o.AuctionItemID.String()).
		Msg("Observation stored")
	return o, nil
}

// ListObservations retrieves the comments on an auction item
func (s *ObservationService) ListObservations(ctx context.Context, tenantID, auctionItemID uuid.UUID) ([]*observation.Observation, error) {
	if err := s.checkTenant(ctx, tenantID, auctionItemID); err != nil {
		return nil, err
	}
	return s.observationRepo.ListByAuctionItem(ctx, auctionItemID)
}

func (s *ObservationService) checkTenant(ctx context.Context, tenantID, auctionItemID uuid.UUID) error {
	ai, err := s.auctionItemRepo.GetByID(ctx, auctionItemID)
	if err != nil {
		return err
	}
	a, err := s.auctionRepo.GetByID(ctx, ai.AuctionID)
	if err != nil {
		return err
	}
	return inTenant(a.TenantID, tenantID, shared.ErrAuctionItemNotFound)
}
