package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

// ItemService implements the item catalog use cases
type ItemService struct {
	itemRepo    outbound.ItemRepository
	companyRepo outbound.CompanyRepository
	now         Clock
	logger      zerolog.Logger
}

type ItemServiceParams struct {
	ItemRepo    outbound.ItemRepository
	CompanyRepo outbound.CompanyRepository
	Clock       Clock
	Logger      zerolog.Logger
}

// NewItemService creates a new item service
func NewItemService(params ItemServiceParams) *ItemService {
	return &ItemService{
		itemRepo:    params.ItemRepo,
		companyRepo: params.CompanyRepo,
		now:         clockOrDefault(params.Clock),
		logger:      params.Logger.With().Str("component", "item_service").Logger(),
	}
}

// CreateItem creates an available item. Members create items for their own
// company; admins name the company explicitly.
func (s *ItemService) CreateItem(ctx context.Context, req inbound.CreateItemRequest) (*item.Item, error) {
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

	i := item.New(c.TenantID, c.ID, req.Name, req.Description, s.now())
	if err := s.itemRepo.Create(ctx, i); err != nil {
		s.logger.Error().Err(err).Str("company_id", c.ID.String()).Msg("Failed to create item")
		return nil, err
	}

	s.logger.Info().
		Str("item_id", i.ID.String()).
		Str("company_id", c.ID.String()).
		Msg("Item created")
	return i, nil
}

// GetItem retrieves an item inside a tenant
func (s *ItemService) GetItem(ctx context.Context, tenantID, id uuid.UUID) (*item.Item, error) {
	i, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inTenant(i.TenantID, tenantID, shared.ErrItemNotFound); err != nil {
		return nil, err
	}
	return i, nil
}

// ListItems retrieves a page of a tenant's items
func (s *ItemService) ListItems(ctx context.Context, req inbound.ListItemsRequest) ([]*item.Item, error) {
	if req.State != nil && !req.State.Valid() {
		return nil, shared.NewValidationError(map[string]string{"state": "state is not a known item state"})
	}
	return s.itemRepo.List(ctx, outbound.ItemFilter{
		TenantID:  req.TenantID,
		CompanyID: req.CompanyID,
		State:     req.State,
		Page:      req.Page.Normalize(),
	})
}

// SubmitForReview moves an available item to review
func (s *ItemService) SubmitForReview(ctx context.Context, actor inbound.Principal, id uuid.UUID) (*item.Item, error) {
	return s.transition(ctx, actor, id, item.StateUnderReview)
}

// ApproveItem returns a reviewed item to available
func (s *ItemService) ApproveItem(ctx context.Context, actor inbound.Principal, id uuid.UUID) (*item.Item, error) {
	if !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	i, err := s.GetItem(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if i.State != item.StateUnderReview {
		return nil, shared.ErrInvalidTransition
	}
	return s.transition(ctx, actor, id, item.StateAvailable)
}

// DeleteItem soft-deletes an item that is not sold. Items placed in an
// auction must leave it first.
func (s *ItemService) DeleteItem(ctx context.Context, actor inbound.Principal, id uuid.UUID) error {
	_, err := s.transition(ctx, actor, id, item.StateDeleted)
	return err
}

func (s *ItemService) transition(ctx context.Context, actor inbound.Principal, id uuid.UUID, next item.State) (*item.Item, error) {
	i, err := s.GetItem(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeCompany(actor, i.CompanyID); err != nil {
		return nil, err
	}

	from := i.State
	if from == item.StateOnAuction {
		// only the auction lifecycle moves items out of an auction
		return nil, shared.ErrItemNotAvailable
	}
	if err := i.TransitionTo(next, s.now()); err != nil {
		return nil, err
	}
	if err := s.itemRepo.UpdateState(ctx, i.ID, from, next, s.now()); err != nil {
		s.logger.Error().Err(err).
			Str("item_id", i.ID.String()).
			Str("from", string(from)).
			Str("to", string(next)).
			Msg("Failed to update item state")
		return nil, err
	}

	s.logger.Info().
		Str("item_id", i.ID.String()).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("Item state changed")
	return i, nil
}
