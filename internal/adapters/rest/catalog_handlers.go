package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
)

// CreateItem handles POST /items
func (h *Handler) CreateItem(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}

	var req inbound.CreateItemRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	req.Actor = p

	it, err := h.items.CreateItem(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, it)
}

// ListItems handles GET /items?company_id=&state=&page=&page_size=
func (h *Handler) ListItems(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	page, err := pageFrom(c)
	if err != nil {
		return err
	}

	req := inbound.ListItemsRequest{TenantID: p.TenantID, Page: page}

	if raw := c.QueryParam("company_id"); raw != "" {
		companyID, err := uuid.Parse(raw)
		if err != nil {
			return shared.NewValidationError(map[string]string{"company_id": "company_id must be a valid UUID"})
		}
		req.CompanyID = &companyID
	}
	if raw := c.QueryParam("state"); raw != "" {
		state := item.State(raw)
		if !state.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown item state")
		}
		req.State = &state
	}

	items, err := h.items.ListItems(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, items)
}

// SubmitItemForReview handles POST /items/:id/review
func (h *Handler) SubmitItemForReview(c echo.Context) error {
	return h.itemAction(c, h.items.SubmitForReview)
}

// ApproveItem handles POST /items/:id/approve
func (h *Handler) ApproveItem(c echo.Context) error {
	return h.itemAction(c, h.items.ApproveItem)
}

// DeleteItem handles DELETE /items/:id
func (h *Handler) DeleteItem(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.items.DeleteItem(c.Request().Context(), p, id); err != nil {
		return err
	}
	return ok(c, map[string]interface{}{"id": id, "state": item.StateDeleted})
}

func (h *Handler) itemAction(c echo.Context, action func(ctx context.Context, actor inbound.Principal, id uuid.UUID) (*item.Item, error)) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	it, err := action(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return ok(c, it)
}

// AddObservation handles POST /auction-items/:id/observations
func (h *Handler) AddObservation(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req inbound.CreateObservationRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	req.TenantID = p.TenantID
	req.UserID = p.UserID
	req.AuctionItemID = id

	o, err := h.observations.AddObservation(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, o)
}

// ListObservations handles GET /auction-items/:id/observations
func (h *Handler) ListObservations(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	observations, err := h.observations.ListObservations(c.Request().Context(), p.TenantID, id)
	if err != nil {
		return err
	}
	return ok(c, observations)
}
