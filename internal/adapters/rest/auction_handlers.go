package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
)

// CreateAuction handles POST /auctions
func (h *Handler) CreateAuction(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}

	var req inbound.CreateAuctionRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	req.Actor = p

	a, err := h.auctions.CreateAuction(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, a)
}

// ListAuctions handles GET /auctions?state=&page=&page_size=
func (h *Handler) ListAuctions(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	page, err := pageFrom(c)
	if err != nil {
		return err
	}

	req := inbound.ListAuctionsRequest{TenantID: p.TenantID, Page: page}
	if raw := c.QueryParam("state"); raw != "" {
		state := auction.State(raw)
		if !state.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown auction state")
		}
		req.State = &state
	}

	auctions, err := h.auctions.ListAuctions(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, auctions)
}

// GetAuction handles GET /auctions/:id
func (h *Handler) GetAuction(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	details, err := h.auctions.GetAuction(c.Request().Context(), p.TenantID, id)
	if err != nil {
		return err
	}
	return ok(c, details)
}

// AddAuctionItem handles POST /auctions/:id/items
func (h *Handler) AddAuctionItem(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req inbound.AddAuctionItemRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	req.Actor = p
	req.AuctionID = id

	ai, err := h.auctions.AddItem(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, ai)
}

// StartAuction handles POST /auctions/:id/start
func (h *Handler) StartAuction(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	a, err := h.auctions.StartAuction(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return ok(c, a)
}

// CloseAuction handles POST /auctions/:id/close
func (h *Handler) CloseAuction(c echo.Context) error {
	return h.endAuction(c, h.auctions.CloseAuction)
}

// CancelAuction handles POST /auctions/:id/cancel
func (h *Handler) CancelAuction(c echo.Context) error {
	return h.endAuction(c, h.auctions.CancelAuction)
}

func (h *Handler) endAuction(c echo.Context, end func(context.Context, inbound.Principal, uuid.UUID) (*shared.AuctionCloseResult, error)) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	result, err := end(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return ok(c, result)
}

// PlaceBid handles POST /auction-items/:id/bids
func (h *Handler) PlaceBid(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req inbound.PlaceBidRequest
	if err := h.decode(c, &req); err != nil {
		return err
	}
	req.TenantID = p.TenantID
	req.UserID = p.UserID
	req.AuctionItemID = id
	req.ClientID = c.Response().Header().Get(echo.HeaderXRequestID)

	b, err := h.bids.PlaceBid(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, b)
}

// ListBids handles GET /auction-items/:id/bids
func (h *Handler) ListBids(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	bids, err := h.bids.ListBids(c.Request().Context(), p.TenantID, id)
	if err != nil {
		return err
	}
	return ok(c, bids)
}

// GetHighestBid handles GET /auction-items/:id/bids/highest
func (h *Handler) GetHighestBid(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	b, err := h.bids.GetHighestBid(c.Request().Context(), p.TenantID, id)
	if err != nil {
		return err
	}
	return ok(c, b)
}

// ConfirmSale handles POST /auction-items/:id/confirm-sale
func (h *Handler) ConfirmSale(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ai, err := h.auctions.ConfirmSale(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return ok(c, ai)
}
