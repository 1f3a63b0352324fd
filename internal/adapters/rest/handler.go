package rest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/schema"
)

// Handler serves the REST API on top of the inbound services
type Handler struct {
	auth         inbound.AuthService
	tenants      inbound.TenantService
	companies    inbound.CompanyService
	users        inbound.UserService
	items        inbound.ItemService
	auctions     inbound.AuctionService
	bids         inbound.BidService
	observations inbound.ObservationService
	schema       *schema.Validator
	logger       zerolog.Logger
}

type HandlerParams struct {
	AuthService        inbound.AuthService
	TenantService      inbound.TenantService
	CompanyService     inbound.CompanyService
	UserService        inbound.UserService
	ItemService        inbound.ItemService
	AuctionService     inbound.AuctionService
	BidService         inbound.BidService
	ObservationService inbound.ObservationService
	Schema             *schema.Validator
	Logger             zerolog.Logger
}

func NewHandler(params HandlerParams) *Handler {
	v := params.Schema
	if v == nil {
		v = schema.New()
	}
	return &Handler{
		auth:         params.AuthService,
		tenants:      params.TenantService,
		companies:    params.CompanyService,
		users:        params.UserService,
		items:        params.ItemService,
		auctions:     params.AuctionService,
		bids:         params.BidService,
		observations: params.ObservationService,
		schema:       v,
		logger:       params.Logger.With().Str("component", "rest_handler").Logger(),
	}
}

// decode strictly decodes and validates the JSON body into dst
func (h *Handler) decode(c echo.Context, dst interface{}) error {
	return h.schema.Decode(c.Request().Body, dst)
}

// pathID parses a UUID route parameter
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, shared.NewValidationError(map[string]string{name: name + " must be a valid UUID"})
	}
	return id, nil
}

// pageFrom reads page and page_size query parameters
func pageFrom(c echo.Context) (shared.Page, error) {
	var page shared.Page
	err := echo.QueryParamsBinder(c).
		Int("page", &page.Number).
		Int("page_size", &page.Size).
		BindError()
	if err != nil {
		return shared.Page{}, echo.NewHTTPError(http.StatusBadRequest, "page and page_size must be integers")
	}
	return page.Normalize(), nil
}

// selfOrAdmin allows callers to read their own account, admins any account
func selfOrAdmin(p inbound.Principal, userID uuid.UUID) error {
	if p.IsAdmin() || p.UserID == userID {
		return nil
	}
	return shared.ErrForbidden
}
