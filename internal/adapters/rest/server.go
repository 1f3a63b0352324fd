package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/config"
)

const serviceName = "subastas-marketplace"

type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config       *config.Config
	Handler      *Handler
	WebSocket    http.Handler
	HealthChecks map[string]HealthCheck
	Logger       zerolog.Logger
}

func NewServer(params ServerParams) *Server {
	logger := params.Logger.With().Str("component", "http_server").Logger()
	e := NewRouter(RouterParams{
		Handler:      params.Handler,
		WebSocket:    params.WebSocket,
		HealthChecks: params.HealthChecks,
		RootDomain:   params.Config.Server.RootDomain,
		FrontendURL:  params.Config.Server.FrontendURL,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", params.Config.Server.Port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return &Server{
		echo:       e,
		httpServer: httpServer,
		config:     params.Config,
		logger:     logger,
	}
}

// RouterParams carries what the route table needs
type RouterParams struct {
	Handler      *Handler
	WebSocket    http.Handler
	HealthChecks map[string]HealthCheck
	RootDomain   string
	FrontendURL  string
	Logger       zerolog.Logger
}

// NewRouter builds the Echo instance with all routes registered
func NewRouter(params RouterParams) *echo.Echo {
	h := params.Handler

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = h.schema
	e.HTTPErrorHandler = NewHTTPErrorHandler(params.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(RequestLogger(params.Logger))
	if params.FrontendURL != "" {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: []string{params.FrontendURL},
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, tenantHeader},
		}))
	}

	// --- Probes and metrics (no auth required) ---
	e.GET("/health", Liveness)
	e.GET("/health/ready", Readiness(params.HealthChecks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if params.WebSocket != nil {
		// The gateway authenticates the upgrade itself
		e.GET("/ws", echo.WrapHandler(params.WebSocket))
	}

	// --- Auth ---
	e.POST("/auth/sign-in", h.SignIn)
	e.POST("/auth/refresh", h.Refresh)

	authed := e.Group("", Auth(h.auth))
	authed.GET("/auth/me", h.Me)

	admin := authed.Group("", AdminOnly())
	admin.POST("/tenants", h.CreateTenant)
	admin.GET("/tenants", h.ListTenants)
	admin.POST("/users", h.CreateUser)
	admin.POST("/user/connect-user-to-company-and-tenant", h.ConnectUser)

	authed.GET("/tenants/:id", h.GetTenant)
	authed.GET("/users/:id", h.GetUser)
	authed.GET("/users/:id/company-domain", h.GetCompanyDomain)

	// --- Tenant-scoped ---
	scoped := authed.Group("", ResolveTenant(h.tenants, params.RootDomain))

	scoped.POST("/companies", h.CreateCompany, AdminOnly())
	scoped.GET("/companies", h.ListCompanies)
	scoped.GET("/companies/:id", h.GetCompany)

	scoped.POST("/items", h.CreateItem)
	scoped.GET("/items", h.ListItems)
	scoped.POST("/items/:id/review", h.SubmitItemForReview)
	scoped.POST("/items/:id/approve", h.ApproveItem)
	scoped.DELETE("/items/:id", h.DeleteItem)

	scoped.POST("/auctions", h.CreateAuction)
	scoped.GET("/auctions", h.ListAuctions)
	scoped.GET("/auctions/:id", h.GetAuction)
	scoped.POST("/auctions/:id/items", h.AddAuctionItem)
	scoped.POST("/auctions/:id/start", h.StartAuction)
	scoped.POST("/auctions/:id/close", h.CloseAuction)
	scoped.POST("/auctions/:id/cancel", h.CancelAuction)

	scoped.POST("/auction-items/:id/bids", h.PlaceBid)
	scoped.GET("/auction-items/:id/bids", h.ListBids)
	scoped.GET("/auction-items/:id/bids/highest", h.GetHighestBid)
	scoped.POST("/auction-items/:id/confirm-sale", h.ConfirmSale)
	scoped.POST("/auction-items/:id/observations", h.AddObservation)
	scoped.GET("/auction-items/:id/observations", h.ListObservations)

	return e
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
