package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"subastas-marketplace/internal/adapters/broadcaster"
	"subastas-marketplace/internal/adapters/db"
	"subastas-marketplace/internal/adapters/metrics"
	"subastas-marketplace/internal/adapters/redis"
	"subastas-marketplace/internal/adapters/rest"
	"subastas-marketplace/internal/adapters/scheduler"
	"subastas-marketplace/internal/adapters/ws"
	"subastas-marketplace/internal/app"
	"subastas-marketplace/internal/config"
	"subastas-marketplace/internal/schema"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	// Prices travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	log.Info().Msg("Starting Subastas Marketplace Service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbConn, err := db.NewConnection(ctx, cfg.Database, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	if cfg.Database.MigrateOnStart {
		if err := dbConn.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	// Create repositories
	repos := db.NewRepositoryFactory(dbConn).GetAllRepositories()

	log.Info().Msg("Database repositories initialized")

	// Create Redis client
	redisClient := redis.NewClient(cfg.Redis)
	defer redisClient.Close()
	if err := redis.Ping(ctx, redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis broadcaster
	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	if err := redisBroadcaster.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start Redis broadcaster")
	}
	defer redisBroadcaster.Close()
	log.Info().Msg("Redis broadcaster initialized")

	// Create business services
	tenantService := app.NewTenantService(app.TenantServiceParams{
		TenantRepo: repos.Tenants,
		Logger:     log.Logger,
	})
	companyService := app.NewCompanyService(app.CompanyServiceParams{
		CompanyRepo: repos.Companies,
		TenantRepo:  repos.Tenants,
		Logger:      log.Logger,
	})
	userService := app.NewUserService(app.UserServiceParams{
		UserRepo:    repos.Users,
		CompanyRepo: repos.Companies,
		TenantRepo:  repos.Tenants,
		RootDomain:  cfg.Server.RootDomain,
		Logger:      log.Logger,
	})
	authService := app.NewAuthService(app.AuthServiceParams{
		UserRepo:      repos.Users,
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		Logger:        log.Logger,
	})
	itemService := app.NewItemService(app.ItemServiceParams{
		ItemRepo:    repos.Items,
		CompanyRepo: repos.Companies,
		Logger:      log.Logger,
	})
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo:     repos.Auctions,
		AuctionItemRepo: repos.AuctionItems,
		ItemRepo:        repos.Items,
		CompanyRepo:     repos.Companies,
		BidRepo:         repos.Bids,
		Transactor:      repos.Transactor,
		Publisher:       redisBroadcaster,
		Logger:          log.Logger,
	})
	bidService := app.NewBidService(app.BidServiceParams{
		BidRepo:         repos.Bids,
		AuctionRepo:     repos.Auctions,
		AuctionItemRepo: repos.AuctionItems,
		UserRepo:        repos.Users,
		Publisher:       redisBroadcaster,
		Metrics:         metrics.BidRecorder{},
		MinIncrement:    cfg.Bidding.MinIncrement,
		MaxRetries:      uint64(cfg.Bidding.MaxRetries),
		Logger:          log.Logger,
	})
	observationService := app.NewObservationService(app.ObservationServiceParams{
		ObservationRepo: repos.Observations,
		AuctionItemRepo: repos.AuctionItems,
		AuctionRepo:     repos.Auctions,
		Logger:          log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Create auction scheduler
	auctionScheduler := scheduler.NewAuctionScheduler(
		scheduler.AuctionSchedulerParams{
			RedisClient: redisClient,
			Lifecycle:   auctionService,
			Logger:      log.Logger,
		},
	)

	// Start auction scheduler
	auctionScheduler.Start()
	log.Info().Msg("Auction scheduler started")

	// Update auction service with scheduler
	auctionService.SetScheduler(auctionScheduler)

	wsHandler := ws.NewHandler(ws.WsHandlerParams{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		SendBuffer:      cfg.WebSocket.SendBuffer,
		AllowedOrigins:  []string{cfg.Server.FrontendURL},
		AuthService:     authService,
		AuctionService:  auctionService,
		BidService:      bidService,
		Broadcaster:     redisBroadcaster,
		Journal:         redisBroadcaster,
		Logger:          log.Logger,
	})

	log.Info().Msg("WebSocket handler initialized")

	httpServer := rest.NewServer(rest.ServerParams{
		Config: cfg,
		Handler: rest.NewHandler(rest.HandlerParams{
			AuthService:        authService,
			TenantService:      tenantService,
			CompanyService:     companyService,
			UserService:        userService,
			ItemService:        itemService,
			AuctionService:     auctionService,
			BidService:         bidService,
			ObservationService: observationService,
			Schema:             schema.New(),
			Logger:             log.Logger,
		}),
		WebSocket: http.HandlerFunc(wsHandler.HandleWebSocket),
		HealthChecks: map[string]rest.HealthCheck{
			"postgres": dbConn.Ping,
			"redis": func(ctx context.Context) error {
				return redis.Ping(ctx, redisClient)
			},
		},
		Logger: log.Logger,
	})

	// Start HTTP server
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start HTTP server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop auction scheduler
	auctionScheduler.Stop()
	log.Info().Msg("Auction scheduler stopped")

	// Hijacked websocket connections are not tracked by http.Server
	wsHandler.CloseAll()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
