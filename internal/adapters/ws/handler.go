package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"subastas-marketplace/internal/adapters/metrics"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

const requestTimeout = 10 * time.Second

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients        map[string]*WsClient // clientID -> Client
	clientsMu      sync.RWMutex
	upgrader       websocket.Upgrader
	sendBuffer     int
	authService    inbound.AuthService
	auctionService inbound.AuctionService
	bidService     inbound.BidService
	broadcaster    outbound.Broadcaster
	journal        outbound.EventJournal
	logger         zerolog.Logger
}

type WsHandlerParams struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	// AllowedOrigins restricts browser origins; empty allows any
	AllowedOrigins []string
	AuthService    inbound.AuthService
	AuctionService inbound.AuctionService
	BidService     inbound.BidService
	Broadcaster    outbound.Broadcaster
	Journal        outbound.EventJournal
	Logger         zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients: make(map[string]*WsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  params.ReadBufferSize,
			WriteBufferSize: params.WriteBufferSize,
			CheckOrigin:     checkOrigin(params.AllowedOrigins),
		},
		sendBuffer:     params.SendBuffer,
		authService:    params.AuthService,
		auctionService: params.AuctionService,
		bidService:     params.BidService,
		broadcaster:    params.Broadcaster,
		journal:        params.Journal,
		logger:         params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		return lo.Contains(allowed, origin)
	}
}

// accessToken reads the token from ?token= or an Authorization bearer header
func accessToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// HandleWebSocket authenticates and upgrades a connection
func (handler *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	principal, err := handler.authService.Authenticate(r.Context(), accessToken(r))
	if err != nil {
		http.Error(w, shared.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}
	if principal.TenantID == uuid.Nil {
		http.Error(w, shared.ErrForbidden.Error(), http.StatusForbidden)
		return
	}

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		Principal:  *principal,
		Conn:       conn,
		Handler:    handler,
		SendBuffer: handler.sendBuffer,
		Logger:     handler.logger,
	})

	handler.registerClient(client)
	client.Start()

	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().
		Str("client_id", client.id).
		Str("user_id", principal.UserID.String()).
		Str("tenant_id", principal.TenantID.String()).
		Msg("WebSocket client connected")
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
	metrics.WSConnections.Inc()
	handler.logger.Debug().Str("client_id", client.id).Int("total_clients", len(handler.clients)).Msg("Client registered")
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	_, known := handler.clients[client.id]
	delete(handler.clients, client.id)
	total := len(handler.clients)
	handler.clientsMu.Unlock()

	if !known {
		return
	}
	metrics.WSConnections.Dec()

	handler.broadcaster.UnsubscribeAll(context.Background(), client.id)
	client.Stop()

	handler.logger.Info().
		Str("client_id", client.id).
		Str("user_id", client.principal.UserID.String()).
		Int("total_clients", total).
		Msg("WebSocket client disconnected")
}

func (handler *WsHandler) slowConsumer() {
	metrics.WSSlowConsumersTotal.Inc()
}

// GetConnectedClients returns the number of connected clients
func (handler *WsHandler) GetConnectedClients() int {
	handler.clientsMu.RLock()
	defer handler.clientsMu.RUnlock()
	return len(handler.clients)
}

// CloseAll disconnects every client with a going-away close frame
func (handler *WsHandler) CloseAll() {
	handler.clientsMu.RLock()
	clients := lo.Values(handler.clients)
	handler.clientsMu.RUnlock()

	for _, client := range clients {
		client.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
}

func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	ctx, cancel := context.WithTimeout(client.ctx, requestTimeout)
	defer cancel()

	switch msg.Type {
	case MessageTypeSubscribe:
		return handler.handleSubscribe(ctx, client, msg)

	case MessageTypeUnsubscribe:
		return handler.handleUnsubscribe(ctx, client, msg)

	case MessageTypePlaceBid:
		return handler.handlePlaceBid(ctx, client, msg)

	case MessageTypeGetAuction:
		return handler.handleGetAuction(ctx, client, msg)

	case MessageTypeListAuctions:
		return handler.handleListAuctions(ctx, client, msg)

	default:
		handler.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type from client")
		return client.Send(msg.replyError(shared.ErrUnknownMessageType))
	}
}

// handleSubscribe joins the auction room. With last_sequence the journal is
// replayed after the acknowledgement and before any live event.
func (handler *WsHandler) handleSubscribe(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	auctionID := *msg.AuctionID

	details, err := handler.auctionService.GetAuction(ctx, client.principal.TenantID, auctionID)
	if err != nil {
		return client.Send(msg.replyError(err))
	}

	client.deliverMu.Lock()
	defer client.deliverMu.Unlock()

	if err := handler.broadcaster.Subscribe(ctx, auctionID, client.id, client.eventChan); err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Str("auction_id", auctionID.String()).Msg("Failed to subscribe to auction")
		return client.Send(msg.replyError(err))
	}

	var replay []outbound.Event
	if msg.LastSequence != nil {
		if *msg.LastSequence > client.seen[auctionID] {
			client.seen[auctionID] = *msg.LastSequence
		}
		if handler.journal != nil {
			replay, err = handler.journal.Since(ctx, auctionID, client.seen[auctionID])
			if err != nil {
				handler.logger.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to read event journal")
			}
		}
	}

	ack := msg.reply(MessageTypeSubscribed, map[string]interface{}{
		"auction":  details,
		"replayed": len(replay),
	})
	if err := client.Send(ack); err != nil {
		return err
	}

	for _, event := range replay {
		if err := client.deliverLocked(event); err != nil {
			return err
		}
	}

	handler.logger.Info().
		Str("client_id", client.id).
		Str("auction_id", auctionID.String()).
		Int("replayed", len(replay)).
		Msg("Client subscribed to auction")
	return nil
}

// handleUnsubscribe handles unsubscription from auction events
func (handler *WsHandler) handleUnsubscribe(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	if err := handler.broadcaster.Unsubscribe(ctx, *msg.AuctionID, client.id); err != nil {
		return client.Send(msg.replyError(err))
	}
	client.forget(*msg.AuctionID)

	handler.logger.Info().Str("client_id", client.id).Str("auction_id", msg.AuctionID.String()).Msg("Client unsubscribed from auction")
	return client.Send(msg.reply(MessageTypeUnsubscribed, nil))
}

// handlePlaceBid handles bid placement
func (handler *WsHandler) handlePlaceBid(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	placed, err := handler.bidService.PlaceBid(ctx, inbound.PlaceBidRequest{
		TenantID:      client.principal.TenantID,
		UserID:        client.principal.UserID,
		AuctionItemID: *msg.AuctionItemID,
		ClientID:      client.id,
		OfferedPrice:  *msg.Amount,
	})
	if err != nil {
		if !isDomainError(err) {
			handler.logger.Error().Err(err).Str("client_id", client.id).Msg("Bid placement failed")
		}
		return client.Send(msg.replyError(err))
	}

	handler.logger.Info().
		Str("bid_id", placed.ID.String()).
		Str("auction_item_id", placed.AuctionItemID.String()).
		Str("user_id", client.principal.UserID.String()).
		Str("amount", placed.OfferedPrice.String()).
		Msg("Bid placed successfully")

	resp := msg.reply(MessageTypeBidAccepted, placed)
	resp.AuctionID = &placed.AuctionID
	return client.Send(resp)
}

// handleGetAuction handles getting auction details
func (handler *WsHandler) handleGetAuction(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	details, err := handler.auctionService.GetAuction(ctx, client.principal.TenantID, *msg.AuctionID)
	if err != nil {
		return client.Send(msg.replyError(err))
	}
	return client.Send(msg.reply(MessageTypeAuction, details))
}

// handleListAuctions handles listing auctions
func (handler *WsHandler) handleListAuctions(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	page := shared.Page{Number: msg.Page, Size: msg.PageSize}.Normalize()

	auctions, err := handler.auctionService.ListAuctions(ctx, inbound.ListAuctionsRequest{
		TenantID: client.principal.TenantID,
		State:    msg.State,
		Page:     page,
	})
	if err != nil {
		return client.Send(msg.replyError(err))
	}

	return client.Send(msg.reply(MessageTypeAuctions, map[string]interface{}{
		"auctions":  auctions,
		"count":     len(auctions),
		"page":      page.Number,
		"page_size": page.Size,
	}))
}

// isDomainError reports whether err is an expected business failure
func isDomainError(err error) bool {
	var validation *shared.ValidationError
	return errors.As(err, &validation) || lo.ContainsBy(domainErrors, func(target error) bool {
		return errors.Is(err, target)
	})
}

var domainErrors = []error{
	shared.ErrAuctionItemNotFound,
	shared.ErrAuctionNotFound,
	shared.ErrAuctionNotAcceptingBids,
	shared.ErrAuctionNotStarted,
	shared.ErrBidAmountTooLow,
	shared.ErrBidAmountInvalid,
	shared.ErrBidAmountBelowStarting,
	shared.ErrBidConflict,
	shared.ErrSelfBid,
	shared.ErrForbidden,
	shared.ErrUserNotFound,
}
