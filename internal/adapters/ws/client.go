package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/config"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendGrace      = 100 * time.Millisecond
)

var (
	errClientStopped   = errors.New("client is stopped")
	errTooManyRequests = errors.New("too many requests in flight")
)

type WsClient struct {
	id         string
	principal  inbound.Principal
	conn       *websocket.Conn
	sendChan   chan *ServerMessage
	eventChan  chan outbound.Event
	ctx        context.Context
	cancel     context.CancelFunc
	handler    *WsHandler
	workerPool *pond.WorkerPool

	// deliverMu orders live events against journal replays; seen holds
	// the highest sequence sent per auction
	deliverMu sync.Mutex
	seen      map[uuid.UUID]int64

	stopped bool
	mu      sync.Mutex
	logger  zerolog.Logger
}

type WsClientParams struct {
	Principal  inbound.Principal
	Conn       *websocket.Conn
	Handler    *WsHandler
	SendBuffer int
	Logger     zerolog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(params WsClientParams) *WsClient {
	ctx, cancel := context.WithCancel(context.Background())

	buffer := params.SendBuffer
	if buffer <= 0 {
		buffer = 100
	}

	pool := pond.New(
		config.WSMaxWorkers,
		config.WSMaxCapacity,
		pond.Context(ctx),
		pond.Strategy(pond.Balanced()),
	)

	id := uuid.New().String()
	return &WsClient{
		id:         id,
		principal:  params.Principal,
		conn:       params.Conn,
		sendChan:   make(chan *ServerMessage, buffer),
		eventChan:  make(chan outbound.Event, buffer),
		ctx:        ctx,
		cancel:     cancel,
		handler:    params.Handler,
		workerPool: pool,
		seen:       make(map[uuid.UUID]int64),
		logger: params.Logger.With().
			Str("client_id", id).
			Str("user_id", params.Principal.UserID.String()).
			Logger(),
	}
}

func (c *WsClient) Start() {
	go c.messageSender()
	go c.messageReceiver()
	go c.eventForwarder()
}

// Stop closes the connection; it is safe to call more than once
func (c *WsClient) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.cancel()
	c.conn.Close()
	// Stop waits for running tasks, which may be the caller
	go c.workerPool.Stop()
}

// closeWith sends a close frame with code before stopping
func (c *WsClient) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to write close frame")
	}
	c.Stop()
}

// Send queues a message for the client. A client whose buffer stays full
// for the grace period is disconnected with a policy violation.
func (c *WsClient) Send(msg *ServerMessage) error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return errClientStopped
	}

	select {
	case c.sendChan <- msg:
		return nil
	case <-c.ctx.Done():
		return errClientStopped
	default:
	}

	timer := time.NewTimer(sendGrace)
	defer timer.Stop()

	select {
	case c.sendChan <- msg:
		return nil
	case <-c.ctx.Done():
		return errClientStopped
	case <-timer.C:
		c.logger.Warn().Msg("Client too slow, closing connection")
		c.handler.slowConsumer()
		c.closeWith(websocket.ClosePolicyViolation, shared.ErrClientTooSlow.Error())
		return shared.ErrClientTooSlow
	}
}

// deliver sends an auction event unless the client already has it
func (c *WsClient) deliver(event outbound.Event) error {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	return c.deliverLocked(event)
}

func (c *WsClient) deliverLocked(event outbound.Event) error {
	if event.Sequence > 0 && event.Sequence <= c.seen[event.AuctionID] {
		return nil
	}
	if err := c.Send(NewEventMessage(event)); err != nil {
		return err
	}
	if event.Sequence > c.seen[event.AuctionID] {
		c.seen[event.AuctionID] = event.Sequence
	}
	return nil
}

// forget drops the delivery watermark of an auction the client left
func (c *WsClient) forget(auctionID uuid.UUID) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	delete(c.seen, auctionID)
}

func (c *WsClient) eventForwarder() {
	for {
		select {
		case event := <-c.eventChan:
			if err := c.deliver(event); err != nil {
				c.logger.Debug().Err(err).Str("event_type", string(event.Type)).Msg("Failed to forward event")
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *WsClient) messageSender() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.sendChan:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error().Err(err).Msg("Failed to send message to client")
				c.cancel()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.cancel()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *WsClient) messageReceiver() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket read error for client")
			} else {
				c.logger.Debug().Str("error", err.Error()).Msg("WebSocket connection closed for client")
			}
			// Cancel context to notify handler about disconnection
			c.cancel()
			return
		}

		if !c.submit(message) {
			return
		}
	}
}

// submit hands a message to the worker pool. A full queue answers with an
// error instead of blocking the reader.
func (c *WsClient) submit(message []byte) bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	accepted := c.workerPool.TrySubmit(func() {
		if err := c.handleMessage(message); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to handle client message")
			_ = c.Send(NewErrorMessage(err.Error(), nil))
		}
	})
	c.mu.Unlock()

	if !accepted {
		_ = c.Send(NewErrorMessage(errTooManyRequests.Error(), nil))
	}
	return true
}

func (c *WsClient) handleMessage(data []byte) error {
	msg, err := ParseClientMessage(data)
	if err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}

	if err := msg.Validate(); err != nil {
		return c.Send(msg.replyError(err))
	}

	if msg.Type == MessageTypePing {
		return c.Send(msg.reply(MessageTypePong, nil))
	}

	return c.handler.HandleClientMessage(c, msg)
}
