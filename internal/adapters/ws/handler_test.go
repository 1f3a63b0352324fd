package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subastas-marketplace/internal/adapters/metrics"
	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/bid"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/user"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

const validToken = "good-token"

type authStub struct {
	inbound.AuthService
	principal inbound.Principal
}

func (a *authStub) Authenticate(_ context.Context, token string) (*inbound.Principal, error) {
	if token != validToken {
		return nil, shared.ErrInvalidToken
	}
	p := a.principal
	return &p, nil
}

type auctionServiceStub struct {
	inbound.AuctionService
	auctions map[uuid.UUID]*auction.Auction
}

func (s *auctionServiceStub) GetAuction(_ context.Context, tenantID, auctionID uuid.UUID) (*inbound.AuctionDetails, error) {
	a, ok := s.auctions[auctionID]
	if !ok || a.TenantID != tenantID {
		return nil, shared.ErrAuctionNotFound
	}
	return &inbound.AuctionDetails{Auction: a}, nil
}

func (s *auctionServiceStub) ListAuctions(_ context.Context, req inbound.ListAuctionsRequest) ([]*auction.Auction, error) {
	var out []*auction.Auction
	for _, a := range s.auctions {
		if a.TenantID == req.TenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

type bidServiceStub struct {
	inbound.BidService
	mu   sync.Mutex
	reqs []inbound.PlaceBidRequest
}

func (s *bidServiceStub) PlaceBid(_ context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if req.OfferedPrice.LessThan(decimal.NewFromInt(100)) {
		return nil, shared.ErrBidAmountTooLow
	}
	return bid.New(uuid.New(), req.AuctionItemID, req.UserID, req.OfferedPrice, time.Now()), nil
}

// memBroadcaster fans events out in-process, dropping events for members
// whose channel is full
type memBroadcaster struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]map[string]chan outbound.Event
}

func newMemBroadcaster() *memBroadcaster {
	return &memBroadcaster{rooms: map[uuid.UUID]map[string]chan outbound.Event{}}
}

func (b *memBroadcaster) Publish(_ context.Context, auctionID uuid.UUID, event outbound.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	event.AuctionID = auctionID
	for _, ch := range b.rooms[auctionID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *memBroadcaster) Subscribe(_ context.Context, auctionID uuid.UUID, clientID string, ch chan outbound.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rooms[auctionID] == nil {
		b.rooms[auctionID] = map[string]chan outbound.Event{}
	}
	b.rooms[auctionID][clientID] = ch
	return nil
}

func (b *memBroadcaster) Unsubscribe(_ context.Context, auctionID uuid.UUID, clientID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.rooms[auctionID][clientID]; !ok {
		return shared.ErrUserNotSubscribed
	}
	delete(b.rooms[auctionID], clientID)
	return nil
}

func (b *memBroadcaster) UnsubscribeAll(_ context.Context, clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, room := range b.rooms {
		delete(room, clientID)
	}
}

func (b *memBroadcaster) GetSubscribers(_ context.Context, auctionID uuid.UUID) ([]string, error) {
	return nil, nil
}

func (b *memBroadcaster) IsSubscribed(_ context.Context, auctionID uuid.UUID, clientID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.rooms[auctionID][clientID]
	return ok
}

type journalStub struct {
	events []outbound.Event
}

func (j *journalStub) Since(_ context.Context, auctionID uuid.UUID, after int64) ([]outbound.Event, error) {
	var out []outbound.Event
	for _, e := range j.events {
		if e.AuctionID == auctionID && e.Sequence > after {
			out = append(out, e)
		}
	}
	return out, nil
}

type wsFixture struct {
	server      *httptest.Server
	handler     *WsHandler
	broadcaster *memBroadcaster
	journal     *journalStub
	bids        *bidServiceStub
	tenantID    uuid.UUID
	auction     *auction.Auction
	foreign     *auction.Auction
}

func newWsFixture(t *testing.T) *wsFixture {
	t.Helper()

	now := time.Now()
	tenantID := uuid.New()
	companyID := uuid.New()
	own := auction.New(tenantID, companyID, "Remate", "", auction.TypeReal, now, now.Add(time.Hour), now)
	foreign := auction.New(uuid.New(), uuid.New(), "Ajeno", "", auction.TypeReal, now, now.Add(time.Hour), now)

	f := &wsFixture{
		broadcaster: newMemBroadcaster(),
		journal:     &journalStub{},
		bids:        &bidServiceStub{},
		tenantID:    tenantID,
		auction:     own,
		foreign:     foreign,
	}

	f.handler = NewHandler(WsHandlerParams{
		SendBuffer: 16,
		AuthService: &authStub{principal: inbound.Principal{
			UserID:   uuid.New(),
			TenantID: tenantID,
			Role:     user.RoleMember,
		}},
		AuctionService: &auctionServiceStub{auctions: map[uuid.UUID]*auction.Auction{
			own.ID:     own,
			foreign.ID: foreign,
		}},
		BidService:  f.bids,
		Broadcaster: f.broadcaster,
		Journal:     f.journal,
		Logger:      zerolog.Nop(),
	})

	f.server = httptest.NewServer(http.HandlerFunc(f.handler.HandleWebSocket))
	t.Cleanup(f.server.Close)
	return f
}

func (f *wsFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestUpgradeRequiresToken(t *testing.T) {
	f := newWsFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=bad"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerHeaderIsAccepted(t *testing.T) {
	f := newWsFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+validToken)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping", "request_id": "r1"}))
	msg := read(t, conn)
	assert.Equal(t, MessageTypePong, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
}

func TestSubscribeOtherTenantIsNotFound(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t, validToken)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, AuctionID: &f.foreign.ID}))

	msg := read(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, shared.ErrAuctionNotFound.Error(), *msg.Error)
	assert.False(t, f.broadcaster.IsSubscribed(context.Background(), f.foreign.ID, ""))
}

func TestSubscribeReplaysJournalThenLiveEvents(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t, validToken)

	for seq := int64(1); seq <= 3; seq++ {
		f.journal.events = append(f.journal.events, outbound.Event{
			Type: outbound.EventTypeBidPlaced, AuctionID: f.auction.ID, Sequence: seq,
		})
	}

	last := int64(1)
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, AuctionID: &f.auction.ID, LastSequence: &last}))

	ack := read(t, conn)
	require.Equal(t, MessageTypeSubscribed, ack.Type)

	assert.Equal(t, int64(2), read(t, conn).Sequence)
	assert.Equal(t, int64(3), read(t, conn).Sequence)

	// already replayed, dropped as a duplicate
	require.NoError(t, f.broadcaster.Publish(context.Background(), f.auction.ID, outbound.Event{Type: outbound.EventTypeBidPlaced, Sequence: 3}))
	require.NoError(t, f.broadcaster.Publish(context.Background(), f.auction.ID, outbound.Event{Type: outbound.EventTypeBidOutbid, Sequence: 4}))

	live := read(t, conn)
	assert.Equal(t, MessageType(outbound.EventTypeBidOutbid), live.Type)
	assert.Equal(t, int64(4), live.Sequence)
	require.NotNil(t, live.AuctionID)
	assert.Equal(t, f.auction.ID, *live.AuctionID)
}

func TestPlaceBidUsesConnectionIdentity(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t, validToken)
	itemID := uuid.New()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"place_bid","auction_item_id":"`+itemID.String()+`","amount":"150.50"}`)))

	msg := read(t, conn)
	assert.Equal(t, MessageTypeBidAccepted, msg.Type)

	f.bids.mu.Lock()
	defer f.bids.mu.Unlock()
	require.Len(t, f.bids.reqs, 1)
	req := f.bids.reqs[0]
	assert.Equal(t, f.tenantID, req.TenantID)
	assert.Equal(t, itemID, req.AuctionItemID)
	assert.True(t, req.OfferedPrice.Equal(decimal.RequireFromString("150.50")))
	assert.NotEmpty(t, req.ClientID)
}

func TestPlaceBidRejection(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t, validToken)
	itemID := uuid.New()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"place_bid","request_id":"b1","auction_item_id":"`+itemID.String()+`","amount":10}`)))

	msg := read(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "b1", msg.RequestID)
	require.NotNil(t, msg.Error)
	assert.Equal(t, shared.ErrBidAmountTooLow.Error(), *msg.Error)
}

func TestInvalidMessages(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t, validToken)

	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"unknown type", `{"type":"dance"}`, shared.ErrUnknownMessageType},
		{"subscribe without auction", `{"type":"subscribe"}`, shared.ErrAuctionIDRequired},
		{"bid without item", `{"type":"place_bid","amount":"5"}`, shared.ErrAuctionItemRequired},
		{"bid without amount", `{"type":"place_bid","auction_item_id":"` + uuid.NewString() + `"}`, shared.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)))
			msg := read(t, conn)
			assert.Equal(t, MessageTypeError, msg.Type)
			require.NotNil(t, msg.Error)
			assert.Equal(t, tt.want.Error(), *msg.Error)
		})
	}
}

func TestListAuctionsStaysInTenant(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t, validToken)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeListAuctions}))

	msg := read(t, conn)
	require.Equal(t, MessageTypeAuctions, msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, data["count"])
}

func TestDisconnectLeavesRooms(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t, validToken)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, AuctionID: &f.auction.ID}))
	require.Equal(t, MessageTypeSubscribed, read(t, conn).Type)
	require.Equal(t, 1, f.handler.GetConnectedClients())

	conn.Close()

	assert.Eventually(t, func() bool {
		return f.handler.GetConnectedClients() == 0
	}, 2*time.Second, 10*time.Millisecond)

	f.broadcaster.mu.Lock()
	defer f.broadcaster.mu.Unlock()
	assert.Empty(t, f.broadcaster.rooms[f.auction.ID])
}

func TestSlowConsumerIsDisconnected(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t, validToken)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, AuctionID: &f.auction.ID}))
	require.Equal(t, MessageTypeSubscribed, read(t, conn).Type)

	// stop reading and flood the room until the gateway gives up on us
	before := testutil.ToFloat64(metrics.WSSlowConsumersTotal)
	blob := strings.Repeat("x", 64*1024)
	deadline := time.Now().Add(10 * time.Second)
	for seq := int64(1); testutil.ToFloat64(metrics.WSSlowConsumersTotal) == before; seq++ {
		require.True(t, time.Now().Before(deadline), "client was never flagged as slow")
		require.NoError(t, f.broadcaster.Publish(context.Background(), f.auction.ID, outbound.Event{
			Type:     outbound.EventTypeBidPlaced,
			Sequence: seq,
			Data:     map[string]interface{}{"blob": blob},
		}))
		time.Sleep(time.Millisecond)
	}

	var err error
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(15*time.Second)))
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)

	assert.Eventually(t, func() bool {
		return f.handler.GetConnectedClients() == 0
	}, 2*time.Second, 10*time.Millisecond)

	f.broadcaster.mu.Lock()
	defer f.broadcaster.mu.Unlock()
	assert.Empty(t, f.broadcaster.rooms[f.auction.ID])
}
