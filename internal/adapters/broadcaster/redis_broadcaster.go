package broadcaster

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/outbound"
)

const (
	channelPrefix     = "auction:"
	channelPattern    = channelPrefix + "*"
	defaultJournalLen = 500
	defaultGrace      = 100 * time.Millisecond
)

func channelName(auctionID uuid.UUID) string { return channelPrefix + auctionID.String() }
func sequenceKey(auctionID uuid.UUID) string { return channelName(auctionID) + ":seq" }
func journalKey(auctionID uuid.UUID) string  { return channelName(auctionID) + ":events" }

// RedisBroadcaster implements the broadcaster interface using Redis pub/sub.
// A single pattern subscription per node feeds the local rooms; every event
// also gets a per-auction sequence and lands in a capped stream journal.
type RedisBroadcaster struct {
	client     *redis.Client
	rooms      *rooms
	journalLen int64
	now        func() time.Time
	pubsub     *redis.PubSub
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	logger     zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	// JournalLength caps each auction's event stream
	JournalLength int64
	// DeliveryGrace bounds how long a full client channel may block delivery
	DeliveryGrace time.Duration
	Clock         func() time.Time
	Logger        zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	logger := params.Logger.With().Str("component", "redis_broadcaster").Logger()

	journalLen := params.JournalLength
	if journalLen <= 0 {
		journalLen = defaultJournalLen
	}
	grace := params.DeliveryGrace
	if grace <= 0 {
		grace = defaultGrace
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}

	return &RedisBroadcaster{
		client:     params.RedisClient,
		rooms:      newRooms(grace, logger),
		journalLen: journalLen,
		now:        now,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Start opens the node's pattern subscription and begins fanning events out
func (r *RedisBroadcaster) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub != nil {
		return nil
	}

	pubsub := r.client.PSubscribe(ctx, channelPattern)
	// Receive blocks until the subscription is confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", channelPattern, err)
	}
	r.pubsub = pubsub

	go r.listenForRedisMessages(pubsub)

	r.logger.Info().Str("pattern", channelPattern).Msg("Broadcaster listening for auction events")
	return nil
}

// Subscribe subscribes a client to events for a specific auction
func (r *RedisBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan outbound.Event) error {
	if !r.rooms.join(auctionID, clientID, eventChan) {
		r.logger.Info().
			Str("client_id", clientID).
			Str("auction_id", auctionID.String()).
			Msg("Client already subscribed to auction")
		return nil
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client subscribed to auction")
	return nil
}

// Unsubscribe unsubscribes a client from events for a specific auction
func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error {
	if !r.rooms.isMember(auctionID, clientID) {
		return shared.ErrUserNotSubscribed
	}
	r.rooms.leave(auctionID, clientID)

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client unsubscribed from auction")
	return nil
}

// UnsubscribeAll removes a client from every room it joined
func (r *RedisBroadcaster) UnsubscribeAll(ctx context.Context, clientID string) {
	if n := r.rooms.leaveAll(clientID); n > 0 {
		r.logger.Debug().Str("client_id", clientID).Int("rooms", n).Msg("Client left all auction rooms")
	}
}

// Publish sequences the event, journals it and publishes it to every node
func (r *RedisBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	event.AuctionID = auctionID
	if event.Timestamp == 0 {
		event.Timestamp = r.now().Unix()
	}

	seq, err := r.client.Incr(ctx, sequenceKey(auctionID)).Result()
	if err != nil {
		r.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to allocate event sequence")
		return fmt.Errorf("%w: sequence: %v", shared.ErrBroadcastFailed, err)
	}
	event.Sequence = seq

	eventJSON, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var published *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: journalKey(auctionID),
			MaxLen: r.journalLen,
			Approx: true,
			Values: map[string]interface{}{"seq": seq, "event": eventJSON},
		})
		published = pipe.Publish(ctx, channelName(auctionID), eventJSON)
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to publish to Redis")
		return fmt.Errorf("%w: %v", shared.ErrBroadcastFailed, err)
	}

	r.logger.Info().
		Str("event_type", string(event.Type)).
		Str("auction_id", auctionID.String()).
		Int64("sequence", seq).
		Int64("subscriber_nodes", published.Val()).
		Msg("Published event to auction")

	return nil
}

// Since returns journaled events with a sequence greater than after
func (r *RedisBroadcaster) Since(ctx context.Context, auctionID uuid.UUID, after int64) ([]outbound.Event, error) {
	entries, err := r.client.XRange(ctx, journalKey(auctionID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event journal: %w", err)
	}
	return decodeJournal(entries, after)
}

func (r *RedisBroadcaster) GetSubscribers(ctx context.Context, auctionID uuid.UUID) ([]string, error) {
	return r.rooms.list(auctionID), nil
}

func (r *RedisBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool {
	return r.rooms.isMember(auctionID, clientID)
}

// listenForRedisMessages forwards pattern messages to the local rooms
func (r *RedisBroadcaster) listenForRedisMessages(pubsub *redis.PubSub) {
	defer close(r.done)
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Msg("Redis message listener panic")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info().Msg("Redis channel closed")
				return
			}

			event, err := decodeEvent(msg.Payload)
			if err != nil {
				r.logger.Error().Err(err).Str("channel", msg.Channel).Msg("Failed to unmarshal Redis message")
				continue
			}

			delivered := r.rooms.dispatch(event)
			r.logger.Debug().
				Str("event_type", string(event.Type)).
				Str("auction_id", event.AuctionID.String()).
				Int("delivered", delivered).
				Msg("Fanned out event")

		case <-r.ctx.Done():
			return
		}
	}
}

// Close stops the listener and releases the subscription. The Redis client
// is owned by the caller.
func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	pubsub := r.pubsub
	r.pubsub = nil
	r.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-r.done
	return err
}

func decodeEvent(payload string) (outbound.Event, error) {
	var event outbound.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return outbound.Event{}, err
	}
	if event.AuctionID == uuid.Nil {
		return outbound.Event{}, shared.ErrAuctionIDRequired
	}
	return event, nil
}

// decodeJournal keeps entries newer than after, in stream order. The stream
// order matches sequence order except for concurrent publishers, so the
// result is sorted by sequence.
func decodeJournal(entries []redis.XMessage, after int64) ([]outbound.Event, error) {
	events := make([]outbound.Event, 0, len(entries))
	for _, entry := range entries {
		seq, err := journalSequence(entry.Values["seq"])
		if err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", entry.ID, err)
		}
		if seq <= after {
			continue
		}

		payload, ok := entry.Values["event"].(string)
		if !ok {
			return nil, fmt.Errorf("journal entry %s: missing event", entry.ID)
		}
		event, err := decodeEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", entry.ID, err)
		}
		events = append(events, event)
	}

	sortBySequence(events)
	return events, nil
}

func journalSequence(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("missing sequence")
	}
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func sortBySequence(events []outbound.Event) {
	slices.SortStableFunc(events, func(a, b outbound.Event) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})
}

var (
	_ outbound.Broadcaster  = (*RedisBroadcaster)(nil)
	_ outbound.EventJournal = (*RedisBroadcaster)(nil)
)
