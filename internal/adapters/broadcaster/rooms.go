package broadcaster

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"subastas-marketplace/internal/ports/outbound"
)

// rooms tracks which local clients listen to which auction. Every client
// has a single event channel shared by all the rooms it joined.
type rooms struct {
	mu               sync.RWMutex
	members          map[uuid.UUID]map[string]bool // auctionID -> clientIDs
	clientsToAuction map[string]map[uuid.UUID]bool // clientID -> auctionIDs
	channels         map[string]chan outbound.Event
	grace            time.Duration
	logger           zerolog.Logger
}

func newRooms(grace time.Duration, logger zerolog.Logger) *rooms {
	return &rooms{
		members:          make(map[uuid.UUID]map[string]bool),
		clientsToAuction: make(map[string]map[uuid.UUID]bool),
		channels:         make(map[string]chan outbound.Event),
		grace:            grace,
		logger:           logger,
	}
}

// join adds clientID to the room; it reports false when already a member
func (r *rooms) join(auctionID uuid.UUID, clientID string, ch chan outbound.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clientsToAuction[clientID][auctionID] {
		return false
	}

	if r.members[auctionID] == nil {
		r.members[auctionID] = make(map[string]bool)
	}
	r.members[auctionID][clientID] = true

	if r.clientsToAuction[clientID] == nil {
		r.clientsToAuction[clientID] = make(map[uuid.UUID]bool)
	}
	r.clientsToAuction[clientID][auctionID] = true

	if _, ok := r.channels[clientID]; !ok {
		r.channels[clientID] = ch
	}
	return true
}

func (r *rooms) leave(auctionID uuid.UUID, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(auctionID, clientID)
}

func (r *rooms) leaveLocked(auctionID uuid.UUID, clientID string) {
	if room, ok := r.members[auctionID]; ok {
		delete(room, clientID)
		if len(room) == 0 {
			delete(r.members, auctionID)
		}
	}

	if joined, ok := r.clientsToAuction[clientID]; ok {
		delete(joined, auctionID)
		if len(joined) == 0 {
			delete(r.clientsToAuction, clientID)
			delete(r.channels, clientID)
		}
	}
}

// leaveAll removes clientID from every room and returns how many it left
func (r *rooms) leaveAll(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.clientsToAuction[clientID]
	n := len(joined)
	for auctionID := range joined {
		r.leaveLocked(auctionID, clientID)
	}
	return n
}

func (r *rooms) isMember(auctionID uuid.UUID, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[auctionID][clientID]
}

func (r *rooms) list(auctionID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]string, 0, len(r.members[auctionID]))
	for clientID := range r.members[auctionID] {
		clients = append(clients, clientID)
	}
	return clients
}

// dispatch hands the event to every member of its room and waits for all
// deliveries, so events reach each client in dispatch order. A member whose
// channel stays full for the grace period misses the event and catches up
// through the journal.
func (r *rooms) dispatch(event outbound.Event) int {
	r.mu.RLock()
	targets := make(map[string]chan outbound.Event, len(r.members[event.AuctionID]))
	for clientID := range r.members[event.AuctionID] {
		targets[clientID] = r.channels[clientID]
	}
	r.mu.RUnlock()

	var (
		wg        conc.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for clientID, ch := range targets {
		wg.Go(func() {
			if !r.deliver(ch, event) {
				r.logger.Warn().
					Str("client_id", clientID).
					Str("auction_id", event.AuctionID.String()).
					Int64("sequence", event.Sequence).
					Msg("Local channel full for client, dropping event")
				return
			}
			mu.Lock()
			delivered++
			mu.Unlock()
		})
	}
	wg.Wait()

	return delivered
}

func (r *rooms) deliver(ch chan outbound.Event, event outbound.Event) bool {
	select {
	case ch <- event:
		return true
	default:
	}

	timer := time.NewTimer(r.grace)
	defer timer.Stop()

	select {
	case ch <- event:
		return true
	case <-timer.C:
		return false
	}
}
