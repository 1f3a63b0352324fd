package auction

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/shared"
)

// State represents the current state of an auction
type State string

const (
	StateActive    State = "Activa"
	StateInactive  State = "Inactiva"
	StateCompleted State = "Completada"
	StateCancelled State = "Cancelada"
)

// Type separates rehearsal auctions from real ones
type Type string

const (
	TypeTest Type = "Prueba"
	TypeReal Type = "Real"
)

var validTransitions = map[State][]State{
	StateInactive: {StateActive, StateCancelled},
	StateActive:   {StateCompleted, StateCancelled},
}

// Valid reports whether s is a known auction state
func (s State) Valid() bool {
	switch s {
	case StateActive, StateInactive, StateCompleted, StateCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a transition from s to next is valid
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether t is a known auction type
func (t Type) Valid() bool {
	return t == TypeTest || t == TypeReal
}

// Auction is a timed sale of one or more items by a company
type Auction struct {
	shared.Base
	TenantID    uuid.UUID `json:"tenant_id"`
	CompanyID   uuid.UUID `json:"company_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        Type      `json:"type"`
	State       State     `json:"state"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// New creates an inactive auction
func New(tenantID, companyID uuid.UUID, title, description string, typ Type, start, end, now time.Time) *Auction {
	if !typ.Valid() {
		typ = TypeReal
	}
	return &Auction{
		Base:        shared.NewBase(now),
		TenantID:    tenantID,
		CompanyID:   companyID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Type:        typ,
		State:       StateInactive,
		StartTime:   start,
		EndTime:     end,
	}
}

// IsActive returns true if the auction is currently active
func (a *Auction) IsActive() bool {
	return a.State == StateActive
}

// IsEnded returns true if the auction reached a terminal state
func (a *Auction) IsEnded() bool {
	return a.State == StateCompleted || a.State == StateCancelled
}

// AuctionStarted reports whether the start time has passed
func (a *Auction) AuctionStarted(now time.Time) bool {
	return !now.Before(a.StartTime)
}

// Expired reports whether the end time has passed
func (a *Auction) Expired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// CanBid returns true if a bid can be placed on this auction at now
func (a *Auction) CanBid(now time.Time) bool {
	return a.IsActive() && a.AuctionStarted(now) && !a.Expired(now)
}

// TransitionTo moves the auction to next when the state machine allows it
func (a *Auction) TransitionTo(next State, now time.Time) error {
	if !a.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %q -> %q", shared.ErrInvalidTransition, a.State, next)
	}
	a.State = next
	a.Touch(now)
	return nil
}
