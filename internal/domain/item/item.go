package item

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/shared"
)

// State is the lifecycle label of an item, also used for auction items
type State string

const (
	StateAvailable   State = "Disponible"
	StateOnAuction   State = "En subasta"
	StateSold        State = "Vendido"
	StateAwarded     State = "Adjudicado"
	StateDeleted     State = "Eliminado"
	StateUnderReview State = "En revisión"
)

// validTransitions defines the item state machine
var validTransitions = map[State][]State{
	StateAvailable:   {StateOnAuction, StateUnderReview, StateDeleted},
	StateUnderReview: {StateAvailable, StateDeleted},
	StateOnAuction:   {StateAwarded, StateAvailable, StateDeleted},
	StateAwarded:     {StateSold, StateAvailable},
}

// States lists every legal label
func States() []State {
	return []State{StateAvailable, StateOnAuction, StateSold, StateAwarded, StateDeleted, StateUnderReview}
}

// Valid reports whether s is a legal label
func (s State) Valid() bool {
	for _, known := range States() {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s State) IsTerminal() bool {
	return len(validTransitions[s]) == 0
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

// Transition returns next if the move is legal, or ErrInvalidTransition
func (s State) Transition(next State) (State, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("%w: %q -> %q", shared.ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Item is something a company puts up for auction
type Item struct {
	shared.Base
	TenantID    uuid.UUID `json:"tenant_id"`
	CompanyID   uuid.UUID `json:"company_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	State       State     `json:"state"`
}

// New creates an available item owned by companyID
func New(tenantID, companyID uuid.UUID, name, description string, now time.Time) *Item {
	return &Item{
		Base:        shared.NewBase(now),
		TenantID:    tenantID,
		CompanyID:   companyID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		State:       StateAvailable,
	}
}

// TransitionTo moves the item to next when the state machine allows it
func (i *Item) TransitionTo(next State, now time.Time) error {
	state, err := i.State.Transition(next)
	if err != nil {
		return err
	}
	i.State = state
	i.Touch(now)
	if state == StateDeleted {
		i.SoftDelete(now)
	}
	return nil
}
