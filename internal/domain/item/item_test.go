package item

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subastas-marketplace/internal/domain/shared"
)

func TestState_Literals(t *testing.T) {
	assert.Equal(t, "En revisión", string(StateUnderReview))
	assert.Equal(t, "Disponible", string(StateAvailable))
	assert.Equal(t, "En subasta", string(StateOnAuction))
	assert.Equal(t, "Vendido", string(StateSold))
	assert.Equal(t, "Adjudicado", string(StateAwarded))
	assert.Equal(t, "Eliminado", string(StateDeleted))

	raw, err := json.Marshal(struct {
		State State `json:"state"`
	}{StateUnderReview})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"En revisión"}`, string(raw))
}

func TestState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateAvailable, StateOnAuction, true},
		{StateAvailable, StateUnderReview, true},
		{StateUnderReview, StateAvailable, true},
		{StateUnderReview, StateOnAuction, false},
		{StateOnAuction, StateAwarded, true},
		{StateOnAuction, StateSold, false},
		{StateOnAuction, StateAvailable, true},
		{StateAwarded, StateSold, true},
		{StateSold, StateAvailable, false},
		{StateDeleted, StateAvailable, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateSold.IsTerminal())
	assert.True(t, StateDeleted.IsTerminal())
	assert.False(t, StateAwarded.IsTerminal())
	assert.False(t, State("Perdido").Valid())
}

func TestItem_TransitionTo(t *testing.T) {
	it := New(uuid.New(), uuid.New(), "Grúa", "horquilla 3t", time.Now())
	require.Equal(t, StateAvailable, it.State)

	err := it.TransitionTo(StateSold, time.Now())
	assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	assert.Equal(t, StateAvailable, it.State)

	require.NoError(t, it.TransitionTo(StateDeleted, time.Now()))
	assert.True(t, it.IsDeleted)
	assert.NotNil(t, it.DeletedAt)
}
