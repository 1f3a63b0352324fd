package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subastas-marketplace/internal/domain/shared"
)

func TestParseClientMessage(t *testing.T) {
	auctionID := uuid.New()

	msg, err := ParseClientMessage([]byte(`{"type":"subscribe","auction_id":"` + auctionID.String() + `","last_sequence":7}`))
	require.NoError(t, err)
	assert.Equal(t, MessageTypeSubscribe, msg.Type)
	require.NotNil(t, msg.AuctionID)
	assert.Equal(t, auctionID, *msg.AuctionID)
	require.NotNil(t, msg.LastSequence)
	assert.Equal(t, int64(7), *msg.LastSequence)

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"unknown field", `{"type":"place_bid","user_id":"someone-else"}`, `unknown field "user_id"`},
		{"trailing data", `{"type":"ping"}{"type":"ping"}`, "trailing data"},
		{"malformed", `{"type":`, "failed to parse client message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClientMessage([]byte(tt.payload))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err = ParseClientMessage([]byte(`{"request_id":"r1"}`))
	assert.ErrorIs(t, err, shared.ErrMessageTypeRequired)
}
