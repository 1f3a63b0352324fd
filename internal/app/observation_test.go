package app

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subastas-marketplace/internal/domain/observation"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
)

func TestObservations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, ai := f.openAuction(t)

	req := inbound.CreateObservationRequest{
		TenantID:      f.tenant.ID,
		UserID:        f.bidderA.ID,
		AuctionItemID: ai.ID,
		Comment:       "  ¿Incluye mantención?  ",
	}
	o, err := f.observations.AddObservation(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "¿Incluye mantención?", o.Comment)

	req.Comment = "   "
	_, err = f.observations.AddObservation(ctx, req)
	assert.ErrorIs(t, err, shared.ErrInvalidRequest)

	req.Comment = strings.Repeat("a", observation.MaxCommentLength+1)
	_, err = f.observations.AddObservation(ctx, req)
	assert.ErrorIs(t, err, shared.ErrInvalidRequest)

	req.Comment = "hola"
	req.TenantID = uuid.New()
	_, err = f.observations.AddObservation(ctx, req)
	assert.ErrorIs(t, err, shared.ErrAuctionItemNotFound)

	list, err := f.observations.ListObservations(ctx, f.tenant.ID, ai.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
