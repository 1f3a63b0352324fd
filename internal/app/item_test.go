package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/user"
	"subastas-marketplace/internal/ports/inbound"
)

func TestCreateItem_RequiresCompany(t *testing.T) {
	f := newFixture()
	admin := inbound.Principal{TenantID: f.tenant.ID, Role: user.RoleAdmin}

	_, err := f.items.CreateItem(context.Background(), inbound.CreateItemRequest{Actor: admin, Name: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidRequest)

	i, err := f.items.CreateItem(context.Background(), inbound.CreateItemRequest{Actor: admin, CompanyID: f.seller.ID, Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, item.StateAvailable, i.State)

	_, err = f.items.CreateItem(context.Background(), inbound.CreateItemRequest{
		Actor: f.principal(f.bidderA), CompanyID: f.seller.ID, Name: "x",
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestItemReviewFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.principal(f.sellerU)
	admin := inbound.Principal{TenantID: f.tenant.ID, Role: user.RoleAdmin}
	i := f.newItem(t)

	reviewed, err := f.items.SubmitForReview(ctx, seller, i.ID)
	require.NoError(t, err)
	assert.Equal(t, item.StateUnderReview, reviewed.State)

	_, err = f.items.ApproveItem(ctx, seller, i.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	approved, err := f.items.ApproveItem(ctx, admin, i.ID)
	require.NoError(t, err)
	assert.Equal(t, item.StateAvailable, approved.State)

	_, err = f.items.ApproveItem(ctx, admin, i.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	require.NoError(t, f.items.DeleteItem(ctx, seller, i.ID))
	_, err = f.items.GetItem(ctx, f.tenant.ID, i.ID)
	assert.ErrorIs(t, err, shared.ErrItemNotFound)
}

func TestListItems(t *testing.T) {
	f := newFixture()
	f.newItem(t)
	f.newItem(t)

	available := item.StateAvailable
	list, err := f.items.ListItems(context.Background(), inbound.ListItemsRequest{TenantID: f.tenant.ID, State: &available})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	bogus := item.State("Perdido")
	_, err = f.items.ListItems(context.Background(), inbound.ListItemsRequest{TenantID: f.tenant.ID, State: &bogus})
	assert.ErrorIs(t, err, shared.ErrInvalidRequest)
}

func TestDeleteItem_RefusedWhileInAuction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.principal(f.sellerU)
	a, ai := f.openAuction(t)

	_, err := f.bids.PlaceBid(ctx, inbound.PlaceBidRequest{
		TenantID: f.tenant.ID, UserID: f.bidderA.ID, AuctionItemID: ai.ID, OfferedPrice: decimal.NewFromInt(150),
	})
	require.NoError(t, err)

	err = f.items.DeleteItem(ctx, seller, ai.ItemID)
	assert.ErrorIs(t, err, shared.ErrItemNotAvailable)
	assert.Equal(t, item.StateOnAuction, f.itemState(ai.ItemID))
	assert.Equal(t, item.StateOnAuction, f.auctionItem(ai.ID).State)

	_, err = f.items.SubmitForReview(ctx, seller, ai.ItemID)
	assert.ErrorIs(t, err, shared.ErrItemNotAvailable)

	_, err = f.auctions.CloseAuction(ctx, seller, a.ID)
	require.NoError(t, err)
	assert.Equal(t, item.StateAwarded, f.itemState(ai.ItemID))

	sold, err := f.auctions.ConfirmSale(ctx, seller, ai.ID)
	require.NoError(t, err)
	assert.Equal(t, item.StateSold, sold.State)
	assert.Equal(t, item.StateSold, f.itemState(ai.ItemID))

	err = f.items.DeleteItem(ctx, seller, ai.ItemID)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestDeleteItem_AllowedOnceReleased(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.principal(f.sellerU)
	a, ai := f.openAuction(t)

	result, err := f.auctions.CancelAuction(ctx, seller, a.ID)
	require.NoError(t, err)
	assert.Equal(t, string(auction.StateCancelled), result.Status)
	assert.Equal(t, item.StateAvailable, f.itemState(ai.ItemID))

	require.NoError(t, f.items.DeleteItem(ctx, seller, ai.ItemID))
	_, err = f.items.GetItem(ctx, f.tenant.ID, ai.ItemID)
	assert.ErrorIs(t, err, shared.ErrItemNotFound)
}
