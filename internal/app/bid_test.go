package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/bid"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/user"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

func (f *fixture) placeBid(u *user.User, ai *auction.AuctionItem, price int64) (*bid.Bid, error) {
	return f.bids.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		TenantID:      f.tenant.ID,
		UserID:        u.ID,
		AuctionItemID: ai.ID,
		OfferedPrice:  decimal.NewFromInt(price),
	})
}

func TestPlaceBid_PriceRules(t *testing.T) {
	f := newFixture()
	_, ai := f.openAuction(t)

	steps := []struct {
		name  string
		price int64
		want  error
	}{
		{"zero", 0, shared.ErrBidAmountInvalid},
		{"equal to starting price", 100, shared.ErrBidAmountBelowStarting},
		{"first above starting", 101, nil},
		{"below increment", 110, shared.ErrBidAmountTooLow},
		{"exactly increment", 111, nil},
		{"well above", 500, nil},
		{"equal to current", 500, shared.ErrBidAmountTooLow},
	}

	for _, step := range steps {
		_, err := f.placeBid(f.bidderA, ai, step.price)
		if step.want == nil {
			require.NoError(t, err, step.name)
			continue
		}
		assert.ErrorIs(t, err, step.want, step.name)
	}

	stored := f.auctionItem(ai.ID)
	assert.True(t, stored.CurrentPrice.Equal(decimal.NewFromInt(500)))
	assert.EqualValues(t, 3, stored.Version)
	assert.Equal(t, f.bidderA.ID, *stored.LeadingUserID)
}

func TestPlaceBid_Eligibility(t *testing.T) {
	f := newFixture()
	a, ai := f.openAuction(t)

	_, err := f.placeBid(f.sellerU, ai, 200)
	assert.ErrorIs(t, err, shared.ErrSelfBid)

	stranger := user.New("x@otro.cl", "x", "", user.RoleMember, "", f.now)
	stranger.ConnectTo(uuid.New(), uuid.New(), f.now)
	f.store.users[stranger.ID] = *stranger
	_, err = f.placeBid(stranger, ai, 200)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	inactive := f.addUser("off@buyer.cl", f.buyer.ID)
	inactive.IsActive = false
	f.store.users[inactive.ID] = *inactive
	_, err = f.placeBid(inactive, ai, 200)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.bids.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		TenantID: uuid.New(), UserID: f.bidderA.ID, AuctionItemID: ai.ID, OfferedPrice: decimal.NewFromInt(200),
	})
	assert.ErrorIs(t, err, shared.ErrAuctionItemNotFound)

	f.now = a.EndTime
	_, err = f.placeBid(f.bidderA, ai, 200)
	assert.ErrorIs(t, err, shared.ErrAuctionNotAcceptingBids)
}

func TestPlaceBid_AuctionNotOpen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.newAuction(t)
	ai, err := f.auctions.AddItem(ctx, inbound.AddAuctionItemRequest{
		Actor: f.principal(f.sellerU), AuctionID: a.ID, ItemID: f.newItem(t).ID, StartingPrice: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	_, err = f.placeBid(f.bidderA, ai, 50)
	assert.ErrorIs(t, err, shared.ErrAuctionNotAcceptingBids)

	// Opened early by the store but the window has not begun.
	stored := f.store.auctions[a.ID]
	stored.State = auction.StateActive
	f.store.auctions[a.ID] = stored
	_, err = f.placeBid(f.bidderA, ai, 50)
	assert.ErrorIs(t, err, shared.ErrAuctionNotStarted)
}

func TestPlaceBid_Events(t *testing.T) {
	f := newFixture()
	_, ai := f.openAuction(t)

	_, err := f.placeBid(f.bidderA, ai, 150)
	require.NoError(t, err)
	_, err = f.placeBid(f.bidderA, ai, 160)
	require.NoError(t, err)
	assert.Empty(t, f.publisher.ofType(outbound.EventTypeBidOutbid), "raising your own bid outbids nobody")

	_, err = f.placeBid(f.bidderB, ai, 170)
	require.NoError(t, err)

	placed := f.publisher.ofType(outbound.EventTypeBidPlaced)
	assert.Len(t, placed, 3)

	outbid := f.publisher.ofType(outbound.EventTypeBidOutbid)
	require.Len(t, outbid, 1)
	assert.Equal(t, f.bidderA.ID, outbid[0].Data["previous_bidder_id"])
	assert.Equal(t, f.bidderB.ID, outbid[0].Data["user_id"])
	assert.True(t, decimal.NewFromInt(160).Equal(outbid[0].Data["previous_price"].(decimal.Decimal)))
}

func TestPlaceBid_PublishFailureDoesNotFailBid(t *testing.T) {
	f := newFixture()
	_, ai := f.openAuction(t)
	f.publisher.err = errors.New("redis down")

	_, err := f.placeBid(f.bidderA, ai, 150)
	require.NoError(t, err)
	assert.True(t, f.auctionItem(ai.ID).CurrentPrice.Equal(decimal.NewFromInt(150)))
}

func TestPlaceBid_RetriesConflicts(t *testing.T) {
	f := newFixture()
	_, ai := f.openAuction(t)

	f.store.conflicts = 2
	_, err := f.placeBid(f.bidderA, ai, 150)
	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.outcomes[bidOutcomeAccepted])

	f.store.conflicts = 100
	_, err = f.placeBid(f.bidderB, ai, 200)
	assert.ErrorIs(t, err, shared.ErrBidConflict)
	assert.Equal(t, 1, f.metrics.outcomes[bidOutcomeConflict])
}

func TestPlaceBid_RevalidatesAfterConflict(t *testing.T) {
	f := newFixture()
	_, ai := f.openAuction(t)

	// Another node lands a higher bid between our read and our write.
	f.bids.bidRepo = &raceOnce{bidRepoStub: bidRepoStub{f.store}, f: f, price: 300}

	_, err := f.placeBid(f.bidderA, ai, 150)
	assert.ErrorIs(t, err, shared.ErrBidAmountTooLow)
	assert.True(t, f.auctionItem(ai.ID).CurrentPrice.Equal(decimal.NewFromInt(300)))
}

// raceOnce applies a competing bid right before the first placement
type raceOnce struct {
	bidRepoStub
	f     *fixture
	price int64
	done  bool
}

func (r *raceOnce) PlaceBidWithOCC(ctx context.Context, b *bid.Bid, expectedVersion int64) error {
	if !r.done {
		r.done = true
		competitor := bid.New(b.AuctionID, b.AuctionItemID, r.f.bidderB.ID, decimal.NewFromInt(r.price), r.f.now)
		if err := r.bidRepoStub.PlaceBidWithOCC(ctx, competitor, expectedVersion); err != nil {
			return err
		}
	}
	return r.bidRepoStub.PlaceBidWithOCC(ctx, b, expectedVersion)
}

func TestPlaceBid_ConcurrentBidsKeepHighest(t *testing.T) {
	f := newFixture()
	_, ai := f.openAuction(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bidder := f.bidderA
			if i%2 == 1 {
				bidder = f.bidderB
			}
			_, _ = f.placeBid(bidder, ai, int64(110+i*10))
		}(i)
	}
	wg.Wait()

	stored := f.auctionItem(ai.ID)
	assert.True(t, stored.CurrentPrice.Equal(decimal.NewFromInt(300)), stored.CurrentPrice.String())

	bids, err := f.bids.ListBids(context.Background(), f.tenant.ID, ai.ID)
	require.NoError(t, err)
	assert.EqualValues(t, len(bids), stored.Version)
	assert.True(t, bids[0].OfferedPrice.Equal(decimal.NewFromInt(300)))
	for i := 1; i < len(bids); i++ {
		assert.True(t, bids[i-1].OfferedPrice.GreaterThan(bids[i].OfferedPrice))
	}

	highest, err := f.bids.GetHighestBid(context.Background(), f.tenant.ID, ai.ID)
	require.NoError(t, err)
	assert.Equal(t, *stored.WinningBidID, highest.ID)
}

func TestListBids_TenantScoped(t *testing.T) {
	f := newFixture()
	_, ai := f.openAuction(t)

	_, err := f.bids.ListBids(context.Background(), uuid.New(), ai.ID)
	assert.ErrorIs(t, err, shared.ErrAuctionItemNotFound)

	_, err = f.bids.GetHighestBid(context.Background(), f.tenant.ID, ai.ID)
	assert.ErrorIs(t, err, shared.ErrNoBidsFound)
}
