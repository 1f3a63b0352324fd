package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"subastas-marketplace/internal/domain/auction"
	"subastas-marketplace/internal/domain/bid"
	"subastas-marketplace/internal/domain/company"
	"subastas-marketplace/internal/domain/item"
	"subastas-marketplace/internal/domain/observation"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/tenant"
	"subastas-marketplace/internal/domain/user"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

// memStore backs every stub repository. Entities are copied in and out so
// services cannot mutate stored state without going through a repository.
type memStore struct {
	mu           sync.Mutex
	tenants      map[uuid.UUID]tenant.Tenant
	companies    map[uuid.UUID]company.Company
	users        map[uuid.UUID]user.User
	items        map[uuid.UUID]item.Item
	auctions     map[uuid.UUID]auction.Auction
	auctionItems map[uuid.UUID]auction.AuctionItem
	bids         map[uuid.UUID]bid.Bid
	observations []observation.Observation

	// injected OCC conflicts returned before the next real placements
	conflicts int
}

func newMemStore() *memStore {
	return &memStore{
		tenants:      make(map[uuid.UUID]tenant.Tenant),
		companies:    make(map[uuid.UUID]company.Company),
		users:        make(map[uuid.UUID]user.User),
		items:        make(map[uuid.UUID]item.Item),
		auctions:     make(map[uuid.UUID]auction.Auction),
		auctionItems: make(map[uuid.UUID]auction.AuctionItem),
		bids:         make(map[uuid.UUID]bid.Bid),
	}
}

func paginate[T any](all []T, page shared.Page) []T {
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

type tenantRepoStub struct{ s *memStore }

func (r tenantRepoStub) Create(_ context.Context, t *tenant.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tenants {
		if existing.Domain == t.Domain {
			return shared.ErrTenantDomainTaken
		}
	}
	r.s.tenants[t.ID] = *t
	return nil
}

func (r tenantRepoStub) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, shared.ErrTenantNotFound
	}
	return &t, nil
}

func (r tenantRepoStub) GetByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tenants {
		if t.Domain == domain {
			t := t
			return &t, nil
		}
	}
	return nil, shared.ErrTenantNotFound
}

func (r tenantRepoStub) List(_ context.Context, page shared.Page) ([]*tenant.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*tenant.Tenant, 0, len(r.s.tenants))
	for _, t := range r.s.tenants {
		t := t
		all = append(all, &t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Domain < all[j].Domain })
	return paginate(all, page), nil
}

type companyRepoStub struct{ s *memStore }

func (r companyRepoStub) Create(_ context.Context, c *company.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.companies[c.ID] = *c
	return nil
}

func (r companyRepoStub) GetByID(_ context.Context, id uuid.UUID) (*company.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, shared.ErrCompanyNotFound
	}
	return &c, nil
}

func (r companyRepoStub) List(_ context.Context, tenantID uuid.UUID, page shared.Page) ([]*company.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*company.Company
	for _, c := range r.s.companies {
		if c.TenantID == tenantID {
			c := c
			all = append(all, &c)
		}
	}
	return paginate(all, page), nil
}

type userRepoStub struct{ s *memStore }

func (r userRepoStub) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

func (r userRepoStub) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r userRepoStub) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return shared.ErrUserExists
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepoStub) Update(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	r.s.users[u.ID] = *u
	return nil
}

type itemRepoStub struct{ s *memStore }

func (r itemRepoStub) Create(_ context.Context, i *item.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.items[i.ID] = *i
	return nil
}

func (r itemRepoStub) GetByID(_ context.Context, id uuid.UUID) (*item.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.items[id]
	if !ok || i.IsDeleted {
		return nil, shared.ErrItemNotFound
	}
	return &i, nil
}

func (r itemRepoStub) List(_ context.Context, f outbound.ItemFilter) ([]*item.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*item.Item
	for _, i := range r.s.items {
		if i.IsDeleted || i.TenantID != f.TenantID {
			continue
		}
		if f.CompanyID != nil && i.CompanyID != *f.CompanyID {
			continue
		}
		if f.State != nil && i.State != *f.State {
			continue
		}
		i := i
		all = append(all, &i)
	}
	return paginate(all, f.Page), nil
}

func (r itemRepoStub) UpdateState(_ context.Context, id uuid.UUID, from, to item.State, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.items[id]
	if !ok || i.IsDeleted || i.State != from {
		return shared.ErrStateConflict
	}
	i.State = to
	i.Touch(now)
	if to == item.StateDeleted {
		i.SoftDelete(now)
	}
	r.s.items[id] = i
	return nil
}

type auctionRepoStub struct{ s *memStore }

func (r auctionRepoStub) Create(_ context.Context, a *auction.Auction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.auctions[a.ID] = *a
	return nil
}

func (r auctionRepoStub) GetByID(_ context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	return &a, nil
}

func (r auctionRepoStub) List(_ context.Context, tenantID uuid.UUID, state *auction.State, page shared.Page) ([]*auction.Auction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*auction.Auction
	for _, a := range r.s.auctions {
		if a.TenantID != tenantID || (state != nil && a.State != *state) {
			continue
		}
		a := a
		all = append(all, &a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	return paginate(all, page), nil
}

func (r auctionRepoStub) UpdateState(_ context.Context, id uuid.UUID, from, to auction.State, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.auctions[id]
	if !ok || a.State != from {
		return shared.ErrStateConflict
	}
	a.State = to
	a.Touch(now)
	r.s.auctions[id] = a
	return nil
}

type auctionItemRepoStub struct{ s *memStore }

func (r auctionItemRepoStub) Create(_ context.Context, ai *auction.AuctionItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.auctionItems[ai.ID] = *ai
	return nil
}

func (r auctionItemRepoStub) GetByID(_ context.Context, id uuid.UUID) (*auction.AuctionItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ai, ok := r.s.auctionItems[id]
	if !ok {
		return nil, shared.ErrAuctionItemNotFound
	}
	return &ai, nil
}

func (r auctionItemRepoStub) ListByAuction(_ context.Context, auctionID uuid.UUID) ([]*auction.AuctionItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*auction.AuctionItem{}
	for _, ai := range r.s.auctionItems {
		if ai.AuctionID == auctionID {
			ai := ai
			all = append(all, &ai)
		}
	}
	return all, nil
}

func (r auctionItemRepoStub) UpdateState(_ context.Context, id uuid.UUID, from, to item.State, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ai, ok := r.s.auctionItems[id]
	if !ok || ai.State != from {
		return shared.ErrStateConflict
	}
	ai.State = to
	ai.Touch(now)
	r.s.auctionItems[id] = ai
	return nil
}

type bidRepoStub struct{ s *memStore }

func (r bidRepoStub) GetByID(_ context.Context, id uuid.UUID) (*bid.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bids[id]
	if !ok {
		return nil, shared.ErrBidNotFound
	}
	return &b, nil
}

func (r bidRepoStub) ListByAuctionItem(_ context.Context, auctionItemID uuid.UUID) ([]*bid.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*bid.Bid{}
	for _, b := range r.s.bids {
		if b.AuctionItemID == auctionItemID {
			b := b
			all = append(all, &b)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].OfferedPrice.Equal(all[j].OfferedPrice) {
			return all[i].OfferedPrice.GreaterThan(all[j].OfferedPrice)
		}
		return all[i].BidTime.Before(all[j].BidTime)
	})
	return all, nil
}

func (r bidRepoStub) GetHighestBid(ctx context.Context, auctionItemID uuid.UUID) (*bid.Bid, error) {
	all, _ := r.ListByAuctionItem(ctx, auctionItemID)
	for _, b := range all {
		if b.IsAccepted() {
			return b, nil
		}
	}
	return nil, shared.ErrNoBidsFound
}

func (r bidRepoStub) RejectByAuction(_ context.Context, auctionID uuid.UUID, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.bids {
		if b.AuctionID == auctionID && b.IsAccepted() {
			b.Reject(now)
			r.s.bids[id] = b
			n++
		}
	}
	return n, nil
}

func (r bidRepoStub) PlaceBidWithOCC(_ context.Context, b *bid.Bid, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.conflicts > 0 {
		r.s.conflicts--
		return shared.ErrBidConflict
	}

	ai, ok := r.s.auctionItems[b.AuctionItemID]
	if !ok {
		return shared.ErrAuctionItemNotFound
	}
	a := r.s.auctions[ai.AuctionID]
	if a.State != auction.StateActive || ai.State != item.StateOnAuction || ai.Version != expectedVersion {
		return shared.ErrBidConflict
	}

	r.s.bids[b.ID] = *b
	bidID, userID := b.ID, b.UserID
	ai.CurrentPrice = b.OfferedPrice
	ai.WinningBidID = &bidID
	ai.LeadingUserID = &userID
	ai.Version++
	r.s.auctionItems[ai.ID] = ai
	return nil
}

type observationRepoStub struct{ s *memStore }

func (r observationRepoStub) Create(_ context.Context, o *observation.Observation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.observations = append(r.s.observations, *o)
	return nil
}

func (r observationRepoStub) ListByAuctionItem(_ context.Context, auctionItemID uuid.UUID) ([]*observation.Observation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*observation.Observation{}
	for _, o := range r.s.observations {
		if o.AuctionItemID == auctionItemID {
			o := o
			all = append(all, &o)
		}
	}
	return all, nil
}

type txStub struct{ calls int }

func (t *txStub) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// recordingPublisher keeps every published event in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []outbound.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ uuid.UUID, event outbound.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) ofType(typ outbound.EventType) []outbound.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []outbound.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type schedulerStub struct {
	starts      map[uuid.UUID]time.Time
	ends        map[uuid.UUID]time.Time
	unscheduled []uuid.UUID
}

func newSchedulerStub() *schedulerStub {
	return &schedulerStub{starts: map[uuid.UUID]time.Time{}, ends: map[uuid.UUID]time.Time{}}
}

func (s *schedulerStub) ScheduleStart(_ context.Context, id uuid.UUID, at time.Time) error {
	s.starts[id] = at
	return nil
}

func (s *schedulerStub) ScheduleEnd(_ context.Context, id uuid.UUID, at time.Time) error {
	s.ends[id] = at
	return nil
}

func (s *schedulerStub) Unschedule(_ context.Context, id uuid.UUID) error {
	s.unscheduled = append(s.unscheduled, id)
	return nil
}

type bidMetricsStub struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *bidMetricsStub) ObserveBid(outcome string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

// fixture wires every service over one memStore with a controllable clock
type fixture struct {
	store     *memStore
	now       time.Time
	tx        *txStub
	publisher *recordingPublisher
	scheduler *schedulerStub
	metrics   *bidMetricsStub

	auctions     *AuctionService
	bids         *BidService
	items        *ItemService
	observations *ObservationService

	tenant  *tenant.Tenant
	seller  *company.Company
	buyer   *company.Company
	sellerU *user.User
	bidderA *user.User
	bidderB *user.User
}

func newFixture() *fixture {
	f := &fixture{
		store:     newMemStore(),
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		tx:        &txStub{},
		publisher: &recordingPublisher{},
		scheduler: newSchedulerStub(),
		metrics:   &bidMetricsStub{},
	}
	clock := func() time.Time { return f.now }
	logger := zerolog.Nop()

	f.auctions = NewAuctionService(AuctionServiceParams{
		AuctionRepo:     auctionRepoStub{f.store},
		AuctionItemRepo: auctionItemRepoStub{f.store},
		ItemRepo:        itemRepoStub{f.store},
		CompanyRepo:     companyRepoStub{f.store},
		BidRepo:         bidRepoStub{f.store},
		Transactor:      f.tx,
		Publisher:       f.publisher,
		Scheduler:       f.scheduler,
		Clock:           clock,
		Logger:          logger,
	})
	f.bids = NewBidService(BidServiceParams{
		BidRepo:         bidRepoStub{f.store},
		AuctionRepo:     auctionRepoStub{f.store},
		AuctionItemRepo: auctionItemRepoStub{f.store},
		UserRepo:        userRepoStub{f.store},
		Publisher:       f.publisher,
		Metrics:         f.metrics,
		MinIncrement:    decimal.NewFromInt(10),
		MaxRetries:      3,
		Clock:           clock,
		Logger:          logger,
	})
	f.items = NewItemService(ItemServiceParams{
		ItemRepo:    itemRepoStub{f.store},
		CompanyRepo: companyRepoStub{f.store},
		Clock:       clock,
		Logger:      logger,
	})
	f.observations = NewObservationService(ObservationServiceParams{
		ObservationRepo: observationRepoStub{f.store},
		AuctionItemRepo: auctionItemRepoStub{f.store},
		AuctionRepo:     auctionRepoStub{f.store},
		Clock:           clock,
		Logger:          logger,
	})

	f.tenant = tenant.New("Acme", "acme", f.now)
	f.store.tenants[f.tenant.ID] = *f.tenant

	f.seller = company.New(f.tenant.ID, "Seller", "", "", "", f.now)
	f.buyer = company.New(f.tenant.ID, "Buyer", "", "", "", f.now)
	f.store.companies[f.seller.ID] = *f.seller
	f.store.companies[f.buyer.ID] = *f.buyer

	f.sellerU = f.addUser("seller@acme.cl", f.seller.ID)
	f.bidderA = f.addUser("a@buyer.cl", f.buyer.ID)
	f.bidderB = f.addUser("b@buyer.cl", f.buyer.ID)
	return f
}

func (f *fixture) addUser(email string, companyID uuid.UUID) *user.User {
	u := user.New(email, email, "", user.RoleMember, "", f.now)
	u.ConnectTo(companyID, f.tenant.ID, f.now)
	f.store.users[u.ID] = *u
	return u
}

func (f *fixture) principal(u *user.User) inbound.Principal {
	return inbound.Principal{UserID: u.ID, TenantID: *u.TenantID, CompanyID: u.CompanyID, Role: u.Role}
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) auctionItem(id uuid.UUID) auction.AuctionItem {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.auctionItems[id]
}

func (f *fixture) itemState(id uuid.UUID) item.State {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.items[id].State
}
