package app

import (
	"context"
	"sync"
	"time"

	"jangteo-auction-engine/internal/domain/auction"
	"jangteo-auction-engine/internal/domain/bid"
	"jangteo-auction-engine/internal/domain/eligibility"
	"jangteo-auction-engine/internal/domain/shared"
	"jangteo-auction-engine/internal/ports/outbound"
)

// manualClock lets tests pin the instant a bid arrives
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memoryStore is an in-memory AuctionStore and BidStore. Mutate holds one
// mutex across the whole load-validate-write unit, which is exactly the
// serialization the row lock gives in Postgres.
type memoryStore struct {
	mu        sync.Mutex
	auctions  map[int64]*auction.Auction
	bids      map[int64][]*bid.Bid
	nextID    int64
	nextBidID int64

	// failures > 0 makes the next Mutate calls fail transiently
	failures int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		auctions:  make(map[int64]*auction.Auction),
		bids:      make(map[int64][]*bid.Bid),
		nextID:    1,
		nextBidID: 1,
	}
}

func (s *memoryStore) put(a *auction.Auction) *auction.Auction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.nextID
		s.nextID++
	}
	copied := *a
	s.auctions[a.ID] = &copied
	return a
}

func (s *memoryStore) CreateAuction(ctx context.Context, a *auction.Auction, maxActivePerSeller int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, existing := range s.auctions {
		if existing.SellerID == a.SellerID && existing.Status == auction.StatusActive {
			active++
		}
	}
	if active >= maxActivePerSeller {
		return shared.ErrSellerAuctionLimit
	}

	a.ID = s.nextID
	s.nextID++
	copied := *a
	s.auctions[a.ID] = &copied
	return nil
}

func (s *memoryStore) GetAuction(ctx context.Context, id int64) (*auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *memoryStore) ListAuctions(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auction.Auction
	for _, a := range s.auctions {
		if status == nil || a.Status == *status {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memoryStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, a := range s.auctions {
		if a.Status == auction.StatusActive && !a.EndAt.After(now) {
			ids = append(ids, id)
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

func (s *memoryStore) Mutate(ctx context.Context, auctionID int64, fn func(ctx context.Context, m outbound.AuctionMutation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures > 0 {
		s.failures--
		return shared.ErrTransient
	}

	a, ok := s.auctions[auctionID]
	if !ok {
		return shared.ErrAuctionNotFound
	}
	copied := *a
	return fn(ctx, &memoryMutation{store: s, auction: &copied})
}

func (s *memoryStore) ListByAuction(ctx context.Context, auctionID int64) ([]*bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*bid.Bid(nil), s.bids[auctionID]...), nil
}

func (s *memoryStore) LeadingBid(ctx context.Context, auctionID int64) (*bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leadingLocked(auctionID)
}

func (s *memoryStore) leadingLocked(auctionID int64) (*bid.Bid, error) {
	bids := s.bids[auctionID]
	if len(bids) == 0 {
		return nil, shared.ErrNoBids
	}
	copied := *bids[len(bids)-1]
	return &copied, nil
}

// memoryMutation mirrors the transaction view: reads and writes go against
// store state under the lock already held by Mutate
type memoryMutation struct {
	store   *memoryStore
	auction *auction.Auction
}

func (m *memoryMutation) Auction() *auction.Auction { return m.auction }

func (m *memoryMutation) LeadingBid(ctx context.Context) (*bid.Bid, error) {
	return m.store.leadingLocked(m.auction.ID)
}

func (m *memoryMutation) InsertBid(ctx context.Context, b *bid.Bid) error {
	b.ID = m.store.nextBidID
	m.store.nextBidID++
	copied := *b
	m.store.bids[b.AuctionID] = append(m.store.bids[b.AuctionID], &copied)
	return nil
}

func (m *memoryMutation) Save(ctx context.Context, a *auction.Auction) error {
	copied := *a
	m.store.auctions[a.ID] = &copied
	return nil
}

// memoryDirectory serves fixed account snapshots
type memoryDirectory struct {
	accounts map[int64]*eligibility.Account
}

func newMemoryDirectory(accounts ...*eligibility.Account) *memoryDirectory {
	d := &memoryDirectory{accounts: make(map[int64]*eligibility.Account)}
	for _, acct := range accounts {
		d.accounts[acct.ID] = acct
	}
	return d
}

func (d *memoryDirectory) GetAccount(ctx context.Context, id int64) (*eligibility.Account, error) {
	acct, ok := d.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	copied := *acct
	return &copied, nil
}

// recordingEmitter captures emitted events
type recordingEmitter struct {
	mu     sync.Mutex
	events []outbound.Event
}

func (e *recordingEmitter) Emit(ctx context.Context, event outbound.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) Close() error { return nil }

func (e *recordingEmitter) byType(t outbound.EventType) []outbound.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []outbound.Event
	for _, event := range e.events {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}

// recordingScheduler captures deadline schedules
type recordingScheduler struct {
	mu        sync.Mutex
	schedules map[int64]time.Time
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{schedules: make(map[int64]time.Time)}
}

func (s *recordingScheduler) Schedule(ctx context.Context, auctionID int64, endAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[auctionID] = endAt
	return nil
}
