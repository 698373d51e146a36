package outbound

import (
	"context"
	"time"

	"jangteo-auction-engine/internal/domain/auction"
	"jangteo-auction-engine/internal/domain/bid"
	"jangteo-auction-engine/internal/domain/eligibility"
)

// AuctionMutation is the view of an auction held under its row lock. It is
// only valid inside the function passed to AuctionStore.Mutate; every read
// goes against the same transaction that will write.
type AuctionMutation interface {
	// Auction returns the authoritatively loaded, locked auction row
	Auction() *auction.Auction

	// LeadingBid returns the most recent bid within the transaction, or
	// shared.ErrNoBids when none exists
	LeadingBid(ctx context.Context) (*bid.Bid, error)

	// InsertBid appends a bid and assigns its ID in insertion order
	InsertBid(ctx context.Context, b *bid.Bid) error

	// Save persists the mutated auction fields
	Save(ctx context.Context, a *auction.Auction) error
}

// AuctionStore defines the interface for auction persistence
type AuctionStore interface {
	// CreateAuction inserts a new auction. The active-per-seller cap is
	// enforced inside the same transaction as the insert so two concurrent
	// listings cannot both pass a stale count; exceeding it returns
	// shared.ErrSellerAuctionLimit.
	CreateAuction(ctx context.Context, a *auction.Auction, maxActivePerSeller int) error

	// GetAuction retrieves an auction by ID (display read, may be stale)
	GetAuction(ctx context.Context, id int64) (*auction.Auction, error)

	// ListAuctions retrieves auctions with optional status filter
	ListAuctions(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error)

	// ListExpired returns IDs of active auctions whose deadline has passed
	ListExpired(ctx context.Context, now time.Time, limit int) ([]int64, error)

	// Mutate runs fn against the locked auction row in one transaction.
	// fn returning an error aborts the whole unit. Lock conflicts and
	// serialization failures are surfaced wrapping shared.ErrTransient.
	Mutate(ctx context.Context, auctionID int64, fn func(ctx context.Context, m AuctionMutation) error) error
}

// BidStore defines display reads over the bid ledger
type BidStore interface {
	// ListByAuction retrieves all bids for an auction in insertion order
	ListByAuction(ctx context.Context, auctionID int64) ([]*bid.Bid, error)

	// LeadingBid retrieves the most recent bid for an auction, or
	// shared.ErrNoBids when none exists
	LeadingBid(ctx context.Context, auctionID int64) (*bid.Bid, error)
}

// AccountDirectory looks up read-only account snapshots owned by the
// account collaborator
type AccountDirectory interface {
	GetAccount(ctx context.Context, id int64) (*eligibility.Account, error)
}

// DeadlineScheduler keeps the sweeper's due-index in step with auction
// deadlines. Scheduling is best-effort; the sweeper's catch-up scan covers
// lost entries.
type DeadlineScheduler interface {
	Schedule(ctx context.Context, auctionID int64, endAt time.Time) error
}
