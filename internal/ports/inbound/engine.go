package inbound

import (
	"context"
	"time"

	"jangteo-auction-engine/internal/domain/auction"
	"jangteo-auction-engine/internal/domain/bid"
)

// BidEngine defines the interface for bid operations
type BidEngine interface {
	// PlaceBid runs the full validate-and-commit cycle for one bid attempt
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*PlaceBidResult, error)

	// ListBids retrieves all bids for an auction in insertion order
	ListBids(ctx context.Context, auctionID int64) ([]*bid.Bid, error)

	// LeadingBid retrieves the current leading bid for an auction
	LeadingBid(ctx context.Context, auctionID int64) (*bid.Bid, error)
}

// LifecycleService defines the interface for auction lifecycle operations
type LifecycleService interface {
	// CreateAuction creates a new listing in active status
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, auctionID int64) (*auction.Auction, error)

	// ListAuctions retrieves auctions with optional status filter
	ListAuctions(ctx context.Context, req ListAuctionsRequest) ([]*auction.Auction, error)

	// SetStatus applies an administrative status transition
	SetStatus(ctx context.Context, req SetStatusRequest) error

	// CloseExpired applies the deadline transition to one auction,
	// idempotently
	CloseExpired(ctx context.Context, auctionID int64) error
}

// request to place a bid
type PlaceBidRequest struct {
	AuctionID int64 `json:"auction_id"`
	BidderID  int64 `json:"bidder_id"`
	Amount    int64 `json:"amount"`
}

// PlaceBidResult reports what the committed transaction actually did
type PlaceBidResult struct {
	BidID    int64     `json:"bid_id"`
	NewPrice int64     `json:"new_price"`
	NewEndAt time.Time `json:"new_end_at"`
	Extended bool      `json:"extended"`
}

// request to create an auction
type CreateAuctionRequest struct {
	SellerID         int64  `json:"seller_id"`
	StartPrice       int64  `json:"start_price"`
	MinIncrementBase int64  `json:"min_increment_base"`
	EndAt            string `json:"end_at"`
}

// request to list auctions
type ListAuctionsRequest struct {
	Status   *auction.Status `json:"status,omitempty"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// SetStatusRequest is an administrative transition command. NewEndAt is
// RFC3339 and only consulted when Target is active (reopen); reopening
// needs a deadline in the future.
type SetStatusRequest struct {
	AuctionID int64          `json:"auction_id"`
	Target    auction.Status `json:"target"`
	ActorID   int64          `json:"actor_id"`
	NewEndAt  string         `json:"new_end_at,omitempty"`
}
