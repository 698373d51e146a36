package bid

import "time"

// Bid is an immutable append-only fact. The ID is assigned by the store in
// insertion order; for one auction the sequence of amounts ordered by ID is
// strictly increasing and the newest amount equals the auction's current
// price at the instant of commit. Bids are never updated or deleted.
type Bid struct {
	ID        int64     `json:"id"`
	AuctionID int64     `json:"auction_id"`
	BidderID  int64     `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
