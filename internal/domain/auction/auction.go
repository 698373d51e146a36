package auction

import (
	"fmt"
	"time"

	"jangteo-auction-engine/internal/domain/shared"
)

// Status represents the lifecycle status of an auction
type Status string

const (
	StatusActive      Status = "active"
	StatusEnded       Status = "ended"
	StatusNoBidClosed Status = "no_bid_closed"
	StatusCancelled   Status = "cancelled"
)

// transitions is the only source of truth for allowed status changes.
// Reopening a terminal auction is an admin-only path and additionally
// requires a deadline in the future, checked by the lifecycle service.
var transitions = map[Status]map[Status]bool{
	StatusActive: {
		StatusEnded:       true,
		StatusNoBidClosed: true,
		StatusCancelled:   true,
	},
	StatusEnded:       {StatusActive: true},
	StatusNoBidClosed: {StatusActive: true},
	StatusCancelled:   {StatusActive: true},
}

// Auction is the root aggregate. CurrentPrice and EndAt only ever move up
// respectively forward; WinnerID is set exactly when the auction ends with
// at least one bid. Rows are never deleted, terminal states are soft.
type Auction struct {
	ID               int64      `json:"id"`
	SellerID         int64      `json:"seller_id"`
	StartPrice       int64      `json:"start_price"`
	CurrentPrice     int64      `json:"current_price"`
	MinIncrementBase int64      `json:"min_increment_base"`
	Status           Status     `json:"status"`
	EndAt            time.Time  `json:"end_at"`
	WinnerID         *int64     `json:"winner_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsActive returns true if the auction is currently accepting bids
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// IsTerminal returns true if the auction is in a terminal status
func (a *Auction) IsTerminal() bool {
	return a.Status != StatusActive
}

// Expired returns true if the deadline has passed at the given instant
func (a *Auction) Expired(now time.Time) bool {
	return !a.EndAt.After(now)
}

// CanTransition reports whether the status change is present in the
// transition table.
func (a *Auction) CanTransition(target Status) bool {
	return transitions[a.Status][target]
}

// AcceptBid records an accepted bid amount and, when the bid lands inside
// the extension window, pushes the deadline forward. Must only be called
// on the authoritative, locked row.
func (a *Auction) AcceptBid(amount int64, now time.Time, window, extension time.Duration) (extended bool) {
	a.CurrentPrice = amount
	if a.EndAt.Sub(now) <= window {
		a.EndAt = now.Add(extension)
		extended = true
	}
	a.UpdatedAt = now
	return extended
}

// Close applies the deadline transition: ended with a winner when a leading
// bidder exists, no_bid_closed otherwise.
func (a *Auction) Close(leadingBidderID *int64, now time.Time) {
	if leadingBidderID != nil {
		winner := *leadingBidderID
		a.Status = StatusEnded
		a.WinnerID = &winner
	} else {
		a.Status = StatusNoBidClosed
	}
	a.UpdatedAt = now
}

// Cancel marks the auction cancelled, clearing any pending winner
func (a *Auction) Cancel(now time.Time) {
	a.Status = StatusCancelled
	a.WinnerID = nil
	a.UpdatedAt = now
}

// Reopen returns a terminal auction to active with a fresh deadline
func (a *Auction) Reopen(endAt, now time.Time) {
	a.Status = StatusActive
	a.WinnerID = nil
	a.EndAt = endAt
	a.UpdatedAt = now
}

// CheckInvariants verifies the money and winner invariants of a loaded row.
// A violation is fatal for this auction: the caller must halt processing
// rather than repair the data.
func (a *Auction) CheckInvariants() error {
	if a.CurrentPrice < a.StartPrice {
		return fmt.Errorf("%w: auction %d current price %d below start price %d",
			shared.ErrInvariantViolation, a.ID, a.CurrentPrice, a.StartPrice)
	}
	if (a.WinnerID != nil) != (a.Status == StatusEnded) {
		return fmt.Errorf("%w: auction %d winner set=%t but status=%s",
			shared.ErrInvariantViolation, a.ID, a.WinnerID != nil, a.Status)
	}
	return nil
}
