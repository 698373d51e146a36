package eligibility

import (
	"time"

	"jangteo-auction-engine/internal/domain/auction"
	"jangteo-auction-engine/internal/domain/shared"
)

// AccountStatus represents the standing of a marketplace account
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

// Account is a read-only snapshot of an account owned by the account
// collaborator. The engine never mutates it.
type Account struct {
	ID               int64         `json:"id"`
	Status           AccountStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	HasContactOnFile bool          `json:"has_contact_on_file"`
}

// Checker is the pure bid-permission predicate. It holds only immutable
// rule values and performs no I/O.
type Checker struct {
	minAccountAge       time.Duration
	highPriceContactBar int64
}

// NewChecker creates a checker with the given rule values
func NewChecker(minAccountAge time.Duration, highPriceContactBar int64) Checker {
	return Checker{
		minAccountAge:       minAccountAge,
		highPriceContactBar: highPriceContactBar,
	}
}

// CanBid decides whether the account may bid on the auction, checking in
// order and short-circuiting on the first failure. The auction status and
// deadline check here is a fast pre-check only; the ledger re-verifies both
// inside the locked transaction.
func (c Checker) CanBid(now time.Time, acct *Account, a *auction.Auction, leadingBidderID *int64) error {
	if acct.Status != AccountActive {
		return shared.ErrAccountIneligible
	}
	if now.Sub(acct.CreatedAt) < c.minAccountAge {
		return shared.ErrAccountIneligible
	}
	if acct.ID == a.SellerID {
		return shared.ErrSelfBid
	}
	if leadingBidderID != nil && *leadingBidderID == acct.ID {
		return shared.ErrAlreadyLeading
	}
	if !a.IsActive() || a.Expired(now) {
		return shared.ErrAuctionNotActive
	}
	if a.StartPrice >= c.highPriceContactBar && !acct.HasContactOnFile {
		return shared.ErrContactRequired
	}
	return nil
}
