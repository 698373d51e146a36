package shared

import "errors"

// RejectCode is the stable machine-readable code attached to a business
// rejection. Clients key their user-facing messages off these values, so
// they must never change once published.
type RejectCode string

const (
	CodeTooLow            RejectCode = "too_low"
	CodeSelfBid           RejectCode = "self_bid"
	CodeAlreadyLeading    RejectCode = "already_leading"
	CodeAuctionNotActive  RejectCode = "auction_not_active"
	CodeAccountIneligible RejectCode = "account_ineligible"
	CodeContactRequired   RejectCode = "contact_required"
	CodeInvalidTransition RejectCode = "invalid_transition"
	CodeInvalidInput      RejectCode = "invalid_input"
)

// Rejection is an expected, user-facing outcome of a bid or admin command.
// Rejections are returned as values and are never logged as errors.
type Rejection struct {
	Code RejectCode
	msg  string
}

func (r *Rejection) Error() string { return r.msg }

// AsRejection reports whether err is (or wraps) a business rejection.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// Business rejections
var (
	ErrBidTooLow          = &Rejection{Code: CodeTooLow, msg: "bid amount is below the minimum next bid"}
	ErrSelfBid            = &Rejection{Code: CodeSelfBid, msg: "sellers may not bid on their own auction"}
	ErrAlreadyLeading     = &Rejection{Code: CodeAlreadyLeading, msg: "bidder already holds the leading bid"}
	ErrAuctionNotActive   = &Rejection{Code: CodeAuctionNotActive, msg: "auction is not accepting bids"}
	ErrAccountIneligible  = &Rejection{Code: CodeAccountIneligible, msg: "account is not eligible to bid"}
	ErrContactRequired    = &Rejection{Code: CodeContactRequired, msg: "a contact method on file is required for high-price auctions"}
	ErrInvalidTransition  = &Rejection{Code: CodeInvalidTransition, msg: "status transition is not allowed"}
	ErrSellerAuctionLimit = &Rejection{Code: CodeAccountIneligible, msg: "seller has reached the active auction limit"}
	ErrInvalidEndAt       = &Rejection{Code: CodeInvalidInput, msg: "end time must be a valid RFC3339 timestamp"}
)

// Infrastructure and lookup errors
var (
	// ErrTransient marks a conflict (lock timeout, serialization failure,
	// lost connection) that survived internal retries. The whole request is
	// safe to retry.
	ErrTransient = errors.New("transient storage conflict, retry the request")

	// ErrInvariantViolation marks persisted state that contradicts a core
	// invariant. Fatal for the affected auction; never silently repaired.
	ErrInvariantViolation = errors.New("auction state violates a core invariant")

	ErrAuctionNotFound = errors.New("auction not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrNoBids          = errors.New("no bids recorded for auction")
)
