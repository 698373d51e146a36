package pricing

import (
	"math"

	"jangteo-auction-engine/internal/domain/shared"
)

// Tier maps a price ceiling to the minimum increment charged inside it.
// UpTo == 0 marks the open-ended top tier.
type Tier struct {
	UpTo      int64
	Increment int64
}

// Table is the step function from current price to minimum bid increment.
// Tiers must be ordered by ascending UpTo with the open-ended tier last.
type Table []Tier

// DefaultTable returns the marketplace increment tiers in won.
func DefaultTable() Table {
	return Table{
		{UpTo: 50_000, Increment: 1_000},
		{UpTo: 200_000, Increment: 2_000},
		{UpTo: 1_000_000, Increment: 5_000},
		{UpTo: 0, Increment: 10_000},
	}
}

// MinimumIncrement returns the increment for the given current price. The
// tier is selected by the price before the candidate bid, so a bid that
// crosses a tier boundary still pays the lower tier's step.
func (t Table) MinimumIncrement(currentPrice int64) int64 {
	for _, tier := range t {
		if tier.UpTo == 0 || currentPrice <= tier.UpTo {
			return tier.Increment
		}
	}
	return 0
}

// Floor returns the lowest acceptable next bid for the given current price.
// Saturates at MaxInt64 instead of wrapping, so no amount validates there.
func (t Table) Floor(currentPrice int64) int64 {
	increment := t.MinimumIncrement(currentPrice)
	if currentPrice > math.MaxInt64-increment {
		return math.MaxInt64
	}
	return currentPrice + increment
}

// Validate checks a candidate amount against the floor. The floor is the
// only server-side contract; quick-bid multiples are a client convenience.
// The comparison subtracts the increment from the candidate rather than
// adding it to the price, so a price near MaxInt64 cannot wrap negative
// and admit a lower bid.
func (t Table) Validate(candidate, currentPrice int64) error {
	if candidate <= 0 || candidate-t.MinimumIncrement(currentPrice) < currentPrice {
		return shared.ErrBidTooLow
	}
	return nil
}
