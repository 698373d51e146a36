package auction

import (
	"testing"
	"time"

	"jangteo-auction-engine/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newActive(endAt time.Time) *Auction {
	return &Auction{
		ID:           1,
		SellerID:     100,
		StartPrice:   10_000,
		CurrentPrice: 10_000,
		Status:       StatusActive,
		EndAt:        endAt,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusActive, StatusEnded, true},
		{StatusActive, StatusNoBidClosed, true},
		{StatusActive, StatusCancelled, true},
		{StatusActive, StatusActive, false},
		{StatusEnded, StatusActive, true},
		{StatusEnded, StatusCancelled, false},
		{StatusEnded, StatusNoBidClosed, false},
		{StatusNoBidClosed, StatusActive, true},
		{StatusNoBidClosed, StatusEnded, false},
		{StatusCancelled, StatusActive, true},
		{StatusCancelled, StatusEnded, false},
	}
	for _, tt := range tests {
		a := &Auction{Status: tt.from}
		assert.Equal(t, tt.allowed, a.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestAcceptBid_Extension(t *testing.T) {
	window := 3 * time.Minute
	extension := 3 * time.Minute

	// Inside the window: deadline moves to now + extension
	a := newActive(now.Add(time.Minute))
	extended := a.AcceptBid(11_000, now, window, extension)
	assert.True(t, extended)
	assert.Equal(t, now.Add(extension), a.EndAt)
	assert.Equal(t, int64(11_000), a.CurrentPrice)

	// Exactly on the window edge still extends
	a = newActive(now.Add(window))
	extended = a.AcceptBid(11_000, now, window, extension)
	assert.True(t, extended)

	// Outside the window: deadline untouched
	a = newActive(now.Add(window + time.Millisecond))
	extended = a.AcceptBid(11_000, now, window, extension)
	assert.False(t, extended)
	assert.Equal(t, now.Add(window+time.Millisecond), a.EndAt)
}

func TestClose(t *testing.T) {
	leader := int64(7)

	a := newActive(now)
	a.Close(&leader, now)
	assert.Equal(t, StatusEnded, a.Status)
	require.NotNil(t, a.WinnerID)
	assert.Equal(t, leader, *a.WinnerID)

	a = newActive(now)
	a.Close(nil, now)
	assert.Equal(t, StatusNoBidClosed, a.Status)
	assert.Nil(t, a.WinnerID)
}

func TestCancelAndReopen(t *testing.T) {
	leader := int64(7)
	a := newActive(now)
	a.Close(&leader, now)

	newEndAt := now.Add(time.Hour)
	a.Reopen(newEndAt, now)
	assert.Equal(t, StatusActive, a.Status)
	assert.Nil(t, a.WinnerID, "reopening clears the winner")
	assert.Equal(t, newEndAt, a.EndAt)

	a.Cancel(now)
	assert.Equal(t, StatusCancelled, a.Status)
	assert.Nil(t, a.WinnerID)
}

func TestExpired(t *testing.T) {
	a := newActive(now)
	assert.True(t, a.Expired(now), "deadline instant itself counts as expired")
	assert.True(t, a.Expired(now.Add(time.Second)))
	assert.False(t, a.Expired(now.Add(-time.Second)))
}

func TestCheckInvariants(t *testing.T) {
	a := newActive(now.Add(time.Hour))
	require.NoError(t, a.CheckInvariants())

	// Current price below start price
	corrupted := *a
	corrupted.CurrentPrice = 5_000
	require.ErrorIs(t, corrupted.CheckInvariants(), shared.ErrInvariantViolation)

	// Winner on a non-ended auction
	winner := int64(7)
	corrupted = *a
	corrupted.WinnerID = &winner
	require.ErrorIs(t, corrupted.CheckInvariants(), shared.ErrInvariantViolation)

	// Ended auction without a winner
	corrupted = *a
	corrupted.Status = StatusEnded
	require.ErrorIs(t, corrupted.CheckInvariants(), shared.ErrInvariantViolation)

	// Ended with a winner is the legal pairing
	valid := *a
	valid.Status = StatusEnded
	valid.WinnerID = &winner
	require.NoError(t, valid.CheckInvariants())
}
