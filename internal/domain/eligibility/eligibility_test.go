package eligibility

import (
	"testing"
	"time"

	"jangteo-auction-engine/internal/domain/auction"
	"jangteo-auction-engine/internal/domain/shared"

	"github.com/stretchr/testify/require"
)

func TestCanBid(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	checker := NewChecker(24*time.Hour, 500_000)

	baseAccount := func() *Account {
		return &Account{
			ID:               1,
			Status:           AccountActive,
			CreatedAt:        now.Add(-48 * time.Hour),
			HasContactOnFile: true,
		}
	}
	baseAuction := func() *auction.Auction {
		return &auction.Auction{
			ID:           10,
			SellerID:     100,
			StartPrice:   10_000,
			CurrentPrice: 10_000,
			Status:       auction.StatusActive,
			EndAt:        now.Add(time.Hour),
		}
	}
	leader := int64(2)

	tests := []struct {
		name    string
		mutate  func(acct *Account, a *auction.Auction)
		leading *int64
		want    error
	}{
		{
			name:   "eligible",
			mutate: func(acct *Account, a *auction.Auction) {},
		},
		{
			name: "suspended account",
			mutate: func(acct *Account, a *auction.Auction) {
				acct.Status = AccountSuspended
			},
			want: shared.ErrAccountIneligible,
		},
		{
			name: "banned account",
			mutate: func(acct *Account, a *auction.Auction) {
				acct.Status = AccountBanned
			},
			want: shared.ErrAccountIneligible,
		},
		{
			name: "account younger than minimum age",
			mutate: func(acct *Account, a *auction.Auction) {
				acct.CreatedAt = now.Add(-23 * time.Hour)
			},
			want: shared.ErrAccountIneligible,
		},
		{
			name: "account exactly at minimum age",
			mutate: func(acct *Account, a *auction.Auction) {
				acct.CreatedAt = now.Add(-24 * time.Hour)
			},
		},
		{
			name: "seller bidding on own auction",
			mutate: func(acct *Account, a *auction.Auction) {
				a.SellerID = acct.ID
			},
			want: shared.ErrSelfBid,
		},
		{
			name:    "already leading",
			mutate:  func(acct *Account, a *auction.Auction) { acct.ID = leader },
			leading: &leader,
			want:    shared.ErrAlreadyLeading,
		},
		{
			name:    "someone else leading",
			mutate:  func(acct *Account, a *auction.Auction) {},
			leading: &leader,
		},
		{
			name: "cancelled auction",
			mutate: func(acct *Account, a *auction.Auction) {
				a.Status = auction.StatusCancelled
			},
			want: shared.ErrAuctionNotActive,
		},
		{
			name: "deadline passed",
			mutate: func(acct *Account, a *auction.Auction) {
				a.EndAt = now
			},
			want: shared.ErrAuctionNotActive,
		},
		{
			name: "high price without contact",
			mutate: func(acct *Account, a *auction.Auction) {
				acct.HasContactOnFile = false
				a.StartPrice = 500_000
			},
			want: shared.ErrContactRequired,
		},
		{
			name: "high price with contact",
			mutate: func(acct *Account, a *auction.Auction) {
				a.StartPrice = 500_000
			},
		},
		{
			name: "just below the contact bar without contact",
			mutate: func(acct *Account, a *auction.Auction) {
				acct.HasContactOnFile = false
				a.StartPrice = 499_999
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := baseAccount()
			a := baseAuction()
			tt.mutate(acct, a)

			err := checker.CanBid(now, acct, a, tt.leading)
			if tt.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.want)
			}
		})
	}
}

// Suspension outranks every other failure: a suspended seller probing their
// own expired auction still reads as an account problem, not a self-bid.
func TestCanBid_CheckOrder(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	checker := NewChecker(24*time.Hour, 500_000)

	acct := &Account{
		ID:        100,
		Status:    AccountSuspended,
		CreatedAt: now.Add(-time.Hour),
	}
	a := &auction.Auction{
		ID:       10,
		SellerID: 100,
		Status:   auction.StatusCancelled,
		EndAt:    now.Add(-time.Hour),
	}

	require.ErrorIs(t, checker.CanBid(now, acct, a, nil), shared.ErrAccountIneligible)

	// With standing restored, the self-bid check fires next despite the
	// auction being dead.
	acct.Status = AccountActive
	acct.CreatedAt = now.Add(-48 * time.Hour)
	require.ErrorIs(t, checker.CanBid(now, acct, a, nil), shared.ErrSelfBid)
}
