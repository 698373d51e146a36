package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jangteo-auction-engine/internal/domain/bid"
	"jangteo-auction-engine/internal/domain/shared"
)

// BidStore implements display reads over the bid ledger. Writes only ever
// happen through AuctionStore.Mutate so they share the auction row lock.
type BidStore struct {
	conn *Connection
}

// NewBidStore creates a new bid store
func NewBidStore(conn *Connection) *BidStore {
	return &BidStore{conn: conn}
}

// ListByAuction retrieves all bids for an auction in insertion order
func (s *BidStore) ListByAuction(ctx context.Context, auctionID int64) ([]*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY id ASC
	`
	rows, err := s.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		var b bid.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}
	return bids, nil
}

// LeadingBid retrieves the most recent bid for an auction
func (s *BidStore) LeadingBid(ctx context.Context, auctionID int64) (*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	var b bid.Bid
	err := s.conn.GetDB().QueryRowContext(ctx, query, auctionID).Scan(
		&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNoBids
		}
		return nil, fmt.Errorf("failed to get leading bid: %w", err)
	}
	return &b, nil
}
