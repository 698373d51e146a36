package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jangteo-auction-engine/internal/domain/auction"
	"jangteo-auction-engine/internal/domain/bid"
	"jangteo-auction-engine/internal/domain/shared"
	"jangteo-auction-engine/internal/ports/outbound"
)

const auctionColumns = `id, seller_id, start_price, current_price, min_increment_base, status, end_at, winner_id, created_at, updated_at`

// AuctionStore implements the auction store interface over Postgres
type AuctionStore struct {
	conn *Connection
}

// NewAuctionStore creates a new auction store
func NewAuctionStore(conn *Connection) *AuctionStore {
	return &AuctionStore{conn: conn}
}

// CreateAuction inserts a new auction, enforcing the active-per-seller cap
// inside the same transaction. The per-seller advisory lock serializes
// concurrent listing creations so both cannot pass a stale count.
func (s *AuctionStore) CreateAuction(ctx context.Context, a *auction.Auction, maxActivePerSeller int) error {
	return s.conn.ExecuteTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, a.SellerID); err != nil {
			return fmt.Errorf("failed to take seller lock: %w", err)
		}

		var active int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM auctions WHERE seller_id = $1 AND status = 'active'`,
			a.SellerID,
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("failed to count active auctions: %w", err)
		}
		if active >= maxActivePerSeller {
			return shared.ErrSellerAuctionLimit
		}

		query := `
			INSERT INTO auctions (seller_id, start_price, current_price, min_increment_base, status, end_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, query,
			a.SellerID,
			a.StartPrice,
			a.CurrentPrice,
			a.MinIncrementBase,
			a.Status,
			a.EndAt,
			a.CreatedAt,
			a.UpdatedAt,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("failed to create auction: %w", err)
		}
		return nil
	})
}

// GetAuction retrieves an auction by ID
func (s *AuctionStore) GetAuction(ctx context.Context, id int64) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	row := s.conn.GetDB().QueryRowContext(ctx, query, id)
	return scanAuction(row)
}

// ListAuctions retrieves auctions with an optional status filter
func (s *AuctionStore) ListAuctions(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error) {
	baseQuery := `SELECT ` + auctionColumns + ` FROM auctions `

	var whereClause string
	var args []interface{}
	argCount := 1

	if status != nil {
		whereClause = "WHERE status = $1 "
		args = append(args, *status)
		argCount++
	}

	limitClause := fmt.Sprintf("LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, pageSize, (page-1)*pageSize)

	query := baseQuery + whereClause + "ORDER BY created_at DESC " + limitClause

	rows, err := s.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}
	return auctions, nil
}

// ListExpired returns IDs of active auctions whose deadline has passed
func (s *AuctionStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM auctions
		WHERE status = 'active' AND end_at <= $1
		ORDER BY end_at ASC
		LIMIT $2
	`
	rows, err := s.conn.GetDB().QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired auctions: %w", err)
	}
	return ids, nil
}

// Mutate runs fn against the row-locked auction in a single transaction.
// The FOR UPDATE load is the authority every write decision is made
// against; a concurrent bid, sweep or admin command on the same auction
// blocks here until this transaction finishes.
func (s *AuctionStore) Mutate(ctx context.Context, auctionID int64, fn func(ctx context.Context, m outbound.AuctionMutation) error) error {
	return s.conn.ExecuteTransaction(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
		a, err := scanAuction(tx.QueryRowContext(ctx, query, auctionID))
		if err != nil {
			return err
		}
		return fn(ctx, &auctionMutation{tx: tx, auction: a})
	})
}

// auctionMutation is the in-transaction view handed to Mutate callbacks
type auctionMutation struct {
	tx      *sql.Tx
	auction *auction.Auction
}

func (m *auctionMutation) Auction() *auction.Auction { return m.auction }

func (m *auctionMutation) LeadingBid(ctx context.Context) (*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	var b bid.Bid
	err := m.tx.QueryRowContext(ctx, query, m.auction.ID).Scan(
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

func (m *auctionMutation) InsertBid(ctx context.Context, b *bid.Bid) error {
	query := `
		INSERT INTO bids (auction_id, bidder_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := m.tx.QueryRowContext(ctx, query, b.AuctionID, b.BidderID, b.Amount, b.CreatedAt).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

func (m *auctionMutation) Save(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET current_price = $2, status = $3, end_at = $4, winner_id = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := m.tx.ExecContext(ctx, query,
		a.ID,
		a.CurrentPrice,
		a.Status,
		a.EndAt,
		nullableID(a.WinnerID),
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrAuctionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*auction.Auction, error) {
	var a auction.Auction
	var winner sql.NullInt64
	err := row.Scan(
		&a.ID,
		&a.SellerID,
		&a.StartPrice,
		&a.CurrentPrice,
		&a.MinIncrementBase,
		&a.Status,
		&a.EndAt,
		&winner,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to scan auction: %w", err)
	}
	if winner.Valid {
		a.WinnerID = &winner.Int64
	}
	return &a, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
