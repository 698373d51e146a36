package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jangteo-auction-engine/internal/domain/eligibility"
	"jangteo-auction-engine/internal/domain/shared"
)

// AccountDirectory reads account snapshots from the shared accounts table.
// The engine only ever reads; accounts are owned by the account service.
type AccountDirectory struct {
	conn *Connection
}

// NewAccountDirectory creates a new account directory
func NewAccountDirectory(conn *Connection) *AccountDirectory {
	return &AccountDirectory{conn: conn}
}

// GetAccount retrieves a read-only account snapshot by ID
func (d *AccountDirectory) GetAccount(ctx context.Context, id int64) (*eligibility.Account, error) {
	query := `
		SELECT id, status, created_at,
		       (COALESCE(phone, '') <> '' OR COALESCE(email, '') <> '')
		FROM accounts
		WHERE id = $1
	`
	var acct eligibility.Account
	err := d.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&acct.ID,
		&acct.Status,
		&acct.CreatedAt,
		&acct.HasContactOnFile,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acct, nil
}
