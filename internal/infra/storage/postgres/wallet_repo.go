package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

// WalletRepo implements storage.WalletRepository using PostgreSQL.
type WalletRepo struct {
	db *DB
}

// NewWalletRepo creates a new PostgreSQL wallet repository.
func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

// Save stores a tracked wallet address.
func (r *WalletRepo) Save(ctx context.Context, wallet *domain.TrackedWallet) error {
	const query = `
		INSERT INTO tracked_wallets (address, created_at)
		VALUES ($1, $2)
		ON CONFLICT (address) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, strings.ToLower(wallet.Address), wallet.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save tracked wallet: %w", err)
	}
	return nil
}

// GetAll retrieves all tracked wallet addresses.
func (r *WalletRepo) GetAll(ctx context.Context) ([]*domain.TrackedWallet, error) {
	const query = `SELECT address, created_at FROM tracked_wallets ORDER BY created_at`

	var rows []struct {
		Address   string `db:"address"`
		CreatedAt int64  `db:"created_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get tracked wallets: %w", err)
	}

	wallets := make([]*domain.TrackedWallet, 0, len(rows))
	for _, row := range rows {
		wallets = append(wallets, &domain.TrackedWallet{
			Address:   row.Address,
			CreatedAt: row.CreatedAt,
		})
	}
	return wallets, nil
}
