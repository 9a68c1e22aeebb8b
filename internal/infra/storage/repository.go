package storage

import (
	"context"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

// TransactionRepository persists wallet-scoped transaction records.
type TransactionRepository interface {
	// Upsert inserts or updates a transaction for a wallet address. The
	// transaction hash is the primary key; receipt and meta may be filled
	// in after the bare transaction was first observed.
	Upsert(ctx context.Context, address string, tx *domain.WalletTransaction) error

	// ListByAddress returns all transactions recorded for a wallet address.
	ListByAddress(ctx context.Context, address string) ([]*domain.WalletTransaction, error)
}

// WalletRepository persists the set of tracked wallet addresses.
type WalletRepository interface {
	Save(ctx context.Context, wallet *domain.TrackedWallet) error
	GetAll(ctx context.Context) ([]*domain.TrackedWallet, error)
}
