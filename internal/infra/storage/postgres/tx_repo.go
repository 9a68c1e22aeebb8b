package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db *DB
}

// NewTxRepo creates a new PostgreSQL transaction repository.
func NewTxRepo(db *DB) *TxRepo {
	return &TxRepo{db: db}
}

type txRow struct {
	TxHash         string  `db:"tx_hash"`
	WalletAddress  string  `db:"wallet_address"`
	FromAddress    string  `db:"from_address"`
	ToAddress      string  `db:"to_address"`
	Value          string  `db:"value"`
	BlockNumber    *int64  `db:"block_number"`
	BlockHash      string  `db:"block_hash"`
	ReceiptSuccess *bool   `db:"receipt_success"`
	Meta           []byte  `db:"meta"`
	UpdatedAt      int64   `db:"updated_at"`
}

// Upsert inserts or updates a wallet transaction record.
func (r *TxRepo) Upsert(
	ctx context.Context,
	address string,
	tx *domain.WalletTransaction,
) error {
	metaJSON, err := json.Marshal(tx.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode tx meta: %w", err)
	}

	value := "0"
	if tx.Txn.Value != nil {
		value = tx.Txn.Value.String()
	}

	var blockNumber *int64
	if tx.Txn.BlockNumber != nil {
		n := int64(*tx.Txn.BlockNumber)
		blockNumber = &n
	}

	var receiptSuccess *bool
	if tx.Receipt != nil {
		ok := tx.Receipt.Success
		receiptSuccess = &ok
	}

	const query = `
		INSERT INTO wallet_transactions (
			tx_hash, wallet_address, from_address, to_address, value,
			block_number, block_hash, receipt_success, meta, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tx_hash, wallet_address) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			block_hash = EXCLUDED.block_hash,
			receipt_success = EXCLUDED.receipt_success,
			meta = EXCLUDED.meta,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		strings.ToLower(tx.Txn.Hash),
		strings.ToLower(address),
		strings.ToLower(tx.Txn.From),
		strings.ToLower(tx.Txn.To),
		value,
		blockNumber,
		tx.Txn.BlockHash,
		receiptSuccess,
		metaJSON,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet transaction: %w", err)
	}
	return nil
}

// ListByAddress returns all transactions recorded for a wallet address,
// newest block first with pending transactions leading.
func (r *TxRepo) ListByAddress(
	ctx context.Context,
	address string,
) ([]*domain.WalletTransaction, error) {
	const query = `
		SELECT tx_hash, wallet_address, from_address, to_address, value,
		       block_number, block_hash, receipt_success, meta, updated_at
		FROM wallet_transactions
		WHERE wallet_address = $1
		ORDER BY block_number DESC NULLS FIRST`

	var rows []txRow
	if err := r.db.SelectContext(ctx, &rows, query, strings.ToLower(address)); err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}

	out := make([]*domain.WalletTransaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (row txRow) toDomain() (*domain.WalletTransaction, error) {
	value, ok := new(big.Int).SetString(row.Value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored value %q for tx %s", row.Value, row.TxHash)
	}

	var blockNumber *uint64
	if row.BlockNumber != nil {
		n := uint64(*row.BlockNumber)
		blockNumber = &n
	}

	var receipt *domain.Receipt
	if row.ReceiptSuccess != nil {
		receipt = &domain.Receipt{Success: *row.ReceiptSuccess}
	}

	var meta domain.TxnMeta
	if len(row.Meta) > 0 {
		if err := json.Unmarshal(row.Meta, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode tx meta for %s: %w", row.TxHash, err)
		}
	}

	return &domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:        row.TxHash,
			From:        row.FromAddress,
			To:          row.ToAddress,
			Value:       value,
			BlockNumber: blockNumber,
			BlockHash:   row.BlockHash,
		},
		Receipt: receipt,
		Meta:    meta,
	}, nil
}
