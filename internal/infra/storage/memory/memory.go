package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

// MemoryStorage backs the repositories when no database is configured.
type MemoryStorage struct {
	mu      sync.RWMutex
	txs     map[string]map[string]*domain.WalletTransaction // address -> hash -> tx
	wallets map[string]*domain.TrackedWallet
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		txs:     make(map[string]map[string]*domain.WalletTransaction),
		wallets: make(map[string]*domain.TrackedWallet),
	}
}

// -----------------------------------------------------------------------------
// Transaction Repository
// -----------------------------------------------------------------------------

type TxRepo struct {
	store *MemoryStorage
}

func NewTxRepo(store *MemoryStorage) *TxRepo {
	return &TxRepo{store: store}
}

func (r *TxRepo) Upsert(ctx context.Context, address string, tx *domain.WalletTransaction) error {
	addr := strings.ToLower(address)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	byHash, ok := r.store.txs[addr]
	if !ok {
		byHash = make(map[string]*domain.WalletTransaction)
		r.store.txs[addr] = byHash
	}
	byHash[strings.ToLower(tx.Txn.Hash)] = cloneTx(tx)
	return nil
}

// cloneTx copies a record including its token map so stored state never
// shares mutable structure with callers.
func cloneTx(tx *domain.WalletTransaction) *domain.WalletTransaction {
	cp := *tx
	if tx.Meta.Tokens != nil {
		cp.Meta.Tokens = make(map[string]domain.TokenTransfer, len(tx.Meta.Tokens))
		for k, v := range tx.Meta.Tokens {
			cp.Meta.Tokens[k] = v
		}
	}
	return &cp
}

func (r *TxRepo) ListByAddress(
	ctx context.Context,
	address string,
) ([]*domain.WalletTransaction, error) {
	addr := strings.ToLower(address)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	byHash := r.store.txs[addr]
	out := make([]*domain.WalletTransaction, 0, len(byHash))
	for _, tx := range byHash {
		out = append(out, cloneTx(tx))
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Wallet Repository
// -----------------------------------------------------------------------------

type WalletRepo struct {
	store *MemoryStorage
}

func NewWalletRepo(store *MemoryStorage) *WalletRepo {
	return &WalletRepo{store: store}
}

func (r *WalletRepo) Save(ctx context.Context, wallet *domain.TrackedWallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *wallet
	cp.Address = strings.ToLower(cp.Address)
	r.store.wallets[cp.Address] = &cp
	return nil
}

func (r *WalletRepo) GetAll(ctx context.Context) ([]*domain.TrackedWallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domain.TrackedWallet, 0, len(r.store.wallets))
	for _, w := range r.store.wallets {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}
