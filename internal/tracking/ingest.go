package tracking

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mtnwallet/tracker/internal/core/domain"
	"github.com/mtnwallet/tracker/internal/infra/chain"
	"github.com/mtnwallet/tracker/internal/infra/storage"
	"github.com/mtnwallet/tracker/internal/tracking/metrics"
)

// BlockReader fetches block contents and receipts from the node.
type BlockReader interface {
	BlockTransactions(ctx context.Context, number uint64) (domain.BlockHeader, []domain.Txn, error)
	TransactionReceipt(ctx context.Context, txHash string) (*domain.Receipt, []chain.TransferLog, error)
}

// Contracts holds the protocol contract addresses the ingestor watches.
type Contracts struct {
	Auction   string
	Converter string
	Token     string
}

// Ingestor scans each new block for transactions touching tracked wallets or
// the protocol contracts, enriches contract transactions with receipts and
// decoded token transfers, and persists the result per wallet.
type Ingestor struct {
	reader    BlockReader
	txRepo    storage.TransactionRepository
	wallets   storage.WalletRepository
	contracts Contracts
	onChange  func(address string)
	log       *slog.Logger

	mu       sync.Mutex
	tracked  map[string]struct{}
	lastNum  uint64
	lastHash string
	seenAny  bool
}

// NewIngestor creates a block ingestor. onChange is called with the wallet
// address after its stored transactions changed; it may be nil.
func NewIngestor(reader BlockReader, txRepo storage.TransactionRepository, wallets storage.WalletRepository, contracts Contracts, onChange func(address string)) *Ingestor {
	return &Ingestor{
		reader:  reader,
		txRepo:  txRepo,
		wallets: wallets,
		contracts: Contracts{
			Auction:   strings.ToLower(contracts.Auction),
			Converter: strings.ToLower(contracts.Converter),
			Token:     strings.ToLower(contracts.Token),
		},
		onChange: onChange,
		log:      slog.Default().With("component", "ingest"),
		tracked:  make(map[string]struct{}),
	}
}

// TrackWallet registers a wallet address for scanning and persists it.
func (in *Ingestor) TrackWallet(ctx context.Context, address string) error {
	addr := strings.ToLower(address)

	in.mu.Lock()
	_, known := in.tracked[addr]
	in.tracked[addr] = struct{}{}
	in.mu.Unlock()

	if known {
		return nil
	}
	return in.wallets.Save(ctx, &domain.TrackedWallet{Address: addr, CreatedAt: time.Now().Unix()})
}

// LoadWallets seeds the tracked set from the wallet repository.
func (in *Ingestor) LoadWallets(ctx context.Context) error {
	stored, err := in.wallets.GetAll(ctx)
	if err != nil {
		return err
	}

	in.mu.Lock()
	for _, w := range stored {
		in.tracked[strings.ToLower(w.Address)] = struct{}{}
	}
	in.mu.Unlock()

	in.log.Info("Tracked wallets loaded", "count", len(stored))
	return nil
}

// TrackedCount returns the number of wallets being scanned.
func (in *Ingestor) TrackedCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.tracked)
}

// OnHeader ingests the block behind a header. Duplicate deliveries of the
// same (number, hash) pair are skipped; a new hash at a seen number is
// processed again to pick up reorged contents.
func (in *Ingestor) OnHeader(ctx context.Context, header domain.BlockHeader) {
	in.mu.Lock()
	if in.seenAny && header.Number == in.lastNum && header.Hash == in.lastHash {
		in.mu.Unlock()
		return
	}
	in.lastNum = header.Number
	in.lastHash = header.Hash
	in.seenAny = true
	in.mu.Unlock()

	if err := in.ingestBlock(ctx, header.Number); err != nil {
		in.log.Error("Block ingest failed", "number", header.Number, "error", err)
	}
}

func (in *Ingestor) ingestBlock(ctx context.Context, number uint64) error {
	_, txns, err := in.reader.BlockTransactions(ctx, number)
	if err != nil {
		return err
	}
	metrics.BlocksIngested.Inc()

	changed := make(map[string]struct{})
	for _, txn := range txns {
		wallets, wtx, err := in.examine(ctx, txn)
		if err != nil {
			in.log.Warn("Skipping transaction", "hash", txn.Hash, "error", err)
			continue
		}
		for _, addr := range wallets {
			if err := in.txRepo.Upsert(ctx, addr, wtx); err != nil {
				in.log.Error("Failed to store transaction", "hash", txn.Hash, "wallet", addr, "error", err)
				continue
			}
			metrics.WalletTxsObserved.Inc()
			changed[addr] = struct{}{}
		}
	}

	if in.onChange != nil {
		for addr := range changed {
			in.onChange(addr)
		}
	}
	return nil
}

// examine decides which tracked wallets a transaction belongs to and builds
// the stored record. Transactions to the protocol contracts get a receipt
// fetch so token transfers and call failures are recorded; a token transfer
// can pull in a wallet that the outer transaction never names.
func (in *Ingestor) examine(ctx context.Context, txn domain.Txn) ([]string, *domain.WalletTransaction, error) {
	from := strings.ToLower(txn.From)
	to := strings.ToLower(txn.To)

	wallets := make(map[string]struct{})
	if in.isTracked(from) {
		wallets[from] = struct{}{}
	}
	if in.isTracked(to) {
		wallets[to] = struct{}{}
	}

	wtx := &domain.WalletTransaction{Txn: txn}
	contractCall := to != "" && (to == in.contracts.Auction || to == in.contracts.Converter || to == in.contracts.Token)
	if contractCall {
		wtx.Meta.Auction = to == in.contracts.Auction
		wtx.Meta.Converter = to == in.contracts.Converter

		// Only fetch the receipt when the call could concern a tracked
		// wallet: either a wallet sent it, or it moved tokens.
		receipt, transfers, err := in.reader.TransactionReceipt(ctx, txn.Hash)
		if err != nil {
			if len(wallets) == 0 {
				return nil, nil, err
			}
			in.log.Warn("Receipt unavailable", "hash", txn.Hash, "error", err)
		} else {
			wtx.Receipt = receipt
			wtx.Meta.ContractCallFailed = receipt != nil && !receipt.Success
			for _, tr := range transfers {
				trFrom := strings.ToLower(tr.From)
				trTo := strings.ToLower(tr.To)
				if !in.isTracked(trFrom) && !in.isTracked(trTo) {
					continue
				}
				if wtx.Meta.Tokens == nil {
					wtx.Meta.Tokens = make(map[string]domain.TokenTransfer)
				}
				wtx.Meta.Tokens[strings.ToLower(tr.Token)] = domain.TokenTransfer{
					From:  trFrom,
					To:    trTo,
					Value: tr.Value,
				}
				if in.isTracked(trFrom) {
					wallets[trFrom] = struct{}{}
				}
				if in.isTracked(trTo) {
					wallets[trTo] = struct{}{}
				}
			}
		}
	}

	if len(wallets) == 0 {
		return nil, nil, nil
	}

	out := make([]string, 0, len(wallets))
	for addr := range wallets {
		out = append(out, addr)
	}
	return out, wtx, nil
}

func (in *Ingestor) isTracked(address string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, ok := in.tracked[address]
	return ok
}
