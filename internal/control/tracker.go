package control

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/mtnwallet/tracker/internal/core/config"
	"github.com/mtnwallet/tracker/internal/core/domain"
	"github.com/mtnwallet/tracker/internal/infra/chain"
	"github.com/mtnwallet/tracker/internal/infra/chain/evm"
	"github.com/mtnwallet/tracker/internal/infra/rates"
	redisclient "github.com/mtnwallet/tracker/internal/infra/redis"
	"github.com/mtnwallet/tracker/internal/infra/storage"
	"github.com/mtnwallet/tracker/internal/infra/storage/memory"
	"github.com/mtnwallet/tracker/internal/infra/storage/postgres"
	"github.com/mtnwallet/tracker/internal/tracking"
	"github.com/mtnwallet/tracker/internal/tracking/health"
	"github.com/mtnwallet/tracker/internal/wallet"
)

// ConversionDirection names the two converter operations.
type ConversionDirection string

const (
	ConvertEthToMtn ConversionDirection = "eth-to-mtn"
	ConvertMtnToEth ConversionDirection = "mtn-to-eth"
)

// Tracker is the main application struct that wires the node adapter, the
// storage backends, and the tracking loop together.
type Tracker struct {
	cfg     config.AppConfig
	adapter chain.Adapter

	bus      *tracking.Bus
	poller   *tracking.Poller
	registry *tracking.Registry
	ingestor *tracking.Ingestor
	agg      *wallet.Aggregator
	rates    rates.Provider

	healthMon    *health.Monitor
	healthServer *health.Server

	txRepo      storage.TransactionRepository
	walletRepo  storage.WalletRepository
	db          *postgres.DB
	redisClient *redisclient.Client

	mu     sync.Mutex
	market domain.MarketStatus

	log *slog.Logger
}

// NewTracker creates a Tracker instance with all dependencies initialized.
func NewTracker(ctx context.Context, cfg config.AppConfig) (*Tracker, error) {
	// 1. Storage
	var txRepo storage.TransactionRepository
	var walletRepo storage.WalletRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database, "migrations")
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		txRepo = postgres.NewTxRepo(db)
		walletRepo = postgres.NewWalletRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		txRepo = memory.NewTxRepo(store)
		walletRepo = memory.NewWalletRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Redis (optional): rate cache and last-good status persistence
	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, caching disabled", "error", err)
		}
	}

	// 3. Node adapter
	adapter, err := evm.Dial(ctx, cfg.Node.URL, evm.Config{
		AuctionAddress:   cfg.Contracts.Auction,
		ConverterAddress: cfg.Contracts.Converter,
		TokenAddress:     cfg.Contracts.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}

	// 4. Rates
	var rateProvider rates.Provider = rates.NewHTTPProvider(cfg.Rates.URL)
	if redisClient != nil {
		rateProvider = rates.NewCachedProvider(rateProvider, redisClient, cfg.Rates.CacheTTL)
	}

	// 5. Tracking loop
	agg := wallet.NewAggregator(cfg.Wallet.Address)
	bus := tracking.NewBus()

	var snapshotStore tracking.SnapshotStore
	if redisClient != nil {
		snapshotStore = redisClient
	}
	poller := tracking.NewPoller(adapter, snapshotStore)

	t := &Tracker{
		cfg:         cfg,
		adapter:     adapter,
		bus:         bus,
		poller:      poller,
		agg:         agg,
		rates:       rateProvider,
		txRepo:      txRepo,
		walletRepo:  walletRepo,
		db:          db,
		redisClient: redisClient,
		log:         slog.Default().With("component", "tracker"),
	}

	t.ingestor = tracking.NewIngestor(adapter, txRepo, walletRepo, tracking.Contracts{
		Auction:   cfg.Contracts.Auction,
		Converter: cfg.Contracts.Converter,
		Token:     cfg.Contracts.Token,
	}, t.reloadWallet)

	t.registry = tracking.NewRegistry(adapter, poller, bus,
		t.ingestor.OnHeader,
		t.onHeader,
	)

	// 6. Health
	pingers := make(map[string]health.Pinger)
	if db != nil {
		pingers["postgres"] = db
	}
	if redisClient != nil {
		pingers["redis"] = redisClient
	}
	t.healthMon = health.NewMonitor(adapter, t.registry, pingers)
	t.healthServer = health.NewServer(t.healthMon, cfg.Server.Port)

	return t, nil
}

// Start brings up the background loops: wallet bootstrap, the health server,
// the event pump, and the rate refresher.
func (t *Tracker) Start(ctx context.Context) error {
	if err := t.ingestor.TrackWallet(ctx, t.cfg.Wallet.Address); err != nil {
		return fmt.Errorf("failed to register wallet: %w", err)
	}
	if err := t.ingestor.LoadWallets(ctx); err != nil {
		t.log.Warn("Failed to load tracked wallets", "error", err)
	}
	t.reloadWallet(t.agg.Address())

	// Seed the view with the last good market status so restarts do not
	// start blank.
	if t.redisClient != nil {
		if status, found, err := t.redisClient.LoadStatus(ctx); err != nil {
			t.log.Warn("Failed to load stored market status", "error", err)
		} else if found {
			t.applyMarket(status)
		}
	}

	go func() {
		if err := t.healthServer.Start(); err != nil {
			t.log.Error("Health server failed", "error", err)
		}
	}()

	go t.runEventPump(ctx)
	go t.runRateRefresher(ctx)

	return nil
}

// Stop tears everything down.
func (t *Tracker) Stop(ctx context.Context) error {
	t.log.Info("Stopping tracker...")

	t.registry.StopAll()
	t.bus.Close()
	t.adapter.Close()

	if t.redisClient != nil {
		if err := t.redisClient.Close(); err != nil {
			t.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if t.db != nil {
		if err := t.db.Close(); err != nil {
			t.log.Warn("Failed to close database", "error", err)
		}
	}

	return t.healthServer.Stop(ctx)
}

// StartTracking opens a head subscription for owner and fires an immediate
// market refresh. Idempotent per owner.
func (t *Tracker) StartTracking(ctx context.Context, owner string) error {
	return t.registry.Start(ctx, owner)
}

// StopTracking tears down the owner's subscription. No-op when none exists.
func (t *Tracker) StopTracking(owner string) {
	t.registry.Stop(owner)
}

// Events subscribes to the tracker's event stream.
func (t *Tracker) Events(buffer int) (string, <-chan domain.Event) {
	return t.bus.Subscribe(buffer)
}

// Unsubscribe removes an event subscription.
func (t *Tracker) Unsubscribe(id string) {
	t.bus.Unsubscribe(id)
}

// WalletView returns the current aggregated wallet view.
func (t *Tracker) WalletView() wallet.View {
	return t.agg.View()
}

// SubmitPurchase sends ETH to the auction contract. The pending transaction
// is recorded immediately so the view shows it before it is mined.
func (t *Tracker) SubmitPurchase(ctx context.Context, value *big.Int) (string, error) {
	gasPrice, err := t.adapter.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to suggest gas price: %w", err)
	}
	// Auction purchases race each other; double the suggestion to keep the
	// transaction competitive within the current price tick.
	gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(2))

	from := t.agg.Address()
	hash, err := t.adapter.SendTransaction(ctx, chain.TxRequest{
		From:     from,
		To:       t.cfg.Contracts.Auction,
		Value:    value,
		GasPrice: gasPrice,
	})
	if err != nil {
		return "", fmt.Errorf("auction purchase failed: %w", err)
	}

	t.recordPending(ctx, from, &domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:  hash,
			From:  from,
			To:    strings.ToLower(t.cfg.Contracts.Auction),
			Value: value,
		},
		Meta: domain.TxnMeta{Auction: true},
	})
	return hash, nil
}

// SubmitConversion swaps through the converter contract in either direction.
// minReturn bounds acceptable slippage.
func (t *Tracker) SubmitConversion(ctx context.Context, direction ConversionDirection, amount, minReturn *big.Int) (string, error) {
	gasPrice, err := t.adapter.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to suggest gas price: %w", err)
	}

	from := t.agg.Address()
	converter := strings.ToLower(t.cfg.Contracts.Converter)

	var data []byte
	var value *big.Int
	pending := &domain.WalletTransaction{
		Meta: domain.TxnMeta{Converter: true},
	}

	switch direction {
	case ConvertEthToMtn:
		data, err = t.adapter.ConvertEthToMtnData(minReturn)
		value = amount
	case ConvertMtnToEth:
		data, err = t.adapter.ConvertMtnToEthData(amount, minReturn)
		value = big.NewInt(0)
		// The MTN leg settles when the converter call is mined; mark it
		// processing so the view reads as an outgoing conversion meanwhile.
		pending.Meta.Tokens = map[string]domain.TokenTransfer{
			strings.ToLower(t.cfg.Contracts.Token): {
				From:       from,
				To:         converter,
				Value:      amount,
				Processing: true,
			},
		}
	default:
		return "", fmt.Errorf("unknown conversion direction %q", direction)
	}
	if err != nil {
		return "", fmt.Errorf("failed to build conversion call: %w", err)
	}

	hash, err := t.adapter.SendTransaction(ctx, chain.TxRequest{
		From:     from,
		To:       converter,
		Value:    value,
		Data:     data,
		GasPrice: gasPrice,
	})
	if err != nil {
		return "", fmt.Errorf("conversion failed: %w", err)
	}

	pending.Txn = domain.Txn{Hash: hash, From: from, To: converter, Value: value}
	t.recordPending(ctx, from, pending)
	return hash, nil
}

func (t *Tracker) recordPending(ctx context.Context, address string, tx *domain.WalletTransaction) {
	if err := t.txRepo.Upsert(ctx, address, tx); err != nil {
		t.log.Error("Failed to store pending transaction", "hash", tx.Txn.Hash, "error", err)
		return
	}
	t.reloadWallet(address)
}

// onHeader updates the view's height and balances on every new block.
func (t *Tracker) onHeader(ctx context.Context, header domain.BlockHeader) {
	t.agg.SetHeight(header.Number)
	t.refreshBalances(ctx)
	t.publishWalletState()
}

func (t *Tracker) refreshBalances(ctx context.Context) {
	addr := t.agg.Address()

	eth, err := t.adapter.EthBalance(ctx, addr)
	if err != nil {
		t.log.Warn("Failed to fetch ETH balance", "error", err)
		return
	}
	mtn, err := t.adapter.TokenBalance(ctx, addr)
	if err != nil {
		t.log.Warn("Failed to fetch MTN balance", "error", err)
		return
	}
	t.agg.SetBalances(eth, mtn)
}

// reloadWallet reloads the primary wallet's stored transactions into the
// aggregator. Changes to other tracked wallets only hit storage.
func (t *Tracker) reloadWallet(address string) {
	if !strings.EqualFold(address, t.agg.Address()) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stored, err := t.txRepo.ListByAddress(ctx, address)
	if err != nil {
		t.log.Error("Failed to load wallet transactions", "error", err)
		return
	}
	txs := make([]domain.WalletTransaction, len(stored))
	for i, tx := range stored {
		txs[i] = *tx
	}
	t.agg.SetTransactions(txs)
	t.publishWalletState()
}

// runEventPump folds market snapshot events into the aggregator.
func (t *Tracker) runEventPump(ctx context.Context) {
	id, events := t.bus.Subscribe(64)
	defer t.bus.Unsubscribe(id)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case domain.EventAuctionStatusUpdated:
				t.mu.Lock()
				t.market.Auction = *ev.Snapshot
				status := t.market
				t.mu.Unlock()
				t.agg.SetMarket(status)
				t.healthMon.RecordRefresh()
			case domain.EventConverterStatusUpdated:
				t.mu.Lock()
				t.market.Converter = *ev.Snapshot
				status := t.market
				t.mu.Unlock()
				t.agg.SetMarket(status)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) applyMarket(status domain.MarketStatus) {
	t.mu.Lock()
	t.market = status
	t.mu.Unlock()
	t.agg.SetMarket(status)
}

// runRateRefresher keeps the fiat rates fresh on a fixed interval.
func (t *Tracker) runRateRefresher(ctx context.Context) {
	t.refreshRates(ctx)

	ticker := time.NewTicker(t.cfg.Rates.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.refreshRates(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) refreshRates(ctx context.Context) {
	for _, asset := range []domain.Asset{domain.AssetETH, domain.AssetMTN} {
		rate, err := t.rates.GetRate(ctx, string(asset))
		if err != nil {
			t.log.Warn("Failed to fetch rate", "asset", asset, "error", err)
			continue
		}
		t.agg.SetRate(asset, rate)
	}
	t.publishWalletState()
}

func (t *Tracker) publishWalletState() {
	t.bus.Publish(domain.Event{
		Type:  domain.EventWalletStateChanged,
		Owner: t.agg.Address(),
	})
}
