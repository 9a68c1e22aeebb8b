package wallet

import (
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/mtnwallet/tracker/internal/classify"
	"github.com/mtnwallet/tracker/internal/core/domain"
)

// TxView is a transaction ready for display.
type TxView struct {
	Tx            domain.WalletTransaction
	Classified    domain.ClassifiedTransaction
	Confirmations uint64
}

// View is the aggregated dataset a consumer needs to render the wallet.
type View struct {
	Address           string
	EthBalance        *big.Int // nil when unknown, never zero-for-unknown
	MtnBalance        *big.Int
	EthBalanceUSD     string
	MtnBalanceUSD     string
	AuctionPriceUSD   string
	ConverterPriceUSD string
	Height            uint64
	Transactions      []TxView
	Auction           *domain.MarketSnapshot
	Converter         *domain.MarketSnapshot
	AuctionEnabled    bool
	ConverterEnabled  bool
	// Ready is true once balances, the ETH rate, and the chain height are
	// all known; consumers use it to avoid rendering partial state.
	Ready bool
}

// Aggregator composes balances, transactions, market state, and rates into a
// single view. Derivations are incremental: a change to one input only marks
// the outputs depending on it dirty, and View recomputes just those.
type Aggregator struct {
	mu sync.Mutex

	address string

	ethBalance  *big.Int
	mtnBalance  *big.Int
	ethRate     float64
	mtnRate     float64
	ethRateSet  bool
	mtnRateSet  bool
	height      uint64
	heightSet   bool
	txs         []domain.WalletTransaction
	auction     *domain.MarketSnapshot
	converter   *domain.MarketSnapshot

	dirtyTxs   bool
	dirtyMoney bool

	cachedTxViews      []TxView
	cachedEthUSD       string
	cachedMtnUSD       string
	cachedAuctionUSD   string
	cachedConverterUSD string
}

// NewAggregator creates an aggregator for the primary wallet address.
func NewAggregator(address string) *Aggregator {
	return &Aggregator{
		address:            strings.ToLower(address),
		dirtyTxs:           true,
		dirtyMoney:         true,
		cachedEthUSD:       "0",
		cachedMtnUSD:       "0",
		cachedAuctionUSD:   "0",
		cachedConverterUSD: "0",
	}
}

// Address returns the primary wallet address in canonical form.
func (a *Aggregator) Address() string {
	return a.address
}

// SetBalances updates the base-asset and token balances. nil means unknown.
func (a *Aggregator) SetBalances(eth, mtn *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ethBalance = eth
	a.mtnBalance = mtn
	a.dirtyMoney = true
}

// SetRate updates one fiat rate.
func (a *Aggregator) SetRate(asset domain.Asset, rate float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch asset {
	case domain.AssetETH:
		a.ethRate = rate
		a.ethRateSet = true
	case domain.AssetMTN:
		a.mtnRate = rate
		a.mtnRateSet = true
	}
	a.dirtyMoney = true
}

// SetHeight updates the observed chain height.
func (a *Aggregator) SetHeight(height uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.height = height
	a.heightSet = true
	a.dirtyTxs = true
}

// SetTransactions replaces the wallet's transaction list.
func (a *Aggregator) SetTransactions(txs []domain.WalletTransaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.txs = txs
	a.dirtyTxs = true
}

// SetMarket applies a fresh market status, superseding the previous one.
func (a *Aggregator) SetMarket(status domain.MarketStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	auction := status.Auction
	converter := status.Converter
	a.auction = &auction
	a.converter = &converter
	a.dirtyMoney = true
}

// View returns the current aggregated view, recomputing only the derivations
// whose inputs changed since the last call.
func (a *Aggregator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dirtyTxs {
		a.cachedTxViews = a.deriveTxViews()
		a.dirtyTxs = false
	}
	if a.dirtyMoney {
		a.cachedEthUSD = FormatUSD(a.ethBalance, a.ethRate, a.ethRateSet)
		a.cachedMtnUSD = FormatUSD(a.mtnBalance, a.mtnRate, a.mtnRateSet)
		a.cachedAuctionUSD = "0"
		a.cachedConverterUSD = "0"
		if a.auction != nil {
			a.cachedAuctionUSD = FormatUSD(a.auction.CurrentPrice, a.ethRate, a.ethRateSet)
		}
		if a.converter != nil {
			a.cachedConverterUSD = FormatUSD(a.converter.CurrentPrice, a.ethRate, a.ethRateSet)
		}
		a.dirtyMoney = false
	}

	return View{
		Address:           a.address,
		EthBalance:        a.ethBalance,
		MtnBalance:        a.mtnBalance,
		EthBalanceUSD:     a.cachedEthUSD,
		MtnBalanceUSD:     a.cachedMtnUSD,
		AuctionPriceUSD:   a.cachedAuctionUSD,
		ConverterPriceUSD: a.cachedConverterUSD,
		Height:            a.height,
		Transactions:      a.cachedTxViews,
		Auction:           a.auction,
		Converter:         a.converter,
		AuctionEnabled:    a.auctionEnabled(),
		ConverterEnabled:  a.converterEnabled(),
		Ready:             a.ready(),
	}
}

func (a *Aggregator) deriveTxViews() []TxView {
	sorted := make([]domain.WalletTransaction, len(a.txs))
	copy(sorted, a.txs)

	// Pending transactions sort before all confirmed ones, then descending
	// block number.
	sort.SliceStable(sorted, func(i, j int) bool {
		bi, bj := sorted[i].Txn.BlockNumber, sorted[j].Txn.BlockNumber
		switch {
		case bi == nil:
			return bj != nil
		case bj == nil:
			return false
		default:
			return *bi > *bj
		}
	})

	views := make([]TxView, len(sorted))
	for i, tx := range sorted {
		views[i] = TxView{
			Tx:            tx,
			Classified:    classify.Classify(a.address, tx),
			Confirmations: Confirmations(a.height, tx.Txn.BlockNumber),
		}
	}
	return views
}

// auctionEnabled is true when the remaining supply is known and positive;
// an unknown supply never counts as zero.
func (a *Aggregator) auctionEnabled() bool {
	return a.auction != nil &&
		a.auction.TokenRemaining != nil &&
		a.auction.TokenRemaining.Sign() > 0
}

// converterEnabled is true once the daily auctions have started.
func (a *Aggregator) converterEnabled() bool {
	return a.auction != nil && a.auction.CurrentAuction > 0
}

func (a *Aggregator) ready() bool {
	return a.ethBalance != nil && a.mtnBalance != nil && a.ethRateSet && a.heightSet
}
