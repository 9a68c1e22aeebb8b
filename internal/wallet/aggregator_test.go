package wallet

import (
	"math/big"
	"testing"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

const aggAddr = "0x1111111111111111111111111111111111111111"

func blockNum(n uint64) *uint64 { return &n }

func TestAggregator_TxOrdering(t *testing.T) {
	agg := NewAggregator(aggAddr)
	agg.SetHeight(100)
	agg.SetTransactions([]domain.WalletTransaction{
		{Txn: domain.Txn{Hash: "0xold", From: aggAddr, Value: big.NewInt(1), BlockNumber: blockNum(10)}},
		{Txn: domain.Txn{Hash: "0xpending", From: aggAddr, Value: big.NewInt(1)}},
		{Txn: domain.Txn{Hash: "0xnew", From: aggAddr, Value: big.NewInt(1), BlockNumber: blockNum(95)}},
	})

	view := agg.View()
	if len(view.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(view.Transactions))
	}

	wantOrder := []string{"0xpending", "0xnew", "0xold"}
	for i, want := range wantOrder {
		if got := view.Transactions[i].Tx.Txn.Hash; got != want {
			t.Errorf("position %d = %s, want %s", i, got, want)
		}
	}

	if view.Transactions[0].Confirmations != 0 {
		t.Errorf("pending confirmations = %d, want 0", view.Transactions[0].Confirmations)
	}
	if view.Transactions[1].Confirmations != 6 {
		t.Errorf("confirmations = %d, want 6", view.Transactions[1].Confirmations)
	}
}

func TestAggregator_ClassifiesTransactions(t *testing.T) {
	agg := NewAggregator(aggAddr)
	agg.SetTransactions([]domain.WalletTransaction{
		{Txn: domain.Txn{Hash: "0x1", From: aggAddr, To: "0x2", Value: big.NewInt(5)}},
	})

	view := agg.View()
	if view.Transactions[0].Classified.TxType != domain.TxSent {
		t.Errorf("TxType = %s, want sent", view.Transactions[0].Classified.TxType)
	}
}

func TestAggregator_Ready(t *testing.T) {
	agg := NewAggregator(aggAddr)
	if agg.View().Ready {
		t.Error("fresh aggregator must not be ready")
	}

	agg.SetBalances(big.NewInt(1), big.NewInt(2))
	if agg.View().Ready {
		t.Error("not ready without rate and height")
	}

	agg.SetRate(domain.AssetETH, 100)
	agg.SetHeight(50)
	if !agg.View().Ready {
		t.Error("expected ready once balances, rate, and height are known")
	}
}

func TestAggregator_BalancesNilWhenUnknown(t *testing.T) {
	agg := NewAggregator(aggAddr)
	view := agg.View()
	if view.EthBalance != nil || view.MtnBalance != nil {
		t.Error("unknown balances must be nil, not zero")
	}
	if view.EthBalanceUSD != "0" {
		t.Errorf("EthBalanceUSD = %q, want \"0\"", view.EthBalanceUSD)
	}
}

func TestAggregator_USD(t *testing.T) {
	agg := NewAggregator(aggAddr)
	agg.SetBalances(new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18)), big.NewInt(0))
	agg.SetRate(domain.AssetETH, 1.23)

	if got := agg.View().EthBalanceUSD; got != "2.46" {
		t.Errorf("EthBalanceUSD = %q, want \"2.46\"", got)
	}
}

func TestAggregator_AuctionEnabled(t *testing.T) {
	agg := NewAggregator(aggAddr)

	if agg.View().AuctionEnabled {
		t.Error("auction must be disabled without a snapshot")
	}

	// Unknown remaining supply must not count as zero, but it cannot enable
	// the auction either.
	agg.SetMarket(domain.MarketStatus{
		Auction: domain.MarketSnapshot{CurrentPrice: big.NewInt(10)},
	})
	if agg.View().AuctionEnabled {
		t.Error("auction must be disabled while remaining supply is unknown")
	}

	agg.SetMarket(domain.MarketStatus{
		Auction: domain.MarketSnapshot{CurrentPrice: big.NewInt(10), TokenRemaining: big.NewInt(0)},
	})
	if agg.View().AuctionEnabled {
		t.Error("auction must be disabled at zero remaining supply")
	}

	agg.SetMarket(domain.MarketStatus{
		Auction: domain.MarketSnapshot{CurrentPrice: big.NewInt(10), TokenRemaining: big.NewInt(1)},
	})
	if !agg.View().AuctionEnabled {
		t.Error("auction should be enabled with positive remaining supply")
	}
}

func TestAggregator_ConverterEnabled(t *testing.T) {
	agg := NewAggregator(aggAddr)

	agg.SetMarket(domain.MarketStatus{
		Auction: domain.MarketSnapshot{CurrentAuction: 0},
	})
	if agg.View().ConverterEnabled {
		t.Error("converter must be disabled during the initial auction")
	}

	agg.SetMarket(domain.MarketStatus{
		Auction: domain.MarketSnapshot{CurrentAuction: 3},
	})
	if !agg.View().ConverterEnabled {
		t.Error("converter should be enabled once daily auctions run")
	}
}

func TestAggregator_IncrementalRecompute(t *testing.T) {
	agg := NewAggregator(aggAddr)
	agg.SetHeight(100)
	agg.SetTransactions([]domain.WalletTransaction{
		{Txn: domain.Txn{Hash: "0x1", From: aggAddr, Value: big.NewInt(1), BlockNumber: blockNum(90)}},
	})

	first := agg.View()

	// A rate change must not rebuild the transaction views: the cached
	// slice is handed out again.
	agg.SetRate(domain.AssetETH, 5)
	second := agg.View()

	if len(second.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(second.Transactions))
	}
	if &first.Transactions[0] != &second.Transactions[0] {
		t.Error("rate change should not rebuild transaction views")
	}

	// A height change does rebuild them.
	agg.SetHeight(99)
	third := agg.View()
	if &second.Transactions[0] == &third.Transactions[0] {
		t.Error("height change should rebuild transaction views")
	}
	if third.Transactions[0].Confirmations != 10 {
		t.Errorf("confirmations = %d, want 10", third.Transactions[0].Confirmations)
	}
}
