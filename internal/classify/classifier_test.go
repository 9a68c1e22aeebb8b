package classify

import (
	"math/big"
	"testing"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

const (
	walletAddr = "0x1111111111111111111111111111111111111111"
	otherAddr  = "0x2222222222222222222222222222222222222222"
	tokenAddr  = "0x3333333333333333333333333333333333333333"
)

func blockNum(n uint64) *uint64 { return &n }

func TestClassify_Auction(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:        "0xabc",
			From:        walletAddr,
			To:          otherAddr,
			Value:       big.NewInt(5000),
			BlockNumber: blockNum(10),
			BlockHash:   "0xblock",
		},
		Meta: domain.TxnMeta{
			Auction: true,
			Tokens: map[string]domain.TokenTransfer{
				tokenAddr: {From: otherAddr, To: walletAddr, Value: big.NewInt(42)},
			},
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxAuction {
		t.Fatalf("TxType = %s, want auction", got.TxType)
	}
	if got.EthSpentInAuction.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("EthSpentInAuction = %v, want 5000", got.EthSpentInAuction)
	}
	if got.MtnBoughtInAuction.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("MtnBoughtInAuction = %v, want 42", got.MtnBoughtInAuction)
	}
}

func TestClassify_AuctionPendingHidesBoughtAmount(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:  "0xabc",
			From:  walletAddr,
			To:    otherAddr,
			Value: big.NewInt(5000),
			// pending: no block hash yet
		},
		Meta: domain.TxnMeta{
			Auction: true,
			Tokens: map[string]domain.TokenTransfer{
				tokenAddr: {From: otherAddr, To: walletAddr, Value: big.NewInt(42)},
			},
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxAuction {
		t.Fatalf("TxType = %s, want auction", got.TxType)
	}
	if got.MtnBoughtInAuction != nil {
		t.Errorf("MtnBoughtInAuction = %v, want nil while unconfirmed", got.MtnBoughtInAuction)
	}
	if got.EthSpentInAuction.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("EthSpentInAuction = %v, want 5000", got.EthSpentInAuction)
	}
}

func TestClassify_ConvertedFromEth(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:  "0xabc",
			From:  walletAddr,
			To:    otherAddr,
			Value: big.NewInt(1000),
		},
		Meta: domain.TxnMeta{
			Converter: true,
			Tokens: map[string]domain.TokenTransfer{
				tokenAddr: {From: otherAddr, To: walletAddr, Value: big.NewInt(77)},
			},
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxConverted {
		t.Fatalf("TxType = %s, want converted", got.TxType)
	}
	if got.ConvertedFrom != domain.AssetETH {
		t.Errorf("ConvertedFrom = %s, want ETH", got.ConvertedFrom)
	}
	if got.FromValue.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("FromValue = %v, want 1000", got.FromValue)
	}
	if got.ToValue.Cmp(big.NewInt(77)) != 0 {
		t.Errorf("ToValue = %v, want 77", got.ToValue)
	}
}

func TestClassify_ConvertedFromMtn(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:  "0xabc",
			From:  walletAddr,
			To:    otherAddr,
			Value: big.NewInt(0),
		},
		Meta: domain.TxnMeta{
			Converter: true,
			Tokens: map[string]domain.TokenTransfer{
				tokenAddr: {From: walletAddr, To: otherAddr, Value: big.NewInt(77), Processing: true},
			},
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxConverted {
		t.Fatalf("TxType = %s, want converted", got.TxType)
	}
	if got.ConvertedFrom != domain.AssetMTN {
		t.Errorf("ConvertedFrom = %s, want MTN", got.ConvertedFrom)
	}
	if got.FromValue.Cmp(big.NewInt(77)) != 0 {
		t.Errorf("FromValue = %v, want 77", got.FromValue)
	}
	if got.ToValue.Sign() != 0 {
		t.Errorf("ToValue = %v, want 0", got.ToValue)
	}
	if !got.IsProcessing {
		t.Error("IsProcessing should be true while the token leg settles")
	}
}

func TestClassify_ConvertedNoTransferYet(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn:  domain.Txn{Hash: "0xabc", From: walletAddr, To: otherAddr, Value: big.NewInt(1000)},
		Meta: domain.TxnMeta{Converter: true},
	}

	got := Classify(walletAddr, wtx)
	if got.ConvertedFrom != domain.AssetETH {
		t.Fatalf("ConvertedFrom = %s, want ETH", got.ConvertedFrom)
	}
	// The receiving leg's value is unknown until a settlement event lands.
	if got.ToValue != nil {
		t.Errorf("ToValue = %v, want nil", got.ToValue)
	}
}

func TestClassify_SentEth(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:        "0xabc",
			From:        walletAddr,
			To:          otherAddr,
			Value:       big.NewInt(900),
			BlockNumber: blockNum(5),
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxSent {
		t.Fatalf("TxType = %s, want sent", got.TxType)
	}
	if got.Symbol != domain.AssetETH {
		t.Errorf("Symbol = %s, want ETH", got.Symbol)
	}
	if got.Value.Cmp(big.NewInt(900)) != 0 {
		t.Errorf("Value = %v, want 900", got.Value)
	}
}

func TestClassify_SentEthCaseInsensitive(t *testing.T) {
	upper := "0x1111111111111111111111111111111111111111"
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{Hash: "0xabc", From: upper, To: otherAddr, Value: big.NewInt(900)},
	}

	got := Classify("0X1111111111111111111111111111111111111111", wtx)
	if got.TxType != domain.TxSent {
		t.Fatalf("TxType = %s, want sent regardless of address casing", got.TxType)
	}
}

func TestClassify_SentToken(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:  "0xabc",
			From:  walletAddr,
			To:    tokenAddr, // token contract call
			Value: big.NewInt(0),
		},
		Meta: domain.TxnMeta{
			Tokens: map[string]domain.TokenTransfer{
				tokenAddr: {From: walletAddr, To: otherAddr, Value: big.NewInt(33)},
			},
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxSent {
		t.Fatalf("TxType = %s, want sent", got.TxType)
	}
	if got.Symbol != domain.AssetMTN {
		t.Errorf("Symbol = %s, want MTN", got.Symbol)
	}
	if got.Value.Cmp(big.NewInt(33)) != 0 {
		t.Errorf("Value = %v, want token transfer value 33", got.Value)
	}
	if got.To != otherAddr {
		t.Errorf("To = %s, want token transfer recipient", got.To)
	}
}

func TestClassify_SentWhileProcessing(t *testing.T) {
	// The wallet paid for the transaction and the transfer has not settled:
	// counts as sent even though the transfer's from is someone else.
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{Hash: "0xabc", From: walletAddr, To: otherAddr, Value: big.NewInt(10)},
		Meta: domain.TxnMeta{
			Tokens: map[string]domain.TokenTransfer{
				tokenAddr: {From: otherAddr, To: otherAddr, Value: big.NewInt(5), Processing: true},
			},
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxSent {
		t.Fatalf("TxType = %s, want sent", got.TxType)
	}
	if !got.IsProcessing {
		t.Error("IsProcessing should be true")
	}
}

func TestClassify_ReceivedEth(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:        "0xabc",
			From:        otherAddr,
			To:          walletAddr,
			Value:       big.NewInt(700),
			BlockNumber: blockNum(7),
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxReceived {
		t.Fatalf("TxType = %s, want received", got.TxType)
	}
	if got.Symbol != domain.AssetETH {
		t.Errorf("Symbol = %s, want ETH", got.Symbol)
	}
	if got.Value.Cmp(big.NewInt(700)) != 0 {
		t.Errorf("Value = %v, want 700", got.Value)
	}
}

func TestClassify_ReceivedToken(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn: domain.Txn{
			Hash:  "0xabc",
			From:  otherAddr,
			To:    tokenAddr,
			Value: big.NewInt(0),
		},
		Meta: domain.TxnMeta{
			Tokens: map[string]domain.TokenTransfer{
				tokenAddr: {From: otherAddr, To: walletAddr, Value: big.NewInt(55)},
			},
		},
	}

	got := Classify(walletAddr, wtx)
	if got.TxType != domain.TxReceived {
		t.Fatalf("TxType = %s, want received", got.TxType)
	}
	if got.Symbol != domain.AssetMTN {
		t.Errorf("Symbol = %s, want MTN", got.Symbol)
	}
	if got.From != otherAddr {
		t.Errorf("From = %s, want token transfer sender", got.From)
	}
	if got.Value.Cmp(big.NewInt(55)) != 0 {
		t.Errorf("Value = %v, want 55", got.Value)
	}
}

func TestClassify_Unknown(t *testing.T) {
	tests := []struct {
		name string
		wtx  domain.WalletTransaction
	}{
		{
			name: "missing from and to",
			wtx:  domain.WalletTransaction{Txn: domain.Txn{Hash: "0xabc"}},
		},
		{
			name: "unrelated addresses",
			wtx: domain.WalletTransaction{
				Txn: domain.Txn{Hash: "0xabc", From: otherAddr, To: otherAddr, Value: big.NewInt(1)},
			},
		},
		{
			name: "transfer between strangers",
			wtx: domain.WalletTransaction{
				Txn: domain.Txn{Hash: "0xabc", From: otherAddr, To: tokenAddr},
				Meta: domain.TxnMeta{
					Tokens: map[string]domain.TokenTransfer{
						tokenAddr: {From: otherAddr, To: otherAddr, Value: big.NewInt(5)},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(walletAddr, tt.wtx)
			if got.TxType != domain.TxUnknown {
				t.Errorf("TxType = %s, want unknown", got.TxType)
			}
			if got.EthSpentInAuction != nil || got.MtnBoughtInAuction != nil {
				t.Error("auction fields must stay unset")
			}
			if got.ConvertedFrom != "" || got.FromValue != nil || got.ToValue != nil {
				t.Error("converter fields must stay unset")
			}
		})
	}
}

func TestClassify_NeverPanics(t *testing.T) {
	// Fully zero-valued input must classify, not panic.
	got := Classify("", domain.WalletTransaction{})
	if got.TxType != domain.TxUnknown {
		t.Errorf("TxType = %s, want unknown", got.TxType)
	}
}

func TestClassify_ContractCallFailed(t *testing.T) {
	wtx := domain.WalletTransaction{
		Txn:  domain.Txn{Hash: "0xabc", From: walletAddr, To: otherAddr, Value: big.NewInt(1)},
		Meta: domain.TxnMeta{ContractCallFailed: true},
	}

	if got := Classify(walletAddr, wtx); !got.ContractCallFailed {
		t.Error("ContractCallFailed should carry through")
	}
}
