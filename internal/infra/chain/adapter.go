package chain

import (
	"context"
	"math/big"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

// HeadSubscription is an active new-block-header subscription.
type HeadSubscription interface {
	// Headers delivers block headers in the order received from the node.
	Headers() <-chan domain.BlockHeader
	// Err delivers subscription-level failures. The subscription stays open;
	// the consumer decides whether to tear it down.
	Err() <-chan error
	// Unsubscribe closes the subscription. Safe to call more than once.
	Unsubscribe()
}

// HeadSubscriber opens block header subscriptions.
type HeadSubscriber interface {
	SubscribeHeads(ctx context.Context) (HeadSubscription, error)
}

// TransferLog is a decoded ERC-20 Transfer event.
type TransferLog struct {
	Token string
	From  string
	To    string
	Value *big.Int
}

// TxRequest describes a transaction handed to the node for signing and
// broadcast. Key management is the node's concern, not ours.
type TxRequest struct {
	From     string
	To       string
	Value    *big.Int
	Data     []byte
	GasPrice *big.Int
}

// MetronomeReader exposes the individual on-chain reads that make up a market
// status refresh. Each read is independent so callers can fan them out.
type MetronomeReader interface {
	AuctionGenesisTime(ctx context.Context) (int64, error)
	AuctionCurrentPrice(ctx context.Context) (*big.Int, error)
	AuctionMintable(ctx context.Context) (*big.Int, error)
	AuctionNextStart(ctx context.Context) (int64, error)
	ConverterCurrentPrice(ctx context.Context) (*big.Int, error)
	ConverterAvailableMtn(ctx context.Context) (*big.Int, error)
}

// Submitter builds and submits protocol transactions through the node.
type Submitter interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, req TxRequest) (string, error)
	ConvertEthToMtnData(minReturn *big.Int) ([]byte, error)
	ConvertMtnToEthData(amount, minReturn *big.Int) ([]byte, error)
}

// Adapter abstracts the remote Ethereum node.
type Adapter interface {
	HeadSubscriber
	MetronomeReader
	Submitter

	LatestHeight(ctx context.Context) (uint64, error)
	BlockTransactions(ctx context.Context, number uint64) (domain.BlockHeader, []domain.Txn, error)
	TransactionReceipt(ctx context.Context, txHash string) (*domain.Receipt, []TransferLog, error)
	EthBalance(ctx context.Context, address string) (*big.Int, error)
	TokenBalance(ctx context.Context, address string) (*big.Int, error)
	Close()
}
