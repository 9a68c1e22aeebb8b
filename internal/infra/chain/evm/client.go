package evm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mtnwallet/tracker/internal/core/domain"
	"github.com/mtnwallet/tracker/internal/infra/chain"
)

// Config holds the contract addresses the client talks to.
type Config struct {
	AuctionAddress   string
	ConverterAddress string
	TokenAddress     string
}

// Client implements chain.Adapter on top of go-ethereum.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	signer    types.Signer

	auctionAddr   common.Address
	converterAddr common.Address
	tokenAddr     common.Address

	log *slog.Logger
}

// Dial connects to the node and resolves the chain ID used for sender
// recovery. The URL must support subscriptions (websocket or IPC).
func Dial(ctx context.Context, rawURL string, cfg Config) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial node: %w", err)
	}

	ethClient := ethclient.NewClient(rpcClient)
	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	return &Client{
		rpcClient:     rpcClient,
		ethClient:     ethClient,
		signer:        types.LatestSignerForChainID(chainID),
		auctionAddr:   common.HexToAddress(cfg.AuctionAddress),
		converterAddr: common.HexToAddress(cfg.ConverterAddress),
		tokenAddr:     common.HexToAddress(cfg.TokenAddress),
		log:           slog.Default().With("component", "evm"),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// SubscribeHeads opens a new-block-header subscription.
func (c *Client) SubscribeHeads(ctx context.Context) (chain.HeadSubscription, error) {
	raw := make(chan *types.Header, 16)
	sub, err := c.ethClient.SubscribeNewHead(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to new heads: %w", err)
	}
	return newHeadSub(sub, raw), nil
}

// LatestHeight returns the current chain height.
func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTransactions returns the block header and its transactions.
func (c *Client) BlockTransactions(
	ctx context.Context,
	number uint64,
) (domain.BlockHeader, []domain.Txn, error) {
	block, err := c.ethClient.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return domain.BlockHeader{}, nil, fmt.Errorf("eth_getBlockByNumber failed: %w", err)
	}

	header := domain.BlockHeader{
		Number: block.NumberU64(),
		Hash:   block.Hash().Hex(),
	}

	blockNumber := block.NumberU64()
	txns := make([]domain.Txn, 0, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		from, err := types.Sender(c.signer, tx)
		if err != nil {
			c.log.Warn("Failed to recover sender", "tx", tx.Hash().Hex(), "error", err)
			continue
		}

		to := ""
		if tx.To() != nil {
			to = strings.ToLower(tx.To().Hex())
		}

		num := blockNumber
		txns = append(txns, domain.Txn{
			Hash:        tx.Hash().Hex(),
			From:        strings.ToLower(from.Hex()),
			To:          to,
			Value:       tx.Value(),
			BlockNumber: &num,
			BlockHash:   header.Hash,
		})
	}

	return header, txns, nil
}

// TransactionReceipt fetches the receipt and decodes MTN Transfer events.
func (c *Client) TransactionReceipt(
	ctx context.Context,
	txHash string,
) (*domain.Receipt, []chain.TransferLog, error) {
	receipt, err := c.ethClient.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, nil, fmt.Errorf("eth_getTransactionReceipt failed: %w", err)
	}

	erc20, err := erc20ABIInstance()
	if err != nil {
		return nil, nil, err
	}
	transferTopic := erc20.Events["Transfer"].ID

	var transfers []chain.TransferLog
	for _, lg := range receipt.Logs {
		if lg.Address != c.tokenAddr {
			continue
		}
		if len(lg.Topics) != 3 || lg.Topics[0] != transferTopic {
			continue
		}

		value := new(big.Int)
		if len(lg.Data) > 0 {
			value.SetBytes(lg.Data)
		}
		transfers = append(transfers, chain.TransferLog{
			Token: strings.ToLower(lg.Address.Hex()),
			From:  strings.ToLower(common.BytesToAddress(lg.Topics[1].Bytes()).Hex()),
			To:    strings.ToLower(common.BytesToAddress(lg.Topics[2].Bytes()).Hex()),
			Value: value,
		})
	}

	return &domain.Receipt{Success: receipt.Status == types.ReceiptStatusSuccessful}, transfers, nil
}

// EthBalance returns the ETH balance of an address at the latest block.
func (c *Client) EthBalance(ctx context.Context, address string) (*big.Int, error) {
	return c.ethClient.BalanceAt(ctx, common.HexToAddress(address), nil)
}

// TokenBalance returns the MTN balance of an address at the latest block.
func (c *Client) TokenBalance(ctx context.Context, address string) (*big.Int, error) {
	erc20, err := erc20ABIInstance()
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, c.tokenAddr, erc20, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	return toBig(out)
}

func (c *Client) auctionUint(ctx context.Context, method string) (*big.Int, error) {
	contract, err := auctionABIInstance()
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, c.auctionAddr, contract, method)
	if err != nil {
		return nil, err
	}
	return toBig(out)
}

func (c *Client) converterUint(ctx context.Context, method string) (*big.Int, error) {
	contract, err := converterABIInstance()
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, c.converterAddr, contract, method)
	if err != nil {
		return nil, err
	}
	return toBig(out)
}

// AuctionGenesisTime returns the auction genesis timestamp.
func (c *Client) AuctionGenesisTime(ctx context.Context) (int64, error) {
	v, err := c.auctionUint(ctx, "genesisTime")
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

// AuctionCurrentPrice returns the current auction price in wei per MTN.
func (c *Client) AuctionCurrentPrice(ctx context.Context) (*big.Int, error) {
	return c.auctionUint(ctx, "currentPrice")
}

// AuctionMintable returns the MTN remaining in the current auction.
func (c *Client) AuctionMintable(ctx context.Context) (*big.Int, error) {
	return c.auctionUint(ctx, "mintable")
}

// AuctionNextStart returns the start timestamp of the next auction.
func (c *Client) AuctionNextStart(ctx context.Context) (int64, error) {
	v, err := c.auctionUint(ctx, "nextAuctionStartTime")
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

// ConverterCurrentPrice returns the converter's current MTN price in wei.
func (c *Client) ConverterCurrentPrice(ctx context.Context) (*big.Int, error) {
	return c.converterUint(ctx, "currentPrice")
}

// ConverterAvailableMtn returns the MTN held by the converter.
func (c *Client) ConverterAvailableMtn(ctx context.Context) (*big.Int, error) {
	return c.converterUint(ctx, "availableMtn")
}

// SuggestGasPrice returns the node's suggested gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.ethClient.SuggestGasPrice(ctx)
}

// SendTransaction hands a transaction to the node for signing and broadcast
// via eth_sendTransaction. The node manages the account keys.
func (c *Client) SendTransaction(ctx context.Context, req chain.TxRequest) (string, error) {
	arg := map[string]any{
		"from": req.From,
		"to":   req.To,
	}
	if req.Value != nil && req.Value.Sign() > 0 {
		arg["value"] = hexutil.EncodeBig(req.Value)
	}
	if len(req.Data) > 0 {
		arg["data"] = hexutil.Encode(req.Data)
	}
	if req.GasPrice != nil {
		arg["gasPrice"] = hexutil.EncodeBig(req.GasPrice)
	}

	var txHash common.Hash
	if err := c.rpcClient.CallContext(ctx, &txHash, "eth_sendTransaction", arg); err != nil {
		return "", fmt.Errorf("eth_sendTransaction failed: %w", err)
	}
	return txHash.Hex(), nil
}

// ConvertEthToMtnData builds the call data for an ETH to MTN conversion.
func (c *Client) ConvertEthToMtnData(minReturn *big.Int) ([]byte, error) {
	contract, err := converterABIInstance()
	if err != nil {
		return nil, err
	}
	return contract.Pack("convertEthToMtn", minReturn)
}

// ConvertMtnToEthData builds the call data for an MTN to ETH conversion.
func (c *Client) ConvertMtnToEthData(amount, minReturn *big.Int) ([]byte, error) {
	contract, err := converterABIInstance()
	if err != nil {
		return nil, err
	}
	return contract.Pack("convertMtnToEth", amount, minReturn)
}

func (c *Client) call(
	ctx context.Context,
	to common.Address,
	contract abi.ABI,
	method string,
	args ...interface{},
) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	res, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := contract.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func toBig(out []interface{}) (*big.Int, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("empty call result")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected call result type %T", out[0])
	}
	return v, nil
}
