package wallet

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/params"
)

// FormatUSD renders a wei amount at a fiat rate. Amounts of one dollar or
// more get 2 decimals, smaller amounts 6. Returns "0" when either the amount
// or the rate is unknown.
func FormatUSD(wei *big.Int, rate float64, rateKnown bool) string {
	if wei == nil || !rateKnown {
		return "0"
	}

	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	usd, _ := new(big.Float).Mul(eth, big.NewFloat(rate)).Float64()

	if usd >= 1 {
		return strconv.FormatFloat(usd, 'f', 2, 64)
	}
	return strconv.FormatFloat(usd, 'f', 6, 64)
}

// Confirmations counts blocks mined on top of (and including) the block
// containing the transaction. 0 while pending, and clamped to 0 when the
// recorded block number exceeds the current height after a reorg.
func Confirmations(height uint64, blockNumber *uint64) uint64 {
	if blockNumber == nil || *blockNumber > height {
		return 0
	}
	return height - *blockNumber + 1
}
