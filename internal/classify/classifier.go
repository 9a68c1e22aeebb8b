// Package classify assigns a semantic category to raw wallet transactions.
// There is no explicit type field on chain data; the category is derived from
// the transaction, its receipt, and any matched token transfer event.
package classify

import (
	"sort"
	"strings"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

// Classify derives the classification of a wallet transaction. It is a pure,
// total function: malformed input yields the unknown type, never a panic, so
// a bad record cannot abort an aggregation pass over a transaction list.
//
// Priority order, first match wins: auction flag, converter flag, sent,
// received, unknown. Address comparison is case-insensitive; canonical form
// is lower-case hex.
func Classify(wallet string, wtx domain.WalletTransaction) domain.ClassifiedTransaction {
	addr := strings.ToLower(wallet)
	txn := wtx.Txn
	token := matchedTransfer(wtx.Meta.Tokens)

	out := domain.ClassifiedTransaction{
		TxType:             domain.TxUnknown,
		ContractCallFailed: wtx.Meta.ContractCallFailed,
		IsProcessing:       token != nil && token.Processing,
		From:               strings.ToLower(txn.From),
		To:                 strings.ToLower(txn.To),
		Value:              txn.Value,
	}

	switch {
	case wtx.Meta.Auction:
		out.TxType = domain.TxAuction
		out.EthSpentInAuction = txn.Value
		// The bought amount comes from the minting event and is only known
		// once the purchase is confirmed.
		if txn.BlockHash != "" && token != nil {
			out.MtnBoughtInAuction = token.Value
		}

	case wtx.Meta.Converter:
		out.TxType = domain.TxConverted
		// A conversion leg carries either a nonzero ETH payment or a nonzero
		// MTN payment, never both.
		if txn.Value == nil || txn.Value.Sign() == 0 {
			out.ConvertedFrom = domain.AssetMTN
		} else {
			out.ConvertedFrom = domain.AssetETH
		}
		if out.ConvertedFrom == domain.AssetETH {
			out.FromValue = txn.Value
			if token != nil {
				out.ToValue = token.Value
			}
		} else {
			if token != nil {
				out.FromValue = token.Value
			}
			out.ToValue = txn.Value
		}

	case isSent(addr, txn, token):
		out.TxType = domain.TxSent
		out.Symbol = domain.AssetETH
		if token != nil {
			out.Symbol = domain.AssetMTN
			if token.To != "" {
				out.To = strings.ToLower(token.To)
			}
			if token.Value != nil {
				out.Value = token.Value
			}
		}

	case isReceived(addr, txn, token):
		out.TxType = domain.TxReceived
		out.Symbol = domain.AssetETH
		if token != nil {
			out.Symbol = domain.AssetMTN
			if token.From != "" {
				out.From = strings.ToLower(token.From)
			}
			if token.Value != nil {
				out.Value = token.Value
			}
		}
	}

	return out
}

func isSent(addr string, txn domain.Txn, token *domain.TokenTransfer) bool {
	if token == nil {
		return txn.From != "" && strings.ToLower(txn.From) == addr
	}
	if token.From != "" && strings.ToLower(token.From) == addr {
		return true
	}
	// A still-settling conversion leg counts as sent when the wallet paid
	// for the transaction.
	return token.Processing && txn.From != "" && strings.ToLower(txn.From) == addr
}

func isReceived(addr string, txn domain.Txn, token *domain.TokenTransfer) bool {
	if token == nil {
		return txn.To != "" && strings.ToLower(txn.To) == addr
	}
	return token.To != "" && strings.ToLower(token.To) == addr
}

// matchedTransfer returns the transfer associated with the transaction. A
// transaction carries at most one relevant transfer; if several are present
// the one under the smallest token address is chosen so the result does not
// depend on map iteration order.
func matchedTransfer(tokens map[string]domain.TokenTransfer) *domain.TokenTransfer {
	if len(tokens) == 0 {
		return nil
	}

	keys := make([]string, 0, len(tokens))
	for k := range tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := tokens[keys[0]]
	return &t
}
