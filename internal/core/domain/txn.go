package domain

import "math/big"

// Txn is the raw transaction as observed on chain.
type Txn struct {
	Hash  string   `json:"hash"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Value *big.Int `json:"value"`
	// BlockNumber is nil while the transaction is pending.
	BlockNumber *uint64 `json:"block_number"`
	BlockHash   string  `json:"block_hash"`
}

// Pending reports whether the transaction has not been mined yet.
func (t Txn) Pending() bool {
	return t.BlockNumber == nil
}

// Receipt carries the execution outcome of a mined transaction.
type Receipt struct {
	Success bool `json:"success"`
}

// TokenTransfer is an MTN transfer event associated with a transaction.
// Processing marks a transfer whose settlement is not confirmed yet; it is
// used to disambiguate direction while a conversion is in flight.
type TokenTransfer struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Value      *big.Int `json:"value"`
	Processing bool     `json:"processing"`
}

// TxnMeta is auxiliary metadata populated asynchronously after the bare
// transaction is first observed.
type TxnMeta struct {
	// Tokens maps token contract address to the matched transfer event.
	Tokens             map[string]TokenTransfer `json:"tokens,omitempty"`
	ContractCallFailed bool                     `json:"contract_call_failed"`
	Auction            bool                     `json:"auction"`
	Converter          bool                     `json:"converter"`
}

// WalletTransaction is a wallet-scoped transaction record: the transaction
// itself, its receipt once known, and classification metadata.
type WalletTransaction struct {
	Txn     Txn      `json:"txn"`
	Receipt *Receipt `json:"receipt,omitempty"`
	Meta    TxnMeta  `json:"meta"`
}
