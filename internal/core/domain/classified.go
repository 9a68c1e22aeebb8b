package domain

import "math/big"

// TxType is the semantic category assigned to a wallet transaction.
type TxType string

const (
	TxAuction   TxType = "auction"
	TxConverted TxType = "converted"
	TxSent      TxType = "sent"
	TxReceived  TxType = "received"
	TxUnknown   TxType = "unknown"
)

// Asset identifies the displayed asset of a classified transaction.
type Asset string

const (
	AssetETH Asset = "ETH"
	AssetMTN Asset = "MTN"
)

// ClassifiedTransaction is derived from a WalletTransaction and the wallet
// address. It is recomputed on demand and never persisted. Exactly one TxType
// is assigned; fields irrelevant to that type stay zero-valued.
type ClassifiedTransaction struct {
	TxType             TxType   `json:"tx_type"`
	From               string   `json:"from"`
	To                 string   `json:"to"`
	Value              *big.Int `json:"value"`
	Symbol             Asset    `json:"symbol,omitempty"`
	IsProcessing       bool     `json:"is_processing"`
	ContractCallFailed bool     `json:"contract_call_failed"`
	EthSpentInAuction  *big.Int `json:"eth_spent_in_auction,omitempty"`
	MtnBoughtInAuction *big.Int `json:"mtn_bought_in_auction,omitempty"`
	ConvertedFrom      Asset    `json:"converted_from,omitempty"`
	FromValue          *big.Int `json:"from_value,omitempty"`
	ToValue            *big.Int `json:"to_value,omitempty"`
}
