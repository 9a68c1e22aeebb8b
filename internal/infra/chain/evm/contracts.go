package evm

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const auctionABIJSON = `[
  {"inputs": [], "name": "genesisTime", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "currentPrice", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "mintable", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "nextAuctionStartTime", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const converterABIJSON = `[
  {"inputs": [], "name": "currentPrice", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "availableMtn", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "minReturn", "type": "uint256"}], "name": "convertEthToMtn", "outputs": [{"type": "uint256"}], "stateMutability": "payable", "type": "function"},
  {"inputs": [{"name": "amount", "type": "uint256"}, {"name": "minReturn", "type": "uint256"}], "name": "convertMtnToEth", "outputs": [{"type": "uint256"}], "stateMutability": "nonpayable", "type": "function"}
]`

const erc20ABIJSON = `[
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"anonymous": false, "inputs": [
    {"indexed": true, "name": "from", "type": "address"},
    {"indexed": true, "name": "to", "type": "address"},
    {"indexed": false, "name": "value", "type": "uint256"}
  ], "name": "Transfer", "type": "event"}
]`

var (
	auctionABI     abi.ABI
	auctionABIOnce sync.Once
	auctionABIErr  error

	converterABI     abi.ABI
	converterABIOnce sync.Once
	converterABIErr  error

	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

func auctionABIInstance() (abi.ABI, error) {
	auctionABIOnce.Do(func() {
		auctionABI, auctionABIErr = abi.JSON(strings.NewReader(auctionABIJSON))
	})
	return auctionABI, auctionABIErr
}

func converterABIInstance() (abi.ABI, error) {
	converterABIOnce.Do(func() {
		converterABI, converterABIErr = abi.JSON(strings.NewReader(converterABIJSON))
	})
	return converterABI, converterABIErr
}

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}
