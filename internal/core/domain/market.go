package domain

import "math/big"

// MarketSnapshot is a full read of the auction or converter on-chain state.
// Each newer snapshot supersedes the previous one atomically; no history is kept.
type MarketSnapshot struct {
	CurrentPrice *big.Int `json:"current_price"`
	// TokenRemaining is nil when unknown. Unknown must not be treated as zero.
	TokenRemaining *big.Int `json:"token_remaining"`
	// NextStartTime is a unix timestamp; 0 when unknown.
	NextStartTime  int64 `json:"next_start_time"`
	CurrentAuction int64 `json:"current_auction"`
}

// MarketStatus pairs the auction and converter snapshots produced by a single
// refresh. Either both sides are fresh or the refresh failed as a whole.
type MarketStatus struct {
	Auction   MarketSnapshot `json:"auction"`
	Converter MarketSnapshot `json:"converter"`
}

// Equal reports whether two snapshots are structurally equal.
func (s MarketSnapshot) Equal(o MarketSnapshot) bool {
	return bigEqual(s.CurrentPrice, o.CurrentPrice) &&
		bigEqual(s.TokenRemaining, o.TokenRemaining) &&
		s.NextStartTime == o.NextStartTime &&
		s.CurrentAuction == o.CurrentAuction
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
