package domain

// BlockHeader is the trigger signal delivered by the chain head subscription.
// Headers arrive in the order the node sends them; numbers are not guaranteed
// to be strictly increasing because of reorgs. Never persisted.
type BlockHeader struct {
	Number uint64 `json:"number"`
	Hash   string `json:"hash"`
}
