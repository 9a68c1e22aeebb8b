package domain

// TrackedWallet is a wallet address whose activity the tracker observes.
type TrackedWallet struct {
	Address   string `json:"address"`
	CreatedAt int64  `json:"created_at"`
}
