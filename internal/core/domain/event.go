package domain

// EventType identifies a notification published to consumers.
type EventType string

const (
	EventAuctionStatusUpdated     EventType = "auction-status-updated"
	EventConverterStatusUpdated   EventType = "converter-status-updated"
	EventConnectivityStateChanged EventType = "connectivity-state-changed"
	EventWalletStateChanged       EventType = "wallet-state-changed"
)

// ConnectivityState is the payload of connectivity-state-changed events.
type ConnectivityState struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Plugin string `json:"plugin"`
	Detail string `json:"detail,omitempty"`
}

// Event is a notification emitted on the event bus.
type Event struct {
	Type EventType `json:"type"`
	// Owner is the session the event belongs to; empty for broadcast events.
	Owner        string             `json:"owner,omitempty"`
	Snapshot     *MarketSnapshot    `json:"snapshot,omitempty"`
	Connectivity *ConnectivityState `json:"connectivity,omitempty"`
}
