package domain

import "time"

// Event types
const (
	EventTypeDistributionSettled = "distribution.settled"
	EventTypeWalletCredited      = "wallet.credited"
	EventTypeWalletDebited       = "wallet.debited"
	EventTypeHoldPlaced          = "wallet.hold_placed"
	EventTypeHoldReleased        = "wallet.hold_released"
)

// Aggregate types
const (
	AggregateTypeDistribution = "distribution"
	AggregateTypeWallet       = "wallet"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// DistributionSettledEvent payload
type DistributionSettledEvent struct {
	TransactionID string `json:"transaction_id"`
	Pool          int64  `json:"pool"`
	Earnings      int    `json:"earnings"`
	Currency      string `json:"currency"`
}

// WalletMutatedEvent payload for manual credits, debits, holds and releases
type WalletMutatedEvent struct {
	WalletID  string `json:"wallet_id"`
	PartyID   string `json:"party_id"`
	Amount    int64  `json:"amount"`
	Narration string `json:"narration,omitempty"`
}
