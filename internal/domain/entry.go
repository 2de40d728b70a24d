package domain

import "time"

// EntryType marks the direction of a ledger entry.
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// ReferenceType classifies what caused a ledger entry.
type ReferenceType string

const (
	ReferenceTypeCommission ReferenceType = "COMMISSION"
	ReferenceTypeRefund     ReferenceType = "REFUND"
	ReferenceTypeAdjustment ReferenceType = "ADJUSTMENT"
)

// LedgerEntry is an immutable, append-only record of one wallet balance
// change. RunningBalance is the wallet balance after this entry.
type LedgerEntry struct {
	ID             string
	WalletID       string
	TransactionID  *string
	EntryType      EntryType
	ReferenceType  ReferenceType
	Amount         int64
	RunningBalance int64
	Narration      string
	IdempotencyKey *string
	CreatedAt      time.Time
}
