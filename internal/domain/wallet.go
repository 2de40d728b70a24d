package domain

import "time"

// WalletKind distinguishes wallets held by the same party.
type WalletKind string

const (
	WalletKindPrimary WalletKind = "PRIMARY"
)

// Wallet holds a party's balance in integer minor currency units.
type Wallet struct {
	ID          string
	PartyID     string
	Kind        WalletKind
	Balance     int64
	HoldBalance int64
	Version     int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Available is the spendable balance: balance minus held funds.
// It is always derived, never stored independently.
func (w *Wallet) Available() int64 {
	return w.Balance - w.HoldBalance
}

// ValidateDebit checks whether the wallet can fund a debit of amount.
// Held funds are not spendable.
func (w *Wallet) ValidateDebit(amount int64) error {
	if !w.IsActive {
		return ErrWalletInactive
	}
	if w.Available() < amount {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateHold checks whether amount can be placed on hold.
func (w *Wallet) ValidateHold(amount int64) error {
	if !w.IsActive {
		return ErrWalletInactive
	}
	if w.Available() < amount {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns the balance after a debit of amount.
func (w *Wallet) ApplyDebit(amount int64) int64 {
	return w.Balance - amount
}

// ApplyCredit returns the balance after a credit of amount.
func (w *Wallet) ApplyCredit(amount int64) int64 {
	return w.Balance + amount
}
