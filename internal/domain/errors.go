package domain

import "errors"

var (
	// Hierarchy errors
	ErrPartyNotFound    = errors.New("party not found")
	ErrInvalidHierarchy = errors.New("invalid hierarchy chain")

	// Commission errors
	ErrInvalidCommissionRule = errors.New("invalid commission rule")
	ErrCommissionMismatch    = errors.New("commission shares do not sum to pool")
	ErrAlreadyDistributed    = errors.New("transaction already distributed")

	// Wallet errors
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrWalletInactive         = errors.New("wallet is not active")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrConcurrentModification = errors.New("wallet modified concurrently")
	ErrInvalidAmount          = errors.New("amount must be positive")
)
