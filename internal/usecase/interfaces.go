package usecase

import (
	"context"
	"time"

	"github.com/velopay/commission-engine/internal/domain"
)

// PartyRepository is the party directory: hierarchy lookups by id.
type PartyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Party, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Party, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Party, error)
}

// WalletRepository defines data access for wallets. Every balance write
// is a compare-and-swap on (id, version); a stale version yields
// domain.ErrConcurrentModification.
type WalletRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Wallet, error)
	GetByPartyForUpdate(ctx context.Context, tx Transaction, partyID string, kind domain.WalletKind) (*domain.Wallet, error)
	GetByPartiesForUpdate(ctx context.Context, tx Transaction, partyIDs []string, kind domain.WalletKind) ([]*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance, expectedVersion int64, updatedAt time.Time) error
	UpdateHoldBalance(ctx context.Context, tx Transaction, id string, holdBalance, expectedVersion int64, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Wallet, error)
}

// LedgerEntryRepository defines data access for ledger entries.
// Entries are append-only; there are no update or delete operations.
type LedgerEntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.LedgerEntry, error)
	GetByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error)
}

// LedgerRepository defines ledger-wide consistency queries.
type LedgerRepository interface {
	SumEntriesByWallet(ctx context.Context, walletID string) (int64, error)
	LastRunningBalance(ctx context.Context, walletID string) (balance int64, found bool, err error)
}

// CommissionRuleRepository resolves effective commission rules. Both
// finders return (nil, nil) when no rule matches; the store picks the
// most recently effective rule still inside its validity window.
type CommissionRuleRepository interface {
	FindUserRule(ctx context.Context, partyID, serviceID string, at time.Time) (*domain.CommissionRule, error)
	FindRoleRule(ctx context.Context, roleID, serviceID string, at time.Time) (*domain.CommissionRule, error)
}

// EarningRepository defines data access for commission earnings.
type EarningRepository interface {
	Create(ctx context.Context, tx Transaction, earning *domain.CommissionEarning) error
	ExistsByTransaction(ctx context.Context, tx Transaction, transactionID string) (bool, error)
	GetByTransaction(ctx context.Context, transactionID string) ([]*domain.CommissionEarning, error)
	GetByBeneficiary(ctx context.Context, partyID string, limit, offset int) ([]*domain.CommissionEarning, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}
