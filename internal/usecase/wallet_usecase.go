package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/infrastructure/metrics"
)

// WalletUseCase handles administrative wallet operations: manual
// credits and debits (adjustments) and hold management. These are the
// mutations the idempotency guard fronts at the API boundary.
type WalletUseCase struct {
	txManager  TransactionManager
	walletRepo WalletRepository
	entryRepo  LedgerEntryRepository
	outboxRepo OutboxRepository
	audit      AuditSink
	idGen      IDGenerator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewWalletUseCase creates a new WalletUseCase. audit and metrics may be nil.
func NewWalletUseCase(
	txManager TransactionManager,
	walletRepo WalletRepository,
	entryRepo LedgerEntryRepository,
	outboxRepo OutboxRepository,
	audit AuditSink,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *WalletUseCase {
	return &WalletUseCase{
		txManager:  txManager,
		walletRepo: walletRepo,
		entryRepo:  entryRepo,
		outboxRepo: outboxRepo,
		audit:      audit,
		idGen:      idGen,
		metrics:    m,
		logger:     logger,
	}
}

// AdjustInput describes a manual credit or debit.
type AdjustInput struct {
	WalletID       string
	Amount         int64
	Narration      string
	ActorID        string
	IdempotencyKey string
}

// Credit adds funds to a wallet and appends the matching ledger entry.
func (uc *WalletUseCase) Credit(ctx context.Context, input AdjustInput) (*domain.LedgerEntry, error) {
	return uc.adjust(ctx, input, domain.EntryTypeCredit)
}

// Debit removes funds from a wallet, failing with ErrInsufficientFunds
// when the balance cannot cover the amount.
func (uc *WalletUseCase) Debit(ctx context.Context, input AdjustInput) (*domain.LedgerEntry, error) {
	return uc.adjust(ctx, input, domain.EntryTypeDebit)
}

func (uc *WalletUseCase) adjust(ctx context.Context, input AdjustInput, entryType domain.EntryType) (*domain.LedgerEntry, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()

	var entry *domain.LedgerEntry
	for attempt := 0; ; attempt++ {
		wallet, err := uc.walletRepo.GetByIDForUpdate(txCtx, tx, input.WalletID)
		if err != nil {
			return nil, err
		}

		var newBalance int64
		if entryType == domain.EntryTypeDebit {
			if err := wallet.ValidateDebit(input.Amount); err != nil {
				return nil, fmt.Errorf("%w: wallet %s, amount %d, balance %d", err, wallet.ID, input.Amount, wallet.Balance)
			}
			newBalance = wallet.ApplyDebit(input.Amount)
		} else {
			if !wallet.IsActive {
				return nil, fmt.Errorf("%w: wallet %s", domain.ErrWalletInactive, wallet.ID)
			}
			newBalance = wallet.ApplyCredit(input.Amount)
		}

		err = uc.walletRepo.UpdateBalance(txCtx, tx, wallet.ID, newBalance, wallet.Version, now)
		if err == nil {
			entry = &domain.LedgerEntry{
				ID:             uc.idGen.Generate(),
				WalletID:       wallet.ID,
				EntryType:      entryType,
				ReferenceType:  domain.ReferenceTypeAdjustment,
				Amount:         input.Amount,
				RunningBalance: newBalance,
				Narration:      input.Narration,
				CreatedAt:      now,
			}
			if input.IdempotencyKey != "" {
				key := input.IdempotencyKey
				entry.IdempotencyKey = &key
			}

			if err := uc.entryRepo.Create(txCtx, tx, entry); err != nil {
				return nil, err
			}

			if err := uc.emitWalletEvent(txCtx, tx, wallet, input, entryType, now); err != nil {
				return nil, err
			}

			break
		}

		if !errors.Is(err, domain.ErrConcurrentModification) {
			return nil, err
		}
		if attempt+1 >= MaxCASAttempts {
			return nil, fmt.Errorf("%w: wallet %s", domain.ErrConcurrentModification, input.WalletID)
		}
		if uc.metrics != nil {
			uc.metrics.CASConflicts.Inc()
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.WalletOperations.WithLabelValues(string(entryType)).Inc()
	}

	uc.recordAudit(ctx, input, entryType)

	return entry, nil
}

// Hold places amount on hold, shrinking the available balance without
// moving funds. Fails when the available balance cannot cover it.
func (uc *WalletUseCase) Hold(ctx context.Context, input AdjustInput) (*domain.Wallet, error) {
	return uc.mutateHold(ctx, input, true)
}

// Release removes amount from hold.
func (uc *WalletUseCase) Release(ctx context.Context, input AdjustInput) (*domain.Wallet, error) {
	return uc.mutateHold(ctx, input, false)
}

func (uc *WalletUseCase) mutateHold(ctx context.Context, input AdjustInput, place bool) (*domain.Wallet, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()

	wallet, err := uc.walletRepo.GetByIDForUpdate(txCtx, tx, input.WalletID)
	if err != nil {
		return nil, err
	}

	var newHold int64
	if place {
		if err := wallet.ValidateHold(input.Amount); err != nil {
			return nil, fmt.Errorf("%w: wallet %s, amount %d, available %d", err, wallet.ID, input.Amount, wallet.Available())
		}
		newHold = wallet.HoldBalance + input.Amount
	} else {
		if input.Amount > wallet.HoldBalance {
			return nil, fmt.Errorf("%w: release %d exceeds hold %d", domain.ErrInvalidAmount, input.Amount, wallet.HoldBalance)
		}
		newHold = wallet.HoldBalance - input.Amount
	}

	if err := uc.walletRepo.UpdateHoldBalance(txCtx, tx, wallet.ID, newHold, wallet.Version, now); err != nil {
		return nil, err
	}
	wallet.HoldBalance = newHold
	wallet.Version++

	eventType := domain.EventTypeHoldPlaced
	if !place {
		eventType = domain.EventTypeHoldReleased
	}
	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   wallet.ID,
		AggregateType: domain.AggregateTypeWallet,
		EventType:     eventType,
		Payload: map[string]any{
			"wallet_id": wallet.ID,
			"party_id":  wallet.PartyID,
			"amount":    input.Amount,
		},
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	op := "hold"
	if !place {
		op = "release"
	}
	if uc.metrics != nil {
		uc.metrics.WalletOperations.WithLabelValues(op).Inc()
	}

	return wallet, nil
}

// GetWallet retrieves a wallet by ID.
func (uc *WalletUseCase) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	return uc.walletRepo.GetByID(ctx, id)
}

// ListEntriesInput represents input for listing ledger entries.
type ListEntriesInput struct {
	WalletID string
	Limit    int
	Offset   int
}

// ListEntries lists ledger entries for a wallet.
func (uc *WalletUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	return uc.entryRepo.GetByWallet(ctx, input.WalletID, input.Limit, input.Offset)
}

func (uc *WalletUseCase) emitWalletEvent(ctx context.Context, tx Transaction, wallet *domain.Wallet, input AdjustInput, entryType domain.EntryType, now time.Time) error {
	eventType := domain.EventTypeWalletCredited
	if entryType == domain.EntryTypeDebit {
		eventType = domain.EventTypeWalletDebited
	}

	return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   wallet.ID,
		AggregateType: domain.AggregateTypeWallet,
		EventType:     eventType,
		Payload: map[string]any{
			"wallet_id": wallet.ID,
			"party_id":  wallet.PartyID,
			"amount":    input.Amount,
			"narration": input.Narration,
		},
		CreatedAt: now,
	})
}

func (uc *WalletUseCase) recordAudit(ctx context.Context, input AdjustInput, entryType domain.EntryType) {
	if uc.audit == nil {
		return
	}

	action := domain.AuditActionWalletCredit
	if entryType == domain.EntryTypeDebit {
		action = domain.AuditActionWalletDebit
	}

	actorID := input.ActorID
	if actorID == "" {
		actorID = "system"
	}

	log := &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		ActorID:      actorID,
		Action:       string(action),
		ResourceType: "wallet",
		ResourceID:   input.WalletID,
		AfterState:   domain.MarshalState(input),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}

	if err := uc.audit.Record(ctx, log); err != nil {
		uc.logger.Warn().Err(err).Str("wallet_id", input.WalletID).Msg("audit sink write failed")
		return
	}

	if uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(log.Action).Inc()
	}
}
