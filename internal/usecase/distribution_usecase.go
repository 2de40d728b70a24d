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

// DistributionUseCase is the payout settlement engine. It resolves the
// reseller chain for a completed transaction, computes the waterfall
// split of the commission pool, and settles the split as an ordered
// cascade of wallet transfers inside one database transaction.
type DistributionUseCase struct {
	txManager   TransactionManager
	partyRepo   PartyRepository
	walletRepo  WalletRepository
	entryRepo   LedgerEntryRepository
	earningRepo EarningRepository
	outboxRepo  OutboxRepository
	audit       AuditSink
	hierarchy   *HierarchyResolver
	rules       *RuleResolver
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewDistributionUseCase creates a new DistributionUseCase. audit,
// retrier and metrics may be nil.
func NewDistributionUseCase(
	txManager TransactionManager,
	partyRepo PartyRepository,
	walletRepo WalletRepository,
	entryRepo LedgerEntryRepository,
	earningRepo EarningRepository,
	outboxRepo OutboxRepository,
	audit AuditSink,
	hierarchy *HierarchyResolver,
	rules *RuleResolver,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *DistributionUseCase {
	return &DistributionUseCase{
		txManager:   txManager,
		partyRepo:   partyRepo,
		walletRepo:  walletRepo,
		entryRepo:   entryRepo,
		earningRepo: earningRepo,
		outboxRepo:  outboxRepo,
		audit:       audit,
		hierarchy:   hierarchy,
		rules:       rules,
		idGen:       idGen,
		retrier:     retrier,
		metrics:     m,
		logger:      logger,
	}
}

// DistributeInput describes a transaction already resolved to a
// terminal success state by the caller.
type DistributeInput struct {
	TransactionID     string
	OriginatorPartyID string
	ServiceID         string
	Amount            int64 // minor units
	Currency          string
	ActorID           string
}

// transferStep is one hop of the settlement cascade.
type transferStep struct {
	payerPartyID    string // domain.SystemPartyID for the pool entry
	receiverPartyID string
	amount          int64
}

// Distribute resolves the chain, computes the waterfall and settles it.
// It returns the created earnings, or an empty slice when there is
// nothing to distribute. Any failure rolls the whole settlement back.
func (uc *DistributionUseCase) Distribute(ctx context.Context, input DistributeInput) ([]*domain.CommissionEarning, error) {
	start := time.Now()

	earnings, err := uc.distribute(ctx, input)
	if err != nil {
		uc.observeError(err)
		uc.logger.Error().Err(err).
			Str("transaction_id", input.TransactionID).
			Str("originator", input.OriginatorPartyID).
			Msg("distribution failed")
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.DistributionsSettled.Inc()
		uc.metrics.DistributionDuration.Observe(time.Since(start).Seconds())
	}

	uc.recordAudit(ctx, input, earnings)

	return earnings, nil
}

func (uc *DistributionUseCase) distribute(ctx context.Context, input DistributeInput) ([]*domain.CommissionEarning, error) {
	if input.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", domain.ErrInvalidAmount)
	}
	if input.Amount < 0 {
		return nil, fmt.Errorf("%w: base amount %d is negative", domain.ErrInvalidAmount, input.Amount)
	}

	originator, err := uc.partyRepo.GetByID(ctx, input.OriginatorPartyID)
	if err != nil {
		return nil, err
	}

	chain, err := uc.hierarchy.Resolve(ctx, originator)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	resolved, err := uc.rules.ResolveForChain(ctx, chain, input.ServiceID, now)
	if err != nil {
		return nil, err
	}

	shares, err := domain.ComputeWaterfall(resolved, input.Amount)
	if err != nil {
		return nil, err
	}

	if len(shares) == 0 {
		uc.logger.Debug().
			Str("transaction_id", input.TransactionID).
			Msg("nothing to distribute")
		return []*domain.CommissionEarning{}, nil
	}

	if uc.metrics != nil {
		uc.metrics.PoolAmount.Observe(float64(poolOf(shares)))
	}

	var earnings []*domain.CommissionEarning
	settle := func() error {
		var err error
		earnings, err = uc.settle(ctx, input, shares, now)
		return err
	}

	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, settle)
	} else {
		err = settle()
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("transaction_id", input.TransactionID).
		Int64("pool", poolOf(shares)).
		Int("earnings", len(earnings)).
		Msg("distribution settled")

	return earnings, nil
}

// settle applies the full transfer cascade inside one transaction.
func (uc *DistributionUseCase) settle(ctx context.Context, input DistributeInput, shares []domain.Share, now time.Time) ([]*domain.CommissionEarning, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// One distribution per transaction id, ever.
	exists, err := uc.earningRepo.ExistsByTransaction(txCtx, tx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrAlreadyDistributed, input.TransactionID)
	}

	for _, step := range buildTransferPlan(shares) {
		if err := uc.applyTransfer(txCtx, tx, input.TransactionID, step, now); err != nil {
			return nil, err
		}
	}

	earnings, err := uc.createEarnings(txCtx, tx, input, shares, now)
	if err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   input.TransactionID,
		AggregateType: domain.AggregateTypeDistribution,
		EventType:     domain.EventTypeDistributionSettled,
		Payload: map[string]any{
			"transaction_id": input.TransactionID,
			"pool":           poolOf(shares),
			"earnings":       len(earnings),
			"currency":       input.Currency,
		},
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return earnings, nil
}

// buildTransferPlan orders the cascade: the pool enters the ledger at
// the topmost chain member, then flows down one hop at a time, each
// member keeping its own share and passing the remainder on. Hops that
// would move nothing are dropped.
func buildTransferPlan(shares []domain.Share) []transferStep {
	flow := poolOf(shares)

	steps := []transferStep{{
		payerPartyID:    domain.SystemPartyID,
		receiverPartyID: shares[0].Party.ID,
		amount:          flow,
	}}

	for i := 1; i < len(shares); i++ {
		flow -= shares[i-1].Amount
		if flow == 0 {
			break
		}
		steps = append(steps, transferStep{
			payerPartyID:    shares[i-1].Party.ID,
			receiverPartyID: shares[i].Party.ID,
			amount:          flow,
		})
	}

	return steps
}

func poolOf(shares []domain.Share) int64 {
	var total int64
	for _, s := range shares {
		total += s.Amount
	}
	return total
}

// applyTransfer debits the payer (unless it is the SYSTEM sentinel) and
// credits the receiver, appending one ledger entry per balance change.
func (uc *DistributionUseCase) applyTransfer(ctx context.Context, tx Transaction, transactionID string, step transferStep, now time.Time) error {
	if step.payerPartyID == domain.SystemPartyID {
		receiver, err := uc.walletRepo.GetByPartyForUpdate(ctx, tx, step.receiverPartyID, domain.WalletKindPrimary)
		if err != nil {
			return err
		}

		return uc.credit(ctx, tx, receiver, step.amount, transactionID,
			fmt.Sprintf("commission pool for txn %s", transactionID), now)
	}

	wallets, err := uc.walletRepo.GetByPartiesForUpdate(ctx, tx,
		[]string{step.payerPartyID, step.receiverPartyID}, domain.WalletKindPrimary)
	if err != nil {
		return err
	}

	var payer, receiver *domain.Wallet
	for _, w := range wallets {
		switch w.PartyID {
		case step.payerPartyID:
			payer = w
		case step.receiverPartyID:
			receiver = w
		}
	}
	if payer == nil || receiver == nil {
		return fmt.Errorf("%w: parties %s, %s", domain.ErrWalletNotFound, step.payerPartyID, step.receiverPartyID)
	}

	if err := uc.debit(ctx, tx, payer, step.amount, transactionID,
		fmt.Sprintf("commission payout to %s for txn %s", step.receiverPartyID, transactionID), now); err != nil {
		return err
	}

	return uc.credit(ctx, tx, receiver, step.amount, transactionID,
		fmt.Sprintf("commission from %s for txn %s", step.payerPartyID, transactionID), now)
}

func (uc *DistributionUseCase) debit(ctx context.Context, tx Transaction, wallet *domain.Wallet, amount int64, transactionID, narration string, now time.Time) error {
	for attempt := 0; attempt < MaxCASAttempts; attempt++ {
		if err := wallet.ValidateDebit(amount); err != nil {
			return fmt.Errorf("%w: party %s requires %d, balance %d", err, wallet.PartyID, amount, wallet.Balance)
		}

		newBalance := wallet.ApplyDebit(amount)
		err := uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, wallet.Version, now)
		if err == nil {
			wallet.Balance = newBalance
			wallet.Version++

			return uc.entryRepo.Create(ctx, tx, &domain.LedgerEntry{
				ID:             uc.idGen.Generate(),
				WalletID:       wallet.ID,
				TransactionID:  &transactionID,
				EntryType:      domain.EntryTypeDebit,
				ReferenceType:  domain.ReferenceTypeCommission,
				Amount:         amount,
				RunningBalance: newBalance,
				Narration:      narration,
				CreatedAt:      now,
			})
		}

		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}

		if uc.metrics != nil {
			uc.metrics.CASConflicts.Inc()
		}

		fresh, err := uc.walletRepo.GetByIDForUpdate(ctx, tx, wallet.ID)
		if err != nil {
			return err
		}
		*wallet = *fresh
	}

	return fmt.Errorf("%w: wallet %s", domain.ErrConcurrentModification, wallet.ID)
}

func (uc *DistributionUseCase) credit(ctx context.Context, tx Transaction, wallet *domain.Wallet, amount int64, transactionID, narration string, now time.Time) error {
	if !wallet.IsActive {
		return fmt.Errorf("%w: wallet %s of party %s", domain.ErrWalletInactive, wallet.ID, wallet.PartyID)
	}

	for attempt := 0; attempt < MaxCASAttempts; attempt++ {
		newBalance := wallet.ApplyCredit(amount)
		err := uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, wallet.Version, now)
		if err == nil {
			wallet.Balance = newBalance
			wallet.Version++

			return uc.entryRepo.Create(ctx, tx, &domain.LedgerEntry{
				ID:             uc.idGen.Generate(),
				WalletID:       wallet.ID,
				TransactionID:  &transactionID,
				EntryType:      domain.EntryTypeCredit,
				ReferenceType:  domain.ReferenceTypeCommission,
				Amount:         amount,
				RunningBalance: newBalance,
				Narration:      narration,
				CreatedAt:      now,
			})
		}

		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}

		if uc.metrics != nil {
			uc.metrics.CASConflicts.Inc()
		}

		fresh, err := uc.walletRepo.GetByIDForUpdate(ctx, tx, wallet.ID)
		if err != nil {
			return err
		}
		*wallet = *fresh
	}

	return fmt.Errorf("%w: wallet %s", domain.ErrConcurrentModification, wallet.ID)
}

func (uc *DistributionUseCase) createEarnings(ctx context.Context, tx Transaction, input DistributeInput, shares []domain.Share, now time.Time) ([]*domain.CommissionEarning, error) {
	earnings := make([]*domain.CommissionEarning, 0, len(shares))

	for i, share := range shares {
		if share.Amount == 0 {
			continue
		}

		payer := domain.SystemPartyID
		if i > 0 {
			payer = shares[i-1].Party.ID
		}

		earning := &domain.CommissionEarning{
			ID:                 uc.idGen.Generate(),
			TransactionID:      input.TransactionID,
			BeneficiaryPartyID: share.Party.ID,
			PayerPartyID:       payer,
			Amount:             share.Amount,
			CommissionKind:     share.Rule.Kind,
			CommissionValue:    share.Rule.Value,
			HierarchyLevel:     share.Party.HierarchyLevel,
			Metadata: map[string]any{
				"service_id": input.ServiceID,
				"currency":   input.Currency,
			},
			CreatedAt: now,
		}

		if err := uc.earningRepo.Create(ctx, tx, earning); err != nil {
			return nil, err
		}

		if uc.metrics != nil {
			uc.metrics.EarningAmount.Observe(float64(share.Amount))
		}

		earnings = append(earnings, earning)
	}

	return earnings, nil
}

// GetEarningsByTransaction returns the settled earnings of a transaction.
func (uc *DistributionUseCase) GetEarningsByTransaction(ctx context.Context, transactionID string) ([]*domain.CommissionEarning, error) {
	return uc.earningRepo.GetByTransaction(ctx, transactionID)
}

// GetEarningsByBeneficiary returns a party's earnings, newest first.
func (uc *DistributionUseCase) GetEarningsByBeneficiary(ctx context.Context, partyID string, limit, offset int) ([]*domain.CommissionEarning, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return uc.earningRepo.GetByBeneficiary(ctx, partyID, limit, offset)
}

func (uc *DistributionUseCase) recordAudit(ctx context.Context, input DistributeInput, earnings []*domain.CommissionEarning) {
	if uc.audit == nil {
		return
	}

	actorID := input.ActorID
	if actorID == "" {
		actorID = "system"
	}

	log := &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		ActorID:      actorID,
		Action:       string(domain.AuditActionDistributionSettle),
		ResourceType: "distribution",
		ResourceID:   input.TransactionID,
		AfterState:   domain.MarshalState(earnings),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}

	// The audit sink must never fail a financial operation.
	if err := uc.audit.Record(ctx, log); err != nil {
		uc.logger.Warn().Err(err).
			Str("transaction_id", input.TransactionID).
			Msg("audit sink write failed")
		return
	}

	if uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(log.Action).Inc()
	}
}

func (uc *DistributionUseCase) observeError(err error) {
	if uc.metrics == nil {
		return
	}

	label := "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidHierarchy):
		label = "invalid_hierarchy"
	case errors.Is(err, domain.ErrInvalidCommissionRule):
		label = "invalid_rule"
	case errors.Is(err, domain.ErrCommissionMismatch):
		label = "commission_mismatch"
	case errors.Is(err, domain.ErrInsufficientFunds):
		label = "insufficient_funds"
	case errors.Is(err, domain.ErrAlreadyDistributed):
		label = "already_distributed"
	case errors.Is(err, domain.ErrConcurrentModification):
		label = "concurrent_modification"
	case errors.Is(err, domain.ErrPartyNotFound), errors.Is(err, domain.ErrWalletNotFound):
		label = "not_found"
	}

	uc.metrics.DistributionErrors.WithLabelValues(label).Inc()
}
