package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
)

// MockPartyRepository is a mock implementation of PartyRepository.
type MockPartyRepository struct {
	mu      sync.RWMutex
	parties map[string]*domain.Party

	GetByIDFunc      func(ctx context.Context, id string) (*domain.Party, error)
	GetByIDsFunc     func(ctx context.Context, ids []string) ([]*domain.Party, error)
	ListChildrenFunc func(ctx context.Context, parentID string) ([]*domain.Party, error)
}

func NewMockPartyRepository() *MockPartyRepository {
	return &MockPartyRepository{parties: make(map[string]*domain.Party)}
}

func (m *MockPartyRepository) Add(parties ...*domain.Party) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range parties {
		m.parties[p.ID] = p
	}
}

func (m *MockPartyRepository) GetByID(ctx context.Context, id string) (*domain.Party, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.parties[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPartyNotFound
}

func (m *MockPartyRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Party, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var parties []*domain.Party
	for _, id := range ids {
		if p, ok := m.parties[id]; ok {
			parties = append(parties, p)
		}
	}
	return parties, nil
}

func (m *MockPartyRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.Party, error) {
	if m.ListChildrenFunc != nil {
		return m.ListChildrenFunc(ctx, parentID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var children []*domain.Party
	for _, p := range m.parties {
		if p.ParentID != nil && *p.ParentID == parentID {
			children = append(children, p)
		}
	}
	return children, nil
}

// MockWalletRepository is a mock implementation of WalletRepository.
// The in-memory default enforces the CAS contract on UpdateBalance.
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet

	GetByIDFunc               func(ctx context.Context, id string) (*domain.Wallet, error)
	GetByIDForUpdateFunc      func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Wallet, error)
	GetByPartyForUpdateFunc   func(ctx context.Context, tx usecase.Transaction, partyID string, kind domain.WalletKind) (*domain.Wallet, error)
	GetByPartiesForUpdateFunc func(ctx context.Context, tx usecase.Transaction, partyIDs []string, kind domain.WalletKind) ([]*domain.Wallet, error)
	UpdateBalanceFunc         func(ctx context.Context, tx usecase.Transaction, id string, balance, expectedVersion int64, updatedAt time.Time) error
	UpdateHoldBalanceFunc     func(ctx context.Context, tx usecase.Transaction, id string, holdBalance, expectedVersion int64, updatedAt time.Time) error
	ListFunc                  func(ctx context.Context, limit, offset int) ([]*domain.Wallet, error)
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{wallets: make(map[string]*domain.Wallet)}
}

func (m *MockWalletRepository) Add(wallets ...*domain.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range wallets {
		m.wallets[w.ID] = w
	}
}

// Wallet returns a copy of the stored wallet for assertions.
func (m *MockWalletRepository) Wallet(id string) *domain.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[id]; ok {
		copied := *w
		return &copied
	}
	return nil
}

func (m *MockWalletRepository) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[id]; ok {
		copied := *w
		return &copied, nil
	}
	return nil, domain.ErrWalletNotFound
}

func (m *MockWalletRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Wallet, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockWalletRepository) GetByPartyForUpdate(ctx context.Context, tx usecase.Transaction, partyID string, kind domain.WalletKind) (*domain.Wallet, error) {
	if m.GetByPartyForUpdateFunc != nil {
		return m.GetByPartyForUpdateFunc(ctx, tx, partyID, kind)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.wallets {
		if w.PartyID == partyID && w.Kind == kind {
			copied := *w
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: party %s", domain.ErrWalletNotFound, partyID)
}

func (m *MockWalletRepository) GetByPartiesForUpdate(ctx context.Context, tx usecase.Transaction, partyIDs []string, kind domain.WalletKind) ([]*domain.Wallet, error) {
	if m.GetByPartiesForUpdateFunc != nil {
		return m.GetByPartiesForUpdateFunc(ctx, tx, partyIDs, kind)
	}
	var wallets []*domain.Wallet
	for _, partyID := range partyIDs {
		w, err := m.GetByPartyForUpdate(ctx, tx, partyID, kind)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance, expectedVersion int64, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, expectedVersion, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[id]
	if !ok {
		return domain.ErrWalletNotFound
	}
	if w.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	w.Balance = balance
	w.Version++
	w.UpdatedAt = updatedAt
	return nil
}

func (m *MockWalletRepository) UpdateHoldBalance(ctx context.Context, tx usecase.Transaction, id string, holdBalance, expectedVersion int64, updatedAt time.Time) error {
	if m.UpdateHoldBalanceFunc != nil {
		return m.UpdateHoldBalanceFunc(ctx, tx, id, holdBalance, expectedVersion, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[id]
	if !ok {
		return domain.ErrWalletNotFound
	}
	if w.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	w.HoldBalance = holdBalance
	w.Version++
	w.UpdatedAt = updatedAt
	return nil
}

func (m *MockWalletRepository) List(ctx context.Context, limit, offset int) ([]*domain.Wallet, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var wallets []*domain.Wallet
	for _, w := range m.wallets {
		copied := *w
		wallets = append(wallets, &copied)
	}
	if offset >= len(wallets) {
		return nil, nil
	}
	wallets = wallets[offset:]
	if limit > 0 && len(wallets) > limit {
		wallets = wallets[:limit]
	}
	return wallets, nil
}

// MockLedgerEntryRepository is a mock implementation of LedgerEntryRepository.
type MockLedgerEntryRepository struct {
	mu      sync.RWMutex
	entries []*domain.LedgerEntry

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
}

func NewMockLedgerEntryRepository() *MockLedgerEntryRepository {
	return &MockLedgerEntryRepository{}
}

func (m *MockLedgerEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockLedgerEntryRepository) GetByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.WalletID == walletID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (m *MockLedgerEntryRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.TransactionID != nil && *e.TransactionID == transactionID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// All returns every recorded entry.
func (m *MockLedgerEntryRepository) All() []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.LedgerEntry(nil), m.entries...)
}

// Reset discards recorded entries, emulating a rollback.
func (m *MockLedgerEntryRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

// MockCommissionRuleRepository is a mock implementation of CommissionRuleRepository.
type MockCommissionRuleRepository struct {
	mu        sync.RWMutex
	userRules map[string]*domain.CommissionRule // partyID:serviceID
	roleRules map[string]*domain.CommissionRule // roleID:serviceID

	FindUserRuleFunc func(ctx context.Context, partyID, serviceID string, at time.Time) (*domain.CommissionRule, error)
	FindRoleRuleFunc func(ctx context.Context, roleID, serviceID string, at time.Time) (*domain.CommissionRule, error)

	RoleLookups int
}

func NewMockCommissionRuleRepository() *MockCommissionRuleRepository {
	return &MockCommissionRuleRepository{
		userRules: make(map[string]*domain.CommissionRule),
		roleRules: make(map[string]*domain.CommissionRule),
	}
}

func (m *MockCommissionRuleRepository) AddUserRule(partyID, serviceID string, rule *domain.CommissionRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userRules[partyID+":"+serviceID] = rule
}

func (m *MockCommissionRuleRepository) AddRoleRule(roleID, serviceID string, rule *domain.CommissionRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleRules[roleID+":"+serviceID] = rule
}

func (m *MockCommissionRuleRepository) FindUserRule(ctx context.Context, partyID, serviceID string, at time.Time) (*domain.CommissionRule, error) {
	if m.FindUserRuleFunc != nil {
		return m.FindUserRuleFunc(ctx, partyID, serviceID, at)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userRules[partyID+":"+serviceID], nil
}

func (m *MockCommissionRuleRepository) FindRoleRule(ctx context.Context, roleID, serviceID string, at time.Time) (*domain.CommissionRule, error) {
	if m.FindRoleRuleFunc != nil {
		return m.FindRoleRuleFunc(ctx, roleID, serviceID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RoleLookups++
	return m.roleRules[roleID+":"+serviceID], nil
}

// MockEarningRepository is a mock implementation of EarningRepository.
type MockEarningRepository struct {
	mu       sync.RWMutex
	earnings []*domain.CommissionEarning

	CreateFunc              func(ctx context.Context, tx usecase.Transaction, earning *domain.CommissionEarning) error
	ExistsByTransactionFunc func(ctx context.Context, tx usecase.Transaction, transactionID string) (bool, error)
}

func NewMockEarningRepository() *MockEarningRepository {
	return &MockEarningRepository{}
}

func (m *MockEarningRepository) Create(ctx context.Context, tx usecase.Transaction, earning *domain.CommissionEarning) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, earning)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.earnings = append(m.earnings, earning)
	return nil
}

func (m *MockEarningRepository) ExistsByTransaction(ctx context.Context, tx usecase.Transaction, transactionID string) (bool, error) {
	if m.ExistsByTransactionFunc != nil {
		return m.ExistsByTransactionFunc(ctx, tx, transactionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.earnings {
		if e.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockEarningRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.CommissionEarning, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var earnings []*domain.CommissionEarning
	for _, e := range m.earnings {
		if e.TransactionID == transactionID {
			earnings = append(earnings, e)
		}
	}
	return earnings, nil
}

func (m *MockEarningRepository) GetByBeneficiary(ctx context.Context, partyID string, limit, offset int) ([]*domain.CommissionEarning, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var earnings []*domain.CommissionEarning
	for _, e := range m.earnings {
		if e.BeneficiaryPartyID == partyID {
			earnings = append(earnings, e)
		}
	}
	return earnings, nil
}

// All returns every recorded earning.
func (m *MockEarningRepository) All() []*domain.CommissionEarning {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.CommissionEarning(nil), m.earnings...)
}

// Reset discards recorded earnings, emulating a rollback.
func (m *MockEarningRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.earnings = nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

// Events returns every recorded event.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	SumEntriesByWalletFunc func(ctx context.Context, walletID string) (int64, error)
	LastRunningBalanceFunc func(ctx context.Context, walletID string) (int64, bool, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) SumEntriesByWallet(ctx context.Context, walletID string) (int64, error) {
	if m.SumEntriesByWalletFunc != nil {
		return m.SumEntriesByWalletFunc(ctx, walletID)
	}
	return 0, nil
}

func (m *MockLedgerRepository) LastRunningBalance(ctx context.Context, walletID string) (int64, bool, error) {
	if m.LastRunningBalanceFunc != nil {
		return m.LastRunningBalanceFunc(ctx, walletID)
	}
	return 0, false, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu           sync.Mutex
	Transactions []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Transactions = append(m.Transactions, tx)
	return tx, nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%04d", m.counter)
}
