package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
)

// WalletResponse represents a wallet in API responses.
// Balances are in minor units.
type WalletResponse struct {
	ID               string    `json:"id"`
	PartyID          string    `json:"party_id"`
	Kind             string    `json:"kind"`
	Balance          int64     `json:"balance"`
	HoldBalance      int64     `json:"hold_balance"`
	AvailableBalance int64     `json:"available_balance"`
	Version          int64     `json:"version"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// WalletFromDomain converts a domain wallet to a response.
func WalletFromDomain(w *domain.Wallet) *WalletResponse {
	return &WalletResponse{
		ID:               w.ID,
		PartyID:          w.PartyID,
		Kind:             string(w.Kind),
		Balance:          w.Balance,
		HoldBalance:      w.HoldBalance,
		AvailableBalance: w.Available(),
		Version:          w.Version,
		IsActive:         w.IsActive,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID             string    `json:"id"`
	WalletID       string    `json:"wallet_id"`
	TransactionID  *string   `json:"transaction_id,omitempty"`
	EntryType      string    `json:"entry_type"`
	ReferenceType  string    `json:"reference_type"`
	Amount         int64     `json:"amount"`
	RunningBalance int64     `json:"running_balance"`
	Narration      string    `json:"narration,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:             e.ID,
		WalletID:       e.WalletID,
		TransactionID:  e.TransactionID,
		EntryType:      string(e.EntryType),
		ReferenceType:  string(e.ReferenceType),
		Amount:         e.Amount,
		RunningBalance: e.RunningBalance,
		Narration:      e.Narration,
		CreatedAt:      e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// EarningResponse represents a commission earning in API responses.
type EarningResponse struct {
	ID                 string          `json:"id"`
	TransactionID      string          `json:"transaction_id"`
	BeneficiaryPartyID string          `json:"beneficiary_party_id"`
	PayerPartyID       string          `json:"payer_party_id"`
	Amount             int64           `json:"amount"`
	CommissionKind     string          `json:"commission_kind"`
	CommissionValue    decimal.Decimal `json:"commission_value"`
	HierarchyLevel     int             `json:"hierarchy_level"`
	Metadata           map[string]any  `json:"metadata,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// EarningFromDomain converts a domain earning to a response.
func EarningFromDomain(e *domain.CommissionEarning) *EarningResponse {
	return &EarningResponse{
		ID:                 e.ID,
		TransactionID:      e.TransactionID,
		BeneficiaryPartyID: e.BeneficiaryPartyID,
		PayerPartyID:       e.PayerPartyID,
		Amount:             e.Amount,
		CommissionKind:     string(e.CommissionKind),
		CommissionValue:    e.CommissionValue,
		HierarchyLevel:     e.HierarchyLevel,
		Metadata:           e.Metadata,
		CreatedAt:          e.CreatedAt,
	}
}

// EarningsFromDomain converts domain earnings to responses.
func EarningsFromDomain(earnings []*domain.CommissionEarning) []*EarningResponse {
	result := make([]*EarningResponse, len(earnings))
	for i, e := range earnings {
		result[i] = EarningFromDomain(e)
	}
	return result
}

// DistributionResponse represents a settled distribution.
type DistributionResponse struct {
	TransactionID string             `json:"transaction_id"`
	TotalAmount   int64              `json:"total_amount"`
	Earnings      []*EarningResponse `json:"earnings"`
}

// DistributionFromDomain builds a distribution response from its earnings.
func DistributionFromDomain(transactionID string, earnings []*domain.CommissionEarning) *DistributionResponse {
	var total int64
	for _, e := range earnings {
		total += e.Amount
	}
	return &DistributionResponse{
		TransactionID: transactionID,
		TotalAmount:   total,
		Earnings:      EarningsFromDomain(earnings),
	}
}

// PartyResponse represents a party in API responses.
type PartyResponse struct {
	ID             string    `json:"id"`
	ParentID       *string   `json:"parent_id,omitempty"`
	RoleID         string    `json:"role_id"`
	HierarchyLevel int       `json:"hierarchy_level"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// PartyFromDomain converts a domain party to a response.
func PartyFromDomain(p *domain.Party) *PartyResponse {
	return &PartyResponse{
		ID:             p.ID,
		ParentID:       p.ParentID,
		RoleID:         p.RoleID,
		HierarchyLevel: p.HierarchyLevel,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
	}
}

// PartiesFromDomain converts domain parties to responses.
func PartiesFromDomain(parties []*domain.Party) []*PartyResponse {
	result := make([]*PartyResponse, len(parties))
	for i, p := range parties {
		result[i] = PartyFromDomain(p)
	}
	return result
}

// DiscrepancyResponse represents one wallet whose balance disagrees with
// its ledger entries.
type DiscrepancyResponse struct {
	WalletID       string `json:"wallet_id"`
	PartyID        string `json:"party_id"`
	StoredBalance  int64  `json:"stored_balance"`
	EntrySum       int64  `json:"entry_sum"`
	RunningBalance int64  `json:"running_balance"`
}

// ConsistencyReportResponse represents a ledger consistency check result.
type ConsistencyReportResponse struct {
	Consistent     bool                  `json:"consistent"`
	WalletsChecked int                   `json:"wallets_checked"`
	Discrepancies  []DiscrepancyResponse `json:"discrepancies,omitempty"`
	CheckedAt      time.Time             `json:"checked_at"`
}

// ConsistencyReportFromUseCase converts a reconciliation report to a response.
func ConsistencyReportFromUseCase(report *usecase.ConsistencyReport) *ConsistencyReportResponse {
	discrepancies := make([]DiscrepancyResponse, len(report.Discrepancies))
	for i, d := range report.Discrepancies {
		discrepancies[i] = DiscrepancyResponse{
			WalletID:       d.WalletID,
			PartyID:        d.PartyID,
			StoredBalance:  d.StoredBalance,
			EntrySum:       d.EntrySum,
			RunningBalance: d.RunningBalance,
		}
	}
	return &ConsistencyReportResponse{
		Consistent:     report.Consistent,
		WalletsChecked: report.WalletsChecked,
		Discrepancies:  discrepancies,
		CheckedAt:      report.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
