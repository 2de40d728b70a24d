package dto

import (
	"github.com/velopay/commission-engine/internal/usecase"
)

// DistributeRequest represents a request to distribute a transaction's
// commission pool across the originator's hierarchy.
type DistributeRequest struct {
	TransactionID     string `json:"transaction_id"`
	OriginatorPartyID string `json:"originator_party_id"`
	ServiceID         string `json:"service_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	ActorID           string `json:"actor_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *DistributeRequest) ToUseCaseInput() usecase.DistributeInput {
	return usecase.DistributeInput{
		TransactionID:     r.TransactionID,
		OriginatorPartyID: r.OriginatorPartyID,
		ServiceID:         r.ServiceID,
		Amount:            r.Amount,
		Currency:          r.Currency,
		ActorID:           r.ActorID,
	}
}

// WalletAdjustRequest represents a credit, debit, hold or release request
// against a wallet. Amount is in minor units.
type WalletAdjustRequest struct {
	Amount    int64  `json:"amount"`
	Narration string `json:"narration,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
}

// ToUseCaseInput converts to use case input for the given wallet.
func (r *WalletAdjustRequest) ToUseCaseInput(walletID, idempotencyKey string) usecase.AdjustInput {
	return usecase.AdjustInput{
		WalletID:       walletID,
		Amount:         r.Amount,
		Narration:      r.Narration,
		ActorID:        r.ActorID,
		IdempotencyKey: idempotencyKey,
	}
}
