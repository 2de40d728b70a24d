package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velopay/commission-engine/internal/adapter/http/dto"
	"github.com/velopay/commission-engine/internal/adapter/http/middleware"
	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
)

// WalletHandler handles wallet-related HTTP requests.
type WalletHandler struct {
	walletUC *usecase.WalletUseCase
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC *usecase.WalletUseCase) *WalletHandler {
	return &WalletHandler{walletUC: walletUC}
}

// Get retrieves a wallet by ID.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing wallet ID", "")
		return
	}

	wallet, err := h.walletUC.GetWallet(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get wallet", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// Credit adds funds to a wallet.
func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.walletUC.Credit, "failed to credit wallet")
}

// Debit removes funds from a wallet.
func (h *WalletHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.walletUC.Debit, "failed to debit wallet")
}

func (h *WalletHandler) adjust(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, usecase.AdjustInput) (*domain.LedgerEntry, error),
	failureMsg string,
) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing wallet ID", "")
		return
	}

	var req dto.WalletAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input := req.ToUseCaseInput(id, r.Header.Get(middleware.IdempotencyKeyHeader))

	entry, err := op(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, failureMsg, err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Hold places a hold on a wallet's funds.
func (h *WalletHandler) Hold(w http.ResponseWriter, r *http.Request) {
	h.mutateHold(w, r, h.walletUC.Hold, "failed to place hold")
}

// Release releases previously held funds.
func (h *WalletHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.mutateHold(w, r, h.walletUC.Release, "failed to release hold")
}

func (h *WalletHandler) mutateHold(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, usecase.AdjustInput) (*domain.Wallet, error),
	failureMsg string,
) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing wallet ID", "")
		return
	}

	var req dto.WalletAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input := req.ToUseCaseInput(id, r.Header.Get(middleware.IdempotencyKeyHeader))

	wallet, err := op(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, failureMsg, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// ListEntries lists a wallet's ledger entries.
func (h *WalletHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing wallet ID", "")
		return
	}

	entries, err := h.walletUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		WalletID: id,
		Limit:    parseIntQuery(r, "limit", 20),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}
