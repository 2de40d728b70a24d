package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velopay/commission-engine/internal/adapter/http/dto"
	"github.com/velopay/commission-engine/internal/usecase"
)

// DistributionHandler handles commission distribution HTTP requests.
type DistributionHandler struct {
	distributionUC *usecase.DistributionUseCase
}

// NewDistributionHandler creates a new DistributionHandler.
func NewDistributionHandler(distributionUC *usecase.DistributionUseCase) *DistributionHandler {
	return &DistributionHandler{distributionUC: distributionUC}
}

// Create settles a distribution for a source transaction.
func (h *DistributionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	earnings, err := h.distributionUC.Distribute(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to distribute commission", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.DistributionFromDomain(req.TransactionID, earnings))
}

// GetByTransaction retrieves the earnings settled for a transaction.
func (h *DistributionHandler) GetByTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	earnings, err := h.distributionUC.GetEarningsByTransaction(r.Context(), transactionID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get distribution", err.Error())

		return
	}

	if len(earnings) == 0 {
		writeError(w, http.StatusNotFound, "distribution not found", "")
		return
	}

	writeJSON(w, http.StatusOK, dto.DistributionFromDomain(transactionID, earnings))
}
