package handler

import (
	"net/http"

	"github.com/velopay/commission-engine/internal/adapter/http/dto"
	"github.com/velopay/commission-engine/internal/usecase"
)

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	reconciliationUC *usecase.ReconciliationUseCase
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconciliationUC *usecase.ReconciliationUseCase) *LedgerHandler {
	return &LedgerHandler{reconciliationUC: reconciliationUC}
}

// CheckConsistency verifies every wallet balance against its entries.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.CheckConsistency(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check consistency", err.Error())
		return
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ConsistencyReportFromUseCase(report))
}
