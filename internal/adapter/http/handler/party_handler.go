package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velopay/commission-engine/internal/adapter/http/dto"
	"github.com/velopay/commission-engine/internal/usecase"
)

// PartyHandler handles party hierarchy HTTP requests.
type PartyHandler struct {
	hierarchy      *usecase.HierarchyResolver
	distributionUC *usecase.DistributionUseCase
}

// NewPartyHandler creates a new PartyHandler.
func NewPartyHandler(hierarchy *usecase.HierarchyResolver, distributionUC *usecase.DistributionUseCase) *PartyHandler {
	return &PartyHandler{hierarchy: hierarchy, distributionUC: distributionUC}
}

// Descendants lists every party below the given one, breadth first.
func (h *PartyHandler) Descendants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing party ID", "")
		return
	}

	depth := parseIntQuery(r, "depth", 0)

	parties, err := h.hierarchy.Descendants(r.Context(), id, depth)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list descendants", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.PartiesFromDomain(parties))
}

// Earnings lists a party's commission earnings, newest first.
func (h *PartyHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing party ID", "")
		return
	}

	earnings, err := h.distributionUC.GetEarningsByBeneficiary(r.Context(), id,
		parseIntQuery(r, "limit", 20), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list earnings", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EarningsFromDomain(earnings))
}
