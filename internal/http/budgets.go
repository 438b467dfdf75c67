package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tally/internal/core"
)

type budgetRequest struct {
	CategoryID  string `json:"categoryId"`
	PeriodID    string `json:"periodId"`
	AmountCents int64  `json:"amountCents"`
	Rollover    bool   `json:"rollover"`
}

type budgetResponse struct {
	ID          string `json:"id"`
	CategoryID  string `json:"categoryId"`
	PeriodID    string `json:"periodId"`
	AmountCents int64  `json:"amountCents"`
	Rollover    bool   `json:"rollover"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:          b.ID,
		CategoryID:  b.CategoryID,
		PeriodID:    b.PeriodID,
		AmountCents: b.Amount.Cents,
		Rollover:    b.Rollover,
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context(), r.URL.Query().Get("periodId"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUpsertBudget creates or replaces the budget for a category and
// period; there is at most one per pair.
func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b := core.Budget{
		ID:         uuid.NewString(),
		CategoryID: sanitizeInput(req.CategoryID),
		PeriodID:   sanitizeInput(req.PeriodID),
		Amount:     core.Money{Cents: req.AmountCents},
		Rollover:   req.Rollover,
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.UpsertBudget(r.Context(), b); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBudget(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
