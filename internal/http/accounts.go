package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tally/internal/core"
)

type accountRequest struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	OpeningBalanceCents int64  `json:"openingBalanceCents"`
	CurrencyCode        string `json:"currencyCode"`
	IsArchived          bool   `json:"isArchived"`
}

type accountResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	OpeningBalanceCents int64  `json:"openingBalanceCents"`
	CurrencyCode        string `json:"currencyCode"`
	IsArchived          bool   `json:"isArchived"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:                  a.ID,
		Name:                a.Name,
		Type:                a.Type,
		OpeningBalanceCents: a.OpeningBalance.Cents,
		CurrencyCode:        a.CurrencyCode,
		IsArchived:          a.IsArchived,
	}
}

func (req accountRequest) toAccount(id string) core.Account {
	return core.Account{
		ID:             id,
		Name:           sanitizeInput(req.Name),
		Type:           sanitizeInput(req.Type),
		OpeningBalance: core.Money{Cents: req.OpeningBalanceCents},
		CurrencyCode:   sanitizeInput(req.CurrencyCode),
		IsArchived:     req.IsArchived,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a := req.toAccount(uuid.NewString())
	if err := a.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.CreateAccount(r.Context(), a); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a := req.toAccount(chi.URLParam(r, "id"))
	if err := a.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.UpdateAccount(r.Context(), a); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
