package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tally/internal/core"
	"tally/internal/storage"
)

type transactionRequest struct {
	Type        string   `json:"type"`
	AccountID   string   `json:"accountId"`
	AccountIDTo string   `json:"accountIdTo,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
	AmountCents int64    `json:"amountCents"`
	Amount      string   `json:"amount,omitempty"` // decimal string, alternative to amountCents
	Date        string   `json:"date"`             // YYYY-MM-DD
	Note        string   `json:"note,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type transactionResponse struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	AccountID   string   `json:"accountId"`
	AccountIDTo string   `json:"accountIdTo,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
	AmountCents int64    `json:"amountCents"`
	Date        string   `json:"date"`
	Note        string   `json:"note,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        string(t.Type),
		AccountID:   t.AccountID,
		AccountIDTo: t.AccountIDTo,
		CategoryID:  t.CategoryID,
		AmountCents: t.Amount.Cents,
		Date:        t.Date.Format("2006-01-02"),
		Note:        t.Note,
		Tags:        t.Tags,
	}
}

func (req transactionRequest) toTransaction(id string) (core.Transaction, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	cents := req.AmountCents
	if cents == 0 && req.Amount != "" {
		cents, err = core.ParseDecimalToCents(req.Amount)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	return core.Transaction{
		ID:          id,
		Type:        core.TransactionType(req.Type),
		AccountID:   sanitizeInput(req.AccountID),
		AccountIDTo: sanitizeInput(req.AccountIDTo),
		CategoryID:  sanitizeInput(req.CategoryID),
		Amount:      core.Money{Cents: cents},
		Date:        core.Date{Time: date},
		Note:        sanitizeInput(req.Note),
		Tags:        req.Tags,
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter storage.TransactionFilter

	if v := q.Get("start"); v != "" {
		start, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		filter.Start = start
	}
	if v := q.Get("end"); v != "" {
		end, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		// End is inclusive: cover the whole day.
		filter.End = end.Add(24*time.Hour - time.Millisecond)
	}
	filter.Type = core.TransactionType(q.Get("type"))
	filter.AccountID = q.Get("accountId")
	filter.CategoryID = q.Get("categoryId")

	transactions, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction("")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.transactions.Update(r.Context(), t); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
