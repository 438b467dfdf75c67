package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/period"
	"tally/internal/report"
	"tally/internal/services"
	"tally/internal/storage"
)

type memStore struct {
	accounts     map[string]core.Account
	categories   map[string]core.Category
	transactions map[string]core.Transaction
	budgets      map[string]core.Budget
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[string]core.Account),
		categories:   make(map[string]core.Category),
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.Budget),
	}
}

func (m *memStore) CreateAccount(_ context.Context, a core.Account) error {
	m.accounts[a.ID] = a
	return nil
}

func (m *memStore) GetAccount(_ context.Context, id string) (core.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return core.Account{}, storage.ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListAccounts(_ context.Context) ([]core.Account, error) {
	var out []core.Account
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) UpdateAccount(_ context.Context, a core.Account) error {
	if _, ok := m.accounts[a.ID]; !ok {
		return storage.ErrNotFound
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *memStore) DeleteAccount(_ context.Context, id string) error {
	if _, ok := m.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *memStore) CreateCategory(_ context.Context, c core.Category) error {
	m.categories[c.ID] = c
	return nil
}

func (m *memStore) GetCategory(_ context.Context, id string) (core.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return core.Category{}, storage.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListCategories(_ context.Context) ([]core.Category, error) {
	var out []core.Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) UpdateCategory(_ context.Context, c core.Category) error {
	if _, ok := m.categories[c.ID]; !ok {
		return storage.ErrNotFound
	}
	m.categories[c.ID] = c
	return nil
}

func (m *memStore) ArchiveCategory(_ context.Context, id string) error {
	c, ok := m.categories[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.IsArchived = true
	m.categories[id] = c
	return nil
}

func (m *memStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (m *memStore) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range m.transactions {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.CategoryID != "" && t.CategoryID != f.CategoryID {
			continue
		}
		if !f.Start.IsZero() && t.Date.Before(f.Start) {
			continue
		}
		if !f.End.IsZero() && t.Date.After(f.End) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) CreateTransaction(_ context.Context, t core.Transaction) error {
	m.transactions[t.ID] = t
	return nil
}

func (m *memStore) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if _, ok := m.transactions[t.ID]; !ok {
		return storage.ErrNotFound
	}
	m.transactions[t.ID] = t
	return nil
}

func (m *memStore) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := m.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *memStore) UpsertBudget(_ context.Context, b core.Budget) error {
	for id, existing := range m.budgets {
		if existing.CategoryID == b.CategoryID && existing.PeriodID == b.PeriodID {
			delete(m.budgets, id)
		}
	}
	m.budgets[b.ID] = b
	return nil
}

func (m *memStore) ListBudgets(_ context.Context, periodID string) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range m.budgets {
		if periodID == "" || b.PeriodID == periodID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) DeleteBudget(_ context.Context, id string) error {
	if _, ok := m.budgets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.budgets, id)
	return nil
}

// newTestServer wires real services over the in-memory store with no
// AMQP publisher.
func newTestServer(t *testing.T, startDay int) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	calc, err := period.New(startDay)
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	tw := services.NewTransactionService(store, nil)
	rb := services.NewReportService(store, calc)
	s := NewServer(":0", store, tw, rb, calc, 10, time.Minute)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, store
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, 1)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := doJSON(t, s, http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}

func TestAccountLifecycle(t *testing.T) {
	s, _ := newTestServer(t, 1)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", accountRequest{
		Name: "Main", Type: "checking", OpeningBalanceCents: 100000, CurrencyCode: "EUR",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeBody[accountResponse](t, rec)
	if created.ID == "" || created.Name != "Main" {
		t.Fatalf("create response: %+v", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/accounts/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/accounts/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/accounts/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", rec.Code)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	s, _ := newTestServer(t, 1)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", accountRequest{Name: "   "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestCategoryArchiveHidesFromList(t *testing.T) {
	s, _ := newTestServer(t, 1)

	rec := doJSON(t, s, http.MethodPost, "/api/categories", categoryRequest{Name: "Food", Type: "expense"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeBody[categoryResponse](t, rec)

	rec = doJSON(t, s, http.MethodDelete, "/api/categories/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("archive: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/categories", nil)
	if got := decodeBody[[]categoryResponse](t, rec); len(got) != 0 {
		t.Fatalf("archived category still listed: %+v", got)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/categories?includeArchived=true", nil)
	got := decodeBody[[]categoryResponse](t, rec)
	if len(got) != 1 || !got[0].IsArchived {
		t.Fatalf("archived category missing from full list: %+v", got)
	}
}

func TestTransactionCreateAndFilter(t *testing.T) {
	s, _ := newTestServer(t, 1)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", AccountID: "acc-1", CategoryID: "cat-1",
		Amount: "42,50", Date: "2025-03-10", Note: "groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeBody[transactionResponse](t, rec)
	if created.AmountCents != 4250 {
		t.Fatalf("decimal amount not parsed: %+v", created)
	}

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "income", AccountID: "acc-1", CategoryID: "cat-2",
		AmountCents: 100000, Date: "2025-03-01",
	})

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?type=expense", nil)
	if got := decodeBody[[]transactionResponse](t, rec); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("type filter: %+v", got)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?start=2025-03-05&end=2025-03-15", nil)
	if got := decodeBody[[]transactionResponse](t, rec); len(got) != 1 {
		t.Fatalf("range filter: %+v", got)
	}
}

func TestTransactionValidationRejected(t *testing.T) {
	s, _ := newTestServer(t, 1)

	// Transfer with a category is invalid.
	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "transfer", AccountID: "acc-1", AccountIDTo: "acc-2", CategoryID: "cat-1",
		AmountCents: 1000, Date: "2025-03-10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", AccountID: "acc-1", AmountCents: 1000, Date: "not-a-date",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad date, got %d", rec.Code)
	}
}

func TestBudgetUpsertEndpoint(t *testing.T) {
	s, _ := newTestServer(t, 1)

	rec := doJSON(t, s, http.MethodPut, "/api/budgets", budgetRequest{
		CategoryID: "cat-1", PeriodID: "2025-03-01", AmountCents: 30000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert: status %d (%s)", rec.Code, rec.Body.String())
	}

	// Replace the amount for the same pair.
	doJSON(t, s, http.MethodPut, "/api/budgets", budgetRequest{
		CategoryID: "cat-1", PeriodID: "2025-03-01", AmountCents: 45000,
	})

	rec = doJSON(t, s, http.MethodGet, "/api/budgets?periodId=2025-03-01", nil)
	got := decodeBody[[]budgetResponse](t, rec)
	if len(got) != 1 || got[0].AmountCents != 45000 {
		t.Fatalf("upsert result: %+v", got)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/budgets", budgetRequest{
		CategoryID: "cat-1", PeriodID: "bad-period", AmountCents: 100,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad period id, got %d", rec.Code)
	}
}

func TestPeriodEndpoint(t *testing.T) {
	s, _ := newTestServer(t, 5)

	rec := doJSON(t, s, http.MethodGet, "/api/period?date=2025-03-03", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d (%s)", rec.Code, rec.Body.String())
	}
	got := decodeBody[periodResponse](t, rec)
	if got.PeriodID != "2025-02-05" {
		t.Fatalf("period id: %s", got.PeriodID)
	}
	if got.Prev != "2025-01-05" || got.Next != "2025-03-05" {
		t.Fatalf("neighbors: prev=%s next=%s", got.Prev, got.Next)
	}
	if got.Label != "Feb 5 – Mar 4, 2025" {
		t.Fatalf("label: %q", got.Label)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/period?date=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestReportEndpointAndCacheInvalidation(t *testing.T) {
	s, _ := newTestServer(t, 1)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", AccountID: "acc-1", CategoryID: "cat-1",
		AmountCents: 5000, Date: "2025-03-10",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/reports?start=2025-03-01&end=2025-03-30&granularity=weekly", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report: status %d (%s)", rec.Code, rec.Body.String())
	}
	rep := decodeBody[report.Report](t, rec)
	if rep.Totals.ExpenseCents != 5000 {
		t.Fatalf("report totals: %+v", rep.Totals)
	}
	if s.reportCache.Len() != 1 {
		t.Fatalf("expected cached report, cache len %d", s.reportCache.Len())
	}

	// A new transaction invalidates the cache and shows up immediately.
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", AccountID: "acc-1", CategoryID: "cat-1",
		AmountCents: 2000, Date: "2025-03-12",
	})
	if s.reportCache.Len() != 0 {
		t.Fatal("write did not invalidate report cache")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reports?start=2025-03-01&end=2025-03-30&granularity=weekly", nil)
	rep = decodeBody[report.Report](t, rec)
	if rep.Totals.ExpenseCents != 7000 {
		t.Fatalf("stale report after write: %+v", rep.Totals)
	}
}

func TestReportByPeriodID(t *testing.T) {
	s, _ := newTestServer(t, 5)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", AccountID: "acc-1", CategoryID: "cat-1",
		AmountCents: 1500, Date: "2025-03-10",
	})
	// Outside the period.
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", AccountID: "acc-1", CategoryID: "cat-1",
		AmountCents: 9999, Date: "2025-03-02",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/reports?periodId=2025-03-05", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d (%s)", rec.Code, rec.Body.String())
	}
	rep := decodeBody[report.Report](t, rec)
	if rep.Totals.ExpenseCents != 1500 {
		t.Fatalf("period report totals: %+v", rep.Totals)
	}
}

func TestCompareEndpoint(t *testing.T) {
	s, _ := newTestServer(t, 1)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", AccountID: "acc-1", CategoryID: "cat-1",
		AmountCents: 1000, Date: "2025-01-10",
	})
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", AccountID: "acc-1", CategoryID: "cat-1",
		AmountCents: 3000, Date: "2025-02-10",
	})

	rec := doJSON(t, s, http.MethodPost, "/api/reports/compare", compareRequest{
		Spans: []compareSpan{
			{Label: "Jan", Start: "2025-01-01", End: "2025-01-31"},
			{Label: "Feb", Start: "2025-02-01", End: "2025-02-28"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("compare: status %d (%s)", rec.Code, rec.Body.String())
	}
	rep := decodeBody[report.Report](t, rec)
	if len(rep.Trend) != 2 || rep.Trend[0].ExpenseCents != 1000 || rep.Trend[1].ExpenseCents != 3000 {
		t.Fatalf("compare trend: %+v", rep.Trend)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/reports/compare", compareRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty spans, got %d", rec.Code)
	}
}
