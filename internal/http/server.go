// Package http serves the JSON API: accounts, categories, transactions,
// budgets, period lookups and reports.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tally/internal/core"
	"tally/internal/period"
	"tally/internal/report"
	"tally/internal/services"
	"tally/internal/storage"
)

// Store is the persistence surface the handlers need. Transactions are
// written through TransactionWriter instead so change events get
// published.
type Store interface {
	CreateAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, id string) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, c core.Category) error
	GetCategory(ctx context.Context, id string) (core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	ArchiveCategory(ctx context.Context, id string) error

	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)

	UpsertBudget(ctx context.Context, b core.Budget) error
	ListBudgets(ctx context.Context, periodID string) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
}

// TransactionWriter stores transactions and publishes change events.
type TransactionWriter interface {
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Update(ctx context.Context, t core.Transaction) error
	Delete(ctx context.Context, id string) error
}

// ReportBuilder produces aggregated reports.
type ReportBuilder interface {
	BuildRange(ctx context.Context, start, end time.Time, g report.Granularity) (report.Report, error)
	BuildCurrentPeriod(ctx context.Context, now time.Time) (services.PeriodReport, error)
	Compare(ctx context.Context, spans []report.Span) (report.Report, error)
}

type Server struct {
	http.Server

	store        Store
	transactions TransactionWriter
	reports      ReportBuilder
	periods      period.Calculator
	rateLimiter  *rateLimiter

	// Built reports are cached until a write invalidates them.
	reportCache  *lruCache[report.Report]
	currentCache *lruCache[services.PeriodReport]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store Store, tw TransactionWriter, rb ReportBuilder, periods period.Calculator, cacheSize int, cacheTTL time.Duration) *Server {
	s := &Server{
		store:            store,
		transactions:     tw,
		reports:          rb,
		periods:          periods,
		rateLimiter:      newRateLimiter(),
		reportCache:      newLRUCache[report.Report](cacheSize, cacheTTL),
		currentCache:     newLRUCache[services.PeriodReport](cacheSize, cacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(s.withSecurityHeaders)
	r.Use(observe)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Get("/{id}", s.handleGetAccount)
			r.Put("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/{id}", s.handleGetCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleArchiveCategory)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Put("/", s.handleUpsertBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
		})
		r.Get("/period", s.handlePeriod)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleReport)
			r.Get("/current", s.handleCurrentReport)
			r.Post("/compare", s.handleCompareReport)
		})
	})

	s.Server.Addr = addr
	s.Server.Handler = r

	go s.startCacheCleanup()

	return s
}

// invalidateReports drops every cached report. Called on any write that
// can change report output.
func (s *Server) invalidateReports() {
	s.reportCache.Purge()
	s.currentCache.Purge()
}

// withSecurityHeaders adds security headers and rate-limits writes.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if r.Method != http.MethodGet && !s.rateLimiter.allow(r.RemoteAddr) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", r.RemoteAddr, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.InfoContext(r.Context(), "Request completed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"url", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// startCacheCleanup drops expired report cache entries periodically.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.reportCache.CleanExpired() + s.currentCache.CleanExpired()
			if cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
