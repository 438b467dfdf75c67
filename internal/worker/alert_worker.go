package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/period"
	"tally/internal/report"
	"tally/internal/storage"
)

// AlertStore is the storage surface the worker needs.
type AlertStore interface {
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListBudgets(ctx context.Context, periodID string) ([]core.Budget, error)
}

// AlertWorker re-checks budgets when transactions change and logs an
// alert for every budget pushed over its limit.
type AlertWorker struct {
	store   AlertStore
	periods period.Calculator

	// Budgets already alerted this process, keyed by budget id and
	// period. Prevents repeating the same alert on every event.
	alerted map[string]bool
}

func NewAlertWorker(store AlertStore, periods period.Calculator) *AlertWorker {
	return &AlertWorker{
		store:   store,
		periods: periods,
		alerted: make(map[string]bool),
	}
}

// HandleTransactionEvent processes a single transaction change message.
func (w *AlertWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"transaction_id", msg.TransactionID,
		"action", msg.Action)

	// Transfers and uncategorized transactions never touch a budget.
	if msg.CategoryID == "" {
		return nil
	}

	return w.CheckCurrentPeriod(ctx, time.Now())
}

// CheckCurrentPeriod evaluates every budget of the period containing
// now and logs alerts for the overspent ones.
func (w *AlertWorker) CheckCurrentPeriod(ctx context.Context, now time.Time) error {
	id := w.periods.ForDate(now)
	start, end, err := w.periods.Range(id)
	if err != nil {
		return fmt.Errorf("resolve period %s: %w", id, err)
	}

	budgets, err := w.store.ListBudgets(ctx, string(id))
	if err != nil {
		return fmt.Errorf("load budgets: %w", err)
	}
	if len(budgets) == 0 {
		return nil
	}

	transactions, err := w.store.ListTransactions(ctx, storage.TransactionFilter{Start: start, End: end})
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	categories, err := w.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	r := report.Build(report.Input{
		Transactions: transactions,
		Categories:   categories,
		Budgets:      budgets,
		Range:        report.Range{Start: start, End: end},
		Granularity:  report.Weekly,
	})

	for _, b := range r.Budgets {
		key := b.BudgetID + "@" + string(id)
		if !b.IsOverBudget {
			// Overspend resolved (transaction deleted or reassigned),
			// allow a fresh alert if it happens again.
			delete(w.alerted, key)
			continue
		}
		if w.alerted[key] {
			continue
		}
		w.alerted[key] = true

		slog.WarnContext(ctx, "Budget exceeded",
			"budget_id", b.BudgetID,
			"category", b.CategoryName,
			"period", id,
			"budget_cents", b.AmountCents,
			"spent_cents", b.SpentCents,
			"over_cents", -b.RemainingCents,
			"percentage", fmt.Sprintf("%.1f", b.Percentage))
	}

	return nil
}

// Run re-checks the current period on a fixed interval as a backup for
// missed queue messages, until the context is cancelled.
func (w *AlertWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.CheckCurrentPeriod(ctx, time.Now()); err != nil {
				slog.ErrorContext(ctx, "Periodic budget check failed", "error", err)
			}
		}
	}
}
