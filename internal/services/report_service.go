package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/period"
	"tally/internal/report"
	"tally/internal/storage"
)

// ReportStore is the read surface the report service needs.
type ReportStore interface {
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListBudgets(ctx context.Context, periodID string) ([]core.Budget, error)
}

// ReportService loads transactions, categories and budgets and feeds
// them through the report builder.
type ReportService struct {
	store   ReportStore
	periods period.Calculator
}

func NewReportService(store ReportStore, periods period.Calculator) *ReportService {
	return &ReportService{
		store:   store,
		periods: periods,
	}
}

// PeriodReport is a report annotated with the budget period it covers.
type PeriodReport struct {
	PeriodID string    `json:"periodId"`
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	report.Report
}

// BuildRange builds a report for an arbitrary date range. Budgets are
// matched against the period containing the range start. An empty
// granularity picks one from the range length.
func (s *ReportService) BuildRange(ctx context.Context, start, end time.Time, g report.Granularity) (report.Report, error) {
	if end.Before(start) {
		return report.Report{}, fmt.Errorf("invalid range: end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if g == "" {
		g = granularityFor(start, end)
	}
	if !g.Valid() {
		return report.Report{}, fmt.Errorf("invalid granularity %q", g)
	}

	in, err := s.loadInput(ctx, start, end, string(s.periods.ForDate(start)))
	if err != nil {
		return report.Report{}, err
	}
	in.Granularity = g

	return report.Build(in), nil
}

// BuildCurrentPeriod builds the report for the budget period containing
// now, annotated with the period id and label.
func (s *ReportService) BuildCurrentPeriod(ctx context.Context, now time.Time) (PeriodReport, error) {
	id := s.periods.ForDate(now)
	start, end, err := s.periods.Range(id)
	if err != nil {
		return PeriodReport{}, fmt.Errorf("resolve period %s: %w", id, err)
	}

	in, err := s.loadInput(ctx, start, end, string(id))
	if err != nil {
		return PeriodReport{}, err
	}
	in.Granularity = report.Weekly

	label, err := s.periods.Label(id)
	if err != nil {
		return PeriodReport{}, fmt.Errorf("label period %s: %w", id, err)
	}

	return PeriodReport{
		PeriodID: string(id),
		Label:    label,
		Start:    start,
		End:      end,
		Report:   report.Build(in),
	}, nil
}

// Compare builds one trend point per span, covering all spans with a
// single transaction load.
func (s *ReportService) Compare(ctx context.Context, spans []report.Span) (report.Report, error) {
	if len(spans) == 0 {
		return report.Report{}, fmt.Errorf("no comparison spans")
	}

	start, end := spans[0].Start, spans[0].End
	for _, span := range spans[1:] {
		if span.Start.Before(start) {
			start = span.Start
		}
		if span.End.After(end) {
			end = span.End
		}
	}

	in, err := s.loadInput(ctx, start, end, string(s.periods.ForDate(start)))
	if err != nil {
		return report.Report{}, err
	}
	in.Granularity = report.Monthly
	in.Comparison = spans

	return report.Build(in), nil
}

// loadInput fetches transactions, categories and budgets in parallel.
func (s *ReportService) loadInput(ctx context.Context, start, end time.Time, periodID string) (report.Input, error) {
	var in report.Input
	in.Range = report.Range{Start: start, End: end}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Start: start, End: end})
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		in.Transactions = txs
		return nil
	})
	g.Go(func() error {
		cats, err := s.store.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		in.Categories = cats
		return nil
	})
	g.Go(func() error {
		budgets, err := s.store.ListBudgets(ctx, periodID)
		if err != nil {
			return fmt.Errorf("load budgets: %w", err)
		}
		in.Budgets = budgets
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Input{}, err
	}

	return in, nil
}

// granularityFor picks trend resolution from the range length: daily
// for a week or less, weekly up to two months, monthly beyond.
func granularityFor(start, end time.Time) report.Granularity {
	days := int(end.Sub(start).Hours()/24) + 1
	switch {
	case days <= 7:
		return report.Daily
	case days <= 62:
		return report.Weekly
	default:
		return report.Monthly
	}
}
