// Package report aggregates transactions into derived report views.
//
// All functions are pure: the same inputs always produce the same
// output, and no input slice is mutated. Monetary sums are int64 cents;
// derived ratios are float64. An empty transaction list yields zero
// totals and empty derived slices, never an error.
package report

import (
	"sort"
	"time"

	"tally/internal/core"
)

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// UncategorizedName labels amounts whose category reference does not
// resolve. Report generation stays total instead of failing on a
// dangling id.
const UncategorizedName = "Uncategorized"

// NoExpensesPlaceholder is the top-category name when the range has no
// expense transactions.
const NoExpensesPlaceholder = "No expenses"

type (
	// Granularity selects the trend bucket size: one day, seven days,
	// or thirty days.
	Granularity string

	// Range is an inclusive date range.
	Range struct {
		Start time.Time
		End   time.Time
	}

	// Span is an explicit labeled range used for comparison reports.
	Span struct {
		Label string
		Start time.Time
		End   time.Time
	}

	// Input carries everything a report is derived from. Transactions
	// are expected to be pre-filtered to the range (or to the union of
	// the comparison spans).
	Input struct {
		Transactions []core.Transaction
		Categories   []core.Category
		Budgets      []core.Budget
		Range        Range
		Granularity  Granularity
		Comparison   []Span
	}

	Totals struct {
		IncomeCents  int64 `json:"incomeCents"`
		ExpenseCents int64 `json:"expenseCents"`
		NetCents     int64 `json:"netCents"`
	}

	Counts struct {
		Income  int `json:"income"`
		Expense int `json:"expense"`
		Total   int `json:"total"`
	}

	// CategoryTotal is one row of a category breakdown. CategoryID is
	// empty for the unresolved-reference bucket.
	CategoryTotal struct {
		CategoryID  string `json:"categoryId,omitempty"`
		Name        string `json:"name"`
		Color       string `json:"color,omitempty"`
		Icon        string `json:"icon,omitempty"`
		AmountCents int64  `json:"amountCents"`
	}

	TrendPoint struct {
		Label        string    `json:"label"`
		Start        time.Time `json:"start"`
		End          time.Time `json:"end"`
		IncomeCents  int64     `json:"incomeCents"`
		ExpenseCents int64     `json:"expenseCents"`
		NetCents     int64     `json:"netCents"`
	}

	BudgetProgress struct {
		BudgetID       string  `json:"budgetId"`
		CategoryID     string  `json:"categoryId"`
		CategoryName   string  `json:"categoryName"`
		PeriodID       string  `json:"periodId"`
		AmountCents    int64   `json:"amountCents"`
		SpentCents     int64   `json:"spentCents"`
		RemainingCents int64   `json:"remainingCents"`
		Percentage     float64 `json:"percentage"`
		IsOverBudget   bool    `json:"isOverBudget"`
	}

	Metrics struct {
		AvgDailySpendingCents   float64 `json:"avgDailySpendingCents"`
		SavingsRate             float64 `json:"savingsRate"`
		TopCategory             string  `json:"topCategory"`
		TopCategoryCents        int64   `json:"topCategoryCents"`
		TransactionFrequency    float64 `json:"transactionFrequency"`
		AvgTransactionSizeCents float64 `json:"avgTransactionSizeCents"`
		SpendingTrend           string  `json:"spendingTrend"` // up, down, stable
		TrendPercentage         float64 `json:"trendPercentage"`
	}

	// MatrixEntry is one time bucket of the category/time matrix,
	// holding the in-bucket amounts of the report's top expense
	// categories.
	MatrixEntry struct {
		Label      string          `json:"label"`
		Start      time.Time       `json:"start"`
		End        time.Time       `json:"end"`
		Categories []CategoryTotal `json:"categories"`
		TotalCents int64           `json:"totalCents"`
	}

	HeatmapCell struct {
		Date         string `json:"date"` // YYYY-MM-DD
		AmountCents  int64  `json:"amountCents"`
		ExpenseCount int    `json:"expenseCount"`
	}

	Report struct {
		Range             Range            `json:"range"`
		Granularity       Granularity      `json:"granularity"`
		Totals            Totals           `json:"totals"`
		Counts            Counts           `json:"counts"`
		IncomeByCategory  []CategoryTotal  `json:"incomeByCategory"`
		ExpenseByCategory []CategoryTotal  `json:"expenseByCategory"`
		Trend             []TrendPoint     `json:"trend"`
		Budgets           []BudgetProgress `json:"budgets"`
		Metrics           Metrics          `json:"metrics"`
		Matrix            []MatrixEntry    `json:"matrix"`
		Heatmap           []HeatmapCell    `json:"heatmap"`
	}
)

// Build computes the full report for the given input.
func Build(in Input) Report {
	r := Report{
		Range:       in.Range,
		Granularity: in.Granularity,
	}
	if len(in.Transactions) == 0 {
		r.Metrics.TopCategory = NoExpensesPlaceholder
		r.Metrics.SpendingTrend = trendStable
		return r
	}

	for _, tx := range in.Transactions {
		switch tx.Type {
		case core.Income:
			r.Totals.IncomeCents += tx.Amount.Cents
			r.Counts.Income++
		case core.Expense:
			r.Totals.ExpenseCents += tx.Amount.Cents
			r.Counts.Expense++
		}
		// Transfers count toward the total but never toward money
		// totals.
		r.Counts.Total++
	}
	r.Totals.NetCents = r.Totals.IncomeCents - r.Totals.ExpenseCents

	r.IncomeByCategory = breakdown(in.Transactions, in.Categories, core.Income)
	r.ExpenseByCategory = breakdown(in.Transactions, in.Categories, core.Expense)
	r.Trend = trendSeries(in)
	r.Budgets = budgetProgress(in)
	r.Metrics = keyMetrics(in, r.Totals, r.Counts, r.ExpenseByCategory)
	r.Matrix = categoryMatrix(in, r.ExpenseByCategory)
	r.Heatmap = heatmap(in)
	return r
}

// breakdown sums amounts per category for one transaction type.
// Categories appear in input order before the descending stable sort,
// so equal amounts keep their relative input positions. Transactions
// whose category id does not resolve are pooled into an
// "Uncategorized" row.
func breakdown(txs []core.Transaction, categories []core.Category, txType core.TransactionType) []CategoryTotal {
	sums := make(map[string]int64)
	for _, tx := range txs {
		if tx.Type != txType {
			continue
		}
		sums[tx.CategoryID] += tx.Amount.Cents
	}

	// Categories are not filtered by type here: a mismatched reference
	// (income transaction pointing at an expense category) propagates
	// into the breakdown rather than failing closed. Validation is the
	// persistence boundary's job.
	var out []CategoryTotal
	seen := make(map[string]bool)
	for _, cat := range categories {
		seen[cat.ID] = true
		amount := sums[cat.ID]
		if amount <= 0 {
			continue
		}
		out = append(out, CategoryTotal{
			CategoryID:  cat.ID,
			Name:        cat.Name,
			Color:       cat.Color,
			Icon:        cat.Icon,
			AmountCents: amount,
		})
	}

	// Anything not claimed by a known category falls into the fallback
	// bucket.
	var unresolved int64
	for id, amount := range sums {
		if !seen[id] {
			unresolved += amount
		}
	}
	if unresolved > 0 {
		out = append(out, CategoryTotal{Name: UncategorizedName, AmountCents: unresolved})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AmountCents > out[j].AmountCents
	})
	return out
}

// budgetProgress evaluates each budget with a positive ceiling against
// the expense spend in range. Archived categories are not filtered out
// of spend; archiving hides a category from pickers, it does not erase
// history.
func budgetProgress(in Input) []BudgetProgress {
	names := make(map[string]string, len(in.Categories))
	for _, cat := range in.Categories {
		names[cat.ID] = cat.Name
	}

	spend := make(map[string]int64)
	for _, tx := range in.Transactions {
		if tx.Type == core.Expense {
			spend[tx.CategoryID] += tx.Amount.Cents
		}
	}

	var out []BudgetProgress
	for _, b := range in.Budgets {
		if b.Amount.Cents <= 0 {
			continue
		}
		name, ok := names[b.CategoryID]
		if !ok {
			name = UncategorizedName
		}
		spent := spend[b.CategoryID]
		out = append(out, BudgetProgress{
			BudgetID:       b.ID,
			CategoryID:     b.CategoryID,
			CategoryName:   name,
			PeriodID:       b.PeriodID,
			AmountCents:    b.Amount.Cents,
			SpentCents:     spent,
			RemainingCents: b.Amount.Cents - spent,
			Percentage:     float64(spent) / float64(b.Amount.Cents) * 100,
			IsOverBudget:   spent > b.Amount.Cents,
		})
	}
	return out
}
