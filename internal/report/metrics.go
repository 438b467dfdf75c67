package report

import (
	"math"

	"tally/internal/core"
)

const (
	trendUp     = "up"
	trendDown   = "down"
	trendStable = "stable"
)

// trendDeadband is the percentage change below which spending is
// considered stable.
const trendDeadband = 5.0

// dayCount returns the inclusive number of calendar days in the range,
// at least 1.
func dayCount(r Range) int {
	start := day(r.Start)
	end := day(r.End)
	n := int(end.Sub(start).Hours()/24) + 1
	if n < 1 {
		return 1
	}
	return n
}

// keyMetrics derives the scalar indicators. Every ratio guards its
// denominator and yields 0 instead of NaN or Inf.
func keyMetrics(in Input, totals Totals, counts Counts, expenseByCategory []CategoryTotal) Metrics {
	days := float64(dayCount(in.Range))

	m := Metrics{
		AvgDailySpendingCents: float64(totals.ExpenseCents) / days,
		TransactionFrequency:  float64(counts.Total) / days,
		TopCategory:           NoExpensesPlaceholder,
	}

	if totals.IncomeCents > 0 {
		m.SavingsRate = 100 * float64(totals.IncomeCents-totals.ExpenseCents) / float64(totals.IncomeCents)
	}
	if counts.Total > 0 {
		m.AvgTransactionSizeCents = float64(totals.IncomeCents+totals.ExpenseCents) / float64(counts.Total)
	}
	if len(expenseByCategory) > 0 {
		m.TopCategory = expenseByCategory[0].Name
		m.TopCategoryCents = expenseByCategory[0].AmountCents
	}

	m.SpendingTrend, m.TrendPercentage = spendingTrend(in)
	return m
}

// spendingTrend compares expense totals on either side of the range
// midpoint. Changes within the deadband read as stable. A first half
// with no spending has no defined percentage change; the direction is
// up when the second half spent anything, stable otherwise, and the
// percentage stays 0.
func spendingTrend(in Input) (string, float64) {
	mid := in.Range.Start.Add(in.Range.End.Sub(in.Range.Start) / 2)

	var first, second int64
	for _, tx := range in.Transactions {
		if tx.Type != core.Expense {
			continue
		}
		if tx.Date.Time.Before(mid) {
			first += tx.Amount.Cents
		} else {
			second += tx.Amount.Cents
		}
	}

	if first == 0 {
		if second > 0 {
			return trendUp, 0
		}
		return trendStable, 0
	}

	change := 100 * float64(second-first) / float64(first)
	switch {
	case change > trendDeadband:
		return trendUp, math.Abs(change)
	case change < -trendDeadband:
		return trendDown, math.Abs(change)
	default:
		return trendStable, math.Abs(change)
	}
}
