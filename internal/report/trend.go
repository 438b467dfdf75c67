package report

import (
	"sort"
	"time"

	"tally/internal/core"
)

// bucketDays returns how many days a trend bucket spans for the
// granularity: 1 (daily), 7 (weekly, used by month-long reports) or
// 30 (monthly, used by year-long reports).
func (g Granularity) bucketDays() int {
	switch g {
	case Weekly:
		return 7
	case Monthly:
		return 30
	default:
		return 1
	}
}

func (g Granularity) bucketLabel(start time.Time) string {
	if g == Monthly {
		return start.Format("Jan")
	}
	return start.Format("Jan 2")
}

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// day truncates an instant to its calendar day in UTC.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// inDays reports whether the transaction date falls on a day within
// [start, end], comparing whole calendar days.
func inDays(tx core.Transaction, start, end time.Time) bool {
	d := day(tx.Date.Time)
	return !d.Before(day(start)) && !d.After(day(end))
}

func sumRange(txs []core.Transaction, start, end time.Time) (income, expense int64) {
	for _, tx := range txs {
		if !inDays(tx, start, end) {
			continue
		}
		switch tx.Type {
		case core.Income:
			income += tx.Amount.Cents
		case core.Expense:
			expense += tx.Amount.Cents
		}
	}
	return income, expense
}

// trendSeries partitions the range into granularity-sized buckets, or
// produces one point per comparison span when spans are given. Buckets
// walk from the range start in fixed day steps, the last one capped at
// the range end, so together they cover the range exactly.
func trendSeries(in Input) []TrendPoint {
	if len(in.Comparison) > 0 {
		out := make([]TrendPoint, 0, len(in.Comparison))
		for _, span := range in.Comparison {
			income, expense := sumRange(in.Transactions, span.Start, span.End)
			out = append(out, TrendPoint{
				Label:        span.Label,
				Start:        span.Start,
				End:          span.End,
				IncomeCents:  income,
				ExpenseCents: expense,
				NetCents:     income - expense,
			})
		}
		return out
	}

	step := in.Granularity.bucketDays()
	rangeEnd := day(in.Range.End)
	var out []TrendPoint
	for cur := day(in.Range.Start); !cur.After(rangeEnd); cur = cur.AddDate(0, 0, step) {
		bucketEnd := cur.AddDate(0, 0, step-1)
		if bucketEnd.After(rangeEnd) {
			bucketEnd = rangeEnd
		}
		income, expense := sumRange(in.Transactions, cur, bucketEnd)
		out = append(out, TrendPoint{
			Label:        in.Granularity.bucketLabel(cur),
			Start:        cur,
			End:          bucketEnd,
			IncomeCents:  income,
			ExpenseCents: expense,
			NetCents:     income - expense,
		})
	}
	return out
}

// categoryMatrix buckets the top-5 expense categories over time:
// calendar months for monthly granularity (year-long reports), 7-day
// weeks for weekly granularity (month-long reports). Daily reports
// carry no matrix. Buckets with no qualifying spending are omitted.
func categoryMatrix(in Input, expenseByCategory []CategoryTotal) []MatrixEntry {
	if in.Granularity == Daily {
		return nil
	}

	top := expenseByCategory
	if len(top) > 5 {
		top = top[:5]
	}
	if len(top) == 0 {
		return nil
	}

	resolved := make(map[string]bool, len(in.Categories))
	for _, cat := range in.Categories {
		resolved[cat.ID] = true
	}

	var out []MatrixEntry
	for _, b := range matrixBuckets(in) {
		entry := MatrixEntry{Label: b.label, Start: b.start, End: b.end}
		for _, cat := range top {
			var amount int64
			for _, tx := range in.Transactions {
				if tx.Type != core.Expense || !matchesCategory(tx, cat, resolved) {
					continue
				}
				if inDays(tx, b.start, b.end) {
					amount += tx.Amount.Cents
				}
			}
			if amount <= 0 {
				continue
			}
			entry.Categories = append(entry.Categories, CategoryTotal{
				CategoryID:  cat.CategoryID,
				Name:        cat.Name,
				Color:       cat.Color,
				Icon:        cat.Icon,
				AmountCents: amount,
			})
			entry.TotalCents += amount
		}
		if len(entry.Categories) > 0 {
			out = append(out, entry)
		}
	}
	return out
}

// matchesCategory ties a transaction to a breakdown row. The fallback
// row (empty CategoryID) claims every transaction whose category id
// resolves to no known category.
func matchesCategory(tx core.Transaction, cat CategoryTotal, resolved map[string]bool) bool {
	if cat.CategoryID == "" {
		return !resolved[tx.CategoryID]
	}
	return tx.CategoryID == cat.CategoryID
}

type matrixBucket struct {
	label      string
	start, end time.Time
}

func matrixBuckets(in Input) []matrixBucket {
	start := day(in.Range.Start)
	end := day(in.Range.End)

	var out []matrixBucket
	if in.Granularity == Monthly {
		// Calendar months intersecting the range, clipped to it.
		cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		for !cur.After(end) {
			monthEnd := cur.AddDate(0, 1, -1)
			bStart, bEnd := cur, monthEnd
			if bStart.Before(start) {
				bStart = start
			}
			if bEnd.After(end) {
				bEnd = end
			}
			out = append(out, matrixBucket{label: cur.Format("Jan"), start: bStart, end: bEnd})
			cur = cur.AddDate(0, 1, 0)
		}
		return out
	}

	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 7) {
		bEnd := cur.AddDate(0, 0, 6)
		if bEnd.After(end) {
			bEnd = end
		}
		out = append(out, matrixBucket{label: cur.Format("Jan 2"), start: cur, end: bEnd})
	}
	return out
}

// heatmap produces one cell per calendar day in range with the day's
// expense total and expense transaction count. Days without spending
// still get a cell so callers can render a full calendar.
func heatmap(in Input) []HeatmapCell {
	perDay := make(map[string]*HeatmapCell)
	start := day(in.Range.Start)
	end := day(in.Range.End)
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		key := cur.Format("2006-01-02")
		perDay[key] = &HeatmapCell{Date: key}
	}

	for _, tx := range in.Transactions {
		if tx.Type != core.Expense {
			continue
		}
		key := day(tx.Date.Time).Format("2006-01-02")
		cell, ok := perDay[key]
		if !ok {
			continue
		}
		cell.AmountCents += tx.Amount.Cents
		cell.ExpenseCount++
	}

	out := make([]HeatmapCell, 0, len(perDay))
	for _, cell := range perDay {
		out = append(out, *cell)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
