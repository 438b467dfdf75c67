package period

import (
	"testing"
	"time"
)

func mustNew(t *testing.T, startDay int) Calculator {
	t.Helper()
	c, err := New(startDay)
	if err != nil {
		t.Fatalf("New(%d): %v", startDay, err)
	}
	return c
}

func TestNewRejectsInvalidStartDay(t *testing.T) {
	for _, d := range []int{0, -1, 29, 30, 31, 100} {
		if _, err := New(d); err == nil {
			t.Fatalf("New(%d) expected error", d)
		}
	}
	for d := 1; d <= 28; d++ {
		if _, err := New(d); err != nil {
			t.Fatalf("New(%d) unexpected error: %v", d, err)
		}
	}
}

func TestForDate(t *testing.T) {
	cases := []struct {
		startDay int
		date     time.Time
		want     ID
	}{
		// Day before the anchor falls into the previous month's period.
		{5, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), "2025-02-05"},
		{5, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), "2025-03-05"},
		{5, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), "2025-03-05"},
		{1, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "2025-03-01"},
		{1, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), "2025-03-01"},
		// Year boundary: early January before the anchor belongs to December.
		{15, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "2024-12-15"},
		{15, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), "2025-01-15"},
		// Anchor day 28 works in February, leap and common years.
		{28, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), "2024-02-28"},
		{28, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "2024-02-28"},
		{28, time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC), "2025-01-28"},
	}
	for _, tc := range cases {
		c := mustNew(t, tc.startDay)
		if got := c.ForDate(tc.date); got != tc.want {
			t.Fatalf("startDay=%d date=%s: expected %s, got %s",
				tc.startDay, tc.date.Format("2006-01-02"), tc.want, got)
		}
	}
}

func TestPeriodBoundaries(t *testing.T) {
	c := mustNew(t, 5)

	id := c.ForDate(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	if id != "2025-02-05" {
		t.Fatalf("expected period 2025-02-05, got %s", id)
	}

	start, end, err := c.Range(id)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if want := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("start: expected %s, got %s", want, start)
	}
	if want := time.Date(2025, 3, 4, 23, 59, 59, 999000000, time.UTC); !end.Equal(want) {
		t.Fatalf("end: expected %s, got %s", want, end)
	}

	next, err := c.Next(id)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != "2025-03-05" {
		t.Fatalf("next: expected 2025-03-05, got %s", next)
	}
}

// Consecutive periods must tile the calendar: each period ends exactly
// one millisecond before the next one starts.
func TestAdjacencyNoGapsNoOverlaps(t *testing.T) {
	for _, startDay := range []int{1, 5, 15, 28} {
		c := mustNew(t, startDay)
		// Start before a leap February so the walk crosses 2024-02-29.
		id := c.ForDate(time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC))
		for i := 0; i < 120; i++ {
			end, err := c.End(id)
			if err != nil {
				t.Fatalf("End(%s): %v", id, err)
			}
			next, err := c.Next(id)
			if err != nil {
				t.Fatalf("Next(%s): %v", id, err)
			}
			nextStart, err := c.Start(next)
			if err != nil {
				t.Fatalf("Start(%s): %v", next, err)
			}
			if gap := nextStart.Sub(end); gap != time.Millisecond {
				t.Fatalf("startDay=%d %s -> %s: gap %v", startDay, id, next, gap)
			}
			// Every instant inside the period maps back to it.
			if got := c.ForDate(end); got != id {
				t.Fatalf("startDay=%d ForDate(end of %s) = %s", startDay, id, got)
			}
			id = next
		}
	}
}

func TestPrevNextRoundTrip(t *testing.T) {
	for _, startDay := range []int{1, 7, 28} {
		c := mustNew(t, startDay)
		id := c.ForDate(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
		for i := 0; i < 24; i++ {
			next, err := c.Next(id)
			if err != nil {
				t.Fatalf("Next(%s): %v", id, err)
			}
			back, err := c.Prev(next)
			if err != nil {
				t.Fatalf("Prev(%s): %v", next, err)
			}
			if back != id {
				t.Fatalf("startDay=%d: Prev(Next(%s)) = %s", startDay, id, back)
			}
			id = next
		}
	}
}

// IDs from external input may carry a day that a shorter target month
// cannot hold; stepping clamps to the last day of that month.
func TestStepClampsShortMonths(t *testing.T) {
	c := mustNew(t, 5)

	next, err := c.Next(ID("2025-01-31"))
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != "2025-02-28" {
		t.Fatalf("expected 2025-02-28, got %s", next)
	}

	next, err = c.Next(ID("2024-01-31"))
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != "2024-02-29" {
		t.Fatalf("leap year: expected 2024-02-29, got %s", next)
	}

	prev, err := c.Prev(ID("2025-03-30"))
	if err != nil {
		t.Fatalf("Prev: %v", err)
	}
	if prev != "2025-02-28" {
		t.Fatalf("expected 2025-02-28, got %s", prev)
	}
}

func TestMalformedIDRejected(t *testing.T) {
	c := mustNew(t, 5)
	for _, bad := range []ID{"", "2025-13-05", "not-a-date", "2025/03/05"} {
		if _, err := c.Start(bad); err == nil {
			t.Fatalf("Start(%q) expected error", bad)
		}
		if _, err := c.Next(bad); err == nil {
			t.Fatalf("Next(%q) expected error", bad)
		}
	}
}

func TestLabel(t *testing.T) {
	cases := []struct {
		startDay int
		id       ID
		want     string
	}{
		{1, "2025-03-01", "March 2025"},
		{5, "2025-03-05", "Mar 5 – Apr 4, 2025"},
		{15, "2025-01-15", "Jan 15 – Feb 14, 2025"},
		// Cross-year periods carry the year on both sides.
		{5, "2024-12-05", "Dec 5, 2024 – Jan 4, 2025"},
		{28, "2025-12-28", "Dec 28, 2025 – Jan 27, 2026"},
	}
	for _, tc := range cases {
		c := mustNew(t, tc.startDay)
		got, err := c.Label(tc.id)
		if err != nil {
			t.Fatalf("Label(%s): %v", tc.id, err)
		}
		if got != tc.want {
			t.Fatalf("Label(%s): expected %q, got %q", tc.id, tc.want, got)
		}
	}
}
