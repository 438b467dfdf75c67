// Package period computes budget periods anchored on a configurable
// day of the month.
//
// A period is identified by its start date in YYYY-MM-DD form. With a
// start day S, the period containing a date starts on day S of that
// month when the date's day is >= S, otherwise on day S of the previous
// month. Periods tile the calendar with no gaps and no overlaps.
package period

import (
	"fmt"
	"time"
)

// MinStartDay and MaxStartDay bound the configurable anchor day.
// 29-31 are excluded so every month can hold the start day.
const (
	MinStartDay = 1
	MaxStartDay = 28
)

const idLayout = "2006-01-02"

// ID identifies a period by its start date, e.g. "2025-03-05".
type ID string

// Calculator derives period boundaries for a fixed start day.
type Calculator struct {
	startDay int
}

// New returns a Calculator for the given start day.
// Start days outside 1-28 are rejected.
func New(startDay int) (Calculator, error) {
	if startDay < MinStartDay || startDay > MaxStartDay {
		return Calculator{}, fmt.Errorf("start day %d out of range [%d,%d]", startDay, MinStartDay, MaxStartDay)
	}
	return Calculator{startDay: startDay}, nil
}

// StartDay returns the configured anchor day.
func (c Calculator) StartDay() int {
	return c.startDay
}

// ForDate returns the ID of the period containing date.
func (c Calculator) ForDate(date time.Time) ID {
	year, month, day := date.Date()
	if day >= c.startDay {
		return makeID(year, month, c.startDay)
	}
	// Previous month; time.Date normalizes month 0 to December of the
	// prior year.
	return makeID(year, month-1, c.startDay)
}

// Current returns the ID of the period containing now.
func (c Calculator) Current(now time.Time) ID {
	return c.ForDate(now)
}

// Start returns the first instant of the period (midnight UTC).
func (c Calculator) Start(id ID) (time.Time, error) {
	t, err := time.Parse(idLayout, string(id))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse period id %q: %w", id, err)
	}
	return t, nil
}

// End returns the last instant of the period, one millisecond before
// the next period starts.
func (c Calculator) End(id ID) (time.Time, error) {
	next, err := c.Next(id)
	if err != nil {
		return time.Time{}, err
	}
	nextStart, err := c.Start(next)
	if err != nil {
		return time.Time{}, err
	}
	return nextStart.Add(-time.Millisecond), nil
}

// Range returns the period's start and end instants.
func (c Calculator) Range(id ID) (start, end time.Time, err error) {
	start, err = c.Start(id)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = c.End(id)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Next returns the ID of the following period.
func (c Calculator) Next(id ID) (ID, error) {
	return c.step(id, 1)
}

// Prev returns the ID of the preceding period.
func (c Calculator) Prev(id ID) (ID, error) {
	return c.step(id, -1)
}

// step moves a period ID by delta months. IDs produced by this package
// always carry a day <= 28, but IDs from external input may not; the
// day is clamped to the target month's length so stepping stays total.
func (c Calculator) step(id ID, delta int) (ID, error) {
	t, err := c.Start(id)
	if err != nil {
		return "", err
	}
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return makeID(target.Year(), target.Month(), day), nil
}

// Label renders a human-readable name for the period. Periods anchored
// on day 1 read as a plain month ("March 2025"); any other anchor reads
// as a date range ("Mar 5 – Apr 4, 2025"), with years on both sides
// when the period crosses a year boundary.
func (c Calculator) Label(id ID) (string, error) {
	start, end, err := c.Range(id)
	if err != nil {
		return "", err
	}
	if start.Day() == 1 {
		return start.Format("January 2006"), nil
	}
	if start.Year() != end.Year() {
		return start.Format("Jan 2, 2006") + " – " + end.Format("Jan 2, 2006"), nil
	}
	return start.Format("Jan 2") + " – " + end.Format("Jan 2, 2006"), nil
}

func makeID(year int, month time.Month, day int) ID {
	return ID(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(idLayout))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
