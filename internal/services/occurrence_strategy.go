// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurrence occurrence
// checking. Each frequency type (single, daily, weekly, monthly) has its own
// strategy that encapsulates the logic for deciding whether a transaction
// lands on a calendar date.

package services

import (
	"fmt"

	"github.com/Ezzerof/expense-tracker/internal/core"
)

// OccurrenceChecker is the strategy interface for recurrence cadence checks.
// Implementations ignore exclusions; Occurs applies those on top.
type OccurrenceChecker interface {
	// OccursOn returns true if the transaction's cadence, anchored at its
	// start date, lands on the given date.
	OccursOn(t core.Transaction, date core.Date) bool
}

// SingleChecker implements OccurrenceChecker for one-off transactions.
type SingleChecker struct{}

// OccursOn returns true only on the anchor date itself.
func (SingleChecker) OccursOn(t core.Transaction, date core.Date) bool {
	return date.SameDay(t.StartDate)
}

// DailyChecker implements OccurrenceChecker for daily series.
type DailyChecker struct{}

// OccursOn returns true for every day inside the series window.
func (DailyChecker) OccursOn(t core.Transaction, date core.Date) bool {
	return inSeriesWindow(t, date)
}

// WeeklyChecker implements OccurrenceChecker for weekly series.
type WeeklyChecker struct{}

// OccursOn returns true inside the window on the anchor's weekday
// (a 7-day step from the start date).
func (WeeklyChecker) OccursOn(t core.Transaction, date core.Date) bool {
	if !inSeriesWindow(t, date) {
		return false
	}
	return date.Weekday() == t.StartDate.Weekday()
}

// MonthlyChecker implements OccurrenceChecker for monthly series.
type MonthlyChecker struct{}

// OccursOn returns true inside the window on the anchor's day-of-month.
// When the month is too short for that day (e.g. anchored on the 31st), the
// occurrence clamps to the month's last day.
func (MonthlyChecker) OccursOn(t core.Transaction, date core.Date) bool {
	if !inSeriesWindow(t, date) {
		return false
	}
	targetDay := t.StartDate.Day()
	if last := core.DaysInMonth(date.Year(), date.Month()); targetDay > last {
		targetDay = last
	}
	return date.Day() == targetDay
}

// inSeriesWindow reports whether date falls between the series start and end
// dates, treating an empty end date as unbounded.
func inSeriesWindow(t core.Transaction, date core.Date) bool {
	if date.Before(t.StartDate.Time) {
		return false
	}
	if t.EndDate.IsEmpty() {
		return true
	}
	return !date.After(t.EndDate.Time)
}

// occurrenceStrategies maps recurrence frequencies to their checkers.
var occurrenceStrategies = map[core.RecurrenceFrequency]OccurrenceChecker{
	core.Single:  SingleChecker{},
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
}

// GetOccurrenceChecker returns the checker for a recurrence frequency.
// Returns an error if the frequency is not supported.
func GetOccurrenceChecker(frequency core.RecurrenceFrequency) (OccurrenceChecker, error) {
	checker, ok := occurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence frequency: %s", frequency)
	}
	return checker, nil
}

// Occurs reports whether the transaction contributes to the given date,
// applying the cadence strategy and then any scope-ONE exclusions. Unknown
// frequencies never occur; stored data is validated on the way in.
func Occurs(t core.Transaction, date core.Date) bool {
	checker, err := GetOccurrenceChecker(t.Frequency)
	if err != nil {
		return false
	}
	if !checker.OccursOn(t, date) {
		return false
	}
	return !t.ExcludedOn(date)
}
