package services

import (
	"github.com/Ezzerof/expense-tracker/internal/core"
)

// ProjectMonth turns a flat transaction list into the day-indexed ledger for
// one calendar month. It is a pure function: no I/O, no stored state, and
// identical inputs always produce identical output.
//
// The running savings for day d is the previous day's savings plus that
// day's income minus its expenses; day 0 is the baseline. When the baseline
// was never set the projection runs from zero and the result carries
// BaselineUnset so callers can prompt instead of silently trusting the
// figures.
func ProjectMonth(year, month int, baseline core.SavingsBaseline, txs []core.Transaction) core.MonthLedger {
	days := core.DaysInMonth(year, month)
	ledger := core.MonthLedger{
		Year:          year,
		Month:         month,
		BaselineUnset: !baseline.Set,
		Days:          make([]core.DaySummary, 0, days),
	}

	running := core.Money{}
	if baseline.Set {
		running = baseline.Amount
	}

	for day := 1; day <= days; day++ {
		date := core.NewDate(year, month, day)

		var income, expenses core.Money
		for _, t := range txs {
			if !Occurs(t, date) {
				continue
			}
			switch t.Type {
			case core.Income:
				income = income.Add(t.Amount)
			case core.Expense:
				expenses = expenses.Add(t.Amount)
			}
		}

		running = running.Add(income).Sub(expenses)
		ledger.Days = append(ledger.Days, core.DaySummary{
			Date:     date,
			Weekday:  date.WeekdayLabel(),
			Income:   income,
			Expenses: expenses,
			Savings:  running,
		})
	}

	return ledger
}
