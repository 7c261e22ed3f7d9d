package services

import (
	"testing"

	"github.com/Ezzerof/expense-tracker/internal/core"
)

func expense(name string, cents int64, start core.Date, freq core.RecurrenceFrequency) core.Transaction {
	return core.Transaction{
		Name:      name,
		Category:  core.CategoryOther,
		Type:      core.Expense,
		Amount:    core.Money{Cents: cents},
		StartDate: start,
		Frequency: freq,
	}
}

func income(name string, cents int64, start core.Date, freq core.RecurrenceFrequency) core.Transaction {
	return core.Transaction{
		Name:      name,
		Category:  core.CategoryWages,
		Type:      core.Income,
		Amount:    core.Money{Cents: cents},
		StartDate: start,
		Frequency: freq,
	}
}

func setBaseline(cents int64) core.SavingsBaseline {
	return core.SavingsBaseline{Amount: core.Money{Cents: cents}, Set: true}
}

func TestProjectMonthShape(t *testing.T) {
	cases := []struct {
		year, month, wantDays int
	}{
		{2024, 1, 31},
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 11, 30},
	}
	for _, tc := range cases {
		ledger := ProjectMonth(tc.year, tc.month, setBaseline(0), nil)
		if len(ledger.Days) != tc.wantDays {
			t.Fatalf("%d-%02d: expected %d days, got %d", tc.year, tc.month, tc.wantDays, len(ledger.Days))
		}
		for i, d := range ledger.Days {
			if d.Date.Day() != i+1 {
				t.Fatalf("%d-%02d: day %d out of order (got %d)", tc.year, tc.month, i+1, d.Date.Day())
			}
			if d.Weekday == "" {
				t.Fatalf("%d-%02d: day %d missing weekday label", tc.year, tc.month, i+1)
			}
		}
	}
}

// Baseline 1000, one expense of 200 on day 5, one income of 50 on day 10:
// days 1-4 hold 1000, day 5 drops to 800, day 10 rises to 850, and the
// balance stays 850 to month end.
func TestProjectMonthRunningSavings(t *testing.T) {
	txs := []core.Transaction{
		expense("groceries", 20000, core.NewDate(2024, 4, 5), core.Single),
		income("refund", 5000, core.NewDate(2024, 4, 10), core.Single),
	}
	ledger := ProjectMonth(2024, 4, setBaseline(100000), txs)

	for day := 1; day <= 4; day++ {
		if got := ledger.Days[day-1].Savings.Cents; got != 100000 {
			t.Errorf("day %d: expected savings 100000, got %d", day, got)
		}
	}
	day5 := ledger.Days[4]
	if day5.Expenses.Cents != 20000 || day5.Savings.Cents != 80000 {
		t.Errorf("day 5: expected expenses 20000 savings 80000, got %d / %d", day5.Expenses.Cents, day5.Savings.Cents)
	}
	day10 := ledger.Days[9]
	if day10.Income.Cents != 5000 || day10.Savings.Cents != 85000 {
		t.Errorf("day 10: expected income 5000 savings 85000, got %d / %d", day10.Income.Cents, day10.Savings.Cents)
	}
	if got := ledger.Days[29].Savings.Cents; got != 85000 {
		t.Errorf("day 30: expected savings 85000, got %d", got)
	}

	// The recurrence relation must hold for every day.
	prev := int64(100000)
	for i, d := range ledger.Days {
		want := prev + d.Income.Cents - d.Expenses.Cents
		if d.Savings.Cents != want {
			t.Fatalf("day %d: savings %d breaks recurrence (want %d)", i+1, d.Savings.Cents, want)
		}
		prev = d.Savings.Cents
	}
}

func TestProjectMonthSingleOutsideMonth(t *testing.T) {
	txs := []core.Transaction{
		expense("one-off", 1500, core.NewDate(2024, 3, 15), core.Single),
	}

	march := ProjectMonth(2024, 3, setBaseline(0), txs)
	hits := 0
	for _, d := range march.Days {
		if d.Expenses.Cents > 0 {
			hits++
			if d.Date.Day() != 15 {
				t.Errorf("expected the expense on day 15, got day %d", d.Date.Day())
			}
		}
	}
	if hits != 1 {
		t.Fatalf("expected exactly one day with the expense, got %d", hits)
	}

	for _, month := range []int{2, 4} {
		ledger := ProjectMonth(2024, month, setBaseline(0), txs)
		for _, d := range ledger.Days {
			if d.Expenses.Cents != 0 {
				t.Errorf("2024-%02d day %d: one-off from March leaked in", month, d.Date.Day())
			}
		}
	}
}

// A weekly transaction anchored Friday 2024-03-01 with no end date lands on
// March 1, 8, 15, 22 and 29.
func TestProjectMonthWeeklyOccurrences(t *testing.T) {
	txs := []core.Transaction{
		income("payday", 10000, core.NewDate(2024, 3, 1), core.Weekly),
	}
	ledger := ProjectMonth(2024, 3, setBaseline(0), txs)

	want := map[int]bool{1: true, 8: true, 15: true, 22: true, 29: true}
	for _, d := range ledger.Days {
		gotHit := d.Income.Cents > 0
		if gotHit != want[d.Date.Day()] {
			t.Errorf("day %d: occurrence = %v, want %v", d.Date.Day(), gotHit, want[d.Date.Day()])
		}
	}
	if got := ledger.Days[30].Savings.Cents; got != 50000 {
		t.Errorf("month end: expected savings 50000 after 5 paydays, got %d", got)
	}
}

func TestProjectMonthExclusionRemovesOneDayOnly(t *testing.T) {
	series := expense("gym", 2000, core.NewDate(2024, 3, 1), core.Weekly)
	series.Exclusions = []core.Date{core.NewDate(2024, 3, 8)}

	ledger := ProjectMonth(2024, 3, setBaseline(0), []core.Transaction{series})
	for _, d := range ledger.Days {
		switch d.Date.Day() {
		case 8:
			if d.Expenses.Cents != 0 {
				t.Errorf("day 8: excluded occurrence still counted")
			}
		case 1, 15, 22, 29:
			if d.Expenses.Cents != 2000 {
				t.Errorf("day %d: expected series contribution 2000, got %d", d.Date.Day(), d.Expenses.Cents)
			}
		default:
			if d.Expenses.Cents != 0 {
				t.Errorf("day %d: unexpected contribution", d.Date.Day())
			}
		}
	}
}

func TestProjectMonthBaselineUnset(t *testing.T) {
	ledger := ProjectMonth(2024, 6, core.SavingsBaseline{}, nil)
	if !ledger.BaselineUnset {
		t.Fatalf("expected BaselineUnset flag")
	}
	if got := ledger.Days[0].Savings.Cents; got != 0 {
		t.Fatalf("unset baseline must project from zero, got %d", got)
	}

	ledger = ProjectMonth(2024, 6, setBaseline(0), nil)
	if ledger.BaselineUnset {
		t.Fatalf("explicit zero baseline is set, not unset")
	}
}

func TestProjectMonthDeterministic(t *testing.T) {
	txs := []core.Transaction{
		expense("rent", 90000, core.NewDate(2024, 1, 31), core.Monthly),
		income("salary", 250000, core.NewDate(2024, 1, 25), core.Monthly),
	}
	a := ProjectMonth(2024, 2, setBaseline(12345), txs)
	b := ProjectMonth(2024, 2, setBaseline(12345), txs)
	if len(a.Days) != len(b.Days) {
		t.Fatalf("projections differ in length")
	}
	for i := range a.Days {
		if a.Days[i] != b.Days[i] {
			t.Fatalf("day %d differs between identical projections", i+1)
		}
	}
}
