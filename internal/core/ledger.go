package core

// DaySummary is the derived per-day slice of the monthly ledger. It is
// recomputed on every projection and never persisted.
type DaySummary struct {
	Date     Date
	Weekday  string
	Income   Money
	Expenses Money
	// Savings is the running balance at end of day: previous day's
	// savings + income - expenses.
	Savings Money
}

// MonthLedger is the full projection for one calendar month, one entry per
// day in ascending order.
type MonthLedger struct {
	Year  int
	Month int // 1-12
	// BaselineUnset is true when the user has never set a savings
	// baseline; the projection then runs from zero and callers decide
	// whether to prompt.
	BaselineUnset bool
	Days          []DaySummary
}

// SavingsBaseline is the running-savings value immediately before day 1 of
// the projected month.
type SavingsBaseline struct {
	Amount Money
	Set    bool
}

// DeleteScope states how a delete applies to a recurring series.
type DeleteScope string

const (
	// ScopeOne removes a single occurrence, leaving the series definition
	// in place.
	ScopeOne DeleteScope = "ONE"
	// ScopeAll removes the entire series definition.
	ScopeAll DeleteScope = "ALL"
)
