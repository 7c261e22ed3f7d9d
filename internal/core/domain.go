package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Expense TransactionType = "EXPENSE"
	Income  TransactionType = "INCOME"
)

const (
	Single  RecurrenceFrequency = "SINGLE"
	Daily   RecurrenceFrequency = "DAILY"
	Weekly  RecurrenceFrequency = "WEEKLY"
	Monthly RecurrenceFrequency = "MONTHLY"
)

// Expense categories offered by the transaction form.
const (
	CategoryHome          Category = "HOME"
	CategoryBills         Category = "BILLS"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryFood          Category = "FOOD"
	CategoryCar           Category = "CAR"
	CategoryDebt          Category = "DEBT"
	CategoryOther         Category = "OTHER"
)

// Income categories.
const (
	CategoryWages     Category = "WAGES"
	CategoryBonuses   Category = "BONUSES"
	CategoryFreelance Category = "FREELANCE"
	CategorySellings  Category = "SELLINGS"
)

type (
	TransactionType     string
	RecurrenceFrequency string
	Category            string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record. A SINGLE frequency
	// means exactly one occurrence on StartDate; any other frequency denotes
	// a series running from StartDate to EndDate (empty EndDate = open-ended).
	Transaction struct {
		ID          int64
		Name        string
		Description string
		Category    Category
		Type        TransactionType
		Amount      Money
		StartDate   Date
		EndDate     Date
		Frequency   RecurrenceFrequency
		// Occurrence dates carved out of a recurring series by a
		// scope-ONE deletion.
		Exclusions []Date
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")
	ErrEndBeforeStart   = errors.New("end date before start date")
)

var expenseCategories = map[Category]struct{}{
	CategoryHome:          {},
	CategoryBills:         {},
	CategoryEntertainment: {},
	CategoryFood:          {},
	CategoryCar:           {},
	CategoryDebt:          {},
	CategoryOther:         {},
}

var incomeCategories = map[Category]struct{}{
	CategoryWages:     {},
	CategoryBonuses:   {},
	CategoryFreelance: {},
	CategorySellings:  {},
}

// NewDate creates a Date from year, month, day. Out-of-range values are
// normalized the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO yyyy-mm-dd date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DaysInMonth returns the number of calendar days in the given month,
// accounting for leap years.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true for the zero date, used where a date is optional.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// SameDay reports whether two dates fall on the same calendar day.
func (d Date) SameDay(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month() && d.Day() == other.Day()
}

// ISO returns the yyyy-mm-dd form.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// WeekdayLabel returns the short weekday name ("Mon", "Tue", ...).
func (d Date) WeekdayLabel() string {
	return d.Format("Mon")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ParseFrequency normalizes a frequency string. NONE is accepted as a
// legacy synonym for SINGLE.
func ParseFrequency(s string) (RecurrenceFrequency, error) {
	switch RecurrenceFrequency(strings.ToUpper(strings.TrimSpace(s))) {
	case Single, "NONE", "":
		return Single, nil
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	default:
		return "", ErrInvalidFrequency
	}
}

// ParseTransactionType normalizes a transaction type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case Expense:
		return Expense, nil
	case Income:
		return Income, nil
	default:
		return "", ErrInvalidType
	}
}

// AllowedFor reports whether the category belongs to the domain of the
// given transaction type.
func (c Category) AllowedFor(t TransactionType) bool {
	switch t {
	case Expense:
		_, ok := expenseCategories[c]
		return ok
	case Income:
		_, ok := incomeCategories[c]
		return ok
	default:
		return false
	}
}

// IsRecurring reports whether the transaction denotes a series rather than
// a one-off.
func (t Transaction) IsRecurring() bool {
	return t.Frequency != Single && t.Frequency != ""
}

// ExcludedOn reports whether the given occurrence date has been carved out
// of the series.
func (t Transaction) ExcludedOn(date Date) bool {
	for _, ex := range t.Exclusions {
		if ex.SameDay(date) {
			return true
		}
	}
	return false
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if len(t.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Type != Expense && t.Type != Income {
		return ErrInvalidType
	}
	if !t.Category.AllowedFor(t.Type) {
		return ErrInvalidCategory
	}
	if err := t.StartDate.Validate(); err != nil {
		return errors.New("invalid start date")
	}
	switch t.Frequency {
	case Single:
		if !t.EndDate.IsEmpty() {
			return errors.New("single transaction cannot carry an end date")
		}
	case Daily, Weekly, Monthly:
		if !t.EndDate.IsEmpty() && t.EndDate.Before(t.StartDate.Time) {
			return ErrEndBeforeStart
		}
	default:
		return ErrInvalidFrequency
	}
	return nil
}
