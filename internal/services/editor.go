package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ezzerof/expense-tracker/internal/core"
)

// TransactionForm carries raw user-entered fields before validation. All
// fields are strings as they arrive from the client; empty means "not
// provided".
type TransactionForm struct {
	Name        string
	Description string
	Amount      string
	Category    string
	Type        string
	StartDate   string
	EndDate     string
	Frequency   string
}

// BuildTransaction validates the form and assembles a canonical transaction.
// Every rule is evaluated independently so a single round trip reports all
// violations, joined into one error. The returned transaction is only
// meaningful when the error is nil.
//
// A SINGLE transaction submitted with an end date is canonicalized to an
// empty end date rather than rejected.
func BuildTransaction(form TransactionForm) (core.Transaction, error) {
	var tx core.Transaction
	var errs []error

	tx.Name = strings.TrimSpace(form.Name)
	if tx.Name == "" {
		errs = append(errs, fmt.Errorf("name: %w", core.ErrEmptyName))
	}
	tx.Description = strings.TrimSpace(form.Description)

	cents, err := core.ParseDecimalToCents(form.Amount)
	if err != nil {
		errs = append(errs, fmt.Errorf("amount: %w", err))
	}
	tx.Amount = core.Money{Cents: cents}

	txType, typeErr := core.ParseTransactionType(form.Type)
	if typeErr != nil {
		errs = append(errs, fmt.Errorf("transactionType: %w", typeErr))
	}
	tx.Type = txType

	tx.Category = core.Category(strings.ToUpper(strings.TrimSpace(form.Category)))
	if tx.Category == "" {
		errs = append(errs, fmt.Errorf("category: %w", core.ErrInvalidCategory))
	} else if typeErr == nil && !tx.Category.AllowedFor(txType) {
		errs = append(errs, fmt.Errorf("category: %q not allowed for %s: %w", tx.Category, txType, core.ErrInvalidCategory))
	}

	start, startErr := core.ParseDate(form.StartDate)
	if startErr != nil {
		errs = append(errs, fmt.Errorf("startDate: %w", startErr))
	}
	tx.StartDate = start

	freq, freqErr := core.ParseFrequency(form.Frequency)
	if freqErr != nil {
		errs = append(errs, fmt.Errorf("recurrenceFrequency: %w", freqErr))
	}
	tx.Frequency = freq

	if freqErr == nil && freq != core.Single && strings.TrimSpace(form.EndDate) != "" {
		end, endErr := core.ParseDate(form.EndDate)
		if endErr != nil {
			errs = append(errs, fmt.Errorf("endDate: %w", endErr))
		} else if startErr == nil && end.Before(start.Time) {
			errs = append(errs, fmt.Errorf("endDate: %w", core.ErrEndBeforeStart))
		} else {
			tx.EndDate = end
		}
	}
	// SINGLE never carries an end date, whatever the form said.

	return tx, errors.Join(errs...)
}

// MergeTransaction rebuilds a transaction from an edit form, preserving the
// original's ID, exclusions, and any field the form left empty. Provided
// fields overwrite; the merged result is re-validated as a whole.
func MergeTransaction(orig core.Transaction, form TransactionForm) (core.Transaction, error) {
	merged := TransactionForm{
		Name:        fallback(form.Name, orig.Name),
		Description: fallback(form.Description, orig.Description),
		Amount:      fallback(form.Amount, orig.Amount.String()),
		Category:    fallback(form.Category, string(orig.Category)),
		Type:        fallback(form.Type, string(orig.Type)),
		StartDate:   fallback(form.StartDate, orig.StartDate.ISO()),
		Frequency:   fallback(form.Frequency, string(orig.Frequency)),
		EndDate:     form.EndDate,
	}
	if merged.EndDate == "" && !orig.EndDate.IsEmpty() {
		merged.EndDate = orig.EndDate.ISO()
	}

	tx, err := BuildTransaction(merged)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = orig.ID
	if tx.Frequency != core.Single {
		tx.Exclusions = orig.Exclusions
	}
	return tx, nil
}

func fallback(value, orig string) string {
	if strings.TrimSpace(value) == "" {
		return orig
	}
	return value
}
