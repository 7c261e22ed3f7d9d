package store

import (
	"context"
	"errors"

	"github.com/Ezzerof/expense-tracker/internal/core"
)

// Sentinel errors shared by all store implementations. Callers branch on
// these; the wrapped detail carries the backend specifics.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("transaction name already exists")
	ErrUserExists    = errors.New("username already taken")
)

// User is a registered account. Savings live on the user row, matching the
// one-baseline-per-user model.
type User struct {
	ID           int64
	FirstName    string
	Username     string
	Email        string
	PasswordHash string
}

// Ports for outbound adapters.
type (
	// TransactionStore owns persisted transactions. Month and day reads
	// return every transaction whose occurrence window touches the range;
	// cadence filtering within the window is the projector's job.
	TransactionStore interface {
		CreateTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error)
		Transaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error)
		// DeleteTransaction applies the resolved scope. ScopeAll removes
		// the definition; ScopeOne on a recurring series records an
		// exclusion for the given occurrence date instead of touching
		// the definition. For a one-off the occurrence date is ignored.
		DeleteTransaction(ctx context.Context, userID, id int64, scope core.DeleteScope, occurrence core.Date) error
		// Transactions returns every definition the user owns, exclusions
		// attached, ordered by start date then ID.
		Transactions(ctx context.Context, userID int64) ([]core.Transaction, error)
		TransactionsForMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error)
		TransactionsForDay(ctx context.Context, userID int64, date core.Date) ([]core.Transaction, error)
	}

	// SavingsStore holds the per-user savings baseline.
	SavingsStore interface {
		// SavingsBaseline reports Set=false when the user never stored a
		// value, so callers can distinguish "unset" from "zero".
		SavingsBaseline(ctx context.Context, userID int64) (core.SavingsBaseline, error)
		SetSavingsBaseline(ctx context.Context, userID int64, amount core.Money) error
	}

	// UserStore manages account records for registration and login.
	UserStore interface {
		CreateUser(ctx context.Context, u User) (User, error)
		UserByUsername(ctx context.Context, username string) (User, error)
	}
)
