package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Ezzerof/expense-tracker/internal/amqp"
	"github.com/Ezzerof/expense-tracker/internal/core"
	"github.com/Ezzerof/expense-tracker/internal/store"
)

var (
	// ErrNegativeSavings rejects a baseline update below zero.
	ErrNegativeSavings = errors.New("savings baseline must be non-negative")

	// ErrOccurrenceRequired flags a scope-ONE delete of a series that did
	// not say which occurrence to remove.
	ErrOccurrenceRequired = errors.New("occurrence date required to delete one occurrence of a series")
)

// TransactionService orchestrates the transaction lifecycle: it validates
// forms through the editor, resolves delete scopes, talks to the store, and
// publishes ledger events so downstream consumers re-project the affected
// month. The service itself holds no transaction state.
type TransactionService struct {
	transactions store.TransactionStore
	savings      store.SavingsStore
	events       *amqp.Client
}

func NewTransactionService(transactions store.TransactionStore, savings store.SavingsStore, events *amqp.Client) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		savings:      savings,
		events:       events,
	}
}

// Create validates the form and persists a new transaction.
func (s *TransactionService) Create(ctx context.Context, userID int64, form TransactionForm) (core.Transaction, error) {
	tx, err := BuildTransaction(form)
	if err != nil {
		return core.Transaction{}, err
	}

	created, err := s.transactions.CreateTransaction(ctx, userID, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, amqp.EventTransactionCreated, userID, created)
	return created, nil
}

// Get returns a single transaction by id.
func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.transactions.Transaction(ctx, userID, id)
}

// Update merges the edit form over the stored transaction and persists the
// result. The id and any field the form leaves empty are preserved.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, form TransactionForm) (core.Transaction, error) {
	orig, err := s.transactions.Transaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction %d: %w", id, err)
	}

	merged, err := MergeTransaction(orig, form)
	if err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.transactions.UpdateTransaction(ctx, userID, merged)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	s.publish(ctx, amqp.EventTransactionUpdated, userID, updated)
	// The edit may have moved the anchor; the old month is stale too.
	if orig.StartDate.Year() != updated.StartDate.Year() || orig.StartDate.Month() != updated.StartDate.Month() {
		s.publish(ctx, amqp.EventTransactionUpdated, userID, orig)
	}
	return updated, nil
}

// Delete resolves the scope choice and applies it. A cancelled choice is a
// no-op and returns ErrDeleteCancelled so callers can leave their state
// untouched. Scope ONE against a recurring series requires the occurrence
// date being removed.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64, choice ScopeChoice, occurrence core.Date) error {
	tx, err := s.transactions.Transaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", id, err)
	}

	scope, err := ResolveDeleteScope(tx, choice)
	if err != nil {
		return err
	}

	if scope == core.ScopeOne && tx.IsRecurring() && occurrence.IsEmpty() {
		return ErrOccurrenceRequired
	}

	if err := s.transactions.DeleteTransaction(ctx, userID, id, scope, occurrence); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	s.publish(ctx, amqp.EventTransactionDeleted, userID, tx)
	return nil
}

// Savings returns the user's baseline with an explicit unset flag.
func (s *TransactionService) Savings(ctx context.Context, userID int64) (core.SavingsBaseline, error) {
	return s.savings.SavingsBaseline(ctx, userID)
}

// SetSavings stores a new baseline. Negative values are rejected; zero is a
// legitimate baseline.
func (s *TransactionService) SetSavings(ctx context.Context, userID int64, amount core.Money) error {
	if amount.Cents < 0 {
		return ErrNegativeSavings
	}
	if err := s.savings.SetSavingsBaseline(ctx, userID, amount); err != nil {
		return fmt.Errorf("set savings baseline: %w", err)
	}

	if s.events != nil {
		msg := amqp.NewLedgerEventMessage(amqp.EventSavingsUpdated, userID, 0, 0, 0)
		if err := s.events.PublishLedgerEvent(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish savings event",
				"user_id", userID, "error", err)
			// Don't fail the request - the baseline is saved locally
		}
	}
	return nil
}

// publish emits a ledger event for the month anchored by the transaction's
// start date. Publish failures are logged, never surfaced: the store write
// already succeeded.
func (s *TransactionService) publish(ctx context.Context, kind string, userID int64, tx core.Transaction) {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event", "kind", kind)
		return
	}

	msg := amqp.NewLedgerEventMessage(kind, userID, tx.ID, tx.StartDate.Year(), tx.StartDate.Month())
	if err := s.events.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind, "transaction_id", tx.ID, "error", err)
	}
}
