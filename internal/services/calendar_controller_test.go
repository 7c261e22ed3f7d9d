package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Ezzerof/expense-tracker/internal/core"
	"github.com/Ezzerof/expense-tracker/internal/store"
	"github.com/Ezzerof/expense-tracker/internal/store/memory"
)

func TestLoadMonthProjectsStoredTransactions(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()

	if _, err := mem.CreateTransaction(ctx, 1, core.Transaction{
		Name:      "salary",
		Category:  core.CategoryWages,
		Type:      core.Income,
		Amount:    core.Money{Cents: 250000},
		StartDate: core.NewDate(2024, 3, 25),
		Frequency: core.Single,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := mem.SetSavingsBaseline(ctx, 1, core.Money{Cents: 50000}); err != nil {
		t.Fatalf("seed baseline: %v", err)
	}

	ctrl := NewCalendarController(mem, mem)
	ledger, err := ctrl.LoadMonth(ctx, 1, 2024, 3)
	if err != nil {
		t.Fatalf("load month: %v", err)
	}
	if len(ledger.Days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(ledger.Days))
	}
	if got := ledger.Days[24].Income.Cents; got != 250000 {
		t.Errorf("day 25 income = %d", got)
	}
	if got := ledger.Days[30].Savings.Cents; got != 300000 {
		t.Errorf("month-end savings = %d", got)
	}

	// Another user's calendar is empty.
	other, err := ctrl.LoadMonth(ctx, 2, 2024, 3)
	if err != nil {
		t.Fatalf("load month for user 2: %v", err)
	}
	if got := other.Days[24].Income.Cents; got != 0 {
		t.Errorf("transactions leaked across users: %d", got)
	}
}

// invalidatingStore bumps the month generation mid-fetch, simulating a
// mutation (or a newer navigation) racing an in-flight load.
type invalidatingStore struct {
	store.TransactionStore
	ctrl   *CalendarController
	userID int64
	year   int
	month  int
}

func (s *invalidatingStore) TransactionsForMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	txs, err := s.TransactionStore.TransactionsForMonth(ctx, userID, year, month)
	s.ctrl.InvalidateMonth(s.userID, s.year, s.month)
	return txs, err
}

func TestLoadMonthSuperseded(t *testing.T) {
	mem := memory.New()
	ctrl := NewCalendarController(mem, mem)

	racing := &invalidatingStore{TransactionStore: mem, ctrl: ctrl, userID: 1, year: 2024, month: 3}
	ctrl.transactions = racing

	if _, err := ctrl.LoadMonth(context.Background(), 1, 2024, 3); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}

	// A fresh load after the invalidation succeeds.
	ctrl.transactions = mem
	if _, err := ctrl.LoadMonth(context.Background(), 1, 2024, 3); err != nil {
		t.Fatalf("reload after invalidation: %v", err)
	}
}

func TestInvalidateUserBumpsAllMonths(t *testing.T) {
	mem := memory.New()
	ctrl := NewCalendarController(mem, mem)
	ctx := context.Background()

	if _, err := ctrl.LoadMonth(ctx, 1, 2024, 3); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := ctrl.LoadMonth(ctx, 1, 2024, 4); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctrl.InvalidateUser(1)

	// Loads still work after a user-wide invalidation.
	if _, err := ctrl.LoadMonth(ctx, 1, 2024, 3); err != nil {
		t.Fatalf("load after invalidation: %v", err)
	}
}
