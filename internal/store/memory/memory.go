// Package memory provides map-backed store implementations. They serve unit
// tests and the zero-configuration dev setup; production wiring uses the
// sqlite repositories instead.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Ezzerof/expense-tracker/internal/core"
	"github.com/Ezzerof/expense-tracker/internal/store"
)

// Store keeps all state in memory, guarded by one mutex. It implements
// store.TransactionStore, store.SavingsStore and store.UserStore.
type Store struct {
	mu sync.Mutex

	transactions map[int64]map[int64]core.Transaction // userID -> id -> tx
	savings      map[int64]core.Money
	savingsSet   map[int64]bool
	users        map[string]store.User // keyed by lowercase username

	nextTxID   int64
	nextUserID int64
}

func New() *Store {
	return &Store{
		transactions: make(map[int64]map[int64]core.Transaction),
		savings:      make(map[int64]core.Money),
		savingsSet:   make(map[int64]bool),
		users:        make(map[string]store.User),
	}
}

func (s *Store) CreateTransaction(_ context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.transactions[userID] {
		if strings.EqualFold(existing.Name, t.Name) {
			return core.Transaction{}, store.ErrDuplicateName
		}
	}

	s.nextTxID++
	t.ID = s.nextTxID
	if s.transactions[userID] == nil {
		s.transactions[userID] = make(map[int64]core.Transaction)
	}
	s.transactions[userID][t.ID] = cloneTx(t)
	return t, nil
}

func (s *Store) Transaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[userID][id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return cloneTx(t), nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[userID][t.ID]; !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	for id, existing := range s.transactions[userID] {
		if id != t.ID && strings.EqualFold(existing.Name, t.Name) {
			return core.Transaction{}, store.ErrDuplicateName
		}
	}
	if t.Frequency == core.Single {
		t.Exclusions = nil
	}
	s.transactions[userID][t.ID] = cloneTx(t)
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64, scope core.DeleteScope, occurrence core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[userID][id]
	if !ok {
		return store.ErrNotFound
	}
	if scope == core.ScopeOne && t.IsRecurring() {
		if !t.ExcludedOn(occurrence) {
			t.Exclusions = append(t.Exclusions, occurrence)
			s.transactions[userID][id] = t
		}
		return nil
	}
	delete(s.transactions[userID], id)
	return nil
}

func (s *Store) Transactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Transaction, 0, len(s.transactions[userID]))
	for _, t := range s.transactions[userID] {
		out = append(out, cloneTx(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.SameDay(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) TransactionsForMonth(_ context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	first := core.NewDate(year, month, 1)
	last := core.NewDate(year, month, core.DaysInMonth(year, month))
	return s.inWindow(userID, first, last), nil
}

func (s *Store) TransactionsForDay(_ context.Context, userID int64, date core.Date) ([]core.Transaction, error) {
	return s.inWindow(userID, date, date), nil
}

// inWindow returns transactions whose active range overlaps [from, to].
// Cadence within the range is not evaluated here.
func (s *Store) inWindow(userID int64, from, to core.Date) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.transactions[userID] {
		if t.StartDate.After(to.Time) {
			continue
		}
		end := t.EndDate
		if t.Frequency == core.Single {
			end = t.StartDate
		}
		if !end.IsEmpty() && end.Before(from.Time) {
			continue
		}
		out = append(out, cloneTx(t))
	}
	return out
}

func (s *Store) SavingsBaseline(_ context.Context, userID int64) (core.SavingsBaseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return core.SavingsBaseline{
		Amount: s.savings[userID],
		Set:    s.savingsSet[userID],
	}, nil
}

func (s *Store) SetSavingsBaseline(_ context.Context, userID int64, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.savings[userID] = amount
	s.savingsSet[userID] = true
	return nil
}

func (s *Store) CreateUser(_ context.Context, u store.User) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, ok := s.users[key]; ok {
		return store.User{}, store.ErrUserExists
	}
	s.nextUserID++
	u.ID = s.nextUserID
	s.users[key] = u
	return u, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func cloneTx(t core.Transaction) core.Transaction {
	if len(t.Exclusions) > 0 {
		t.Exclusions = append([]core.Date(nil), t.Exclusions...)
	}
	return t
}
