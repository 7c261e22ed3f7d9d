// Package memory provides an in-process LedgerWriter. It backs tests and
// deployments that run without Google Sheets credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ezzerof/expense-tracker/internal/core"
	ports "github.com/Ezzerof/expense-tracker/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	months  map[string]core.MonthLedger
	exports int
}

var _ ports.LedgerWriter = (*Store)(nil)

func New() *Store {
	return &Store{months: make(map[string]core.MonthLedger)}
}

func key(userID int64, year, month int) string {
	return fmt.Sprintf("%d:%04d-%02d", userID, year, month)
}

func (s *Store) WriteMonth(_ context.Context, userID int64, ledger core.MonthLedger) error {
	if len(ledger.Days) == 0 {
		return fmt.Errorf("empty ledger for %04d-%02d", ledger.Year, ledger.Month)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months[key(userID, ledger.Year, ledger.Month)] = ledger
	s.exports++
	return nil
}

// Month returns the last exported projection for the user and month.
func (s *Store) Month(userID int64, year, month int) (core.MonthLedger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.months[key(userID, year, month)]
	return ledger, ok
}

// Exports counts WriteMonth calls, including overwrites.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
