package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Ezzerof/expense-tracker/internal/core"
	"github.com/Ezzerof/expense-tracker/internal/store"
)

// ErrSuperseded means a newer load for the same month started while this one
// was fetching; the caller must discard the result and keep whatever the
// newer load produces.
var ErrSuperseded = errors.New("month load superseded by a newer request")

// CalendarController sequences month loads: it re-fetches the savings
// baseline and the month's transactions, runs the projector, and enforces
// last-request-wins per (user, month) key so rapid month navigation can
// never render a stale projection over a fresh one. A baseline change
// invalidates every in-flight load for the user.
type CalendarController struct {
	transactions store.TransactionStore
	savings      store.SavingsStore

	mu   sync.Mutex
	gens map[string]uint64
}

func NewCalendarController(transactions store.TransactionStore, savings store.SavingsStore) *CalendarController {
	return &CalendarController{
		transactions: transactions,
		savings:      savings,
		gens:         make(map[string]uint64),
	}
}

// LoadMonth fetches and projects one month. The baseline is re-fetched on
// every call rather than cached: it is the only cross-month shared state and
// may have been changed by a savings update since the last load.
func (c *CalendarController) LoadMonth(ctx context.Context, userID int64, year, month int) (core.MonthLedger, error) {
	key := monthKey(userID, year, month)
	gen := c.begin(key)

	baseline, err := c.savings.SavingsBaseline(ctx, userID)
	if err != nil {
		return core.MonthLedger{}, fmt.Errorf("fetch savings baseline: %w", err)
	}

	txs, err := c.transactions.TransactionsForMonth(ctx, userID, year, month)
	if err != nil {
		return core.MonthLedger{}, fmt.Errorf("fetch month transactions: %w", err)
	}

	// The fetches above are the suspension points; anything that arrived
	// while they ran wins over this load.
	if c.superseded(key, gen) {
		return core.MonthLedger{}, ErrSuperseded
	}

	return ProjectMonth(year, month, baseline, txs), nil
}

// InvalidateMonth marks any in-flight load for the month as stale, e.g.
// after a transaction mutation.
func (c *CalendarController) InvalidateMonth(userID int64, year, month int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[monthKey(userID, year, month)]++
}

// InvalidateUser marks every in-flight load for the user as stale. Used when
// the savings baseline changes, since the baseline feeds every month.
func (c *CalendarController) InvalidateUser(userID int64) {
	prefix := fmt.Sprintf("%d:", userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.gens {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.gens[key]++
		}
	}
}

// Generation reports the current load generation for the month. A caller
// that finished a load at generation g may compare against this to detect
// an invalidation that landed after the load returned, e.g. before caching
// the projection.
func (c *CalendarController) Generation(userID int64, year, month int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[monthKey(userID, year, month)]
}

func (c *CalendarController) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	return c.gens[key]
}

func (c *CalendarController) superseded(key string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key] != gen
}

func monthKey(userID int64, year, month int) string {
	return fmt.Sprintf("%d:%04d-%02d", userID, year, month)
}
