// Package worker exports month projections to an external sheet in response
// to ledger events published by the API process.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ezzerof/expense-tracker/internal/amqp"
	"github.com/Ezzerof/expense-tracker/internal/services"
	"github.com/Ezzerof/expense-tracker/internal/sheets"
	"github.com/Ezzerof/expense-tracker/internal/store"
)

type exportRef struct {
	UserID int64
	Year   int
	Month  int
}

// ExportWorker re-projects a month from the store whenever a ledger event
// arrives and writes the result through the LedgerWriter. Events carry only
// identifiers, so the store is always the source of truth.
type ExportWorker struct {
	transactions store.TransactionStore
	savings      store.SavingsStore
	writer       sheets.LedgerWriter
	batchSize    int

	mu     sync.Mutex
	seen   map[exportRef]struct{}
	queue  []exportRef
	cursor int
}

// NewExportWorker builds a worker that refreshes at most batchSize exported
// months per periodic sweep, rotating through them across sweeps.
func NewExportWorker(transactions store.TransactionStore, savings store.SavingsStore, writer sheets.LedgerWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		transactions: transactions,
		savings:      savings,
		writer:       writer,
		batchSize:    batchSize,
		seen:         make(map[exportRef]struct{}),
	}
}

// HandleLedgerEvent processes one event. Transaction events name the month
// to export; a savings update shifts every day's running balance, so it
// re-exports all months previously exported for that user.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"user_id", msg.UserID,
		"year", msg.Year,
		"month", msg.Month)

	if msg.Kind == amqp.EventSavingsUpdated {
		return w.reExportUser(ctx, msg.UserID)
	}

	if msg.Month < 1 || msg.Month > 12 || msg.Year < 1 {
		return fmt.Errorf("event names no valid month: %04d-%02d", msg.Year, msg.Month)
	}

	if err := w.exportMonth(ctx, msg.UserID, msg.Year, msg.Month); err != nil {
		return err
	}
	w.remember(msg.UserID, msg.Year, msg.Month)
	return nil
}

func (w *ExportWorker) exportMonth(ctx context.Context, userID int64, year, month int) error {
	baseline, err := w.savings.SavingsBaseline(ctx, userID)
	if err != nil {
		return fmt.Errorf("load savings baseline: %w", err)
	}
	txs, err := w.transactions.TransactionsForMonth(ctx, userID, year, month)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	ledger := services.ProjectMonth(year, month, baseline, txs)
	if err := w.writer.WriteMonth(ctx, userID, ledger); err != nil {
		return fmt.Errorf("write month %04d-%02d: %w", year, month, err)
	}
	return nil
}

func (w *ExportWorker) remember(userID int64, year, month int) {
	ref := exportRef{UserID: userID, Year: year, Month: month}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[ref]; ok {
		return
	}
	w.seen[ref] = struct{}{}
	w.queue = append(w.queue, ref)
}

func (w *ExportWorker) reExportUser(ctx context.Context, userID int64) error {
	w.mu.Lock()
	refs := make([]exportRef, 0, len(w.queue))
	for _, ref := range w.queue {
		if ref.UserID == userID {
			refs = append(refs, ref)
		}
	}
	w.mu.Unlock()

	for _, ref := range refs {
		if err := w.exportMonth(ctx, ref.UserID, ref.Year, ref.Month); err != nil {
			return err
		}
	}
	return nil
}

// nextBatch advances the rotating cursor over every remembered month and
// returns the next slice to refresh, at most batchSize entries.
func (w *ExportWorker) nextBatch() []exportRef {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.queue)
	if n == 0 {
		return nil
	}
	size := w.batchSize
	if size < 1 || size > n {
		size = n
	}
	batch := make([]exportRef, 0, size)
	for i := 0; i < size; i++ {
		batch = append(batch, w.queue[w.cursor%n])
		w.cursor = (w.cursor + 1) % n
	}
	return batch
}

// ReExportBatch rewrites the next batch of previously exported months. It
// runs on a timer as a safety net for events lost while the worker was down;
// successive runs rotate through every remembered month.
func (w *ExportWorker) ReExportBatch(ctx context.Context) error {
	for _, ref := range w.nextBatch() {
		if err := w.exportMonth(ctx, ref.UserID, ref.Year, ref.Month); err != nil {
			return err
		}
	}
	return nil
}

// Run consumes ledger events and re-exports remembered months on the given
// interval until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context, events *amqp.Client, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return events.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
			return w.HandleLedgerEvent(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ReExportBatch(ctx); err != nil {
					slog.ErrorContext(ctx, "Periodic re-export failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
