package sheets

import (
	"context"

	"github.com/Ezzerof/expense-tracker/internal/core"
)

// LedgerWriter exports a user's month projection to an external sheet.
// WriteMonth replaces any previously exported rows for the same user and
// month, so re-exports after a mutation are idempotent.
type LedgerWriter interface {
	WriteMonth(ctx context.Context, userID int64, ledger core.MonthLedger) error
}
