// Package storage persists users and transactions in SQLite. The repository
// implements the store ports; occurrence cadence is never evaluated here,
// only date-window overlap.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Ezzerof/expense-tracker/internal/core"
	"github.com/Ezzerof/expense-tracker/internal/store"
)

// Open-ended series compare against a sentinel that sorts after any real
// ISO date.
const farFuture = "9999-12-31"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, name, description, category, tx_type, amount_cents, start_date, end_date, frequency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, t.Name, t.Description, string(t.Category), string(t.Type),
		t.Amount.Cents, t.StartDate.ISO(), nullDate(t.EndDate), string(t.Frequency))
	if err != nil {
		return core.Transaction{}, mapConstraint(err, store.ErrDuplicateName)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r *SQLiteRepository) Transaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, category, tx_type, amount_cents, start_date, end_date, frequency
		FROM transactions WHERE user_id = ? AND id = ?`, userID, id)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, store.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("select transaction: %w", err)
	}

	if err := r.loadExclusions(ctx, map[int64]*core.Transaction{t.ID: &t}); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET name = ?, description = ?, category = ?, tx_type = ?, amount_cents = ?, start_date = ?, end_date = ?, frequency = ?
		WHERE user_id = ? AND id = ?`,
		t.Name, t.Description, string(t.Category), string(t.Type), t.Amount.Cents,
		t.StartDate.ISO(), nullDate(t.EndDate), string(t.Frequency), userID, t.ID)
	if err != nil {
		return core.Transaction{}, mapConstraint(err, store.ErrDuplicateName)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	if t.Frequency == core.Single {
		// A one-off has no occurrences to exclude; stale rows would
		// suppress the transaction on its own start date.
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM transaction_exclusions WHERE transaction_id = ?`,
			t.ID); err != nil {
			return core.Transaction{}, fmt.Errorf("purge exclusions: %w", err)
		}
		t.Exclusions = nil
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64, scope core.DeleteScope, occurrence core.Date) error {
	t, err := r.Transaction(ctx, userID, id)
	if err != nil {
		return err
	}

	if scope == core.ScopeOne && t.IsRecurring() {
		_, err := r.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO transaction_exclusions (transaction_id, excluded_on)
			VALUES (?, ?)`, id, occurrence.ISO())
		if err != nil {
			return fmt.Errorf("insert exclusion: %w", err)
		}
		return nil
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Transactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, category, tx_type, amount_cents, start_date, end_date, frequency
		FROM transactions
		WHERE user_id = ?
		ORDER BY start_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	byID := make(map[int64]*core.Transaction, len(out))
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	if err := r.loadExclusions(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) TransactionsForMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	first := core.NewDate(year, month, 1)
	last := core.NewDate(year, month, core.DaysInMonth(year, month))
	return r.inWindow(ctx, userID, first, last)
}

func (r *SQLiteRepository) TransactionsForDay(ctx context.Context, userID int64, date core.Date) ([]core.Transaction, error) {
	return r.inWindow(ctx, userID, date, date)
}

// inWindow returns transactions whose active range overlaps [from, to]. ISO
// date strings compare correctly as text, and a SINGLE transaction's range
// collapses to its start date.
func (r *SQLiteRepository) inWindow(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, category, tx_type, amount_cents, start_date, end_date, frequency
		FROM transactions
		WHERE user_id = ?
		  AND start_date <= ?
		  AND (CASE WHEN frequency = 'SINGLE' THEN start_date ELSE COALESCE(end_date, ?) END) >= ?
		ORDER BY id`, userID, to.ISO(), farFuture, from.ISO())
	if err != nil {
		return nil, fmt.Errorf("select transactions in window: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	byID := make(map[int64]*core.Transaction)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	if err := r.loadExclusions(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) loadExclusions(ctx context.Context, byID map[int64]*core.Transaction) error {
	if len(byID) == 0 {
		return nil
	}

	ids := make([]any, 0, len(byID))
	placeholders := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
		placeholders = append(placeholders, "?")
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT transaction_id, excluded_on FROM transaction_exclusions
		WHERE transaction_id IN (%s)`, strings.Join(placeholders, ", ")), ids...)
	if err != nil {
		return fmt.Errorf("select exclusions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txID int64
		var raw string
		if err := rows.Scan(&txID, &raw); err != nil {
			return fmt.Errorf("scan exclusion: %w", err)
		}
		date, err := core.ParseDate(raw)
		if err != nil {
			return fmt.Errorf("exclusion date for transaction %d: %w", txID, err)
		}
		if t, ok := byID[txID]; ok {
			t.Exclusions = append(t.Exclusions, date)
		}
	}
	return rows.Err()
}

func (r *SQLiteRepository) SavingsBaseline(ctx context.Context, userID int64) (core.SavingsBaseline, error) {
	var cents int64
	var set bool
	err := r.db.QueryRowContext(ctx,
		`SELECT savings_cents, savings_set FROM users WHERE id = ?`, userID).Scan(&cents, &set)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsBaseline{}, nil
	}
	if err != nil {
		return core.SavingsBaseline{}, fmt.Errorf("select savings baseline: %w", err)
	}
	return core.SavingsBaseline{Amount: core.Money{Cents: cents}, Set: set}, nil
}

func (r *SQLiteRepository) SetSavingsBaseline(ctx context.Context, userID int64, amount core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET savings_cents = ?, savings_set = 1 WHERE id = ?`, amount.Cents, userID)
	if err != nil {
		return fmt.Errorf("update savings baseline: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u store.User) (store.User, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (first_name, username, email, password_hash)
		VALUES (?, ?, ?, ?)`,
		u.FirstName, u.Username, u.Email, u.PasswordHash)
	if err != nil {
		return store.User{}, mapConstraint(err, store.ErrUserExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.User{}, fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return u, nil
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (store.User, error) {
	var u store.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, username, email, password_hash
		FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.FirstName, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var category, txType, frequency, startDate string
	var endDate sql.NullString
	var cents int64

	if err := row.Scan(&t.ID, &t.Name, &t.Description, &category, &txType, &cents, &startDate, &endDate, &frequency); err != nil {
		return core.Transaction{}, err
	}

	t.Category = core.Category(category)
	t.Amount = core.Money{Cents: cents}

	var err error
	if t.Type, err = core.ParseTransactionType(txType); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	if t.Frequency, err = core.ParseFrequency(frequency); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	if t.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d start date: %w", t.ID, err)
	}
	if endDate.Valid {
		if t.EndDate, err = core.ParseDate(endDate.String); err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %d end date: %w", t.ID, err)
		}
	}
	return t, nil
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.ISO()
}

func mapConstraint(err error, sentinel error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return fmt.Errorf("exec statement: %w", err)
}
