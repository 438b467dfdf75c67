package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// TransactionFilter narrows ListTransactions. Zero fields are ignored.
type TransactionFilter struct {
	Start      time.Time
	End        time.Time
	Type       core.TransactionType
	AccountID  string
	CategoryID string
}

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

	// Run migrations
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

// --- Accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, type, opening_balance_cents, currency, archived)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Type, a.OpeningBalance.Cents, a.CurrencyCode, boolToInt(a.IsArchived))
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, opening_balance_cents, currency, archived
		 FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, opening_balance_cents, currency, archived
		 FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, opening_balance_cents = ?, currency = ?, archived = ?
		 WHERE id = ?`,
		a.Name, a.Type, a.OpeningBalance.Cents, a.CurrencyCode, boolToInt(a.IsArchived), a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

// --- Categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, type, color, icon, archived)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Type), c.Color, c.Icon, boolToInt(c.IsArchived))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, color, icon, archived FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

// ListCategories returns every category, archived ones included, so
// report breakdowns can still resolve names for historical spending.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, color, icon, archived FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, color = ?, icon = ?, archived = ? WHERE id = ?`,
		c.Name, string(c.Type), c.Color, c.Icon, boolToInt(c.IsArchived), c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res)
}

// ArchiveCategory soft-deletes a category. Transactions keep their
// category reference so past reports stay intact.
func (r *SQLiteRepository) ArchiveCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive category: %w", err)
	}
	return requireRow(res)
}

// --- Transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, type, account_id, account_id_to, category_id, amount_cents, note, tags, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.AccountID, nullString(t.AccountIDTo), nullString(t.CategoryID),
		t.Amount.Cents, t.Note, string(tags), t.Date.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.Format("2006-01-02"))

	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, account_id, account_id_to, category_id, amount_cents, note, tags, date
		 FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT id, type, account_id, account_id_to, category_id, amount_cents, note, tags, date
	          FROM transactions WHERE 1=1`
	var args []any

	// RFC3339 UTC timestamps compare correctly as strings.
	if !f.Start.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.Start.UTC().Format(time.RFC3339))
	}
	if !f.End.IsZero() {
		query += ` AND date <= ?`
		args = append(args, f.End.UTC().Format(time.RFC3339))
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.AccountID != "" {
		query += ` AND (account_id = ? OR account_id_to = ?)`
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.CategoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	query += ` ORDER BY date DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET type = ?, account_id = ?, account_id_to = ?, category_id = ?, amount_cents = ?, note = ?, tags = ?, date = ?
		 WHERE id = ?`,
		string(t.Type), t.AccountID, nullString(t.AccountIDTo), nullString(t.CategoryID),
		t.Amount.Cents, t.Note, string(tags), t.Date.UTC().Format(time.RFC3339), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

// --- Budgets ---

// UpsertBudget creates a budget or replaces the amount of an existing
// one for the same category and period.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, category_id, period_id, amount_cents, rollover)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (category_id, period_id)
		 DO UPDATE SET amount_cents = excluded.amount_cents, rollover = excluded.rollover`,
		b.ID, b.CategoryID, b.PeriodID, b.Amount.Cents, boolToInt(b.Rollover))
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, periodID string) ([]core.Budget, error) {
	query := `SELECT id, category_id, period_id, amount_cents, rollover FROM budgets`
	var args []any
	if periodID != "" {
		query += ` WHERE period_id = ?`
		args = append(args, periodID)
	}
	query += ` ORDER BY period_id, category_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		var rollover int
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.PeriodID, &b.Amount.Cents, &rollover); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Rollover = rollover != 0
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	var archived int
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.OpeningBalance.Cents, &a.CurrencyCode, &archived)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("scan account: %w", err)
	}
	a.IsArchived = archived != 0
	return a, nil
}

func scanCategory(row rowScanner) (core.Category, error) {
	var c core.Category
	var catType string
	var archived int
	err := row.Scan(&c.ID, &c.Name, &catType, &c.Color, &c.Icon, &archived)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("scan category: %w", err)
	}
	c.Type = core.CategoryType(catType)
	c.IsArchived = archived != 0
	return c, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var txType, date, tags string
	var accountTo, categoryID sql.NullString
	err := row.Scan(&t.ID, &txType, &t.AccountID, &accountTo, &categoryID,
		&t.Amount.Cents, &t.Note, &tags, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	t.Type = core.TransactionType(txType)
	t.AccountIDTo = accountTo.String
	t.CategoryID = categoryID.String

	parsed, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return t, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	t.Date = core.Date{Time: parsed}

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return t, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
