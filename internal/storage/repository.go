package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Enforce foreign keys on every pooled connection.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
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

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// tableFor maps a transaction kind to its backing table. Incomes and
// expenses live in separate tables with identical shapes.
func tableFor(kind core.Kind) (string, error) {
	switch kind {
	case core.Income:
		return "incomes", nil
	case core.Expense:
		return "expenses", nil
	default:
		return "", core.ErrInvalidKind
	}
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`,
		email, passwordHash, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}

	return core.User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, kind, owner_id) VALUES (?, ?, ?)`,
		c.Name, string(c.Kind), c.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}

	c.ID = id
	c.IsDefault = c.OwnerID == nil
	return c, nil
}

// GetCategory fetches a category the user owns. Defaults are listed
// and resolved by name but never addressed by id.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id, userID int64) (core.Category, error) {
	var (
		c       core.Category
		ownerID int64
		kind    string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, owner_id FROM categories
		 WHERE id = ? AND owner_id = ?`, id, userID).
		Scan(&c.ID, &c.Name, &kind, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}

	c.Kind = core.Kind(kind)
	c.OwnerID = &ownerID
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	query := `SELECT id, name, kind, owner_id FROM categories
	          WHERE (owner_id IS NULL OR owner_id = ?)`
	args := []any{userID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name COLLATE NOCASE ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var (
			c       core.Category
			k       string
			ownerID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &k, &ownerID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(k)
		if ownerID.Valid {
			c.OwnerID = &ownerID.Int64
		}
		c.IsDefault = !ownerID.Valid
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// FindVisibleCategory resolves a category by name, case-insensitively,
// among the categories visible to the user. A category owned by the
// user wins over a default with the same name.
func (r *SQLiteRepository) FindVisibleCategory(ctx context.Context, userID int64, name string, kind core.Kind) (core.Category, error) {
	var (
		c       core.Category
		k       string
		ownerID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, owner_id FROM categories
		 WHERE lower(name) = lower(?) AND kind = ?
		   AND (owner_id IS NULL OR owner_id = ?)
		 ORDER BY owner_id IS NULL ASC
		 LIMIT 1`, name, string(kind), userID).
		Scan(&c.ID, &c.Name, &k, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, &core.CategoryNotFoundError{Name: name, Kind: kind}
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find visible category: %w", err)
	}

	c.Kind = core.Kind(k)
	if ownerID.Valid {
		c.OwnerID = &ownerID.Int64
	}
	c.IsDefault = !ownerID.Valid
	return c, nil
}

// UpdateCategory renames a user-owned category. Defaults cannot be edited.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id, userID int64, name string) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ? AND owner_id = ?`,
		name, id, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Category{}, fmt.Errorf("update category rows affected: %w", err)
	}
	if affected == 0 {
		return core.Category{}, core.ErrNotFound
	}
	return r.GetCategory(ctx, id, userID)
}

// DeleteCategory removes a user-owned category. Transactions that
// referenced it keep existing with a NULL category.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND owner_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	table, err := tableFor(t.Kind)
	if err != nil {
		return core.Transaction{}, err
	}

	var categoryID any
	if t.Category != nil {
		categoryID = t.Category.ID
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (owner_id, amount_cents, category_id, date, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID, t.Amount.Cents, categoryID, t.Date.String(), t.Description, now, now)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create %s: %w", t.Kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%s insert id: %w", t.Kind, err)
	}

	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, kind core.Kind, id, ownerID int64) (core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Transaction{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.owner_id, t.amount_cents, t.date, t.description, t.created_at, t.updated_at,
		        c.id, c.name, c.kind, c.owner_id
		 FROM `+table+` t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.id = ? AND t.owner_id = ?`, id, ownerID)

	t, err := scanTransaction(row, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get %s: %w", kind, err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	table, err := tableFor(t.Kind)
	if err != nil {
		return core.Transaction{}, err
	}

	var categoryID any
	if t.Category != nil {
		categoryID = t.Category.ID
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+`
		 SET amount_cents = ?, category_id = ?, date = ?, description = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		t.Amount.Cents, categoryID, t.Date.String(), t.Description, now, t.ID, t.OwnerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update %s: %w", t.Kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update %s rows affected: %w", t.Kind, err)
	}
	if affected == 0 {
		return core.Transaction{}, core.ErrNotFound
	}

	return r.GetTransaction(ctx, t.Kind, t.ID, t.OwnerID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, kind core.Kind, id, ownerID int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows affected: %w", kind, err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListTransactions returns transactions matching the filter, newest
// first by date then creation time. When the filter names no kind both
// tables are read.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	kinds := []core.Kind{core.Income, core.Expense}
	if f.Kind != "" {
		kinds = []core.Kind{f.Kind}
	}

	var out []core.Transaction
	for _, kind := range kinds {
		txs, err := r.listKind(ctx, kind, f)
		if err != nil {
			return nil, err
		}
		out = append(out, txs...)
	}
	return out, nil
}

func (r *SQLiteRepository) listKind(ctx context.Context, kind core.Kind, f core.Filter) ([]core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT t.id, t.owner_id, t.amount_cents, t.date, t.description, t.created_at, t.updated_at,
	                 c.id, c.name, c.kind, c.owner_id
	          FROM ` + table + ` t
	          LEFT JOIN categories c ON c.id = t.category_id
	          WHERE t.owner_id = ?`
	args := []any{f.OwnerID}

	if f.CategoryName != "" {
		query += ` AND lower(c.name) = lower(?)`
		args = append(args, f.CategoryName)
	}
	if !f.Period.Start.IsZero() {
		query += ` AND t.date >= ?`
		args = append(args, f.Period.Start.String())
	}
	if !f.Period.End.IsZero() {
		query += ` AND t.date <= ?`
		args = append(args, f.Period.End.String())
	}

	query += ` ORDER BY t.date DESC, t.created_at DESC, t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return txs, nil
}

// SumAmount totals one side of the ledger over a period.
func (r *SQLiteRepository) SumAmount(ctx context.Context, ownerID int64, kind core.Kind, period core.Period) (core.Money, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Money{}, err
	}

	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM ` + table + ` WHERE owner_id = ?`
	args := []any{ownerID}
	if !period.Start.IsZero() {
		query += ` AND date >= ?`
		args = append(args, period.Start.String())
	}
	if !period.End.IsZero() {
		query += ` AND date <= ?`
		args = append(args, period.End.String())
	}

	var cents int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum %s: %w", kind, err)
	}
	return core.Money{Cents: cents}, nil
}

// SumByCategory groups one side of the ledger by category name over a
// period. Transactions without a category group under the
// uncategorized label.
func (r *SQLiteRepository) SumByCategory(ctx context.Context, ownerID int64, kind core.Kind, period core.Period) ([]core.CategoryTotal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT COALESCE(c.name, ?), COALESCE(SUM(t.amount_cents), 0)
	          FROM ` + table + ` t
	          LEFT JOIN categories c ON c.id = t.category_id
	          WHERE t.owner_id = ?`
	args := []any{core.Uncategorized, ownerID}
	if !period.Start.IsZero() {
		query += ` AND t.date >= ?`
		args = append(args, period.Start.String())
	}
	if !period.End.IsZero() {
		query += ` AND t.date <= ?`
		args = append(args, period.End.String())
	}
	query += ` GROUP BY COALESCE(c.name, ?) ORDER BY SUM(t.amount_cents) DESC`
	args = append(args, core.Uncategorized)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum %s by category: %w", kind, err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var (
			name  string
			cents int64
		)
		if err := rows.Scan(&name, &cents); err != nil {
			return nil, fmt.Errorf("scan %s category total: %w", kind, err)
		}
		totals = append(totals, core.CategoryTotal{Category: name, Total: core.Money{Cents: cents}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s category totals: %w", kind, err)
	}
	return totals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner, kind core.Kind) (core.Transaction, error) {
	var (
		t           core.Transaction
		date        time.Time
		catID       sql.NullInt64
		catName     sql.NullString
		catKind     sql.NullString
		catOwner    sql.NullInt64
		amountCents int64
	)
	// The date column is declared DATE, so the driver hands it back as a
	// time.Time rather than the stored string.
	err := row.Scan(&t.ID, &t.OwnerID, &amountCents, &date, &t.Description,
		&t.CreatedAt, &t.UpdatedAt, &catID, &catName, &catKind, &catOwner)
	if err != nil {
		return core.Transaction{}, err
	}

	t.Kind = kind
	t.Amount = core.Money{Cents: amountCents}
	t.Date = core.DateOf(date.UTC())

	if catID.Valid {
		c := core.Category{
			ID:        catID.Int64,
			Name:      catName.String,
			Kind:      core.Kind(catKind.String),
			IsDefault: !catOwner.Valid,
		}
		if catOwner.Valid {
			c.OwnerID = &catOwner.Int64
		}
		t.Category = &c
	}
	return t, nil
}
