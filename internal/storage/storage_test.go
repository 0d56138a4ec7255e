package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), email, "hashed")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, "a@example.com", "h1"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := repo.CreateUser(ctx, "a@example.com", "h2")
	if !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestDefaultCategoriesSeeded(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "seed@example.com")

	categories, err := repo.ListCategories(context.Background(), user.ID, "")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) == 0 {
		t.Fatal("expected seeded default categories")
	}

	found := false
	for _, c := range categories {
		if c.Name == "Groceries" && c.Kind == core.Expense && c.IsDefault {
			found = true
		}
	}
	if !found {
		t.Fatal("expected default Groceries expense category")
	}
}

func TestCategoryUniquenessIsCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "cat@example.com")
	ctx := context.Background()

	_, err := repo.CreateCategory(ctx, core.Category{Name: "Books", Kind: core.Expense, OwnerID: &user.ID})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	_, err = repo.CreateCategory(ctx, core.Category{Name: "BOOKS", Kind: core.Expense, OwnerID: &user.ID})
	if !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}

	// Same name under the other kind is a different category.
	if _, err := repo.CreateCategory(ctx, core.Category{Name: "Books", Kind: core.Income, OwnerID: &user.ID}); err != nil {
		t.Fatalf("same name different kind: %v", err)
	}
}

func TestFindVisibleCategoryPrefersOwned(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "resolve@example.com")
	other := newTestUser(t, repo, "other@example.com")
	ctx := context.Background()

	owned, err := repo.CreateCategory(ctx, core.Category{Name: "Salary Bonus", Kind: core.Income, OwnerID: &user.ID})
	if err != nil {
		t.Fatalf("create owned category: %v", err)
	}

	// Case-insensitive match on an owned category.
	got, err := repo.FindVisibleCategory(ctx, user.ID, "salary bonus", core.Income)
	if err != nil {
		t.Fatalf("resolve owned: %v", err)
	}
	if got.ID != owned.ID {
		t.Fatalf("expected owned category %d, got %d", owned.ID, got.ID)
	}

	// Defaults resolve for everyone.
	def, err := repo.FindVisibleCategory(ctx, user.ID, "groceries", core.Expense)
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if !def.IsDefault {
		t.Fatal("expected a default category")
	}

	// Another user's category is invisible.
	_, err = repo.FindVisibleCategory(ctx, other.ID, "Salary Bonus", core.Income)
	var notFound *core.CategoryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected CategoryNotFoundError, got %v", err)
	}

	// Kind mismatch does not resolve.
	_, err = repo.FindVisibleCategory(ctx, user.ID, "Salary Bonus", core.Expense)
	if !errors.As(err, &notFound) {
		t.Fatalf("expected CategoryNotFoundError for wrong kind, got %v", err)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "tx@example.com")
	ctx := context.Background()

	cat, err := repo.FindVisibleCategory(ctx, user.ID, "Salary", core.Income)
	if err != nil {
		t.Fatalf("resolve category: %v", err)
	}

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Kind:        core.Income,
		OwnerID:     user.ID,
		Amount:      core.Money{Cents: 150000},
		Category:    &cat,
		Date:        core.NewDate(2026, 3, 15),
		Description: "March salary",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := repo.GetTransaction(ctx, core.Income, created.ID, user.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Amount.Cents != 150000 {
		t.Errorf("amount cents = %d, want 150000", got.Amount.Cents)
	}
	if got.Category == nil || got.Category.Name != "Salary" {
		t.Errorf("category = %+v, want Salary", got.Category)
	}
	if got.Date.String() != "2026-03-15" {
		t.Errorf("date = %s, want 2026-03-15", got.Date)
	}

	// Ownership isolation.
	other := newTestUser(t, repo, "tx-other@example.com")
	if _, err := repo.GetTransaction(ctx, core.Income, created.ID, other.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}

	// Update amount and description.
	created.Amount = core.Money{Cents: 160000}
	created.Description = "March salary, adjusted"
	updated, err := repo.UpdateTransaction(ctx, created)
	if err != nil {
		t.Fatalf("update transaction: %v", err)
	}
	if updated.Amount.Cents != 160000 {
		t.Errorf("updated amount = %d, want 160000", updated.Amount.Cents)
	}

	if err := repo.DeleteTransaction(ctx, core.Income, created.ID, user.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, core.Income, created.ID, user.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteCategoryKeepsTransactions(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "setnull@example.com")
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, core.Category{Name: "Hobbies", Kind: core.Expense, OwnerID: &user.ID})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		Kind:        core.Expense,
		OwnerID:     user.ID,
		Amount:      core.Money{Cents: 2500},
		Category:    &cat,
		Date:        core.NewDate(2026, 4, 1),
		Description: "model kit",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := repo.DeleteCategory(ctx, cat.ID, user.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	got, err := repo.GetTransaction(ctx, core.Expense, tx.ID, user.ID)
	if err != nil {
		t.Fatalf("get transaction after category delete: %v", err)
	}
	if got.Category != nil {
		t.Fatalf("expected nil category after delete, got %+v", got.Category)
	}
}

func TestRenameCategoryReachesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "rename@example.com")
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, core.Category{Name: "Food", Kind: core.Expense, OwnerID: &user.ID})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		Kind: core.Expense, OwnerID: user.ID, Amount: core.Money{Cents: 1200},
		Category: &cat, Date: core.NewDate(2026, 8, 1),
	}); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if _, err := repo.UpdateCategory(ctx, cat.ID, user.ID, "Dining"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	byNew, err := repo.ListTransactions(ctx, core.Filter{OwnerID: user.ID, Kind: core.Expense, CategoryName: "Dining"})
	if err != nil {
		t.Fatalf("list by new name: %v", err)
	}
	if len(byNew) != 1 {
		t.Fatalf("filter by new name matched %d transactions, want 1", len(byNew))
	}
	if byNew[0].Category == nil || byNew[0].Category.Name != "Dining" {
		t.Fatalf("transaction category = %+v, want Dining", byNew[0].Category)
	}
	if byNew[0].Date.String() != "2026-08-01" {
		t.Fatalf("date read back as %s, want 2026-08-01", byNew[0].Date)
	}

	totals, err := repo.SumByCategory(ctx, user.ID, core.Expense, core.Period{})
	if err != nil {
		t.Fatalf("sum by category: %v", err)
	}
	if len(totals) != 1 || totals[0].Category != "Dining" {
		t.Fatalf("category bucket = %+v, want Dining", totals)
	}
}

func TestDefaultCategoryNotAddressableByID(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "detail@example.com")
	ctx := context.Background()

	def, err := repo.FindVisibleCategory(ctx, user.ID, "Groceries", core.Expense)
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if _, err := repo.GetCategory(ctx, def.ID, user.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for default by id, got %v", err)
	}

	own, err := repo.CreateCategory(ctx, core.Category{Name: "Bikes", Kind: core.Expense, OwnerID: &user.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.GetCategory(ctx, own.ID, user.ID); err != nil {
		t.Fatalf("get own category: %v", err)
	}
}

func TestDeleteDefaultCategoryRejected(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "defcat@example.com")
	ctx := context.Background()

	def, err := repo.FindVisibleCategory(ctx, user.ID, "Rent", core.Expense)
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if err := repo.DeleteCategory(ctx, def.ID, user.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting a default, got %v", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "list@example.com")
	ctx := context.Background()

	groceries, err := repo.FindVisibleCategory(ctx, user.ID, "Groceries", core.Expense)
	if err != nil {
		t.Fatalf("resolve groceries: %v", err)
	}

	seed := []struct {
		kind  core.Kind
		cents int64
		cat   *core.Category
		date  core.Date
		desc  string
	}{
		{core.Expense, 3000, &groceries, core.NewDate(2026, 5, 2), "weekly shop"},
		{core.Expense, 4500, &groceries, core.NewDate(2026, 5, 9), "weekly shop"},
		{core.Expense, 1200, nil, core.NewDate(2026, 5, 10), "coffee"},
		{core.Income, 150000, nil, core.NewDate(2026, 5, 1), "salary"},
	}
	for _, s := range seed {
		if _, err := repo.CreateTransaction(ctx, core.Transaction{
			Kind: s.kind, OwnerID: user.ID, Amount: core.Money{Cents: s.cents},
			Category: s.cat, Date: s.date, Description: s.desc,
		}); err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}

	// Kind filter with newest-first ordering.
	expenses, err := repo.ListTransactions(ctx, core.Filter{OwnerID: user.ID, Kind: core.Expense})
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(expenses))
	}
	if expenses[0].Description != "coffee" {
		t.Errorf("expected newest expense first, got %q", expenses[0].Description)
	}

	// Category filter.
	byCat, err := repo.ListTransactions(ctx, core.Filter{OwnerID: user.ID, Kind: core.Expense, CategoryName: "groceries"})
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(byCat) != 2 {
		t.Fatalf("expected 2 groceries expenses, got %d", len(byCat))
	}

	// Period filter, inclusive bounds.
	period := core.Period{Start: core.NewDate(2026, 5, 2), End: core.NewDate(2026, 5, 9)}
	inRange, err := repo.ListTransactions(ctx, core.Filter{OwnerID: user.ID, Kind: core.Expense, Period: period})
	if err != nil {
		t.Fatalf("list by period: %v", err)
	}
	if len(inRange) != 2 {
		t.Fatalf("expected 2 expenses in range, got %d", len(inRange))
	}

	// Limit.
	limited, err := repo.ListTransactions(ctx, core.Filter{OwnerID: user.ID, Kind: core.Expense, Limit: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(limited))
	}
}

func TestSums(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "sums@example.com")
	ctx := context.Background()

	groceries, err := repo.FindVisibleCategory(ctx, user.ID, "Groceries", core.Expense)
	if err != nil {
		t.Fatalf("resolve groceries: %v", err)
	}

	seed := []struct {
		kind  core.Kind
		cents int64
		cat   *core.Category
	}{
		{core.Income, 150000, nil},
		{core.Expense, 20050, &groceries},
		{core.Expense, 499, nil},
	}
	for i, s := range seed {
		if _, err := repo.CreateTransaction(ctx, core.Transaction{
			Kind: s.kind, OwnerID: user.ID, Amount: core.Money{Cents: s.cents},
			Category: s.cat, Date: core.NewDate(2026, 6, i+1), Description: "seed",
		}); err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}

	income, err := repo.SumAmount(ctx, user.ID, core.Income, core.Period{})
	if err != nil {
		t.Fatalf("sum income: %v", err)
	}
	if income.Cents != 150000 {
		t.Errorf("income total = %d, want 150000", income.Cents)
	}

	expense, err := repo.SumAmount(ctx, user.ID, core.Expense, core.Period{})
	if err != nil {
		t.Fatalf("sum expense: %v", err)
	}
	if expense.Cents != 20549 {
		t.Errorf("expense total = %d, want 20549", expense.Cents)
	}

	totals, err := repo.SumByCategory(ctx, user.ID, core.Expense, core.Period{})
	if err != nil {
		t.Fatalf("sum by category: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 category totals, got %d", len(totals))
	}
	if totals[0].Category != "Groceries" || totals[0].Total.Cents != 20050 {
		t.Errorf("largest total = %+v, want Groceries 20050", totals[0])
	}
	if totals[1].Category != core.Uncategorized || totals[1].Total.Cents != 499 {
		t.Errorf("second total = %+v, want %s 499", totals[1], core.Uncategorized)
	}

	// Empty side sums to zero.
	empty, err := repo.SumAmount(ctx, user.ID, core.Income, core.Period{
		Start: core.NewDate(2027, 1, 1),
	})
	if err != nil {
		t.Fatalf("sum empty period: %v", err)
	}
	if empty.Cents != 0 {
		t.Errorf("empty period total = %d, want 0", empty.Cents)
	}
}
