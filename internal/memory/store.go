// Package memory provides an in-memory data store used for tests and
// for running without SQLite.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
)

var defaultCategories = []struct {
	name string
	kind core.Kind
}{
	{"Salary", core.Income},
	{"Freelance", core.Income},
	{"Investments", core.Income},
	{"Other Income", core.Income},
	{"Groceries", core.Expense},
	{"Rent", core.Expense},
	{"Transport", core.Expense},
	{"Utilities", core.Expense},
	{"Entertainment", core.Expense},
	{"Healthcare", core.Expense},
	{"Other", core.Expense},
}

type Store struct {
	mu sync.RWMutex

	users        map[int64]core.User
	categories   map[int64]core.Category
	transactions map[core.Kind]map[int64]core.Transaction

	nextUserID     int64
	nextCategoryID int64
	nextTxID       int64

	now func() time.Time
}

func NewStore() *Store {
	s := &Store{
		users:      make(map[int64]core.User),
		categories: make(map[int64]core.Category),
		transactions: map[core.Kind]map[int64]core.Transaction{
			core.Income:  {},
			core.Expense: {},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, d := range defaultCategories {
		s.nextCategoryID++
		s.categories[s.nextCategoryID] = core.Category{
			ID:        s.nextCategoryID,
			Name:      d.name,
			Kind:      d.kind,
			IsDefault: true,
		}
	}
	return s
}

func (s *Store) Close() error { return nil }

// --- users ---

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return core.User{}, core.ErrDuplicateEmail
		}
	}

	s.nextUserID++
	u := core.User{
		ID:           s.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

// --- categories ---

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.Kind == c.Kind &&
			strings.EqualFold(existing.Name, c.Name) &&
			sameOwner(existing.OwnerID, c.OwnerID) {
			return core.Category{}, core.ErrDuplicateCategory
		}
	}

	s.nextCategoryID++
	c.ID = s.nextCategoryID
	c.IsDefault = c.OwnerID == nil
	s.categories[c.ID] = c
	return c, nil
}

// GetCategory fetches a category the user owns. Defaults are listed
// and resolved by name but never addressed by id.
func (s *Store) GetCategory(ctx context.Context, id, userID int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok || c.OwnerID == nil || *c.OwnerID != userID {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Category
	for _, c := range s.categories {
		if !c.VisibleTo(userID) {
			continue
		}
		if kind != "" && c.Kind != kind {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) FindVisibleCategory(ctx context.Context, userID int64, name string, kind core.Kind) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fallback *core.Category
	for id := range s.categories {
		c := s.categories[id]
		if c.Kind != kind || !strings.EqualFold(c.Name, name) || !c.VisibleTo(userID) {
			continue
		}
		if c.OwnerID != nil {
			return c, nil
		}
		fallback = &c
	}
	if fallback != nil {
		return *fallback, nil
	}
	return core.Category{}, &core.CategoryNotFoundError{Name: name, Kind: kind}
}

func (s *Store) UpdateCategory(ctx context.Context, id, userID int64, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.OwnerID == nil || *c.OwnerID != userID {
		return core.Category{}, core.ErrNotFound
	}

	for _, existing := range s.categories {
		if existing.ID != id && existing.Kind == c.Kind &&
			strings.EqualFold(existing.Name, name) &&
			sameOwner(existing.OwnerID, c.OwnerID) {
			return core.Category{}, core.ErrDuplicateCategory
		}
	}

	c.Name = name
	s.categories[id] = c

	// Transactions embed a copy of their category; rewrite them so reads
	// see the new name, the way the SQL side resolves it via join.
	for kind := range s.transactions {
		for txID, tx := range s.transactions[kind] {
			if tx.Category != nil && tx.Category.ID == id {
				renamed := c
				tx.Category = &renamed
				s.transactions[kind][txID] = tx
			}
		}
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.OwnerID == nil || *c.OwnerID != userID {
		return core.ErrNotFound
	}
	delete(s.categories, id)

	// Referencing transactions keep existing without a category.
	for kind := range s.transactions {
		for txID, tx := range s.transactions[kind] {
			if tx.Category != nil && tx.Category.ID == id {
				tx.Category = nil
				s.transactions[kind][txID] = tx
			}
		}
	}
	return nil
}

// --- transactions ---

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if _, ok := s.transactions[t.Kind]; !ok {
		return core.Transaction{}, core.ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTxID++
	t.ID = s.nextTxID
	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.transactions[t.Kind][t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, kind core.Kind, id, ownerID int64) (core.Transaction, error) {
	byID, ok := s.transactions[kind]
	if !ok {
		return core.Transaction{}, core.ErrInvalidKind
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := byID[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	byID, ok := s.transactions[t.Kind]
	if !ok {
		return core.Transaction{}, core.ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := byID[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return core.Transaction{}, core.ErrNotFound
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	byID[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, kind core.Kind, id, ownerID int64) error {
	byID, ok := s.transactions[kind]
	if !ok {
		return core.ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := byID[id]
	if !ok || t.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(byID, id)
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	kinds := []core.Kind{core.Income, core.Expense}
	if f.Kind != "" {
		if _, ok := s.transactions[f.Kind]; !ok {
			return nil, core.ErrInvalidKind
		}
		kinds = []core.Kind{f.Kind}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Transaction
	for _, kind := range kinds {
		for _, t := range s.transactions[kind] {
			if !matches(t, f) {
				continue
			}
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) SumAmount(ctx context.Context, ownerID int64, kind core.Kind, period core.Period) (core.Money, error) {
	byID, ok := s.transactions[kind]
	if !ok {
		return core.Money{}, core.ErrInvalidKind
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var total core.Money
	for _, t := range byID {
		if t.OwnerID != ownerID || !period.Contains(t.Date) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (s *Store) SumByCategory(ctx context.Context, ownerID int64, kind core.Kind, period core.Period) ([]core.CategoryTotal, error) {
	byID, ok := s.transactions[kind]
	if !ok {
		return nil, core.ErrInvalidKind
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]core.Money)
	for _, t := range byID {
		if t.OwnerID != ownerID || !period.Contains(t.Date) {
			continue
		}
		name := core.Uncategorized
		if t.Category != nil {
			name = t.Category.Name
		}
		sums[name] = sums[name].Add(t.Amount)
	}

	totals := make([]core.CategoryTotal, 0, len(sums))
	for name, total := range sums {
		totals = append(totals, core.CategoryTotal{Category: name, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total.Cents != totals[j].Total.Cents {
			return totals[i].Total.Cents > totals[j].Total.Cents
		}
		return totals[i].Category < totals[j].Category
	})
	return totals, nil
}

func matches(t core.Transaction, f core.Filter) bool {
	if t.OwnerID != f.OwnerID {
		return false
	}
	if f.CategoryName != "" {
		if t.Category == nil || !strings.EqualFold(t.Category.Name, f.CategoryName) {
			return false
		}
	}
	return f.Period.Contains(t.Date)
}

func sameOwner(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
