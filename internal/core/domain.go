package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Uncategorized is the bucket label for transactions without a category.
const Uncategorized = "Uncategorized"

type (
	// Kind discriminates incomes from expenses. A transaction may only
	// reference a category of its own kind.
	Kind string

	Money struct {
		Cents int64
	}

	// Category is either a global default (OwnerID nil, visible to every
	// user) or a private category owned by a single user.
	Category struct {
		ID        int64
		Name      string
		Kind      Kind
		OwnerID   *int64
		IsDefault bool
	}

	// Transaction is the tagged union over income and expense records.
	// Category is nil for uncategorized transactions.
	Transaction struct {
		ID          int64
		Kind        Kind
		OwnerID     int64
		Amount      Money
		Category    *Category
		Date        Date
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrDuplicateEmail    = errors.New("email already registered")
)

// ValidationError reports a client input failure on a specific field.
// It is surfaced to the caller as-is, never silently corrected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CategoryNotFoundError is returned whether the name does not exist or
// exists but belongs to another user. The two cases are deliberately
// indistinguishable to the caller.
type CategoryNotFoundError struct {
	Name string
	Kind Kind
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("category %q not found for %s", e.Name, e.Kind)
}

// ParseKind validates a kind string. The empty string is rejected; use
// the zero Kind directly where "both" is meant.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Income, Expense:
		return Kind(s), nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// VisibleTo reports whether the category can be seen by the given user:
// global defaults are visible to everyone, private categories only to
// their owner.
func (c Category) VisibleTo(userID int64) bool {
	return c.OwnerID == nil || *c.OwnerID == userID
}

func (c Category) Validate() error {
	if err := c.Kind.Validate(); err != nil {
		return &ValidationError{Field: "category_type", Message: "must be income or expense"}
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "cannot be blank"}
	}
	if len(name) > 100 {
		return &ValidationError{Field: "name", Message: "too long (max 100 characters)"}
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return &ValidationError{Field: "type", Message: "must be income or expense"}
	}
	if t.Amount.Cents <= 0 {
		return &ValidationError{Field: "amount", Message: "must be at least 0.01"}
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	if len(t.Description) > 500 {
		return &ValidationError{Field: "description", Message: "too long (max 500 characters)"}
	}
	if t.Category != nil && t.Category.Kind != t.Kind {
		return &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("%s category cannot be used on an %s transaction", t.Category.Kind, t.Kind),
		}
	}
	return nil
}

// CategoryName returns the referenced category name, or nil when the
// transaction is uncategorized.
func (t Transaction) CategoryName() *string {
	if t.Category == nil {
		return nil
	}
	name := t.Category.Name
	return &name
}
