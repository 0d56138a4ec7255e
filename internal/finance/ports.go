// Package finance holds the application services: category management,
// income and expense recording, and the aggregated reporting on top of
// them.
package finance

import (
	"context"

	"fintrack/internal/core"
)

// CategoryStore is the persistence surface for categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, id, userID int64) (core.Category, error)
	ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error)
	FindVisibleCategory(ctx context.Context, userID int64, name string, kind core.Kind) (core.Category, error)
	UpdateCategory(ctx context.Context, id, userID int64, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, id, userID int64) error
}

// TransactionStore is the persistence surface for incomes and expenses.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, kind core.Kind, id, ownerID int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, kind core.Kind, id, ownerID int64) error
	ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	SumAmount(ctx context.Context, ownerID int64, kind core.Kind, period core.Period) (core.Money, error)
	SumByCategory(ctx context.Context, ownerID int64, kind core.Kind, period core.Period) ([]core.CategoryTotal, error)
}

// EventPublisher receives transaction write events. Publishing is
// best-effort and must never fail the write it describes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, action string, t core.Transaction) error
}

// SummaryInvalidator drops cached summaries for a user after a write.
type SummaryInvalidator interface {
	InvalidateUser(userID int64)
}
