package finance

import (
	"context"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// TransactionInput carries raw client input for creating or updating a
// transaction. Amount and Date are parsed and validated here, never
// trusted as-is.
type TransactionInput struct {
	Amount      string
	Category    *string
	Date        string
	Description string
}

// TransactionService records incomes and expenses. Writes resolve the
// category by name, persist the record, invalidate cached summaries and
// publish a best-effort event.
type TransactionService struct {
	categories   CategoryStore
	transactions TransactionStore
	events       EventPublisher
	invalidator  SummaryInvalidator
	logger       *log.Logger
}

func NewTransactionService(
	categories CategoryStore,
	transactions TransactionStore,
	events EventPublisher,
	invalidator SummaryInvalidator,
	logger *log.Logger,
) *TransactionService {
	return &TransactionService{
		categories:   categories,
		transactions: transactions,
		events:       events,
		invalidator:  invalidator,
		logger:       logger.WithComponent(log.ComponentFinance),
	}
}

func (s *TransactionService) Create(ctx context.Context, ownerID int64, kind core.Kind, in TransactionInput) (core.Transaction, error) {
	t, err := s.buildTransaction(ctx, ownerID, kind, in)
	if err != nil {
		return core.Transaction{}, err
	}

	created, err := s.transactions.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	s.afterWrite(ctx, "created", created)
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID int64, kind core.Kind, id int64) (core.Transaction, error) {
	return s.transactions.GetTransaction(ctx, kind, id, ownerID)
}

// List returns one side of the ledger, newest first, with optional
// category and period filters.
func (s *TransactionService) List(ctx context.Context, ownerID int64, kind core.Kind, categoryName string, period core.Period) ([]core.TransactionView, error) {
	txs, err := s.transactions.ListTransactions(ctx, core.Filter{
		OwnerID:      ownerID,
		Kind:         kind,
		CategoryName: categoryName,
		Period:       period,
	})
	if err != nil {
		return nil, err
	}

	views := make([]core.TransactionView, len(txs))
	for i, t := range txs {
		views[i] = t.View()
	}
	return views, nil
}

// Update replaces every client-settable field of an existing
// transaction. Partial updates are not supported.
func (s *TransactionService) Update(ctx context.Context, ownerID int64, kind core.Kind, id int64, in TransactionInput) (core.Transaction, error) {
	existing, err := s.transactions.GetTransaction(ctx, kind, id, ownerID)
	if err != nil {
		return core.Transaction{}, err
	}

	t, err := s.buildTransaction(ctx, ownerID, kind, in)
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt

	updated, err := s.transactions.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	s.afterWrite(ctx, "updated", updated)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID int64, kind core.Kind, id int64) error {
	existing, err := s.transactions.GetTransaction(ctx, kind, id, ownerID)
	if err != nil {
		return err
	}

	if err := s.transactions.DeleteTransaction(ctx, kind, id, ownerID); err != nil {
		return err
	}

	s.afterWrite(ctx, "deleted", existing)
	return nil
}

// buildTransaction parses and validates raw input into a persistable
// transaction, resolving the category name among those visible to the
// owner.
func (s *TransactionService) buildTransaction(ctx context.Context, ownerID int64, kind core.Kind, in TransactionInput) (core.Transaction, error) {
	if err := kind.Validate(); err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "type", Message: "must be income or expense"}
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Message: "must be a positive number with at most 2 decimal places"}
	}

	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "date", Message: "must be a valid date in YYYY-MM-DD format"}
	}

	t := core.Transaction{
		Kind:        kind,
		OwnerID:     ownerID,
		Amount:      amount,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
	}

	if in.Category != nil && strings.TrimSpace(*in.Category) != "" {
		category, err := s.categories.FindVisibleCategory(ctx, ownerID, strings.TrimSpace(*in.Category), kind)
		if err != nil {
			return core.Transaction{}, err
		}
		t.Category = &category
	}

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// afterWrite handles the side effects of a successful write. Neither a
// failed event publish nor cache invalidation may fail the write.
func (s *TransactionService) afterWrite(ctx context.Context, action string, t core.Transaction) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(t.OwnerID)
	}

	s.logger.InfoContext(ctx, "Transaction "+action,
		log.FieldOperation, action,
		log.FieldUserID, t.OwnerID,
		log.FieldKind, string(t.Kind),
		log.FieldTxID, t.ID,
		log.FieldAmount, t.Amount.Cents)

	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, action, t); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldOperation, action,
			log.FieldTxID, t.ID,
			log.FieldError, err)
	}
}
