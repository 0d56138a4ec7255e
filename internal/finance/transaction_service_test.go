package finance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishTransactionEvent(ctx context.Context, action string, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, action)
	return nil
}

func newTxFixture(t *testing.T) (*TransactionService, *recordingPublisher, *memory.Store, int64) {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	svc := NewTransactionService(store, store, pub, nil, log.Discard())

	u, err := store.CreateUser(context.Background(), "tx@example.com", "h")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return svc, pub, store, u.ID
}

func TestCreateTransactionResolvesCategory(t *testing.T) {
	svc, pub, _, userID := newTxFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, userID, core.Expense, TransactionInput{
		Amount:      "12.50",
		Category:    strptr("groceries"),
		Date:        "2026-08-15",
		Description: "market",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Amount.Cents != 1250 {
		t.Errorf("amount = %d cents, want 1250", created.Amount.Cents)
	}
	if created.Category == nil || created.Category.Name != "Groceries" {
		t.Errorf("category = %+v, want resolved Groceries", created.Category)
	}
	if len(pub.events) != 1 || pub.events[0] != "created" {
		t.Errorf("published events = %v, want [created]", pub.events)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	svc, _, _, userID := newTxFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    TransactionInput
		field string
	}{
		{"zero amount", TransactionInput{Amount: "0", Date: "2026-08-01"}, "amount"},
		{"negative amount", TransactionInput{Amount: "-5.00", Date: "2026-08-01"}, "amount"},
		{"three decimals", TransactionInput{Amount: "1.005", Date: "2026-08-01"}, "amount"},
		{"not a number", TransactionInput{Amount: "ten", Date: "2026-08-01"}, "amount"},
		{"missing date", TransactionInput{Amount: "5.00"}, "date"},
		{"bad date", TransactionInput{Amount: "5.00", Date: "2026-13-40"}, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, userID, core.Expense, tc.in)
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %s, want %s", ve.Field, tc.field)
			}
		})
	}
}

func TestCreateTransactionUnknownCategory(t *testing.T) {
	svc, pub, _, userID := newTxFixture(t)

	_, err := svc.Create(context.Background(), userID, core.Expense, TransactionInput{
		Amount: "5.00", Category: strptr("No Such Thing"), Date: "2026-08-01",
	})
	var notFound *core.CategoryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected CategoryNotFoundError, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("no event should be published on failure, got %v", pub.events)
	}
}

func TestCreateTransactionKindMismatch(t *testing.T) {
	svc, _, _, userID := newTxFixture(t)

	// Salary is an income category; an expense cannot use it.
	_, err := svc.Create(context.Background(), userID, core.Expense, TransactionInput{
		Amount: "5.00", Category: strptr("Salary"), Date: "2026-08-01",
	})
	var notFound *core.CategoryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected CategoryNotFoundError for cross-kind category, got %v", err)
	}
}

func TestUpdateTransactionReplacesFields(t *testing.T) {
	svc, pub, _, userID := newTxFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, userID, core.Expense, TransactionInput{
		Amount: "10.00", Category: strptr("Groceries"), Date: "2026-08-01", Description: "before",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, userID, core.Expense, created.ID, TransactionInput{
		Amount: "11.00", Date: "2026-08-02", Description: "after",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount.Cents != 1100 || updated.Description != "after" {
		t.Errorf("updated = %+v", updated)
	}
	// The update carried no category, so the transaction loses it.
	if updated.Category != nil {
		t.Errorf("category = %+v, want nil after full replace", updated.Category)
	}
	if len(pub.events) != 2 || pub.events[1] != "updated" {
		t.Errorf("events = %v, want [created updated]", pub.events)
	}
}

func TestDeleteTransactionPublishesLastState(t *testing.T) {
	svc, pub, _, userID := newTxFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, userID, core.Income, TransactionInput{
		Amount: "100.00", Date: "2026-08-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, userID, core.Income, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, userID, core.Income, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if len(pub.events) != 2 || pub.events[1] != "deleted" {
		t.Errorf("events = %v, want [created deleted]", pub.events)
	}
}

func TestUpdateForeignTransactionNotFound(t *testing.T) {
	svc, _, store, userID := newTxFixture(t)
	ctx := context.Background()

	other, err := store.CreateUser(ctx, "foreign@example.com", "h")
	if err != nil {
		t.Fatalf("create other user: %v", err)
	}
	created, err := svc.Create(ctx, other.ID, core.Expense, TransactionInput{
		Amount: "5.00", Date: "2026-08-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(ctx, userID, core.Expense, created.ID, TransactionInput{
		Amount: "6.00", Date: "2026-08-01",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, userID, core.Expense, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}
