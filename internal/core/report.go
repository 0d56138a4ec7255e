package core

import "time"

// TransactionView is the common shape income and expense records are
// mapped to when merged into one list. Category is nil when the record
// is uncategorized.
type TransactionView struct {
	ID          int64
	Kind        Kind
	Amount      Money
	Category    *string
	Date        Date
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View maps a transaction to its merged-list representation.
func (t Transaction) View() TransactionView {
	return TransactionView{
		ID:          t.ID,
		Kind:        t.Kind,
		Amount:      t.Amount,
		Category:    t.CategoryName(),
		Date:        t.Date,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// CategoryTotal is an amount aggregated by category name. Category is
// Uncategorized for records without one.
type CategoryTotal struct {
	Category string
	Total    Money
}

// Period is an inclusive date range.
type Period struct {
	Start Date
	End   Date
}

// Contains reports whether the date falls inside the period, bounds
// included. A zero bound leaves that side open.
func (p Period) Contains(d Date) bool {
	if !p.Start.IsZero() && d.Before(p.Start.Time) {
		return false
	}
	if !p.End.IsZero() && d.After(p.End.Time) {
		return false
	}
	return true
}

// Summary is the dashboard aggregate over one period.
type Summary struct {
	Period             Period
	TotalIncome        Money
	TotalExpense       Money
	Balance            Money
	IncomeByCategory   []CategoryTotal
	ExpenseByCategory  []CategoryTotal
	RecentTransactions []TransactionView
}

// Filter narrows a single-kind transaction query. OwnerID is always
// required: queries are scoped to one user's records by construction.
type Filter struct {
	OwnerID      int64
	Kind         Kind
	CategoryName string // case-insensitive exact match; uncategorized records never match
	Period       Period
	Limit        int // 0 = no limit
}
