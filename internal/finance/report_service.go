package finance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// recentLimit bounds the recent-transactions strip on the dashboard.
const recentLimit = 5

// ReportService merges both sides of the ledger into unified listings
// and period summaries. Summaries are cached per user and period and
// invalidated on every write.
type ReportService struct {
	transactions TransactionStore
	summaries    *cache.LRUCache[core.Summary]
	logger       *log.Logger

	// now is injectable for deterministic period defaults in tests.
	now func() time.Time
}

func NewReportService(transactions TransactionStore, summaries *cache.LRUCache[core.Summary], logger *log.Logger) *ReportService {
	return &ReportService{
		transactions: transactions,
		summaries:    summaries,
		logger:       logger.WithComponent(log.ComponentFinance),
		now:          time.Now,
	}
}

// ListAll returns incomes and expenses interleaved, newest first. With
// an empty kind both sides are read concurrently; a set kind restricts
// the listing to that side.
func (s *ReportService) ListAll(ctx context.Context, ownerID int64, kind core.Kind, categoryName string, period core.Period, limit int) ([]core.TransactionView, error) {
	var incomes, expenses []core.Transaction

	g, gctx := errgroup.WithContext(ctx)
	if kind == "" || kind == core.Income {
		g.Go(func() error {
			var err error
			incomes, err = s.transactions.ListTransactions(gctx, core.Filter{
				OwnerID: ownerID, Kind: core.Income, CategoryName: categoryName, Period: period,
			})
			return err
		})
	}
	if kind == "" || kind == core.Expense {
		g.Go(func() error {
			var err error
			expenses, err = s.transactions.ListTransactions(gctx, core.Filter{
				OwnerID: ownerID, Kind: core.Expense, CategoryName: categoryName, Period: period,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]core.TransactionView, 0, len(incomes)+len(expenses))
	for _, t := range incomes {
		views = append(views, t.View())
	}
	for _, t := range expenses {
		views = append(views, t.View())
	}
	sortViews(views)

	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// Summary computes the dashboard for a period. A zero start defaults to
// the first day of the current month, a zero end to today.
func (s *ReportService) Summary(ctx context.Context, ownerID int64, start, end core.Date) (core.Summary, error) {
	today := core.DateOf(s.now().UTC())
	if start.IsZero() {
		start = today.FirstOfMonth()
	}
	if end.IsZero() {
		end = today
	}
	period := core.Period{Start: start, End: end}

	key := summaryKey(ownerID, period)
	if s.summaries != nil {
		if cached, ok := s.summaries.Get(key); ok {
			s.logger.DebugContext(ctx, "Summary served from cache",
				log.FieldOperation, log.OpSummary,
				log.FieldUserID, ownerID)
			return cached, nil
		}
	}

	summary := core.Summary{Period: period}
	var recentIncomes, recentExpenses []core.Transaction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.TotalIncome, err = s.transactions.SumAmount(gctx, ownerID, core.Income, period)
		return err
	})
	g.Go(func() error {
		var err error
		summary.TotalExpense, err = s.transactions.SumAmount(gctx, ownerID, core.Expense, period)
		return err
	})
	g.Go(func() error {
		var err error
		summary.IncomeByCategory, err = s.transactions.SumByCategory(gctx, ownerID, core.Income, period)
		return err
	})
	g.Go(func() error {
		var err error
		summary.ExpenseByCategory, err = s.transactions.SumByCategory(gctx, ownerID, core.Expense, period)
		return err
	})
	g.Go(func() error {
		var err error
		recentIncomes, err = s.transactions.ListTransactions(gctx, core.Filter{
			OwnerID: ownerID, Kind: core.Income, Period: period, Limit: recentLimit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		recentExpenses, err = s.transactions.ListTransactions(gctx, core.Filter{
			OwnerID: ownerID, Kind: core.Expense, Period: period, Limit: recentLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, err
	}

	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)
	summary.RecentTransactions = mergeRecent(recentIncomes, recentExpenses)

	if s.summaries != nil {
		s.summaries.Set(key, summary)
	}

	s.logger.InfoContext(ctx, "Summary computed",
		log.FieldOperation, log.OpSummary,
		log.FieldUserID, ownerID,
		log.FieldStartDate, period.Start.String(),
		log.FieldEndDate, period.End.String())
	return summary, nil
}

// InvalidateUser drops every cached summary belonging to the user.
func (s *ReportService) InvalidateUser(userID int64) {
	if s.summaries != nil {
		s.summaries.DeletePrefix(fmt.Sprintf("user:%d:", userID))
	}
}

// mergeRecent merges the newest transactions of each side and keeps the
// overall newest. Each input is already capped, so the merge can never
// need more than that cap from either side.
func mergeRecent(incomes, expenses []core.Transaction) []core.TransactionView {
	views := make([]core.TransactionView, 0, len(incomes)+len(expenses))
	for _, t := range incomes {
		views = append(views, t.View())
	}
	for _, t := range expenses {
		views = append(views, t.View())
	}
	sortViews(views)

	if len(views) > recentLimit {
		views = views[:recentLimit]
	}
	return views
}

// sortViews orders a merged listing newest first. Ties on date fall
// back to creation time, then expenses before incomes, then newer ids.
func sortViews(views []core.TransactionView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID > b.ID
	})
}

func summaryKey(userID int64, period core.Period) string {
	return fmt.Sprintf("user:%d:%s:%s", userID, period.Start, period.End)
}
