package http

import (
	"net/http"
	"strconv"

	"fintrack/internal/core"
)

type categoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type periodResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type totalsResponse struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	Balance      string `json:"balance"`
}

type summaryResponse struct {
	Period             periodResponse          `json:"period"`
	Summary            totalsResponse          `json:"summary"`
	ExpenseByCategory  []categoryTotalResponse `json:"expense_by_category"`
	IncomeByCategory   []categoryTotalResponse `json:"income_by_category"`
	RecentTransactions []transactionResponse   `json:"recent_transactions"`
}

func toCategoryTotals(totals []core.CategoryTotal) []categoryTotalResponse {
	out := make([]categoryTotalResponse, len(totals))
	for i, t := range totals {
		out[i] = categoryTotalResponse{Category: t.Category, Total: t.Total.Decimal()}
	}
	return out
}

// handleListAllTransactions serves GET /api/transactions, the unified
// view over both sides of the ledger.
func (s *Server) handleListAllTransactions(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var kind core.Kind
	if raw := r.URL.Query().Get("type"); raw != "" {
		kind, err = core.ParseKind(raw)
		if err != nil {
			writeError(w, &core.ValidationError{Field: "type", Message: "must be income or expense"})
			return
		}
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, &core.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
	}

	views, err := s.reports.ListAll(r.Context(), requestUser(r),
		kind, r.URL.Query().Get("category"), period, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]transactionResponse, len(views))
	for i, v := range views {
		out[i] = toTransactionResponse(v)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDashboard serves GET /api/dashboard. Without explicit dates the
// period runs from the first of the current month through today.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := s.reports.Summary(r.Context(), requestUser(r), period.Start, period.End)
	if err != nil {
		writeError(w, err)
		return
	}

	recent := make([]transactionResponse, len(summary.RecentTransactions))
	for i, v := range summary.RecentTransactions {
		recent[i] = toTransactionResponse(v)
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Period: periodResponse{
			StartDate: summary.Period.Start.String(),
			EndDate:   summary.Period.End.String(),
		},
		Summary: totalsResponse{
			TotalIncome:  summary.TotalIncome.Decimal(),
			TotalExpense: summary.TotalExpense.Decimal(),
			Balance:      summary.Balance.Decimal(),
		},
		ExpenseByCategory:  toCategoryTotals(summary.ExpenseByCategory),
		IncomeByCategory:   toCategoryTotals(summary.IncomeByCategory),
		RecentTransactions: recent,
	})
}
