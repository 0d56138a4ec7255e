package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/finance"
)

type transactionRequest struct {
	Amount      string  `json:"amount"`
	Category    *string `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

func (req transactionRequest) input() finance.TransactionInput {
	return finance.TransactionInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        req.Date,
		Description: req.Description,
	}
}

type transactionResponse struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Amount      string  `json:"amount"`
	Category    *string `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toTransactionResponse(v core.TransactionView) transactionResponse {
	return transactionResponse{
		ID:          v.ID,
		Type:        string(v.Kind),
		Amount:      v.Amount.Decimal(),
		Category:    v.Category,
		Date:        v.Date.String(),
		Description: v.Description,
		CreatedAt:   v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleCreateTransaction serves both POST /api/incomes and
// POST /api/expenses; the kind is fixed per route.
func (s *Server) handleCreateTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transactionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}

		created, err := s.transactions.Create(r.Context(), requestUser(r), kind, req.input())
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toTransactionResponse(created.View()))
	}
}

func (s *Server) handleListTransactionsOfKind(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := parsePeriod(r)
		if err != nil {
			writeError(w, err)
			return
		}

		views, err := s.transactions.List(r.Context(), requestUser(r), kind,
			r.URL.Query().Get("category"), period)
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
}

func (s *Server) handleGetTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		t, err := s.transactions.Get(r.Context(), requestUser(r), kind, id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTransactionResponse(t.View()))
	}
}

func (s *Server) handleUpdateTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var req transactionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}

		updated, err := s.transactions.Update(r.Context(), requestUser(r), kind, id, req.input())
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTransactionResponse(updated.View()))
	}
}

func (s *Server) handleDeleteTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		if err := s.transactions.Delete(r.Context(), requestUser(r), kind, id); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
