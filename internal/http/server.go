// Package http exposes the JSON API: registration and tokens, category
// management, income and expense recording, the unified transaction
// listing and the dashboard summary.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/finance"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/trace"
)

type Server struct {
	http.Server

	auth         *auth.Service
	categories   *finance.CategoryService
	transactions *finance.TransactionService
	reports      *finance.ReportService
	logger       *log.Logger

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(
	cfg *config.Config,
	authService *auth.Service,
	categories *finance.CategoryService,
	transactions *finance.TransactionService,
	reports *finance.ReportService,
	logger *log.Logger,
) *Server {
	s := &Server{
		auth:         authService,
		categories:   categories,
		transactions: transactions,
		reports:      reports,
		logger:       logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
	}

	s.Server = http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleHealth)

	// Public routes: account creation and token exchange.
	mux.HandleFunc("POST /api/user/register", s.handleRegister)
	mux.HandleFunc("POST /api/token", s.handleLogin)
	mux.HandleFunc("POST /api/token/refresh", s.handleRefresh)

	// Everything else requires a valid access token.
	authed := http.NewServeMux()
	authed.HandleFunc("GET /api/categories", s.handleListCategories)
	authed.HandleFunc("POST /api/categories", s.handleCreateCategory)
	authed.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	authed.HandleFunc("PUT /api/categories/{id}", s.handleRenameCategory)
	authed.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	for _, route := range []struct {
		path string
		kind core.Kind
	}{
		{"/api/incomes", core.Income},
		{"/api/expenses", core.Expense},
	} {
		authed.HandleFunc("GET "+route.path, s.handleListTransactionsOfKind(route.kind))
		authed.HandleFunc("POST "+route.path, s.handleCreateTransaction(route.kind))
		authed.HandleFunc("GET "+route.path+"/{id}", s.handleGetTransaction(route.kind))
		authed.HandleFunc("PUT "+route.path+"/{id}", s.handleUpdateTransaction(route.kind))
		authed.HandleFunc("DELETE "+route.path+"/{id}", s.handleDeleteTransaction(route.kind))
	}

	authed.HandleFunc("GET /api/transactions", s.handleListAllTransactions)
	authed.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.Handle("/api/", auth.Middleware(s.auth, s.logger)(authed))

	traced := trace.NewMiddleware(extractClientIP, s.logger)
	limited := s.limiter.Middleware(extractClientIP, nil)

	return traced.Middleware(limited(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown stops the rate limiter cleanup goroutine and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// extractClientIP resolves the client address, honoring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
