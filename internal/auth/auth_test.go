package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(store, "test-secret-key", 15*time.Minute, time.Hour, log.Discard()), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected lowercased email, got %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password must not be stored in clear")
	}

	pair, err := svc.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	id, err := svc.Authenticate(pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id != user.ID {
		t.Errorf("authenticated as %d, want %d", id, user.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var ve *core.ValidationError
	if _, err := svc.Register(ctx, "not-an-email", "long-enough"); !errors.As(err, &ve) || ve.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if _, err := svc.Register(ctx, "a@example.com", "short"); !errors.As(err, &ve) || ve.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}

	if _, err := svc.Register(ctx, "dup@example.com", "long-enough"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "dup@example.com", "long-enough"); !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob@example.com", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "bob@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "carol@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := svc.Login(ctx, "carol@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	id, err := svc.Authenticate(fresh.AccessToken)
	if err != nil {
		t.Fatalf("authenticate refreshed token: %v", err)
	}
	if id != user.ID {
		t.Errorf("refreshed token authenticates as %d, want %d", id, user.ID)
	}

	// An access token cannot stand in for a refresh token.
	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	svc, _ := newTestService(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	ctx := context.Background()
	if _, err := svc.Register(ctx, "old@example.com", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := svc.Login(ctx, "old@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.Authenticate(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	svc, _ := newTestService(t)

	ctx := context.Background()
	user, err := svc.Register(ctx, "mw@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := svc.Login(ctx, "mw@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var seen int64
	handler := Middleware(svc, log.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
	}))

	// Valid token reaches the handler with the user in context.
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen != user.ID {
		t.Errorf("handler saw user %d, want %d", seen, user.ID)
	}

	// Missing and malformed headers are rejected.
	for _, header := range []string{"", "Token abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}
