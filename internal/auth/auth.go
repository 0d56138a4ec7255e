// Package auth implements user registration, login and JWT-based
// request authentication.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the persistence surface for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

type Service struct {
	users      UserStore
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *log.Logger

	now func() time.Time
}

func NewService(users UserStore, secret string, accessTTL, refreshTTL time.Duration, logger *log.Logger) *Service {
	return &Service{
		users:      users,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger.WithComponent(log.ComponentAuth),
		now:        time.Now,
	}
}

func (s *Service) Register(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return core.User{}, &core.ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if len(password) < 8 {
		return core.User{}, &core.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, err
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, user.ID)
	return user, nil
}

// Login verifies credentials and issues a token pair. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return TokenPair{}, err
	}

	s.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID)
	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := parseToken(refreshToken, TokenTypeRefresh, s.secret)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	// The account may have been removed since the token was issued.
	if _, err := s.users.GetUserByID(ctx, claims.UserID); err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	return s.issuePair(claims.UserID)
}

// Authenticate validates an access token and returns the user id it
// was issued for.
func (s *Service) Authenticate(tokenString string) (int64, error) {
	claims, err := parseToken(tokenString, TokenTypeAccess, s.secret)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (s *Service) issuePair(userID int64) (TokenPair, error) {
	now := s.now()
	access, err := generateToken(userID, TokenTypeAccess, s.accessTTL, s.secret, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := generateToken(userID, TokenTypeRefresh, s.refreshTTL, s.secret, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
