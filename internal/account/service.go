package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// TokenGenerator produces opaque access tokens.
type TokenGenerator func() string

// Service registers users and issues access tokens.
type Service struct {
	repo          Repository
	generateToken TokenGenerator
	ttl           time.Duration
	hashCost      int
	now           func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) ServiceOption {
	return func(s *Service) {
		s.hashCost = cost
	}
}

// WithServiceClock replaces time.Now as the service's time source.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an account service issuing tokens valid for ttl.
func NewService(repo Repository, generator TokenGenerator, ttl time.Duration, opts ...ServiceOption) *Service {
	s := &Service{
		repo:          repo,
		generateToken: generator,
		ttl:           ttl,
		hashCost:      bcrypt.DefaultCost,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// IssueToken verifies credentials and starts a new session.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) IssueToken(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		Token:     s.generateToken(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl),
	}

	if err := s.repo.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Resolve returns the user owning a live session token.
func (s *Service) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return 0, err
	}

	if !s.now().Before(session.ExpiresAt) {
		return 0, ErrInvalidToken
	}

	return session.UserID, nil
}

// Profile returns the user behind userID.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetUser(ctx, userID)
}

// UpdateWallet sets or clears the user's wallet address and returns the
// updated profile.
func (s *Service) UpdateWallet(ctx context.Context, userID int64, wallet string) (*User, error) {
	wallet = strings.TrimSpace(wallet)
	if utf8.RuneCountInString(wallet) > MaxWalletAddressLength {
		return nil, ErrInvalidWallet
	}

	if err := s.repo.UpdateWallet(ctx, userID, wallet); err != nil {
		return nil, err
	}

	return s.repo.GetUser(ctx, userID)
}

// DeleteAccount removes the user and everything it owns. Its tokens stop
// resolving immediately.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	return s.repo.DeleteUser(ctx, userID)
}
