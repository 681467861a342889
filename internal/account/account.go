package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must not be empty")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWalletTaken        = errors.New("wallet address already in use")
	ErrInvalidWallet      = errors.New("wallet address must be at most 100 characters")
)

// MaxWalletAddressLength bounds User.WalletAddress.
const MaxWalletAddressLength = 100

// User is a registered account.
type User struct {
	ID            int64
	Username      string
	PasswordHash  []byte
	Email         string
	WalletAddress string
	CreatedAt     time.Time
}

// Session is an issued access token.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// Repository persists users and sessions.
type Repository interface {
	// CreateUser stores user and assigns its ID. Returns ErrUsernameTaken on duplicates.
	CreateUser(ctx context.Context, user *User) error
	// GetUserByUsername returns ErrUserNotFound when no user matches.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	SaveSession(ctx context.Context, session *Session) error
	// GetSession returns ErrInvalidToken when the token is unknown.
	GetSession(ctx context.Context, token string) (*Session, error)
	// GetUser returns ErrUserNotFound when no user has id.
	GetUser(ctx context.Context, id int64) (*User, error)
	// UpdateWallet sets the wallet address; an empty address clears it.
	// Returns ErrWalletTaken when another user holds the address.
	UpdateWallet(ctx context.Context, id int64, wallet string) error
	// DeleteUser removes the user with its sessions and persona data.
	DeleteUser(ctx context.Context, id int64) error
}

type userKey struct{}

// ContextWithUser marks ctx as authenticated for userID.
func ContextWithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated user ID, if any.
func UserFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userKey{}).(int64)

	return id, ok
}
