package handlers

import (
	"context"

	"github.com/serroba/persona-api/internal/account"
	"go.uber.org/zap"
)

// AccountHandler handles registration and token issuance.
type AccountHandler struct {
	accounts *account.Service
	logger   *zap.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accounts *account.Service, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

func (h *AccountHandler) Register(ctx context.Context, req *CredentialsRequest) (*UserResponse, error) {
	user, err := h.accounts.Register(ctx, req.Body.Username, req.Body.Password)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	h.logger.Info("user registered", zap.Int64("user_id", user.ID))

	resp := &UserResponse{}
	resp.Body.ID = user.ID
	resp.Body.Username = user.Username

	return resp, nil
}

func (h *AccountHandler) IssueToken(ctx context.Context, req *CredentialsRequest) (*TokenResponse, error) {
	session, err := h.accounts.IssueToken(ctx, req.Body.Username, req.Body.Password)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	resp := &TokenResponse{}
	resp.Body.Token = session.Token
	resp.Body.ExpiresAt = session.ExpiresAt

	return resp, nil
}

func (h *AccountHandler) Profile(ctx context.Context, _ *struct{}) (*ProfileResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := h.accounts.Profile(ctx, userID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &ProfileResponse{Body: toProfileBody(user)}, nil
}

func (h *AccountHandler) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*ProfileResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := h.accounts.UpdateWallet(ctx, userID, req.Body.WalletAddress)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &ProfileResponse{Body: toProfileBody(user)}, nil
}

// DeleteAccount removes the caller's account and everything it owns.
func (h *AccountHandler) DeleteAccount(ctx context.Context, _ *struct{}) (*struct{}, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.accounts.DeleteAccount(ctx, userID); err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	h.logger.Info("account deleted", zap.Int64("user_id", userID))

	return nil, nil
}

func toProfileBody(u *account.User) ProfileBody {
	return ProfileBody{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
	}
}
