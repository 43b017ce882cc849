package service

import (
	"context"

	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/util"

	"go.uber.org/zap"
)

// AccountService handles account reads and soft deletion.
type AccountService struct {
	users  UserStore
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(users UserStore) *AccountService {
	return &AccountService{users: users, logger: util.GetLogger()}
}

// GetByID returns an active account.
func (s *AccountService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if user == nil || user.IsDeleted {
		return nil, NewNotFoundError("user not found")
	}
	return user, nil
}

// Delete soft-deletes the account and, in the same database transaction,
// soft-deletes every class offer the user published so they stop showing up
// in listings.
func (s *AccountService) Delete(ctx context.Context, userID int64) error {
	ctx, span := util.StartSpan(ctx, "AccountService.Delete")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return NewInternalError(err)
	}
	if user == nil || user.IsDeleted {
		return NewNotFoundError("user not found")
	}

	if err := s.users.SoftDeleteUserCascade(ctx, userID); err != nil {
		return NewInternalError(err)
	}

	s.logger.Info("Account soft-deleted", zap.Int64("user_id", userID))
	return nil
}
