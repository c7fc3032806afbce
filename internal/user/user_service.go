package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"leave-portal/internal/domain"
	"leave-portal/internal/shared/apperror"
	"leave-portal/internal/shared/contextutil"
	usererrors "leave-portal/internal/user/errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LeaveHistory returns a user's leave records, newest first.
type LeaveHistory interface {
	HistoryForUser(ctx context.Context, userID string) ([]LeaveHistoryItem, error)
}

//go:generate mockgen -source=user_service.go -destination=mock/user_service_mock.go -package=mock
type Service interface {
	List(ctx context.Context, actor domain.Principal) ([]UserResponse, error)
	Details(ctx context.Context, actor domain.Principal, id string) (UserDetailsResponse, error)
	RefreshPrincipal(ctx context.Context, p domain.Principal) (domain.Principal, error)
}

type service struct {
	repo    Repository
	history LeaveHistory
	logger  *zap.Logger
}

func NewService(repo Repository, history LeaveHistory, logger ...*zap.Logger) Service {
	l := zap.L().Named("user.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("user.service")
	}
	return &service{repo: repo, history: history, logger: l}
}

func (s *service) List(ctx context.Context, actor domain.Principal) ([]UserResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)

	if !domain.IsElevated(actor) {
		l.Warn("list users forbidden", zap.String("actor_id", actor.ID), zap.String("role", actor.Role))
		return nil, apperror.ErrForbidden
	}

	users, err := s.repo.FindAll(ctx)
	if err != nil {
		l.Error("list users failed", zap.Error(err))
		return nil, err
	}

	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = mapToResponse(u)
	}
	return resp, nil
}

func (s *service) Details(ctx context.Context, actor domain.Principal, id string) (UserDetailsResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)

	if !domain.IsElevated(actor) {
		l.Warn("user details forbidden", zap.String("actor_id", actor.ID), zap.String("target_id", id))
		return UserDetailsResponse{}, apperror.ErrForbidden
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserDetailsResponse{}, usererrors.ErrUserNotFound
		}
		l.Error("user details lookup failed", zap.String("user_id", id), zap.Error(err))
		return UserDetailsResponse{}, err
	}

	leaves := []LeaveHistoryItem{}
	if s.history != nil {
		items, err := s.history.HistoryForUser(ctx, id)
		if err != nil {
			l.Error("user leave history failed", zap.String("user_id", id), zap.Error(err))
			return UserDetailsResponse{}, err
		}
		if items != nil {
			leaves = items
		}
	}

	return UserDetailsResponse{User: mapToResponse(*u), Leaves: leaves}, nil
}

// RefreshPrincipal replaces role and name with the stored values.
func (s *service) RefreshPrincipal(ctx context.Context, p domain.Principal) (domain.Principal, error) {
	u, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		return p, err
	}
	p.Role = u.Role
	p.Name = u.Name
	return p, nil
}

func mapToResponse(u User) UserResponse {
	return UserResponse{
		ID:                u.ID.String(),
		Name:              u.Name,
		Email:             u.Email,
		Role:              strings.ToLower(u.Role),
		LeaveBalance:      u.LeaveBalance,
		TotalLeaveBalance: u.TotalLeaveBalance,
		CreatedAt:         u.CreatedAt.Format(time.RFC3339),
	}
}
