package leave

import (
	"context"
	"errors"
	"strings"
	"time"

	"leave-portal/internal/cache"
	"leave-portal/internal/domain"
	leaveerrors "leave-portal/internal/leave/errors"
	"leave-portal/internal/shared/apperror"
	"leave-portal/internal/shared/contextutil"
	"leave-portal/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actor domain.Principal, req CreateLeaveRequest) (LeaveResponse, error)
	List(ctx context.Context, actor domain.Principal, targetUserID string, force bool) ([]LeaveResponse, error)
	Approve(ctx context.Context, actor domain.Principal, id, remark string) (ApprovalResponse, error)
	Reject(ctx context.Context, actor domain.Principal, id, remark string) (LeaveResponse, error)
	GetBalance(ctx context.Context, actor domain.Principal, userID string, force bool) (BalanceResponse, error)
	HistoryForUser(ctx context.Context, userID string) ([]user.LeaveHistoryItem, error)
}

type service struct {
	db     *gorm.DB
	repo   Repository
	users  user.Repository
	cache  CacheOptions
	logger *zap.Logger
}

func NewService(db *gorm.DB, repo Repository, users user.Repository, opts CacheOptions, logger ...*zap.Logger) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{db: db, repo: repo, users: users, cache: opts.withDefaults(), logger: l}
}

func (s *service) Create(ctx context.Context, actor domain.Principal, req CreateLeaveRequest) (LeaveResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)
	l.Debug("create leave requested",
		zap.String("actor_id", actor.ID),
		zap.String("type", req.Type),
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int("days", req.Days),
	)

	ownerID := canonicalID(actor.ID)
	if domain.IsElevated(actor) && strings.TrimSpace(req.UserID) != "" {
		ownerID = canonicalID(req.UserID)
	}

	from, to, err := validateCreateRequest(req)
	if err != nil {
		l.Warn("create leave validation failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrOwnerNotFound
		}
		l.Error("create leave owner lookup failed", zap.String("owner_id", ownerID), zap.Error(err))
		return LeaveResponse{}, err
	}

	leave := &Leave{
		ID:     uuid.New(),
		UserID: owner.ID,
		Type:   req.Type,
		From:   from,
		To:     to,
		Days:   req.Days,
		Status: StatusPending,
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		l.Error("create leave persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	leave.Owner = ownerProjection(*owner)

	s.cache.Invalidator.Invalidate(ctx, KeyAllLeaves, KeyLeavesFor(owner.ID.String()), KeyLeavesFor(canonicalID(actor.ID)))

	l.Info("create leave success",
		zap.String("leave_id", leave.ID.String()),
		zap.String("owner_id", ownerID),
		zap.String("actor_id", actor.ID),
	)
	return mapToResponse(*leave), nil
}

func (s *service) List(ctx context.Context, actor domain.Principal, targetUserID string, force bool) ([]LeaveResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)
	target := canonicalID(targetUserID)
	actorID := canonicalID(actor.ID)
	elevated := domain.IsElevated(actor)

	if !elevated && target != "" && target != actorID {
		l.Warn("list leaves forbidden", zap.String("actor_id", actor.ID), zap.String("target_id", target))
		return nil, apperror.ErrForbidden
	}

	scope := actorID
	key := KeyLeavesFor(actorID)
	if elevated {
		scope = target
		key = KeyAllLeaves
		if target != "" {
			key = KeyLeavesFor(target)
		}
	}

	load := func(ctx context.Context) (*[]LeaveResponse, error) {
		leaves, err := s.repo.FindAll(ctx, scope)
		if err != nil {
			return nil, err
		}
		resp := mapToListResponse(leaves)
		return &resp, nil
	}

	if force {
		l.Debug("list leaves bypassing cache", zap.String("scope", scope))
		resp, err := load(ctx)
		if err != nil {
			l.Error("list leaves failed", zap.Error(err))
			return nil, err
		}
		return *resp, nil
	}

	resp, err := cache.GetOrCompute(ctx, s.cache.Client, key, s.cache.LeavesTTL, load)
	if err != nil {
		l.Error("list leaves failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return *resp, nil
}

func (s *service) Approve(ctx context.Context, actor domain.Principal, id, remark string) (ApprovalResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)
	l.Debug("approve leave requested", zap.String("leave_id", id), zap.String("actor_id", actor.ID))

	if !domain.IsElevated(actor) {
		l.Warn("approve leave forbidden", zap.String("actor_id", actor.ID), zap.String("role", actor.Role))
		return ApprovalResponse{}, apperror.ErrForbidden
	}
	approverID, err := uuid.Parse(actor.ID)
	if err != nil {
		return ApprovalResponse{}, apperror.ErrUnauthorized
	}

	var (
		ownerID string
		owner   *user.User
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)

		leave, err := qtx.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return leaveerrors.ErrLeaveNotFound
			}
			return err
		}
		switch leave.Status {
		case StatusApproved:
			return leaveerrors.ErrLeaveAlreadyApproved
		case StatusRejected:
			return leaveerrors.ErrLeaveAlreadyDecided
		}

		if err := qtx.UpdateDecision(ctx, id, Decision{
			Status:         StatusApproved,
			ApproverID:     approverID,
			ApproverRemark: remark,
			DecidedAt:      time.Now().UTC(),
		}); err != nil {
			return err
		}
		ownerID = leave.UserID.String()

		utx := s.users.WithTx(tx)
		u, err := utx.FindByIDForUpdate(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				l.Warn("approve leave owner missing", zap.String("leave_id", id), zap.String("owner_id", ownerID))
				return nil
			}
			return err
		}

		balance := max(0, u.LeaveBalance-leave.Days)
		if err := utx.UpdateBalance(ctx, ownerID, balance); err != nil {
			return err
		}
		u.LeaveBalance = balance
		owner = u
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			l.Warn("approve leave rejected", zap.String("leave_id", id), zap.Error(err))
		} else {
			l.Error("approve leave failed", zap.String("leave_id", id), zap.Error(err))
		}
		return ApprovalResponse{}, err
	}

	s.cache.Invalidator.Invalidate(ctx, KeyAllLeaves, KeyLeavesFor(ownerID), KeyBalanceFor(ownerID))

	leave, err := s.repo.FindByID(ctx, id)
	if err != nil {
		l.Error("approve leave reload failed", zap.String("leave_id", id), zap.Error(err))
		return ApprovalResponse{}, err
	}

	resp := ApprovalResponse{Leave: mapToResponse(*leave)}
	if owner != nil {
		resp.User = &BalanceOwner{
			ID:                owner.ID.String(),
			LeaveBalance:      owner.LeaveBalance,
			TotalLeaveBalance: owner.TotalLeaveBalance,
		}
	}

	l.Info("approve leave success",
		zap.String("leave_id", id),
		zap.String("owner_id", ownerID),
		zap.String("approver_id", actor.ID),
	)
	return resp, nil
}

func (s *service) Reject(ctx context.Context, actor domain.Principal, id, remark string) (LeaveResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)
	l.Debug("reject leave requested", zap.String("leave_id", id), zap.String("actor_id", actor.ID))

	if !domain.IsElevated(actor) {
		l.Warn("reject leave forbidden", zap.String("actor_id", actor.ID), zap.String("role", actor.Role))
		return LeaveResponse{}, apperror.ErrForbidden
	}
	approverID, err := uuid.Parse(actor.ID)
	if err != nil {
		return LeaveResponse{}, apperror.ErrUnauthorized
	}

	var ownerID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)

		leave, err := qtx.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return leaveerrors.ErrLeaveNotFound
			}
			return err
		}
		// approved leaves already consumed balance
		if leave.Status == StatusApproved {
			return leaveerrors.ErrLeaveAlreadyDecided
		}
		ownerID = leave.UserID.String()

		return qtx.UpdateDecision(ctx, id, Decision{
			Status:         StatusRejected,
			ApproverID:     approverID,
			ApproverRemark: remark,
			DecidedAt:      time.Now().UTC(),
		})
	})
	if err != nil {
		l.Warn("reject leave failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}

	s.cache.Invalidator.Invalidate(ctx, KeyAllLeaves, KeyLeavesFor(ownerID))

	leave, err := s.repo.FindByID(ctx, id)
	if err != nil {
		l.Error("reject leave reload failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}

	l.Info("reject leave success", zap.String("leave_id", id), zap.String("approver_id", actor.ID))
	return mapToResponse(*leave), nil
}

func (s *service) GetBalance(ctx context.Context, actor domain.Principal, userID string, force bool) (BalanceResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)
	userID = canonicalID(userID)

	if canonicalID(actor.ID) != userID && !domain.IsElevated(actor) {
		l.Warn("get balance forbidden", zap.String("actor_id", actor.ID), zap.String("target_id", userID))
		return BalanceResponse{}, apperror.ErrForbidden
	}

	load := func(ctx context.Context) (*int, error) {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		balance := u.LeaveBalance
		return &balance, nil
	}

	var (
		balance *int
		err     error
	)
	if force {
		balance, err = load(ctx)
	} else {
		balance, err = cache.GetOrCompute(ctx, s.cache.Client, KeyBalanceFor(userID), s.cache.BalanceTTL, load)
	}
	if err != nil {
		l.Error("get balance failed", zap.String("user_id", userID), zap.Error(err))
		return BalanceResponse{}, err
	}
	if balance == nil {
		return BalanceResponse{}, leaveerrors.ErrOwnerNotFound
	}

	return BalanceResponse{UserID: userID, Balance: *balance}, nil
}

func (s *service) HistoryForUser(ctx context.Context, userID string) ([]user.LeaveHistoryItem, error) {
	leaves, err := s.repo.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]user.LeaveHistoryItem, len(leaves))
	for i, lv := range leaves {
		resp := mapToResponse(lv)
		item := user.LeaveHistoryItem{
			ID:             resp.ID,
			Type:           resp.Type,
			From:           resp.From,
			To:             resp.To,
			Days:           resp.Days,
			Status:         resp.Status,
			ApproverID:     resp.ApproverID,
			ApproverRemark: resp.ApproverRemark,
			DecidedAt:      resp.DecidedAt,
			CreatedAt:      resp.CreatedAt,
		}
		if resp.Approver != nil {
			name := resp.Approver.Name
			item.ApproverName = &name
		}
		items[i] = item
	}
	return items, nil
}

func validateCreateRequest(req CreateLeaveRequest) (time.Time, time.Time, error) {
	if strings.TrimSpace(req.Type) == "" || strings.TrimSpace(req.From) == "" ||
		strings.TrimSpace(req.To) == "" || req.Days == 0 {
		return time.Time{}, time.Time{}, leaveerrors.ErrMissingFields
	}
	if !isValidType(req.Type) {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidType
	}
	if req.Days < 0 {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDays
	}

	from, err := parseDate(req.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(req.To)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// canonicalID returns the lowercase hyphenated form of a UUID so cache keys
// and ownership checks match however the client spelled it. Anything else is
// only trimmed.
func canonicalID(id string) string {
	id = strings.TrimSpace(id)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

func isValidType(t string) bool {
	switch t {
	case TypeAnnual, TypeSick, TypeCasual:
		return true
	}
	return false
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func ownerProjection(u user.User) *LeaveOwner {
	return &LeaveOwner{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		LeaveBalance:      u.LeaveBalance,
		TotalLeaveBalance: u.TotalLeaveBalance,
	}
}

func mapToResponse(l Leave) LeaveResponse {
	resp := LeaveResponse{
		ID:             l.ID.String(),
		UserID:         l.UserID.String(),
		Type:           l.Type,
		From:           l.From.Format(dateLayout),
		To:             l.To.Format(dateLayout),
		Days:           l.Days,
		Status:         l.Status,
		ApproverRemark: l.ApproverRemark,
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      l.UpdatedAt.Format(time.RFC3339),
	}
	if l.Owner != nil {
		resp.Owner = &OwnerResponse{
			ID:                l.Owner.ID.String(),
			Name:              l.Owner.Name,
			Email:             l.Owner.Email,
			Role:              strings.ToLower(l.Owner.Role),
			LeaveBalance:      l.Owner.LeaveBalance,
			TotalLeaveBalance: l.Owner.TotalLeaveBalance,
		}
	}
	if l.ApproverID != nil {
		approverID := l.ApproverID.String()
		resp.ApproverID = &approverID
	}
	if l.Approver != nil {
		resp.Approver = &ApproverResponse{ID: l.Approver.ID.String(), Name: l.Approver.Name}
	}
	if l.DecidedAt != nil {
		decidedAt := l.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &decidedAt
	}
	return resp
}

func mapToListResponse(leaves []Leave) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
	}
	return resp
}
