package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	autherrors "leave-portal/internal/auth/errors"
	"leave-portal/internal/domain"
	"leave-portal/internal/shared/contextutil"
	"leave-portal/internal/user"
	usererrors "leave-portal/internal/user/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

//go:generate mockgen -source=auth_service.go -destination=mock/auth_service_mock.go -package=mock
type Service interface {
	Login(ctx context.Context, email, password string) (LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
	GetMe(ctx context.Context, userID string) (*AuthResponse, error)
}

type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

type service struct {
	repo   Repository
	token  TokenConfig
	now    func() time.Time
	logger *zap.Logger
}

func NewService(repo Repository, token TokenConfig, logger ...*zap.Logger) Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	if token.TTL <= 0 {
		token.TTL = 8 * time.Hour
	}
	return &service{repo: repo, token: token, now: time.Now, logger: l}
}

func (s *service) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)
	email = normalizeEmail(email)

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("login lookup failed", zap.Error(err))
			return LoginResponse{}, err
		}
		l.Warn("login unknown email", zap.String("email", email))
		return LoginResponse{}, autherrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		l.Warn("login wrong password", zap.String("user_id", u.ID.String()))
		return LoginResponse{}, autherrors.ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.token.TTL)
	token, err := s.generateToken(*u, expiresAt)
	if err != nil {
		l.Error("token generation failed", zap.Error(err))
		return LoginResponse{}, autherrors.ErrTokenGenerationFailed
	}

	l.Info("login success", zap.String("user_id", u.ID.String()), zap.String("role", u.Role))
	return LoginResponse{
		User:        mapToResponse(*u),
		AccessToken: token,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Register always creates an employee. Elevated accounts come from seeding.
func (s *service) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	u := &user.User{
		ID:                uuid.New(),
		Name:              strings.TrimSpace(req.Name),
		Email:             normalizeEmail(req.Email),
		Password:          string(hashed),
		Role:              domain.RoleEmployee,
		LeaveBalance:      user.DefaultLeaveBalance,
		TotalLeaveBalance: user.DefaultLeaveBalance,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, usererrors.ErrUserAlreadyExists) {
			l.Warn("register duplicate email", zap.String("email", u.Email))
			return AuthResponse{}, autherrors.ErrEmailAlreadyRegistered
		}
		l.Error("register persist failed", zap.Error(err))
		return AuthResponse{}, err
	}

	l.Info("register success", zap.String("user_id", u.ID.String()))
	return mapToResponse(*u), nil
}

func (s *service) GetMe(ctx context.Context, userID string) (*AuthResponse, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherrors.ErrUserNotFound
		}
		return nil, err
	}

	resp := mapToResponse(*u)
	return &resp, nil
}

func (s *service) generateToken(u user.User, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": u.ID.String(),
		"role":    strings.ToLower(u.Role),
		"name":    u.Name,
		"iat":     s.now().Unix(),
		"exp":     expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.token.Secret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapToResponse(u user.User) AuthResponse {
	return AuthResponse{
		ID:                u.ID.String(),
		Name:              u.Name,
		Email:             u.Email,
		Role:              strings.ToLower(u.Role),
		LeaveBalance:      u.LeaveBalance,
		TotalLeaveBalance: u.TotalLeaveBalance,
	}
}
