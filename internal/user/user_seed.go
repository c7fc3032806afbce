package user

import (
	"context"
	"errors"
	"strings"

	"leave-portal/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDefaults creates each account whose email is not registered yet.
// Existing accounts are left untouched, passwords included.
func SeedDefaults(ctx context.Context, repo Repository, accounts []SeedAccount, logger ...*zap.Logger) error {
	l := zap.L().Named("user.seed")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("user.seed")
	}

	for _, acc := range accounts {
		email := strings.ToLower(strings.TrimSpace(acc.Email))
		if email == "" || acc.Password == "" {
			continue
		}

		_, err := repo.FindByEmail(ctx, email)
		if err == nil {
			l.Debug("seed account exists", zap.String("email", email))
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(acc.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		u := &User{
			ID:                uuid.New(),
			Name:              acc.Name,
			Email:             email,
			Password:          string(hashed),
			Role:              domain.NormalizeRole(acc.Role),
			LeaveBalance:      DefaultLeaveBalance,
			TotalLeaveBalance: DefaultLeaveBalance,
		}
		if err := repo.Create(ctx, u); err != nil {
			return err
		}
		l.Info("seed account created", zap.String("email", email), zap.String("role", u.Role))
	}
	return nil
}
