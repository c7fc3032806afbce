package auth

import (
	"context"

	"leave-portal/internal/user"
)

// Repository is the slice of the user store that authentication needs.
// user.Repository satisfies it.
type Repository interface {
	Create(ctx context.Context, u *user.User) error
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByID(ctx context.Context, id string) (*user.User, error)
}
