package identity

import (
	"context"

	crerr "github.com/cockroachdb/errors"
)

var ErrEmailAlreadyExists = crerr.New("email already exists")

type CreateUserInput struct {
	Email         string
	Password      string
	EmailVerified bool
	Disabled      bool
}

// Provider is the identity backend's admin surface.
type Provider interface {
	CreateUser(ctx context.Context, input CreateUserInput) (Account, error)
	GetUserByEmail(ctx context.Context, email string) (Account, bool, error)
	GetUserByID(ctx context.Context, userID string) (Account, bool, error)
}
