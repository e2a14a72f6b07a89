package usecase

import (
	"context"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
)

type CredentialsInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// AuthService delegates account operations to the identity provider.
// Passwords are forwarded, never checked here.
type AuthService struct {
	provider identity.Provider
	validate *validator.Validate
	logger   *logging.Logger
}

func NewAuthService(provider identity.Provider, logger *logging.Logger) *AuthService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthService{
		provider: provider,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *AuthService) Signup(ctx context.Context, input CredentialsInput) (identity.Account, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuthService.Signup")
	defer span.End()

	input.Email = identity.NormalizeEmail(input.Email)
	if err := s.validate.StructCtx(ctx, input); err != nil {
		return identity.Account{}, fmt.Errorf("%w: %s", ErrInvalidInput, credentialsMessage(err))
	}

	account, err := s.provider.CreateUser(ctx, identity.CreateUserInput{
		Email:         input.Email,
		Password:      input.Password,
		EmailVerified: false,
		Disabled:      false,
	})
	if err != nil {
		if crerr.Is(err, ErrDependencyUnavailable) {
			return identity.Account{}, crerr.Wrap(err, "create user")
		}
		s.logger.WarnContext(ctx, "identity provider rejected signup", "email", input.Email, "error", err)
		return identity.Account{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	s.logger.InfoContext(ctx, "user created", "user_id", account.UserID)
	return account, nil
}

func (s *AuthService) Login(ctx context.Context, input CredentialsInput) (identity.Account, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuthService.Login")
	defer span.End()

	input.Email = identity.NormalizeEmail(input.Email)
	if input.Email == "" {
		return identity.Account{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	account, exists, err := s.provider.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if crerr.Is(err, ErrDependencyUnavailable) {
			return identity.Account{}, crerr.Wrap(err, "get user by email")
		}
		s.logger.WarnContext(ctx, "login lookup failed", "email", input.Email, "error", err)
		return identity.Account{}, fmt.Errorf("%w: authentication failed", ErrUnauthorized)
	}
	if !exists {
		return identity.Account{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	return account, nil
}

// CreateAccount lets the service act as the onboarding flow's auth gateway.
func (s *AuthService) CreateAccount(ctx context.Context, email, password string) (string, error) {
	account, err := s.Signup(ctx, CredentialsInput{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	return account.UserID, nil
}

func (s *AuthService) Lookup(ctx context.Context, email string) (string, error) {
	account, exists, err := s.provider.GetUserByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		return "", crerr.Wrap(err, "get user by email")
	}
	if !exists {
		return "", fmt.Errorf("%w: no account for %s", ErrNotFound, strings.TrimSpace(email))
	}
	return account.UserID, nil
}

func credentialsMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !crerr.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid credentials"
	}
	first := validationErrs[0]
	switch {
	case first.Tag() == "required":
		return strings.ToLower(first.Field()) + " is required"
	case first.Field() == "Email":
		return "email is invalid"
	case first.Field() == "Password":
		return "password must be at least 6 characters"
	default:
		return "invalid credentials"
	}
}
