package memory

import (
	"context"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/platform/id"
)

// Provider keeps accounts in process memory; handy for local runs and tests.
type Provider struct {
	mu      sync.RWMutex
	byID    map[string]identity.Account
	byEmail map[string]string
	ids     id.Generator
	now     func() time.Time
}

func NewProvider(ids id.Generator) *Provider {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &Provider{
		byID:    make(map[string]identity.Account),
		byEmail: make(map[string]string),
		ids:     ids,
		now:     time.Now,
	}
}

func (p *Provider) CreateUser(_ context.Context, input identity.CreateUserInput) (identity.Account, error) {
	email := identity.NormalizeEmail(input.Email)
	if email == "" {
		return identity.Account{}, crerr.New("email is required")
	}

	userID, err := p.ids.NewID()
	if err != nil {
		return identity.Account{}, crerr.Wrap(err, "generate user id")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[email]; exists {
		return identity.Account{}, crerr.WithStack(identity.ErrEmailAlreadyExists)
	}

	account := identity.Account{
		UserID:        userID,
		Email:         email,
		EmailVerified: input.EmailVerified,
		Disabled:      input.Disabled,
		CreatedAt:     p.now().UTC(),
	}
	p.byID[userID] = account
	p.byEmail[email] = userID
	return account, nil
}

func (p *Provider) GetUserByEmail(_ context.Context, email string) (identity.Account, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	userID, ok := p.byEmail[identity.NormalizeEmail(email)]
	if !ok {
		return identity.Account{}, false, nil
	}
	return p.byID[userID], true, nil
}

func (p *Provider) GetUserByID(_ context.Context, userID string) (identity.Account, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	account, ok := p.byID[userID]
	return account, ok, nil
}
