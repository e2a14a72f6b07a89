package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
)

func TestProvider_CreateAndLookup(t *testing.T) {
	p := NewProvider(nil)
	ctx := context.Background()

	created, err := p.CreateUser(ctx, identity.CreateUserInput{Email: "Patient@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.UserID == "" || created.Email != "patient@example.com" || created.EmailVerified {
		t.Fatalf("unexpected account: %+v", created)
	}

	byEmail, ok, err := p.GetUserByEmail(ctx, " patient@example.com ")
	if err != nil || !ok || byEmail.UserID != created.UserID {
		t.Fatalf("lookup by email: %+v ok=%v err=%v", byEmail, ok, err)
	}
	byID, ok, err := p.GetUserByID(ctx, created.UserID)
	if err != nil || !ok || byID.Email != created.Email {
		t.Fatalf("lookup by id: %+v ok=%v err=%v", byID, ok, err)
	}

	if _, err := p.CreateUser(ctx, identity.CreateUserInput{Email: "patient@example.com"}); !errors.Is(err, identity.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if _, ok, _ := p.GetUserByEmail(ctx, "ghost@example.com"); ok {
		t.Fatalf("unexpected account for unknown email")
	}
}
