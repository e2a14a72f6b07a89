package identity

import (
	"strings"
	"time"
)

// Account is the identity provider's view of a patient login.
type Account struct {
	UserID        string
	Email         string
	EmailVerified bool
	Disabled      bool
	CreatedAt     time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
