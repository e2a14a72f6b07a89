package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
)

// SessionListener is told when the active user identity changes.
// current is empty after sign-out.
type SessionListener interface {
	OnSessionChanged(ctx context.Context, previous, current string)
}

type SessionListenerFunc func(ctx context.Context, previous, current string)

func (f SessionListenerFunc) OnSessionChanged(ctx context.Context, previous, current string) {
	f(ctx, previous, current)
}

// SessionObserver tracks the active user id and fans identity changes out
// to the registered listeners, once per change. Changes are delivered in the
// order they were recorded; listeners must not call Observe themselves.
type SessionObserver struct {
	// notify is held from recording a change until every listener saw it.
	notify    sync.Mutex
	mu        sync.Mutex
	current   string
	listeners []SessionListener
	logger    *logging.Logger
}

func NewSessionObserver(logger *logging.Logger, listeners ...SessionListener) *SessionObserver {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionObserver{
		listeners: append([]SessionListener(nil), listeners...),
		logger:    logger,
	}
}

func (o *SessionObserver) Subscribe(listener SessionListener) {
	if listener == nil {
		return
	}
	o.mu.Lock()
	o.listeners = append(o.listeners, listener)
	o.mu.Unlock()
}

func (o *SessionObserver) Current() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Observe records userID as the active identity. It returns true and notifies
// listeners only when the identity differs from the previous one.
func (o *SessionObserver) Observe(ctx context.Context, userID string) bool {
	userID = strings.TrimSpace(userID)

	o.notify.Lock()
	defer o.notify.Unlock()

	o.mu.Lock()
	previous := o.current
	if previous == userID {
		o.mu.Unlock()
		return false
	}
	o.current = userID
	listeners := append([]SessionListener(nil), o.listeners...)
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "session identity changed",
		"previous_user_id", previous,
		"user_id", userID,
	)
	for _, listener := range listeners {
		listener.OnSessionChanged(ctx, previous, userID)
	}
	return true
}
