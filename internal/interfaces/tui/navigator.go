package tui

import (
	"context"
	"sync"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
)

type navKind int

const (
	navAdvance navKind = iota
	navBack
	navComplete
)

type navEvent struct {
	kind   navKind
	step   onboarding.Step
	userID string
}

// recordingNavigator queues step transitions reported by the controller.
// Controller calls run inside tea commands, so the App drains the queue once
// the command returns and applies the transitions on the update loop.
type recordingNavigator struct {
	mu     sync.Mutex
	events []navEvent
}

func (n *recordingNavigator) Advance(_ context.Context, step onboarding.Step, userID string) {
	n.push(navEvent{kind: navAdvance, step: step, userID: userID})
}

func (n *recordingNavigator) Back(_ context.Context, step onboarding.Step) {
	n.push(navEvent{kind: navBack, step: step})
}

func (n *recordingNavigator) Complete(_ context.Context, userID string) {
	n.push(navEvent{kind: navComplete, step: onboarding.StepHealth, userID: userID})
}

func (n *recordingNavigator) push(ev navEvent) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNavigator) drain() []navEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.events
	n.events = nil
	return out
}
