package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
)

type OnboardingRepository struct {
	mu       sync.RWMutex
	profiles map[string]onboarding.Profile
}

func NewOnboardingRepository(seed ...onboarding.Profile) *OnboardingRepository {
	profiles := make(map[string]onboarding.Profile, len(seed))
	for _, p := range seed {
		profiles[p.UserID] = p
	}
	return &OnboardingRepository{profiles: profiles}
}

func (r *OnboardingRepository) GetByUserID(_ context.Context, userID string) (onboarding.Profile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return onboarding.Profile{}, false, nil
	}
	return p, true, nil
}

func (r *OnboardingRepository) Upsert(_ context.Context, profile onboarding.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[profile.UserID] = profile
	return nil
}

func (r *OnboardingRepository) ListUserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
