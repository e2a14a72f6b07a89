package cache

import (
	"context"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	basecache "github.com/riskibarqy/patient-onboarding/internal/platform/cache"
)

const (
	profileKeyPrefix = "profile:user:"
	profileIDsKey    = "profile:ids"
)

// OnboardingRepository caches profile reads and drops the entry on every write.
type OnboardingRepository struct {
	next  onboarding.Repository
	cache *basecache.Store
}

func NewOnboardingRepository(next onboarding.Repository, cache *basecache.Store) *OnboardingRepository {
	return &OnboardingRepository{next: next, cache: cache}
}

func (r *OnboardingRepository) GetByUserID(ctx context.Context, userID string) (onboarding.Profile, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, profileKeyPrefix+userID, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return cachedProfile{value: item, exists: exists}, nil
	})
	if err != nil {
		return onboarding.Profile{}, false, err
	}

	cached, _ := v.(cachedProfile)
	return cached.value, cached.exists, nil
}

func (r *OnboardingRepository) Upsert(ctx context.Context, profile onboarding.Profile) error {
	if err := r.next.Upsert(ctx, profile); err != nil {
		return err
	}
	r.cache.Delete(ctx, profileKeyPrefix+profile.UserID)
	r.cache.Delete(ctx, profileIDsKey)
	return nil
}

func (r *OnboardingRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	v, err := r.cache.GetOrLoad(ctx, profileIDsKey, func(ctx context.Context) (any, error) {
		ids, err := r.next.ListUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		return append([]string(nil), ids...), nil
	})
	if err != nil {
		return nil, err
	}

	ids, _ := v.([]string)
	return append([]string(nil), ids...), nil
}

// Invalidate forgets every cached profile.
func (r *OnboardingRepository) Invalidate(ctx context.Context) {
	r.cache.DeletePrefix(ctx, "profile:")
}

type cachedProfile struct {
	value  onboarding.Profile
	exists bool
}
