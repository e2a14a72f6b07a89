package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_DeduplicatesConcurrentLoads(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	const workers = 16
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.GetOrLoad(context.Background(), "same-key", loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "value" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := calls.Load(); got < 1 || got > workers {
		t.Fatalf("unexpected loader calls: %d", got)
	}
	if v, ok := store.Get(context.Background(), "same-key"); !ok || v != "value" {
		t.Fatalf("expected cached value, got %v ok=%v", v, ok)
	}
}

func TestStore_GetOrLoad_UsesCachedValueAfterFirstLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "cached", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_ExpiresEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	store.Set(ctx, "k", 1)
	now = now.Add(59 * time.Second)
	if _, ok := store.Get(ctx, "k"); !ok {
		t.Fatalf("entry expired too early")
	}
	now = now.Add(time.Second)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatalf("entry must expire after ttl")
	}
}

func TestStore_MaxEntriesEvicts(t *testing.T) {
	store := NewStore(time.Minute, WithMaxEntries(2))
	ctx := context.Background()

	store.Set(ctx, "a", 1)
	store.Set(ctx, "b", 2)
	store.Set(ctx, "b", 3)
	if store.Len() != 2 {
		t.Fatalf("overwriting must not evict, len=%d", store.Len())
	}
	store.Set(ctx, "c", 4)
	if store.Len() != 2 {
		t.Fatalf("expected bounded size 2, got %d", store.Len())
	}
	if _, ok := store.Get(ctx, "c"); !ok {
		t.Fatalf("newest entry must be present")
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	store := NewStore(0)
	ctx := context.Background()
	store.Set(ctx, "profile:user:1", 1)
	store.Set(ctx, "profile:ids", 2)
	store.Set(ctx, "account:1", 3)

	store.DeletePrefix(ctx, "profile:")
	if store.Len() != 1 {
		t.Fatalf("expected only non-matching key left, len=%d", store.Len())
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
