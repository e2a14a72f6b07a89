package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
)

const defaultProfileResyncWorkers = 4

type ProfileResyncInput struct {
	UserIDs    []string
	MaxWorkers int
	// DryRun reads every profile but skips writes to the target.
	DryRun bool
}

type ProfileResyncResult struct {
	ProfileCount int                 `json:"profile_count"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	SkippedCount int                 `json:"skipped_count"`
	WorkerCount  int                 `json:"worker_count"`
	Items        []ProfileResyncItem `json:"items"`
}

type ProfileResyncItem struct {
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

const (
	resyncStatusSuccess = "success"
	resyncStatusFailed  = "failed"
	resyncStatusSkipped = "skipped"
)

// ProfileResyncService copies profile documents from one store to another,
// e.g. when moving from the relational store to the document store.
type ProfileResyncService struct {
	source         onboarding.Repository
	target         onboarding.Repository
	defaultWorkers int
	logger         *logging.Logger
}

func NewProfileResyncService(source, target onboarding.Repository, defaultWorkers int, logger *logging.Logger) *ProfileResyncService {
	if defaultWorkers < 1 {
		defaultWorkers = defaultProfileResyncWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ProfileResyncService{
		source:         source,
		target:         target,
		defaultWorkers: defaultWorkers,
		logger:         logger,
	}
}

func (s *ProfileResyncService) Resync(ctx context.Context, input ProfileResyncInput) (ProfileResyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProfileResyncService.Resync")
	defer span.End()

	if s.target == nil {
		return ProfileResyncResult{}, fmt.Errorf("%w: no resync target configured", ErrInvalidInput)
	}

	userIDs := input.UserIDs
	if len(userIDs) == 0 {
		ids, err := s.source.ListUserIDs(ctx)
		if err != nil {
			return ProfileResyncResult{}, fmt.Errorf("%w: list profile ids: %w", ErrDependencyUnavailable, err)
		}
		userIDs = ids
	}

	workerCount := input.MaxWorkers
	if workerCount < 1 {
		workerCount = s.defaultWorkers
	}
	if workerCount > len(userIDs) && len(userIDs) > 0 {
		workerCount = len(userIDs)
	}

	result := ProfileResyncResult{
		ProfileCount: len(userIDs),
		WorkerCount:  workerCount,
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return ProfileResyncResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	items := make(chan ProfileResyncItem, len(userIDs))
	var successCount, failedCount, skippedCount atomic.Int32

	var workers sync.WaitGroup
	for _, userID := range userIDs {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			item := s.copyProfile(ctx, userID, input.DryRun)
			item.DurationMs = time.Since(start).Milliseconds()

			switch item.Status {
			case resyncStatusSuccess:
				successCount.Add(1)
			case resyncStatusSkipped:
				skippedCount.Add(1)
			default:
				failedCount.Add(1)
			}
			items <- item
		}); err != nil {
			workers.Done()
			return ProfileResyncResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(items)

	for item := range items {
		result.Items = append(result.Items, item)
	}
	sort.SliceStable(result.Items, func(i, j int) bool {
		return result.Items[i].UserID < result.Items[j].UserID
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.SkippedCount = int(skippedCount.Load())

	s.logger.InfoContext(ctx, "profile resync finished",
		"profiles", result.ProfileCount,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
		"skipped", result.SkippedCount,
		"workers", workerCount,
	)
	return result, nil
}

func (s *ProfileResyncService) copyProfile(ctx context.Context, userID string, dryRun bool) ProfileResyncItem {
	item := ProfileResyncItem{UserID: userID}

	profile, exists, err := s.source.GetByUserID(ctx, userID)
	if err != nil {
		item.Status = resyncStatusFailed
		item.Message = err.Error()
		return item
	}
	if !exists {
		item.Status = resyncStatusSkipped
		item.Message = "profile not found in source"
		return item
	}
	if dryRun {
		item.Status = resyncStatusSkipped
		item.Message = "dry run"
		return item
	}

	if err := s.target.Upsert(ctx, profile); err != nil {
		s.logger.WarnContext(ctx, "profile resync upsert failed", "user_id", userID, "error", err)
		item.Status = resyncStatusFailed
		item.Message = err.Error()
		return item
	}

	item.Status = resyncStatusSuccess
	return item
}
