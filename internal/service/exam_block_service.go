package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const activeExamBlocksCacheKey = "exam-blocks:active"

// ExamBlockRepository lists the blocks currently flagged active.
type ExamBlockRepository interface {
	ListActive(ctx context.Context) ([]models.ExamBlock, error)
}

// BatchDirectory resolves course and class membership from a batch list.
type BatchDirectory struct {
	courses map[string]string
	classes map[string]string
}

// NewBatchDirectory indexes batches by id. Batches without a course or class are left out of that index.
func NewBatchDirectory(batches []models.Batch) *BatchDirectory {
	d := &BatchDirectory{courses: make(map[string]string), classes: make(map[string]string)}
	for _, b := range batches {
		if b.CourseID != nil && *b.CourseID != "" {
			d.courses[b.ID] = *b.CourseID
		}
		if b.ClassID != nil && *b.ClassID != "" {
			d.classes[b.ID] = *b.ClassID
		}
	}
	return d
}

// CourseOf implements BatchMembership.
func (d *BatchDirectory) CourseOf(batchID string) (string, bool) {
	course, ok := d.courses[batchID]
	return course, ok
}

// ClassOf implements BatchMembership.
func (d *BatchDirectory) ClassOf(batchID string) (string, bool) {
	class, ok := d.classes[batchID]
	return class, ok
}

// ExamBlockService loads active blocks lazily, caches them and answers slot checks.
type ExamBlockService struct {
	repo   ExamBlockRepository
	cache  *CacheService
	opts   []ResolverOption
	logger *zap.Logger
	ttl    time.Duration

	mu       sync.RWMutex
	resolver *ExamBlockResolver
}

// NewExamBlockService constructs the service. cache may be nil.
func NewExamBlockService(repo ExamBlockRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger, opts ...ResolverOption) *ExamBlockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamBlockService{repo: repo, cache: cache, ttl: ttl, logger: logger, opts: opts}
}

// IsSlotBlocked reports whether an active block pre-empts period on date for batchID.
func (s *ExamBlockService) IsSlotBlocked(ctx context.Context, date time.Time, period int, batchID string) (models.BlockCheckResult, error) {
	resolver, err := s.current(ctx)
	if err != nil {
		return models.BlockCheckResult{}, err
	}
	return resolver.IsSlotBlocked(date, period, batchID), nil
}

// BlocksForDate lists the active blocks matching date regardless of scope.
func (s *ExamBlockService) BlocksForDate(ctx context.Context, date time.Time) ([]models.ExamBlock, error) {
	resolver, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.BlocksForDate(date), nil
}

// ListActive returns every valid active block in evaluation order.
func (s *ExamBlockService) ListActive(ctx context.Context) ([]models.ExamBlock, error) {
	resolver, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.Blocks(), nil
}

// Refresh drops the cached block set so the next call reloads from the repository.
func (s *ExamBlockService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.resolver = nil
	s.mu.Unlock()
	if err := s.cache.Invalidate(ctx, activeExamBlocksCacheKey); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate exam block cache")
	}
	_, err := s.current(ctx)
	return err
}

func (s *ExamBlockService) current(ctx context.Context) (*ExamBlockResolver, error) {
	s.mu.RLock()
	resolver := s.resolver
	s.mu.RUnlock()
	if resolver != nil {
		return resolver, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolver != nil {
		return s.resolver, nil
	}

	var blocks []models.ExamBlock
	if !s.cache.Get(ctx, activeExamBlocksCacheKey, &blocks) {
		loaded, err := s.repo.ListActive(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam blocks")
		}
		blocks = s.validBlocks(loaded)
		s.cache.Set(ctx, activeExamBlocksCacheKey, blocks, s.ttl)
	}

	s.resolver = NewExamBlockResolver(blocks, s.opts...)
	s.logger.Debug("exam blocks loaded", zap.Int("count", len(s.resolver.blocks)))
	return s.resolver, nil
}

func (s *ExamBlockService) validBlocks(blocks []models.ExamBlock) []models.ExamBlock {
	valid := make([]models.ExamBlock, 0, len(blocks))
	for _, block := range blocks {
		if err := block.Validate(); err != nil {
			s.logger.Warn("skipping invalid exam block", zap.String("block_id", block.ID), zap.Error(err))
			continue
		}
		valid = append(valid, block)
	}
	return valid
}
