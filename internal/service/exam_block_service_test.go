package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type examBlockRepoStub struct {
	blocks []models.ExamBlock
	err    error
	calls  int
}

func (s *examBlockRepoStub) ListActive(ctx context.Context) ([]models.ExamBlock, error) {
	s.calls++
	return s.blocks, s.err
}

func TestExamBlockServiceLoadsOnceAndSkipsInvalid(t *testing.T) {
	invalid := models.ExamBlock{ID: "broken", DateType: models.ExamBlockDateRecurring, TimeType: models.ExamBlockTimeFullDay, ScopeType: models.ExamBlockScopeInstitution, IsActive: true}
	repo := &examBlockRepoStub{blocks: []models.ExamBlock{invalid, saturdayQuiz()}}
	svc := NewExamBlockService(repo, nil, time.Minute, nil)
	ctx := context.Background()

	result, err := svc.IsSlotBlocked(ctx, day(t, "2025-01-11"), 2, "B1")
	require.NoError(t, err)
	assert.True(t, result.Blocked)

	blocks, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "blk-sat", blocks[0].ID)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, svc.Refresh(ctx))
	assert.Equal(t, 2, repo.calls)
}

func TestExamBlockServiceUsesCache(t *testing.T) {
	cacheRepo := newCacheRepoStub()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	repo := &examBlockRepoStub{blocks: []models.ExamBlock{saturdayQuiz()}}
	ctx := context.Background()

	first := NewExamBlockService(repo, cache, 10*time.Minute, nil)
	_, err := first.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cacheRepo.ttls[activeExamBlocksCacheKey])

	second := NewExamBlockService(repo, cache, 10*time.Minute, nil)
	blocks, err := second.BlocksForDate(ctx, day(t, "2025-01-25"))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, second.Refresh(ctx))
	assert.Contains(t, cacheRepo.deleted, activeExamBlocksCacheKey)
	assert.Equal(t, 2, repo.calls)
}

func TestExamBlockServiceRepositoryError(t *testing.T) {
	svc := NewExamBlockService(&examBlockRepoStub{err: errors.New("db down")}, nil, 0, nil)

	_, err := svc.IsSlotBlocked(context.Background(), day(t, "2025-01-11"), 1, "B1")
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
}
