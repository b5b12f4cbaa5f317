package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", raw)
	require.NoError(t, err)
	return parsed
}

func strPtr(s string) *string { return &s }

func saturdayQuiz() models.ExamBlock {
	return models.ExamBlock{
		ID:        "blk-sat",
		Name:      "Saturday quiz",
		ScopeType: models.ExamBlockScopeInstitution,
		DateType:  models.ExamBlockDateRecurring,
		RecurringConfig: &models.RecurringConfig{
			DayOfWeek: "saturday",
			StartDate: "2025-01-01",
			EndDate:   "2025-03-31",
		},
		TimeType: models.ExamBlockTimeFullDay,
		IsActive: true,
	}
}

func TestExamBlockResolverRecurring(t *testing.T) {
	resolver := NewExamBlockResolver([]models.ExamBlock{saturdayQuiz()})

	blocked := resolver.IsSlotBlocked(day(t, "2025-01-11"), 3, "B1")
	assert.True(t, blocked.Blocked)
	assert.Equal(t, "blk-sat", blocked.BlockID)

	assert.False(t, resolver.IsSlotBlocked(day(t, "2025-01-12"), 3, "B1").Blocked)
	assert.False(t, resolver.IsSlotBlocked(day(t, "2025-04-05"), 3, "B1").Blocked)
	assert.True(t, resolver.IsSlotBlocked(day(t, "2025-03-29"), 1, "B1").Blocked)
}

func TestExamBlockResolverFullDayCoversEveryPeriod(t *testing.T) {
	resolver := NewExamBlockResolver([]models.ExamBlock{{
		ID:        "blk-mid",
		Name:      "Midterm",
		ScopeType: models.ExamBlockScopeInstitution,
		DateType:  models.ExamBlockDateMultiDay,
		Dates:     []string{"2025-03-10", "2025-03-11"},
		TimeType:  models.ExamBlockTimeFullDay,
		IsActive:  true,
	}})

	for period := 1; period <= 8; period++ {
		assert.True(t, resolver.IsSlotBlocked(day(t, "2025-03-11"), period, "B1").Blocked, "period %d", period)
	}
	assert.False(t, resolver.IsSlotBlocked(day(t, "2025-03-12"), 1, "B1").Blocked)
}

func TestExamBlockResolverPeriodsAndBatchScope(t *testing.T) {
	resolver := NewExamBlockResolver([]models.ExamBlock{{
		ID:        "blk-lab",
		Name:      "Lab practical",
		ScopeType: models.ExamBlockScopeBatch,
		ScopeID:   strPtr("B1"),
		DateType:  models.ExamBlockDateSingleDay,
		Dates:     []string{"2025-02-03"},
		TimeType:  models.ExamBlockTimePeriods,
		Periods:   []int{2, 3},
		IsActive:  true,
	}})

	result := resolver.IsSlotBlocked(day(t, "2025-02-03"), 2, "B1")
	assert.True(t, result.Blocked)
	assert.Equal(t, []int{2, 3}, result.Periods)
	assert.False(t, resolver.IsSlotBlocked(day(t, "2025-02-03"), 4, "B1").Blocked)
	assert.False(t, resolver.IsSlotBlocked(day(t, "2025-02-03"), 2, "B2").Blocked)
}

func TestExamBlockResolverFirstMatchWinsAndSkipsInactive(t *testing.T) {
	inactive := saturdayQuiz()
	inactive.ID = "blk-off"
	inactive.IsActive = false
	second := saturdayQuiz()
	second.ID = "blk-second"

	resolver := NewExamBlockResolver([]models.ExamBlock{inactive, saturdayQuiz(), second})
	assert.Equal(t, "blk-sat", resolver.IsSlotBlocked(day(t, "2025-01-18"), 1, "B1").BlockID)
	assert.Len(t, resolver.Blocks(), 2)
	assert.Len(t, resolver.BlocksForDate(day(t, "2025-01-18")), 2)
	assert.Empty(t, resolver.BlocksForDate(day(t, "2025-01-19")))
}

func TestExamBlockResolverCourseScopeUsesMembership(t *testing.T) {
	block := models.ExamBlock{
		ID:        "blk-course",
		Name:      "Science olympiad",
		ScopeType: models.ExamBlockScopeCourse,
		ScopeID:   strPtr("science"),
		DateType:  models.ExamBlockDateSingleDay,
		Dates:     []string{"2025-02-04"},
		TimeType:  models.ExamBlockTimeFullDay,
		IsActive:  true,
	}

	loose := NewExamBlockResolver([]models.ExamBlock{block})
	assert.True(t, loose.IsSlotBlocked(day(t, "2025-02-04"), 1, "B2").Blocked)

	directory := NewBatchDirectory([]models.Batch{
		{ID: "B1", Name: "X IPA 1", CourseID: strPtr("science")},
		{ID: "B2", Name: "X IPS 1", CourseID: strPtr("social")},
	})
	strict := NewExamBlockResolver([]models.ExamBlock{block}, WithBatchMembership(directory))
	assert.True(t, strict.IsSlotBlocked(day(t, "2025-02-04"), 1, "B1").Blocked)
	assert.False(t, strict.IsSlotBlocked(day(t, "2025-02-04"), 1, "B2").Blocked)
	assert.True(t, strict.IsSlotBlocked(day(t, "2025-02-04"), 1, "B-unknown").Blocked)
}

func TestExamBlockResolverTimeRange(t *testing.T) {
	block := models.ExamBlock{
		ID:        "blk-assembly",
		Name:      "Assembly",
		ScopeType: models.ExamBlockScopeInstitution,
		DateType:  models.ExamBlockDateSingleDay,
		Dates:     []string{"2025-02-05"},
		TimeType:  models.ExamBlockTimeRange,
		StartTime: strPtr("08:45"),
		EndTime:   strPtr("09:30"),
		IsActive:  true,
	}

	wholeDay := NewExamBlockResolver([]models.ExamBlock{block})
	assert.True(t, wholeDay.IsSlotBlocked(day(t, "2025-02-05"), 6, "B1").Blocked)

	clock, err := ParsePeriodClock("07:15-08:00, 08:00-08:45, 08:45-09:30, 09:30-10:15")
	require.NoError(t, err)
	clocked := NewExamBlockResolver([]models.ExamBlock{block}, WithPeriodClock(clock))
	assert.False(t, clocked.IsSlotBlocked(day(t, "2025-02-05"), 2, "B1").Blocked)
	assert.True(t, clocked.IsSlotBlocked(day(t, "2025-02-05"), 3, "B1").Blocked)
	assert.False(t, clocked.IsSlotBlocked(day(t, "2025-02-05"), 4, "B1").Blocked)
	assert.True(t, clocked.IsSlotBlocked(day(t, "2025-02-05"), 7, "B1").Blocked)
}

func TestParsePeriodClock(t *testing.T) {
	clock, err := ParsePeriodClock("")
	require.NoError(t, err)
	assert.Nil(t, clock)

	_, err = ParsePeriodClock("08:00")
	assert.Error(t, err)
	_, err = ParsePeriodClock("09:00-08:00")
	assert.Error(t, err)

	clock, err = ParsePeriodClock("7:00-7:45")
	require.NoError(t, err)
	assert.Equal(t, PeriodWindow{Start: "07:00", End: "07:45"}, clock[1])
}
