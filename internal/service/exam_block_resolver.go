package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
)

// BatchMembership resolves which course and class a batch belongs to.
type BatchMembership interface {
	CourseOf(batchID string) (string, bool)
	ClassOf(batchID string) (string, bool)
}

// PeriodWindow is the wall-clock interval of one period, "HH:MM" bounds, end exclusive.
type PeriodWindow struct {
	Start string
	End   string
}

// PeriodClock maps period numbers to wall-clock windows.
type PeriodClock map[int]PeriodWindow

// ParsePeriodClock reads "08:00-08:45,08:45-09:30,..." where the n-th range is period n.
func ParsePeriodClock(raw string) (PeriodClock, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	clock := make(PeriodClock)
	for i, part := range strings.Split(raw, ",") {
		bounds := strings.SplitN(strings.TrimSpace(part), "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("period %d: expected HH:MM-HH:MM, got %q", i+1, part)
		}
		start, err := normalizeClock(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", i+1, err)
		}
		end, err := normalizeClock(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", i+1, err)
		}
		if end <= start {
			return nil, fmt.Errorf("period %d: end %s is not after start %s", i+1, end, start)
		}
		clock[i+1] = PeriodWindow{Start: start, End: end}
	}
	return clock, nil
}

func normalizeClock(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("invalid clock time %q", raw)
}

// ResolverOption customises an ExamBlockResolver.
type ResolverOption func(*ExamBlockResolver)

// WithBatchMembership makes course and class scoped blocks match only their own batches.
func WithBatchMembership(m BatchMembership) ResolverOption {
	return func(r *ExamBlockResolver) {
		r.membership = m
	}
}

// WithPeriodClock lets time_range blocks pre-empt only the periods they overlap.
func WithPeriodClock(clock PeriodClock) ResolverOption {
	return func(r *ExamBlockResolver) {
		r.clock = clock
	}
}

// ExamBlockResolver decides whether a dated slot is pre-empted by an active block.
// Blocks are evaluated in list order and the first match wins.
type ExamBlockResolver struct {
	blocks     []models.ExamBlock
	membership BatchMembership
	clock      PeriodClock
}

// NewExamBlockResolver keeps a private copy of the active blocks.
func NewExamBlockResolver(blocks []models.ExamBlock, opts ...ResolverOption) *ExamBlockResolver {
	active := make([]models.ExamBlock, 0, len(blocks))
	for _, block := range blocks {
		if block.IsActive {
			active = append(active, block)
		}
	}
	r := &ExamBlockResolver{blocks: active}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// IsSlotBlocked evaluates date, scope and time matching for every active block.
func (r *ExamBlockResolver) IsSlotBlocked(date time.Time, period int, batchID string) models.BlockCheckResult {
	for _, block := range r.blocks {
		if !matchesBlockDate(block, date) || !r.matchesScope(block, batchID) {
			continue
		}
		switch block.TimeType {
		case models.ExamBlockTimeFullDay:
			return blockedBy(block, nil)
		case models.ExamBlockTimePeriods:
			if containsPeriod(block.Periods, period) {
				return blockedBy(block, append([]int(nil), block.Periods...))
			}
		case models.ExamBlockTimeRange:
			if r.rangeCovers(block, period) {
				return blockedBy(block, nil)
			}
		}
	}
	return models.BlockCheckResult{Blocked: false}
}

// BlocksForDate returns every active block whose dates or recurrence include date, any scope.
func (r *ExamBlockResolver) BlocksForDate(date time.Time) []models.ExamBlock {
	result := make([]models.ExamBlock, 0)
	for _, block := range r.blocks {
		if matchesBlockDate(block, date) {
			result = append(result, block)
		}
	}
	return result
}

// Blocks returns the active blocks in evaluation order.
func (r *ExamBlockResolver) Blocks() []models.ExamBlock {
	return append([]models.ExamBlock(nil), r.blocks...)
}

func matchesBlockDate(block models.ExamBlock, date time.Time) bool {
	if block.DateType == models.ExamBlockDateRecurring {
		cfg := block.RecurringConfig
		if cfg == nil || !dateutil.SameDay(dateutil.WeekdayName(date), cfg.DayOfWeek) {
			return false
		}
		window, err := dateutil.NewDateRange(cfg.StartDate, cfg.EndDate)
		if err != nil {
			return false
		}
		return window.Contains(date)
	}
	key := dateutil.FormatDate(date)
	for _, d := range block.Dates {
		if strings.TrimSpace(d) == key {
			return true
		}
	}
	return false
}

func (r *ExamBlockResolver) matchesScope(block models.ExamBlock, batchID string) bool {
	scopeID := ""
	if block.ScopeID != nil {
		scopeID = *block.ScopeID
	}
	switch block.ScopeType {
	case models.ExamBlockScopeInstitution:
		return true
	case models.ExamBlockScopeBatch:
		return scopeID == batchID
	case models.ExamBlockScopeCourse:
		if r.membership == nil || scopeID == "" {
			return true
		}
		course, ok := r.membership.CourseOf(batchID)
		return !ok || course == scopeID
	case models.ExamBlockScopeClass:
		if r.membership == nil || scopeID == "" {
			return true
		}
		class, ok := r.membership.ClassOf(batchID)
		return !ok || class == scopeID
	default:
		return false
	}
}

// rangeCovers treats a time_range block as whole-day unless the period clock
// knows both the period and the block bounds.
func (r *ExamBlockResolver) rangeCovers(block models.ExamBlock, period int) bool {
	window, ok := r.clock[period]
	if !ok || block.StartTime == nil || block.EndTime == nil {
		return true
	}
	start, err := normalizeClock(*block.StartTime)
	if err != nil {
		return true
	}
	end, err := normalizeClock(*block.EndTime)
	if err != nil {
		return true
	}
	return start < window.End && window.Start < end
}

func blockedBy(block models.ExamBlock, periods []int) models.BlockCheckResult {
	return models.BlockCheckResult{
		Blocked:    true,
		BlockID:    block.ID,
		BlockName:  block.Name,
		ExamTypeID: block.ExamTypeID,
		TimeType:   block.TimeType,
		Periods:    periods,
	}
}

func containsPeriod(periods []int, period int) bool {
	for _, p := range periods {
		if p == period {
			return true
		}
	}
	return false
}

func formatPeriods(periods []int) string {
	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
