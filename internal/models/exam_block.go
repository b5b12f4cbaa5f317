package models

import (
	"fmt"
	"strings"
)

// ExamBlockScope selects which part of the institution a block applies to.
type ExamBlockScope string

const (
	ExamBlockScopeInstitution ExamBlockScope = "institution"
	ExamBlockScopeCourse      ExamBlockScope = "course"
	ExamBlockScopeClass       ExamBlockScope = "class"
	ExamBlockScopeBatch       ExamBlockScope = "batch"
)

// ExamBlockDateType selects how a block's dates are expressed.
type ExamBlockDateType string

const (
	ExamBlockDateSingleDay ExamBlockDateType = "single_day"
	ExamBlockDateMultiDay  ExamBlockDateType = "multi_day"
	ExamBlockDateRecurring ExamBlockDateType = "recurring"
)

// ExamBlockTimeType selects which part of a matching day is blocked.
type ExamBlockTimeType string

const (
	ExamBlockTimeFullDay ExamBlockTimeType = "full_day"
	ExamBlockTimeRange   ExamBlockTimeType = "time_range"
	ExamBlockTimePeriods ExamBlockTimeType = "periods"
)

// RecurringConfig describes a weekly recurrence bounded by an inclusive date range.
type RecurringConfig struct {
	DayOfWeek string `json:"day_of_week"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ExamBlock is an institution rule that pre-empts normal classes.
type ExamBlock struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	ExamTypeID      string            `json:"exam_type_id"`
	ScopeType       ExamBlockScope    `json:"scope_type"`
	ScopeID         *string           `json:"scope_id,omitempty"`
	DateType        ExamBlockDateType `json:"date_type"`
	Dates           []string          `json:"dates,omitempty"`
	RecurringConfig *RecurringConfig  `json:"recurring_config,omitempty"`
	TimeType        ExamBlockTimeType `json:"time_type"`
	StartTime       *string           `json:"start_time,omitempty"`
	EndTime         *string           `json:"end_time,omitempty"`
	Periods         []int             `json:"periods,omitempty"`
	IsActive        bool              `json:"is_active"`
}

// Validate checks the dates/recurrence exclusivity and the time payload.
func (b ExamBlock) Validate() error {
	hasDates := len(b.Dates) > 0
	hasRecurring := b.RecurringConfig != nil
	switch b.DateType {
	case ExamBlockDateRecurring:
		if !hasRecurring || hasDates {
			return fmt.Errorf("block %s: recurring blocks need recurring_config and no dates", b.ID)
		}
		if strings.TrimSpace(b.RecurringConfig.DayOfWeek) == "" || b.RecurringConfig.StartDate == "" || b.RecurringConfig.EndDate == "" {
			return fmt.Errorf("block %s: recurring_config requires day_of_week, start_date and end_date", b.ID)
		}
	case ExamBlockDateSingleDay, ExamBlockDateMultiDay:
		if !hasDates || hasRecurring {
			return fmt.Errorf("block %s: %s blocks need dates and no recurring_config", b.ID, b.DateType)
		}
	default:
		return fmt.Errorf("block %s: unknown date_type %q", b.ID, b.DateType)
	}

	switch b.ScopeType {
	case ExamBlockScopeInstitution, ExamBlockScopeCourse, ExamBlockScopeClass:
	case ExamBlockScopeBatch:
		if b.ScopeID == nil || *b.ScopeID == "" {
			return fmt.Errorf("block %s: batch scope requires scope_id", b.ID)
		}
	default:
		return fmt.Errorf("block %s: unknown scope_type %q", b.ID, b.ScopeType)
	}

	switch b.TimeType {
	case ExamBlockTimeFullDay:
	case ExamBlockTimePeriods:
		if len(b.Periods) == 0 {
			return fmt.Errorf("block %s: periods blocks need at least one period", b.ID)
		}
	case ExamBlockTimeRange:
		if b.StartTime == nil || b.EndTime == nil {
			return fmt.Errorf("block %s: time_range blocks need start_time and end_time", b.ID)
		}
	default:
		return fmt.Errorf("block %s: unknown time_type %q", b.ID, b.TimeType)
	}
	return nil
}

// BlockCheckResult answers whether a slot is pre-empted by a block.
type BlockCheckResult struct {
	Blocked    bool              `json:"blocked"`
	BlockID    string            `json:"block_id,omitempty"`
	BlockName  string            `json:"block_name,omitempty"`
	ExamTypeID string            `json:"exam_type_id,omitempty"`
	TimeType   ExamBlockTimeType `json:"time_type,omitempty"`
	Periods    []int             `json:"periods,omitempty"`
}
