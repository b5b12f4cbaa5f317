package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type examBlockRow struct {
	ID              string             `db:"id"`
	Name            string             `db:"name"`
	ExamTypeID      string             `db:"exam_type_id"`
	ScopeType       string             `db:"scope_type"`
	ScopeID         sql.NullString     `db:"scope_id"`
	DateType        string             `db:"date_type"`
	Dates           types.JSONText     `db:"dates"`
	RecurringConfig types.NullJSONText `db:"recurring_config"`
	TimeType        string             `db:"time_type"`
	StartTime       sql.NullString     `db:"start_time"`
	EndTime         sql.NullString     `db:"end_time"`
	Periods         types.JSONText     `db:"periods"`
	IsActive        bool               `db:"is_active"`
}

func (r examBlockRow) model() (models.ExamBlock, error) {
	block := models.ExamBlock{
		ID:         r.ID,
		Name:       r.Name,
		ExamTypeID: r.ExamTypeID,
		ScopeType:  models.ExamBlockScope(r.ScopeType),
		ScopeID:    nullString(r.ScopeID),
		DateType:   models.ExamBlockDateType(r.DateType),
		TimeType:   models.ExamBlockTimeType(r.TimeType),
		StartTime:  nullString(r.StartTime),
		EndTime:    nullString(r.EndTime),
		IsActive:   r.IsActive,
	}
	if err := unmarshalJSON(r.Dates, &block.Dates); err != nil {
		return block, fmt.Errorf("decode dates for block %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.Periods, &block.Periods); err != nil {
		return block, fmt.Errorf("decode periods for block %s: %w", r.ID, err)
	}
	if r.RecurringConfig.Valid && string(r.RecurringConfig.JSONText) != "null" {
		var cfg models.RecurringConfig
		if err := r.RecurringConfig.JSONText.Unmarshal(&cfg); err != nil {
			return block, fmt.Errorf("decode recurring config for block %s: %w", r.ID, err)
		}
		block.RecurringConfig = &cfg
	}
	return block, nil
}

// ExamBlockRepository reads exam and activity blocks.
type ExamBlockRepository struct {
	db *sqlx.DB
}

// NewExamBlockRepository builds the repository.
func NewExamBlockRepository(db *sqlx.DB) *ExamBlockRepository {
	return &ExamBlockRepository{db: db}
}

// ListActive returns active blocks in evaluation order.
func (r *ExamBlockRepository) ListActive(ctx context.Context) ([]models.ExamBlock, error) {
	const query = `SELECT id, name, exam_type_id, scope_type, scope_id, date_type, dates, recurring_config, time_type, start_time, end_time, periods, is_active
FROM exam_blocks WHERE is_active = TRUE ORDER BY sort_order ASC, created_at ASC, id ASC`
	var rows []examBlockRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list exam blocks: %w", err)
	}
	blocks := make([]models.ExamBlock, 0, len(rows))
	for _, row := range rows {
		block, err := row.model()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Upsert stores a block. sortOrder fixes its position in evaluation order.
func (r *ExamBlockRepository) Upsert(ctx context.Context, block models.ExamBlock, sortOrder int) error {
	dates, err := json.Marshal(nonNilStrings(block.Dates))
	if err != nil {
		return fmt.Errorf("encode block dates: %w", err)
	}
	periods := block.Periods
	if periods == nil {
		periods = []int{}
	}
	rawPeriods, err := json.Marshal(periods)
	if err != nil {
		return fmt.Errorf("encode block periods: %w", err)
	}
	var recurring interface{}
	if block.RecurringConfig != nil {
		raw, err := json.Marshal(block.RecurringConfig)
		if err != nil {
			return fmt.Errorf("encode recurring config: %w", err)
		}
		recurring = types.JSONText(raw)
	}

	const query = `INSERT INTO exam_blocks (id, name, exam_type_id, scope_type, scope_id, date_type, dates, recurring_config, time_type, start_time, end_time, periods, is_active, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    exam_type_id = EXCLUDED.exam_type_id,
    scope_type = EXCLUDED.scope_type,
    scope_id = EXCLUDED.scope_id,
    date_type = EXCLUDED.date_type,
    dates = EXCLUDED.dates,
    recurring_config = EXCLUDED.recurring_config,
    time_type = EXCLUDED.time_type,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    periods = EXCLUDED.periods,
    is_active = EXCLUDED.is_active,
    sort_order = EXCLUDED.sort_order`
	if _, err := r.db.ExecContext(ctx, query,
		block.ID, block.Name, block.ExamTypeID, string(block.ScopeType), block.ScopeID,
		string(block.DateType), types.JSONText(dates), recurring, string(block.TimeType),
		block.StartTime, block.EndTime, types.JSONText(rawPeriods), block.IsActive, sortOrder,
	); err != nil {
		return fmt.Errorf("upsert exam block: %w", err)
	}
	return nil
}
