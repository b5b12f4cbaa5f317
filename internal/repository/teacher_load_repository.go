package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type teacherLoadRow struct {
	TeacherID      string         `db:"teacher_id"`
	TeacherName    string         `db:"teacher_name"`
	WorkingDays    types.JSONText `db:"working_days"`
	AllowedBatches types.JSONText `db:"allowed_batches"`
	PeriodsPerWeek int            `db:"periods_per_week"`
}

func (r teacherLoadRow) model() (models.TeacherLoad, error) {
	load := models.TeacherLoad{
		TeacherID:      r.TeacherID,
		TeacherName:    r.TeacherName,
		PeriodsPerWeek: r.PeriodsPerWeek,
		WorkingDays:    []string{},
		AllowedBatches: []models.AllowedBatch{},
	}
	if err := unmarshalJSON(r.WorkingDays, &load.WorkingDays); err != nil {
		return load, fmt.Errorf("decode working days for %s: %w", r.TeacherID, err)
	}
	if err := unmarshalJSON(r.AllowedBatches, &load.AllowedBatches); err != nil {
		return load, fmt.Errorf("decode allowed batches for %s: %w", r.TeacherID, err)
	}
	return load, nil
}

// TeacherLoadRepository reads the teacher roster.
type TeacherLoadRepository struct {
	db *sqlx.DB
}

// NewTeacherLoadRepository builds the repository.
func NewTeacherLoadRepository(db *sqlx.DB) *TeacherLoadRepository {
	return &TeacherLoadRepository{db: db}
}

// List returns every teacher ordered by id.
func (r *TeacherLoadRepository) List(ctx context.Context) ([]models.TeacherLoad, error) {
	const query = `SELECT teacher_id, teacher_name, working_days, allowed_batches, periods_per_week FROM teacher_loads ORDER BY teacher_id ASC`
	var rows []teacherLoadRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list teacher loads: %w", err)
	}
	loads := make([]models.TeacherLoad, 0, len(rows))
	for _, row := range rows {
		load, err := row.model()
		if err != nil {
			return nil, err
		}
		loads = append(loads, load)
	}
	return loads, nil
}

// Upsert stores a teacher's profile.
func (r *TeacherLoadRepository) Upsert(ctx context.Context, load models.TeacherLoad) error {
	workingDays, err := json.Marshal(nonNilStrings(load.WorkingDays))
	if err != nil {
		return fmt.Errorf("encode working days: %w", err)
	}
	batches := load.AllowedBatches
	if batches == nil {
		batches = []models.AllowedBatch{}
	}
	allowed, err := json.Marshal(batches)
	if err != nil {
		return fmt.Errorf("encode allowed batches: %w", err)
	}
	row := teacherLoadRow{
		TeacherID:      load.TeacherID,
		TeacherName:    load.TeacherName,
		WorkingDays:    types.JSONText(workingDays),
		AllowedBatches: types.JSONText(allowed),
		PeriodsPerWeek: load.PeriodsPerWeek,
	}
	const query = `INSERT INTO teacher_loads (teacher_id, teacher_name, working_days, allowed_batches, periods_per_week)
VALUES (:teacher_id, :teacher_name, :working_days, :allowed_batches, :periods_per_week)
ON CONFLICT (teacher_id) DO UPDATE
SET teacher_name = EXCLUDED.teacher_name,
    working_days = EXCLUDED.working_days,
    allowed_batches = EXCLUDED.allowed_batches,
    periods_per_week = EXCLUDED.periods_per_week`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert teacher load: %w", err)
	}
	return nil
}

func unmarshalJSON(raw types.JSONText, dest interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw.Unmarshal(dest)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
