package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type absenceRow struct {
	ID          string         `db:"id"`
	TeacherID   string         `db:"teacher_id"`
	TeacherName string         `db:"teacher_name"`
	Date        string         `db:"date"`
	AbsenceType string         `db:"absence_type"`
	Periods     types.JSONText `db:"periods"`
	Reason      sql.NullString `db:"reason"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r absenceRow) model() (models.TeacherAbsence, error) {
	absence := models.TeacherAbsence{
		ID:          r.ID,
		TeacherID:   r.TeacherID,
		TeacherName: r.TeacherName,
		Date:        r.Date,
		AbsenceType: models.AbsenceType(r.AbsenceType),
		Reason:      nullString(r.Reason),
		CreatedAt:   r.CreatedAt,
	}
	if err := unmarshalJSON(r.Periods, &absence.Periods); err != nil {
		return absence, fmt.Errorf("decode periods for absence %s: %w", r.ID, err)
	}
	return absence, nil
}

const absenceColumns = `id, teacher_id, teacher_name, to_char(date, 'YYYY-MM-DD') AS date, absence_type, periods, reason, created_at`

const assignmentColumns = `id, absence_id, original_teacher_id, substitute_teacher_id, substitute_teacher_name,
to_char(date, 'YYYY-MM-DD') AS date, period, batch_id, batch_name, subject, status, is_temporary, created_at, updated_at`

type assignmentRow struct {
	ID                    string    `db:"id"`
	AbsenceID             string    `db:"absence_id"`
	OriginalTeacherID     string    `db:"original_teacher_id"`
	SubstituteTeacherID   string    `db:"substitute_teacher_id"`
	SubstituteTeacherName string    `db:"substitute_teacher_name"`
	Date                  string    `db:"date"`
	Period                int       `db:"period"`
	BatchID               string    `db:"batch_id"`
	BatchName             string    `db:"batch_name"`
	Subject               string    `db:"subject"`
	Status                string    `db:"status"`
	IsTemporary           bool      `db:"is_temporary"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (r assignmentRow) model() models.SubstitutionAssignment {
	return models.SubstitutionAssignment{
		ID:                    r.ID,
		AbsenceID:             r.AbsenceID,
		OriginalTeacherID:     r.OriginalTeacherID,
		SubstituteTeacherID:   r.SubstituteTeacherID,
		SubstituteTeacherName: r.SubstituteTeacherName,
		Date:                  r.Date,
		Period:                r.Period,
		BatchID:               r.BatchID,
		BatchName:             r.BatchName,
		Subject:               r.Subject,
		Status:                models.SubstitutionStatus(r.Status),
		IsTemporary:           r.IsTemporary,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

// AbsenceRepository stores teacher absences and their substitution assignments.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository builds the repository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// CreateAbsence inserts an absence record.
func (r *AbsenceRepository) CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error {
	periods := absence.Periods
	if periods == nil {
		periods = []int{}
	}
	raw, err := json.Marshal(periods)
	if err != nil {
		return fmt.Errorf("encode absence periods: %w", err)
	}
	const query = `INSERT INTO teacher_absences (id, teacher_id, teacher_name, date, absence_type, periods, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		absence.ID, absence.TeacherID, absence.TeacherName, absence.Date,
		string(absence.AbsenceType), types.JSONText(raw), absence.Reason, absence.CreatedAt,
	); err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	return nil
}

// GetAbsence fetches an absence by id.
func (r *AbsenceRepository) GetAbsence(ctx context.Context, id string) (*models.TeacherAbsence, error) {
	query := `SELECT ` + absenceColumns + ` FROM teacher_absences WHERE id = $1`
	var row absenceRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	absence, err := row.model()
	if err != nil {
		return nil, err
	}
	return &absence, nil
}

// ListAbsences returns absences on date, or every absence when date is empty.
func (r *AbsenceRepository) ListAbsences(ctx context.Context, date string) ([]models.TeacherAbsence, error) {
	query := `SELECT ` + absenceColumns + ` FROM teacher_absences`
	args := []interface{}{}
	if date != "" {
		query += ` WHERE date = $1`
		args = append(args, date)
	}
	query += ` ORDER BY date ASC, created_at ASC, id ASC`

	var rows []absenceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}
	absences := make([]models.TeacherAbsence, 0, len(rows))
	for _, row := range rows {
		absence, err := row.model()
		if err != nil {
			return nil, err
		}
		absences = append(absences, absence)
	}
	return absences, nil
}

// DeleteAbsence removes an absence and its assignments, returning how many assignments went with it.
func (r *AbsenceRepository) DeleteAbsence(ctx context.Context, id string) (removed int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin absence delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM substitution_assignments WHERE absence_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete absence assignments: %w", err)
	}
	assignments, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count absence assignments: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM teacher_absences WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete absence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete absence rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit absence delete: %w", err)
	}
	return int(assignments), nil
}

// CreateAssignment inserts a substitution assignment.
func (r *AbsenceRepository) CreateAssignment(ctx context.Context, assignment *models.SubstitutionAssignment) error {
	const query = `INSERT INTO substitution_assignments (id, absence_id, original_teacher_id, substitute_teacher_id, substitute_teacher_name, date, period, batch_id, batch_name, subject, status, is_temporary, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.AbsenceID, assignment.OriginalTeacherID, assignment.SubstituteTeacherID,
		assignment.SubstituteTeacherName, assignment.Date, assignment.Period, assignment.BatchID,
		assignment.BatchName, assignment.Subject, string(assignment.Status), assignment.IsTemporary,
		assignment.CreatedAt, assignment.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create substitution: %w", err)
	}
	return nil
}

// GetAssignment fetches an assignment by id.
func (r *AbsenceRepository) GetAssignment(ctx context.Context, id string) (*models.SubstitutionAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM substitution_assignments WHERE id = $1`
	var row assignmentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	assignment := row.model()
	return &assignment, nil
}

// ListAssignments returns assignments on date, or every assignment when date is empty.
func (r *AbsenceRepository) ListAssignments(ctx context.Context, date string) ([]models.SubstitutionAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM substitution_assignments`
	args := []interface{}{}
	if date != "" {
		query += ` WHERE date = $1`
		args = append(args, date)
	}
	query += ` ORDER BY date ASC, period ASC, created_at ASC, id ASC`

	var rows []assignmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list substitutions: %w", err)
	}
	assignments := make([]models.SubstitutionAssignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.model())
	}
	return assignments, nil
}

// UpdateAssignmentStatus changes the lifecycle status of an assignment.
func (r *AbsenceRepository) UpdateAssignmentStatus(ctx context.Context, id string, status models.SubstitutionStatus, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE substitution_assignments SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update substitution status: %w", err)
	}
	return requireAffected(res)
}

// DeleteAssignment removes an assignment.
func (r *AbsenceRepository) DeleteAssignment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM substitution_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete substitution: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
