package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableEntryRepository persists the weekly timetable.
type TimetableEntryRepository struct {
	db *sqlx.DB
}

// NewTimetableEntryRepository builds the repository.
func NewTimetableEntryRepository(db *sqlx.DB) *TimetableEntryRepository {
	return &TimetableEntryRepository{db: db}
}

// List returns every stored entry.
func (r *TimetableEntryRepository) List(ctx context.Context) ([]models.TimetableEntry, error) {
	const query = `SELECT id, day, period_number, teacher_id, teacher_name, batch_id, batch_name, subject_name, created_at, updated_at
FROM timetable_entries ORDER BY day ASC, period_number ASC, id ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// ReplaceAll swaps the stored timetable for entries in one transaction.
func (r *TimetableEntryRepository) ReplaceAll(ctx context.Context, entries []models.TimetableEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries`); err != nil {
		return fmt.Errorf("clear timetable entries: %w", err)
	}

	const insert = `INSERT INTO timetable_entries (id, day, period_number, teacher_id, teacher_name, batch_id, batch_name, subject_name, created_at, updated_at)
VALUES (:id, :day, :period_number, :teacher_id, :teacher_name, :batch_id, :batch_name, :subject_name, :created_at, :updated_at)`
	for i := range entries {
		if _, err = tx.NamedExecContext(ctx, insert, &entries[i]); err != nil {
			return fmt.Errorf("insert timetable entry %s: %w", entries[i].ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable entries: %w", err)
	}
	return nil
}
