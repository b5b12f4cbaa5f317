package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// BatchRepository reads teaching groups and their course/class membership.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository builds the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns every batch.
func (r *BatchRepository) List(ctx context.Context) ([]models.Batch, error) {
	const query = `SELECT id, name, course_id, class_id FROM batches ORDER BY name ASC`
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// Upsert stores a batch.
func (r *BatchRepository) Upsert(ctx context.Context, batch models.Batch) error {
	const query = `INSERT INTO batches (id, name, course_id, class_id)
VALUES (:id, :name, :course_id, :class_id)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, course_id = EXCLUDED.course_id, class_id = EXCLUDED.class_id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}
