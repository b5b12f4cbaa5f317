package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// MemoryEntryRepository keeps the saved timetable in process memory.
type MemoryEntryRepository struct {
	mu      sync.RWMutex
	entries []models.TimetableEntry
}

// NewMemoryEntryRepository starts from entries.
func NewMemoryEntryRepository(entries []models.TimetableEntry) *MemoryEntryRepository {
	return &MemoryEntryRepository{entries: append([]models.TimetableEntry(nil), entries...)}
}

// List returns a copy of the saved entries.
func (r *MemoryEntryRepository) List(ctx context.Context) ([]models.TimetableEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.TimetableEntry(nil), r.entries...), nil
}

// ReplaceAll overwrites the saved entries.
func (r *MemoryEntryRepository) ReplaceAll(ctx context.Context, entries []models.TimetableEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]models.TimetableEntry(nil), entries...)
	return nil
}

// MemoryTeacherLoadRepository serves a fixed roster.
type MemoryTeacherLoadRepository struct {
	loads []models.TeacherLoad
}

// NewMemoryTeacherLoadRepository wraps loads.
func NewMemoryTeacherLoadRepository(loads []models.TeacherLoad) *MemoryTeacherLoadRepository {
	sorted := append([]models.TeacherLoad(nil), loads...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TeacherID < sorted[j].TeacherID })
	return &MemoryTeacherLoadRepository{loads: sorted}
}

// List returns the roster ordered by teacher id.
func (r *MemoryTeacherLoadRepository) List(ctx context.Context) ([]models.TeacherLoad, error) {
	return append([]models.TeacherLoad(nil), r.loads...), nil
}

// MemoryBatchRepository serves a fixed batch list.
type MemoryBatchRepository struct {
	batches []models.Batch
}

// NewMemoryBatchRepository wraps batches.
func NewMemoryBatchRepository(batches []models.Batch) *MemoryBatchRepository {
	return &MemoryBatchRepository{batches: append([]models.Batch(nil), batches...)}
}

// List returns every batch.
func (r *MemoryBatchRepository) List(ctx context.Context) ([]models.Batch, error) {
	return append([]models.Batch(nil), r.batches...), nil
}

// MemoryExamBlockRepository serves blocks in the order they were given.
type MemoryExamBlockRepository struct {
	blocks []models.ExamBlock
}

// NewMemoryExamBlockRepository wraps blocks.
func NewMemoryExamBlockRepository(blocks []models.ExamBlock) *MemoryExamBlockRepository {
	return &MemoryExamBlockRepository{blocks: append([]models.ExamBlock(nil), blocks...)}
}

// ListActive returns the active blocks in list order.
func (r *MemoryExamBlockRepository) ListActive(ctx context.Context) ([]models.ExamBlock, error) {
	active := make([]models.ExamBlock, 0, len(r.blocks))
	for _, block := range r.blocks {
		if block.IsActive {
			active = append(active, block)
		}
	}
	return active, nil
}

// MemoryAbsenceStore keeps absences and substitution assignments in process memory.
// Missing rows are reported as sql.ErrNoRows, matching AbsenceRepository.
type MemoryAbsenceStore struct {
	mu          sync.RWMutex
	absences    []models.TeacherAbsence
	assignments []models.SubstitutionAssignment
}

// NewMemoryAbsenceStore returns an empty store.
func NewMemoryAbsenceStore() *MemoryAbsenceStore {
	return &MemoryAbsenceStore{}
}

// CreateAbsence stores a copy of absence.
func (s *MemoryAbsenceStore) CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *absence
	stored.Periods = append([]int(nil), absence.Periods...)
	s.absences = append(s.absences, stored)
	return nil
}

// GetAbsence fetches an absence by id.
func (s *MemoryAbsenceStore) GetAbsence(ctx context.Context, id string) (*models.TeacherAbsence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, absence := range s.absences {
		if absence.ID == id {
			found := copyAbsence(absence)
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

// ListAbsences returns absences on date, or all of them when date is empty.
func (s *MemoryAbsenceStore) ListAbsences(ctx context.Context, date string) ([]models.TeacherAbsence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.TeacherAbsence, 0)
	for _, absence := range s.absences {
		if date == "" || absence.Date == date {
			result = append(result, copyAbsence(absence))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func copyAbsence(absence models.TeacherAbsence) models.TeacherAbsence {
	absence.Periods = append([]int(nil), absence.Periods...)
	return absence
}

// DeleteAbsence removes an absence and every assignment referencing it.
func (s *MemoryAbsenceStore) DeleteAbsence(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, absence := range s.absences {
		if absence.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, sql.ErrNoRows
	}
	s.absences = append(s.absences[:idx], s.absences[idx+1:]...)

	kept := s.assignments[:0]
	removed := 0
	for _, assignment := range s.assignments {
		if assignment.AbsenceID == id {
			removed++
			continue
		}
		kept = append(kept, assignment)
	}
	s.assignments = kept
	return removed, nil
}

// CreateAssignment stores a copy of assignment.
func (s *MemoryAbsenceStore) CreateAssignment(ctx context.Context, assignment *models.SubstitutionAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, *assignment)
	return nil
}

// GetAssignment fetches an assignment by id.
func (s *MemoryAbsenceStore) GetAssignment(ctx context.Context, id string) (*models.SubstitutionAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, assignment := range s.assignments {
		if assignment.ID == id {
			found := assignment
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

// ListAssignments returns assignments on date, or all of them when date is empty.
func (s *MemoryAbsenceStore) ListAssignments(ctx context.Context, date string) ([]models.SubstitutionAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.SubstitutionAssignment, 0)
	for _, assignment := range s.assignments {
		if date == "" || assignment.Date == date {
			result = append(result, assignment)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Period < result[j].Period
	})
	return result, nil
}

// UpdateAssignmentStatus changes an assignment's status.
func (s *MemoryAbsenceStore) UpdateAssignmentStatus(ctx context.Context, id string, status models.SubstitutionStatus, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.assignments[i].ID == id {
			s.assignments[i].Status = status
			s.assignments[i].UpdatedAt = updatedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

// DeleteAssignment removes an assignment.
func (s *MemoryAbsenceStore) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, assignment := range s.assignments {
		if assignment.ID == id {
			s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}
