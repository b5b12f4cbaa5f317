package models

import "time"

// TimetableEntry is one scheduled class occupying a weekly slot.
type TimetableEntry struct {
	ID           string    `db:"id" json:"id"`
	Day          string    `db:"day" json:"day"`
	PeriodNumber int       `db:"period_number" json:"period_number"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	TeacherName  string    `db:"teacher_name" json:"teacher_name"`
	BatchID      string    `db:"batch_id" json:"batch_id"`
	BatchName    string    `db:"batch_name" json:"batch_name"`
	SubjectName  string    `db:"subject_name" json:"subject_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// EntryPatch carries the optional fields accepted by an update. Slot coordinates
// are changed through a move instead.
type EntryPatch struct {
	TeacherID   *string `json:"teacher_id,omitempty"`
	TeacherName *string `json:"teacher_name,omitempty"`
	BatchID     *string `json:"batch_id,omitempty"`
	BatchName   *string `json:"batch_name,omitempty"`
	SubjectName *string `json:"subject_name,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return p.TeacherID == nil && p.TeacherName == nil && p.BatchID == nil && p.BatchName == nil && p.SubjectName == nil
}

// Apply returns a copy of entry with the patch applied.
func (p EntryPatch) Apply(entry TimetableEntry) TimetableEntry {
	if p.TeacherID != nil {
		entry.TeacherID = *p.TeacherID
	}
	if p.TeacherName != nil {
		entry.TeacherName = *p.TeacherName
	}
	if p.BatchID != nil {
		entry.BatchID = *p.BatchID
	}
	if p.BatchName != nil {
		entry.BatchName = *p.BatchName
	}
	if p.SubjectName != nil {
		entry.SubjectName = *p.SubjectName
	}
	return entry
}

// EntryFilter narrows listings of timetable entries. Zero values match everything.
type EntryFilter struct {
	Day          string
	PeriodNumber int
	TeacherID    string
	BatchID      string
}

// Slot is a (day, period) coordinate in the weekly grid.
type Slot struct {
	Day          string `json:"day"`
	PeriodNumber int    `json:"period_number"`
}

// SlotConflict describes an existing entry that collides with a candidate placement.
type SlotConflict struct {
	EntryID      string `json:"entry_id,omitempty"`
	Day          string `json:"day"`
	PeriodNumber int    `json:"period_number"`
	TeacherID    string `json:"teacher_id,omitempty"`
	BatchID      string `json:"batch_id,omitempty"`
	SubjectName  string `json:"subject_name,omitempty"`
	Dimension    string `json:"dimension"`
}

// Conflict dimensions.
const (
	ConflictDimensionTeacher    = "TEACHER"
	ConflictDimensionBatch      = "BATCH"
	ConflictDimensionExamBlock  = "EXAM_BLOCK"
	ConflictDimensionSubstitute = "SUBSTITUTE"
)

// SlotConflictError is returned when a placement would double-book a teacher or batch.
type SlotConflictError struct {
	Dimension string         `json:"dimension"`
	Message   string         `json:"message"`
	Conflict  SlotConflict   `json:"conflict"`
	Errors    []SlotConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Details exposes the conflicting slot to API clients.
func (e *SlotConflictError) Details() interface{} {
	return e
}

// SlotCheck summarises what stands in the way of a candidate placement.
type SlotCheck struct {
	Day          string            `json:"day"`
	PeriodNumber int               `json:"period_number"`
	Available    bool              `json:"available"`
	Conflicts    []SlotConflict    `json:"conflicts"`
	Block        *BlockCheckResult `json:"block,omitempty"`
}
