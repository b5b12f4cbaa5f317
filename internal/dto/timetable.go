package dto

// PlaceEntryRequest places a lesson on the weekly grid. Date is optional and,
// when given, must fall on Day; it enables the exam block check.
type PlaceEntryRequest struct {
	ID           string `json:"id" validate:"omitempty,max=64"`
	Day          string `json:"day" validate:"required"`
	PeriodNumber int    `json:"period_number" validate:"required,min=1"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	BatchID      string `json:"batch_id" validate:"required"`
	SubjectName  string `json:"subject_name" validate:"omitempty,max=120"`
	Date         string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// MoveEntryRequest relocates an entry to another slot.
type MoveEntryRequest struct {
	Day          string `json:"day" validate:"required"`
	PeriodNumber int    `json:"period_number" validate:"required,min=1"`
	Date         string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateEntryRequest changes who teaches what in an entry's slot.
type UpdateEntryRequest struct {
	TeacherID   *string `json:"teacher_id" validate:"omitempty,min=1"`
	BatchID     *string `json:"batch_id" validate:"omitempty,min=1"`
	SubjectName *string `json:"subject_name" validate:"omitempty,min=1,max=120"`
}

// CheckSlotRequest asks what would block a candidate placement.
type CheckSlotRequest struct {
	Day            string `form:"day" json:"day" validate:"required"`
	PeriodNumber   int    `form:"period" json:"period_number" validate:"required,min=1"`
	TeacherID      string `form:"teacher_id" json:"teacher_id"`
	BatchID        string `form:"batch_id" json:"batch_id"`
	ExcludeEntryID string `form:"exclude_entry_id" json:"exclude_entry_id"`
	Date           string `form:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// BlockCheckRequest asks whether a dated slot is pre-empted by an exam block.
type BlockCheckRequest struct {
	Date    string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Period  int    `form:"period" json:"period" validate:"required,min=1"`
	BatchID string `form:"batch_id" json:"batch_id" validate:"required"`
}

// MarkAbsentRequest records a teacher absence. Periods are required for partial absences.
type MarkAbsentRequest struct {
	TeacherID   string  `json:"teacher_id" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	AbsenceType string  `json:"absence_type" validate:"required,oneof=full_day partial"`
	Periods     []int   `json:"periods" validate:"required_if=AbsenceType partial,dive,min=1"`
	Reason      *string `json:"reason" validate:"omitempty,max=255"`
}

// AssignSubstituteRequest covers one affected slot with another teacher.
type AssignSubstituteRequest struct {
	AbsenceID           string `json:"absence_id" validate:"required"`
	Period              int    `json:"period" validate:"required,min=1"`
	SubstituteTeacherID string `json:"substitute_teacher_id" validate:"required"`
}

// AvailableTeachersQuery lists teachers who could cover a dated period.
type AvailableTeachersQuery struct {
	Date             string `form:"date" validate:"required,datetime=2006-01-02"`
	Period           int    `form:"period" validate:"required,min=1"`
	ExcludeTeacherID string `form:"exclude_teacher_id"`
}

// ExportQuery selects the export format and an optional grid filter.
type ExportQuery struct {
	Format    string `form:"format" validate:"omitempty,oneof=csv pdf"`
	TeacherID string `form:"teacher_id"`
	BatchID   string `form:"batch_id"`
	Day       string `form:"day"`
}
