package models

import "time"

// AbsenceType distinguishes whole-day absences from period-level ones.
type AbsenceType string

const (
	AbsenceTypeFullDay AbsenceType = "full_day"
	AbsenceTypePartial AbsenceType = "partial"
)

// TeacherAbsence records that a teacher is unavailable on a date.
type TeacherAbsence struct {
	ID          string      `json:"id"`
	TeacherID   string      `json:"teacher_id"`
	TeacherName string      `json:"teacher_name"`
	Date        string      `json:"date"`
	AbsenceType AbsenceType `json:"absence_type"`
	Periods     []int       `json:"periods,omitempty"`
	Reason      *string     `json:"reason,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Covers reports whether the absence makes the teacher unavailable in period.
func (a TeacherAbsence) Covers(period int) bool {
	if a.AbsenceType == AbsenceTypeFullDay {
		return true
	}
	for _, p := range a.Periods {
		if p == period {
			return true
		}
	}
	return false
}

// Overlaps reports whether both absences make the same teacher unavailable in
// at least one common period. Dates and teachers are not compared.
func (a TeacherAbsence) Overlaps(other TeacherAbsence) bool {
	if a.AbsenceType == AbsenceTypeFullDay || other.AbsenceType == AbsenceTypeFullDay {
		return true
	}
	for _, p := range other.Periods {
		if a.Covers(p) {
			return true
		}
	}
	return false
}

// SubstitutionStatus is the lifecycle state of an assignment.
type SubstitutionStatus string

const (
	SubstitutionStatusAssigned  SubstitutionStatus = "assigned"
	SubstitutionStatusConfirmed SubstitutionStatus = "confirmed"
	SubstitutionStatusDeclined  SubstitutionStatus = "declined"
)

// SubstitutionAssignment overrides the teacher of one entry for a single date.
type SubstitutionAssignment struct {
	ID                    string             `json:"id"`
	AbsenceID             string             `json:"absence_id"`
	OriginalTeacherID     string             `json:"original_teacher_id"`
	SubstituteTeacherID   string             `json:"substitute_teacher_id"`
	SubstituteTeacherName string             `json:"substitute_teacher_name"`
	Date                  string             `json:"date"`
	Period                int                `json:"period"`
	BatchID               string             `json:"batch_id"`
	BatchName             string             `json:"batch_name"`
	Subject               string             `json:"subject"`
	Status                SubstitutionStatus `json:"status"`
	IsTemporary           bool               `json:"is_temporary"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// Live reports whether the assignment still covers its slot.
func (s SubstitutionAssignment) Live() bool {
	return s.Status == SubstitutionStatusAssigned || s.Status == SubstitutionStatusConfirmed
}

// CoverageState is the derived state of an affected slot.
type CoverageState string

const (
	CoverageUncovered CoverageState = "uncovered"
	CoverageAssigned  CoverageState = "substitute_assigned"
	CoverageConfirmed CoverageState = "confirmed"
)

// AffectedSlot pairs an entry invalidated by an absence with its substitution, if any.
type AffectedSlot struct {
	Absence      TeacherAbsence          `json:"absence"`
	Entry        TimetableEntry          `json:"entry"`
	Substitution *SubstitutionAssignment `json:"substitution,omitempty"`
	State        CoverageState           `json:"state"`
}
