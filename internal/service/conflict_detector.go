package service

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type entryLister interface {
	List(filter models.EntryFilter) []models.TimetableEntry
}

// ConflictDetector answers double-booking questions against the current entries.
type ConflictDetector struct {
	entries entryLister
}

// NewConflictDetector reads entries through the given lister.
func NewConflictDetector(entries entryLister) *ConflictDetector {
	return &ConflictDetector{entries: entries}
}

// HasTeacherConflict reports whether teacherID already teaches at day/period.
func (d *ConflictDetector) HasTeacherConflict(day string, period int, teacherID, excludeEntryID string) bool {
	_, found := d.firstMatch(day, period, excludeEntryID, func(e models.TimetableEntry) bool {
		return e.TeacherID == teacherID
	})
	return found
}

// HasBatchConflict reports whether batchID already has a class at day/period.
func (d *ConflictDetector) HasBatchConflict(day string, period int, batchID, excludeEntryID string) bool {
	_, found := d.firstMatch(day, period, excludeEntryID, func(e models.TimetableEntry) bool {
		return e.BatchID == batchID
	})
	return found
}

// Check returns a typed conflict error for the first violation the candidate would cause.
func (d *ConflictDetector) Check(candidate models.TimetableEntry, excludeEntryID string) error {
	if existing, found := d.firstMatch(candidate.Day, candidate.PeriodNumber, excludeEntryID, func(e models.TimetableEntry) bool {
		return e.BatchID == candidate.BatchID
	}); found {
		return wrapSlotConflict(models.ConflictDimensionBatch, "batch already scheduled for this slot", existing)
	}
	if existing, found := d.firstMatch(candidate.Day, candidate.PeriodNumber, excludeEntryID, func(e models.TimetableEntry) bool {
		return e.TeacherID == candidate.TeacherID
	}); found {
		return wrapSlotConflict(models.ConflictDimensionTeacher, "teacher already scheduled for this slot", existing)
	}
	return nil
}

// FindConflicts lists every entry the candidate would collide with.
func (d *ConflictDetector) FindConflicts(candidate models.TimetableEntry, excludeEntryID string) []models.SlotConflict {
	var conflicts []models.SlotConflict
	for _, e := range d.slotEntries(candidate.Day, candidate.PeriodNumber) {
		if e.ID == excludeEntryID {
			continue
		}
		if candidate.BatchID != "" && e.BatchID == candidate.BatchID {
			conflicts = append(conflicts, slotConflict(models.ConflictDimensionBatch, e))
		}
		if candidate.TeacherID != "" && e.TeacherID == candidate.TeacherID {
			conflicts = append(conflicts, slotConflict(models.ConflictDimensionTeacher, e))
		}
	}
	return conflicts
}

func (d *ConflictDetector) firstMatch(day string, period int, excludeEntryID string, match func(models.TimetableEntry) bool) (models.TimetableEntry, bool) {
	for _, e := range d.slotEntries(day, period) {
		if excludeEntryID != "" && e.ID == excludeEntryID {
			continue
		}
		if match(e) {
			return e, true
		}
	}
	return models.TimetableEntry{}, false
}

func (d *ConflictDetector) slotEntries(day string, period int) []models.TimetableEntry {
	if d == nil || d.entries == nil {
		return nil
	}
	if normalized, err := dateutil.NormalizeDay(day); err == nil {
		day = normalized
	}
	return d.entries.List(models.EntryFilter{Day: day, PeriodNumber: period})
}

func slotConflict(dimension string, existing models.TimetableEntry) models.SlotConflict {
	return models.SlotConflict{
		EntryID:      existing.ID,
		Day:          existing.Day,
		PeriodNumber: existing.PeriodNumber,
		TeacherID:    existing.TeacherID,
		BatchID:      existing.BatchID,
		SubjectName:  existing.SubjectName,
		Dimension:    dimension,
	}
}

func wrapSlotConflict(dimension, message string, existing models.TimetableEntry) error {
	domainErr := &models.SlotConflictError{Dimension: dimension, Message: message, Conflict: slotConflict(dimension, existing)}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("schedule conflict: %s", message))
}

type entrySet []models.TimetableEntry

func (s entrySet) List(filter models.EntryFilter) []models.TimetableEntry {
	var out []models.TimetableEntry
	for _, e := range s {
		if matchesFilter(e, filter) {
			out = append(out, e)
		}
	}
	return out
}

// CheckEntrySet reports the first double-booked teacher or batch in a whole
// timetable, e.g. one read from the database or a seed file. Entries are
// checked in timetable order so the earlier entry is reported as existing.
func CheckEntrySet(entries []models.TimetableEntry) error {
	ordered := append([]models.TimetableEntry(nil), entries...)
	sortEntries(ordered)
	seen := make(entrySet, 0, len(ordered))
	detector := NewConflictDetector(&seen)
	for _, e := range ordered {
		if err := detector.Check(e, ""); err != nil {
			return err
		}
		seen = append(seen, e)
	}
	return nil
}
