package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// actionRecorder receives every successful store mutation.
type actionRecorder interface {
	record(action models.Action)
}

// EntryStore holds the current set of timetable entries. It enforces structural
// invariants only; slot conflicts are the caller's responsibility.
type EntryStore struct {
	mu       sync.RWMutex
	entries  map[string]models.TimetableEntry
	recorder actionRecorder
	now      func() time.Time
}

// NewEntryStore builds an empty store.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		entries: make(map[string]models.TimetableEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Add inserts a new entry, generating an id when none is given.
func (s *EntryStore) Add(entry models.TimetableEntry) (models.TimetableEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	day, err := validateEntry(entry)
	if err != nil {
		return models.TimetableEntry{}, err
	}
	entry.Day = day
	now := s.now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	s.mu.Lock()
	if _, exists := s.entries[entry.ID]; exists {
		s.mu.Unlock()
		return models.TimetableEntry{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("entry %s already exists", entry.ID))
	}
	s.entries[entry.ID] = entry
	s.mu.Unlock()

	s.report(models.Action{
		Type:        models.ActionAdd,
		Entry:       entry,
		Timestamp:   now,
		Description: fmt.Sprintf("Added %s for %s on %s period %d", entry.SubjectName, entry.BatchName, entry.Day, entry.PeriodNumber),
	})
	return entry, nil
}

// Remove deletes an entry and returns what was removed.
func (s *EntryStore) Remove(id string) (models.TimetableEntry, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return models.TimetableEntry{}, entryNotFound(id)
	}
	delete(s.entries, id)
	s.mu.Unlock()

	s.report(models.Action{
		Type:        models.ActionRemove,
		Entry:       entry,
		Timestamp:   s.now(),
		Description: fmt.Sprintf("Removed %s for %s from %s period %d", entry.SubjectName, entry.BatchName, entry.Day, entry.PeriodNumber),
	})
	return entry, nil
}

// Update applies a partial change to an entry's teacher, batch or subject.
func (s *EntryStore) Update(id string, patch models.EntryPatch) (models.TimetableEntry, error) {
	if patch.Empty() {
		return models.TimetableEntry{}, appErrors.Clone(appErrors.ErrValidation, "update requires at least one field")
	}

	s.mu.Lock()
	previous, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return models.TimetableEntry{}, entryNotFound(id)
	}
	updated := patch.Apply(previous)
	if _, err := validateEntry(updated); err != nil {
		s.mu.Unlock()
		return models.TimetableEntry{}, err
	}
	now := s.now()
	updated.UpdatedAt = now
	s.entries[id] = updated
	s.mu.Unlock()

	s.report(models.Action{
		Type:          models.ActionUpdate,
		Entry:         updated,
		PreviousEntry: &previous,
		Timestamp:     now,
		Description:   fmt.Sprintf("Updated %s on %s period %d", updated.SubjectName, updated.Day, updated.PeriodNumber),
	})
	return updated, nil
}

// Move relocates an entry to another slot as a single history action.
func (s *EntryStore) Move(id, day string, period int) (models.TimetableEntry, error) {
	s.mu.Lock()
	previous, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return models.TimetableEntry{}, entryNotFound(id)
	}
	moved := previous
	moved.Day = day
	moved.PeriodNumber = period
	normalized, err := validateEntry(moved)
	if err != nil {
		s.mu.Unlock()
		return models.TimetableEntry{}, err
	}
	moved.Day = normalized
	now := s.now()
	moved.UpdatedAt = now
	s.entries[id] = moved
	s.mu.Unlock()

	s.report(models.Action{
		Type:          models.ActionMove,
		Entry:         moved,
		PreviousEntry: &previous,
		Timestamp:     now,
		Description:   fmt.Sprintf("Moved %s from %s period %d to %s period %d", moved.SubjectName, previous.Day, previous.PeriodNumber, moved.Day, moved.PeriodNumber),
	})
	return moved, nil
}

// Get returns a single entry.
func (s *EntryStore) Get(id string) (models.TimetableEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// List returns entries matching filter ordered by weekday, period and id.
func (s *EntryStore) List(filter models.EntryFilter) []models.TimetableEntry {
	s.mu.RLock()
	result := make([]models.TimetableEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if matchesFilter(entry, filter) {
			result = append(result, entry)
		}
	}
	s.mu.RUnlock()
	sortEntries(result)
	return result
}

// Snapshot returns every entry in listing order.
func (s *EntryStore) Snapshot() []models.TimetableEntry {
	return s.List(models.EntryFilter{})
}

// Len returns the number of stored entries.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset replaces the store content without recording history.
func (s *EntryStore) Reset(entries []models.TimetableEntry) error {
	next := make(map[string]models.TimetableEntry, len(entries))
	for _, entry := range entries {
		day, err := validateEntry(entry)
		if err != nil {
			return err
		}
		if _, dup := next[entry.ID]; dup {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("duplicate entry id %s", entry.ID))
		}
		entry.Day = day
		next[entry.ID] = entry
	}
	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()
	return nil
}

// insert, discard and replace are the unrecorded primitives used to apply
// history inverses.

func (s *EntryStore) insert(entry models.TimetableEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.ID]; exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("entry %s already exists", entry.ID))
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *EntryStore) discard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return entryNotFound(id)
	}
	delete(s.entries, id)
	return nil
}

func (s *EntryStore) replace(entry models.TimetableEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return entryNotFound(entry.ID)
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *EntryStore) report(action models.Action) {
	if s.recorder != nil {
		s.recorder.record(action)
	}
}

func validateEntry(entry models.TimetableEntry) (string, error) {
	var missing []string
	if strings.TrimSpace(entry.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(entry.TeacherID) == "" {
		missing = append(missing, "teacher_id")
	}
	if strings.TrimSpace(entry.BatchID) == "" {
		missing = append(missing, "batch_id")
	}
	if strings.TrimSpace(entry.SubjectName) == "" {
		missing = append(missing, "subject_name")
	}
	if len(missing) > 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry is missing %s", strings.Join(missing, ", ")))
	}
	if entry.PeriodNumber < 1 {
		return "", appErrors.Clone(appErrors.ErrValidation, "period_number must be positive")
	}
	day, err := dateutil.NormalizeDay(entry.Day)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid day %q", entry.Day))
	}
	return day, nil
}

func matchesFilter(entry models.TimetableEntry, filter models.EntryFilter) bool {
	if filter.Day != "" && !dateutil.SameDay(entry.Day, filter.Day) {
		return false
	}
	if filter.PeriodNumber > 0 && entry.PeriodNumber != filter.PeriodNumber {
		return false
	}
	if filter.TeacherID != "" && entry.TeacherID != filter.TeacherID {
		return false
	}
	if filter.BatchID != "" && entry.BatchID != filter.BatchID {
		return false
	}
	return true
}

func sortEntries(entries []models.TimetableEntry) {
	sort.Slice(entries, func(i, j int) bool {
		di, dj := dateutil.DayIndex(entries[i].Day), dateutil.DayIndex(entries[j].Day)
		if di != dj {
			return di < dj
		}
		if entries[i].PeriodNumber != entries[j].PeriodNumber {
			return entries[i].PeriodNumber < entries[j].PeriodNumber
		}
		return entries[i].ID < entries[j].ID
	})
}

func entryNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("entry %s not found", id))
}
