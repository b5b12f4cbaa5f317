package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// AbsenceStore persists absences and their substitution assignments. Missing
// rows are reported as sql.ErrNoRows.
type AbsenceStore interface {
	CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error
	GetAbsence(ctx context.Context, id string) (*models.TeacherAbsence, error)
	ListAbsences(ctx context.Context, date string) ([]models.TeacherAbsence, error)
	DeleteAbsence(ctx context.Context, id string) (int, error)

	CreateAssignment(ctx context.Context, assignment *models.SubstitutionAssignment) error
	GetAssignment(ctx context.Context, id string) (*models.SubstitutionAssignment, error)
	ListAssignments(ctx context.Context, date string) ([]models.SubstitutionAssignment, error)
	UpdateAssignmentStatus(ctx context.Context, id string, status models.SubstitutionStatus, updatedAt time.Time) error
	DeleteAssignment(ctx context.Context, id string) error
}

// SubstitutionService handles absences, affected lessons and substitute assignment.
type SubstitutionService struct {
	mu        sync.Mutex
	store     AbsenceStore
	entries   entryLister
	detector  *ConflictDetector
	roster    TeacherLoadRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	schedule  sync.Locker
	now       func() time.Time
}

// SubstitutionOption configures optional collaborators.
type SubstitutionOption func(*SubstitutionService)

// WithScheduleLock makes AssignSubstitute hold l while it checks the weekly
// timetable and stores the assignment, so timetable edits cannot interleave.
func WithScheduleLock(l sync.Locker) SubstitutionOption {
	return func(s *SubstitutionService) {
		if l != nil {
			s.schedule = l
		}
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// NewSubstitutionService reads the weekly timetable through entries and detector.
func NewSubstitutionService(store AbsenceStore, entries entryLister, detector *ConflictDetector, roster TeacherLoadRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, opts ...SubstitutionOption) *SubstitutionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SubstitutionService{
		store:     store,
		entries:   entries,
		detector:  detector,
		roster:    roster,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		schedule:  noopLocker{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// MarkAbsent records an absence. An absence overlapping another one for the
// same teacher and date is rejected; lesson conflicts are not checked here.
func (s *SubstitutionService) MarkAbsent(ctx context.Context, req dto.MarkAbsentRequest) (*models.TeacherAbsence, error) {
	if strings.TrimSpace(req.TeacherID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	absenceType := models.AbsenceType(req.AbsenceType)
	if absenceType == models.AbsenceTypePartial && len(req.Periods) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "partial absences need at least one period")
	}

	absence := models.TeacherAbsence{
		ID:          uuid.NewString(),
		TeacherID:   req.TeacherID,
		TeacherName: req.TeacherID,
		Date:        dateutil.FormatDate(date),
		AbsenceType: absenceType,
		Reason:      req.Reason,
		CreatedAt:   s.now(),
	}
	if absenceType == models.AbsenceTypePartial {
		absence.Periods = uniquePeriods(req.Periods)
	}

	loads, err := s.rosterList(ctx)
	if err != nil {
		return nil, err
	}
	if len(loads) > 0 {
		load, ok := findLoad(loads, req.TeacherID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s not found", req.TeacherID))
		}
		absence.TeacherName = load.TeacherName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.ListAbsences(ctx, absence.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	for _, other := range existing {
		if other.TeacherID == absence.TeacherID && other.Overlaps(absence) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher %s is already marked absent on %s (absence %s)", absence.TeacherID, absence.Date, other.ID))
		}
	}

	if err := s.store.CreateAbsence(ctx, &absence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create absence")
	}
	s.logger.Info("teacher marked absent", zap.String("absence_id", absence.ID), zap.String("teacher_id", absence.TeacherID), zap.String("date", absence.Date), zap.String("type", string(absence.AbsenceType)))
	return &absence, nil
}

// ComputeAffectedEntries pairs every lesson invalidated by an absence on date
// with its substitution. The result is sorted by period ascending.
func (s *SubstitutionService) ComputeAffectedEntries(ctx context.Context, rawDate string) ([]models.AffectedSlot, error) {
	date, err := parseDate(rawDate)
	if err != nil {
		return nil, err
	}
	key := dateutil.FormatDate(date)
	absences, err := s.store.ListAbsences(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	assignments, err := s.store.ListAssignments(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitutions")
	}
	return affectedSlots(s.entries, absences, assignments, dateutil.WeekdayName(date)), nil
}

// AvailableTeachers lists teachers who work on the weekday of date, are not
// excludeTeacherID and have no lesson at that weekday and period. Teachers who
// are absent or already substituting at the slot are ranked last; then lighter
// weekly loads come first.
func (s *SubstitutionService) AvailableTeachers(ctx context.Context, query dto.AvailableTeachersQuery) ([]models.TeacherLoad, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	date, err := parseDate(query.Date)
	if err != nil {
		return nil, err
	}
	key := dateutil.FormatDate(date)
	weekday := dateutil.WeekdayName(date)

	loads, err := s.rosterList(ctx)
	if err != nil {
		return nil, err
	}
	absences, err := s.store.ListAbsences(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	assignments, err := s.store.ListAssignments(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitutions")
	}

	type candidate struct {
		load    models.TeacherLoad
		penalty int
	}
	candidates := make([]candidate, 0, len(loads))
	for _, load := range loads {
		if load.TeacherID == query.ExcludeTeacherID || !load.WorksOn(weekday) {
			continue
		}
		if s.detector.HasTeacherConflict(weekday, query.Period, load.TeacherID, "") {
			continue
		}
		load.AssignedPeriods = len(s.entries.List(models.EntryFilter{TeacherID: load.TeacherID}))
		penalty := 0
		if absentAt(absences, load.TeacherID, query.Period) {
			penalty += 2
		}
		if substitutingAt(assignments, load.TeacherID, query.Period) {
			penalty++
		}
		candidates = append(candidates, candidate{load: load, penalty: penalty})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].penalty != candidates[j].penalty {
			return candidates[i].penalty < candidates[j].penalty
		}
		if candidates[i].load.AssignedPeriods != candidates[j].load.AssignedPeriods {
			return candidates[i].load.AssignedPeriods < candidates[j].load.AssignedPeriods
		}
		return candidates[i].load.TeacherID < candidates[j].load.TeacherID
	})

	result := make([]models.TeacherLoad, len(candidates))
	for i, c := range candidates {
		result[i] = c.load
	}
	return result, nil
}

// AssignSubstitute covers an affected period. Every admissibility rule is
// re-checked under the workflow lock and the schedule lock; the first live
// assignment for a lesson wins.
func (s *SubstitutionService) AssignSubstitute(ctx context.Context, req dto.AssignSubstituteRequest) (*models.SubstitutionAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitution payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule.Lock()
	defer s.schedule.Unlock()

	absence, err := s.store.GetAbsence(ctx, req.AbsenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, absenceNotFound(req.AbsenceID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	if !absence.Covers(req.Period) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("absence %s does not cover period %d", absence.ID, req.Period))
	}
	if req.SubstituteTeacherID == absence.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the absent teacher cannot substitute for themselves")
	}
	date, err := parseDate(absence.Date)
	if err != nil {
		return nil, err
	}
	weekday := dateutil.WeekdayName(date)

	lessons := s.entries.List(models.EntryFilter{Day: weekday, PeriodNumber: req.Period, TeacherID: absence.TeacherID})
	if len(lessons) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s has no lesson on %s period %d", absence.TeacherID, weekday, req.Period))
	}
	lesson := lessons[0]

	substituteName := req.SubstituteTeacherID
	loads, err := s.rosterList(ctx)
	if err != nil {
		return nil, err
	}
	if len(loads) > 0 {
		load, ok := findLoad(loads, req.SubstituteTeacherID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s not found", req.SubstituteTeacherID))
		}
		if !load.WorksOn(weekday) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s does not work on %s", req.SubstituteTeacherID, weekday))
		}
		substituteName = load.TeacherName
	}

	if existing, found := s.detector.firstMatch(weekday, req.Period, "", func(e models.TimetableEntry) bool {
		return e.TeacherID == req.SubstituteTeacherID
	}); found {
		return nil, wrapSlotConflict(models.ConflictDimensionTeacher, "substitute already teaches in this slot", existing)
	}

	absences, err := s.store.ListAbsences(ctx, absence.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	if absentAt(absences, req.SubstituteTeacherID, req.Period) {
		return nil, substituteConflict("substitute is absent in this period", lesson)
	}
	assignments, err := s.store.ListAssignments(ctx, absence.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitutions")
	}
	for _, a := range assignments {
		if !a.Live() || a.Period != req.Period {
			continue
		}
		if a.OriginalTeacherID == absence.TeacherID || a.BatchID == lesson.BatchID {
			return nil, substituteConflict("slot is already covered by "+a.SubstituteTeacherID, lesson)
		}
		if a.SubstituteTeacherID == req.SubstituteTeacherID {
			return nil, substituteConflict("substitute is already covering another lesson in this period", lesson)
		}
	}

	now := s.now()
	assignment := models.SubstitutionAssignment{
		ID:                    uuid.NewString(),
		AbsenceID:             absence.ID,
		OriginalTeacherID:     absence.TeacherID,
		SubstituteTeacherID:   req.SubstituteTeacherID,
		SubstituteTeacherName: substituteName,
		Date:                  absence.Date,
		Period:                req.Period,
		BatchID:               lesson.BatchID,
		BatchName:             lesson.BatchName,
		Subject:               lesson.SubjectName,
		Status:                models.SubstitutionStatusAssigned,
		IsTemporary:           true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.CreateAssignment(ctx, &assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create substitution")
	}
	s.metrics.RecordSubstitution(string(assignment.Status))
	s.logger.Info("substitute assigned", zap.String("assignment_id", assignment.ID), zap.String("absence_id", absence.ID), zap.Int("period", assignment.Period), zap.String("substitute_id", assignment.SubstituteTeacherID))
	return &assignment, nil
}

// ConfirmSubstitution moves an assigned substitution to confirmed.
func (s *SubstitutionService) ConfirmSubstitution(ctx context.Context, id string) (*models.SubstitutionAssignment, error) {
	return s.transition(ctx, id, models.SubstitutionStatusConfirmed)
}

// DeclineSubstitution marks an assigned substitution declined; the slot becomes uncovered.
func (s *SubstitutionService) DeclineSubstitution(ctx context.Context, id string) (*models.SubstitutionAssignment, error) {
	return s.transition(ctx, id, models.SubstitutionStatusDeclined)
}

func (s *SubstitutionService) transition(ctx context.Context, id string, status models.SubstitutionStatus) (*models.SubstitutionAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignment, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, substitutionNotFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution")
	}
	if assignment.Status != models.SubstitutionStatusAssigned {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("substitution %s is %s and can no longer change", id, assignment.Status))
	}
	now := s.now()
	if err := s.store.UpdateAssignmentStatus(ctx, id, status, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, substitutionNotFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update substitution")
	}
	assignment.Status = status
	assignment.UpdatedAt = now
	s.metrics.RecordSubstitution(string(status))
	s.logger.Info("substitution status changed", zap.String("assignment_id", id), zap.String("status", string(status)))
	return assignment, nil
}

// RemoveSubstitution deletes an assignment; the slot reverts to uncovered.
func (s *SubstitutionService) RemoveSubstitution(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteAssignment(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return substitutionNotFound(id)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete substitution")
	}
	s.metrics.RecordSubstitution("removed")
	s.logger.Info("substitution removed", zap.String("assignment_id", id))
	return nil
}

// CancelAbsence deletes an absence and every assignment referencing it.
func (s *SubstitutionService) CancelAbsence(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.DeleteAbsence(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, absenceNotFound(id)
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel absence")
	}
	s.logger.Info("absence cancelled", zap.String("absence_id", id), zap.Int("substitutions_removed", removed))
	return removed, nil
}

// ListAbsences lists absences, optionally restricted to one date.
func (s *SubstitutionService) ListAbsences(ctx context.Context, rawDate string) ([]models.TeacherAbsence, error) {
	key, err := optionalDate(rawDate)
	if err != nil {
		return nil, err
	}
	absences, err := s.store.ListAbsences(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	return absences, nil
}

// ListSubstitutions lists assignments, optionally restricted to one date.
func (s *SubstitutionService) ListSubstitutions(ctx context.Context, rawDate string) ([]models.SubstitutionAssignment, error) {
	key, err := optionalDate(rawDate)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.ListAssignments(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitutions")
	}
	return assignments, nil
}

func (s *SubstitutionService) rosterList(ctx context.Context) ([]models.TeacherLoad, error) {
	if s.roster == nil {
		return nil, nil
	}
	loads, err := s.roster.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher roster")
	}
	return loads, nil
}

func affectedSlots(entries entryLister, absences []models.TeacherAbsence, assignments []models.SubstitutionAssignment, weekday string) []models.AffectedSlot {
	result := make([]models.AffectedSlot, 0)
	seen := make(map[string]struct{})
	for _, absence := range absences {
		for _, entry := range entries.List(models.EntryFilter{Day: weekday, TeacherID: absence.TeacherID}) {
			if !absence.Covers(entry.PeriodNumber) {
				continue
			}
			if _, dup := seen[entry.ID]; dup {
				continue
			}
			seen[entry.ID] = struct{}{}
			slot := models.AffectedSlot{Absence: absence, Entry: entry, State: models.CoverageUncovered}
			if assignment := coveringAssignment(assignments, absence.TeacherID, entry.PeriodNumber); assignment != nil {
				slot.Substitution = assignment
				switch assignment.Status {
				case models.SubstitutionStatusConfirmed:
					slot.State = models.CoverageConfirmed
				case models.SubstitutionStatusAssigned:
					slot.State = models.CoverageAssigned
				}
			}
			result = append(result, slot)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Entry.PeriodNumber != result[j].Entry.PeriodNumber {
			return result[i].Entry.PeriodNumber < result[j].Entry.PeriodNumber
		}
		return result[i].Entry.ID < result[j].Entry.ID
	})
	return result
}

// coveringAssignment prefers a live assignment and falls back to the latest declined one.
func coveringAssignment(assignments []models.SubstitutionAssignment, teacherID string, period int) *models.SubstitutionAssignment {
	var declined *models.SubstitutionAssignment
	for i := range assignments {
		a := assignments[i]
		if a.OriginalTeacherID != teacherID || a.Period != period {
			continue
		}
		if a.Live() {
			return &a
		}
		if declined == nil || a.UpdatedAt.After(declined.UpdatedAt) {
			declined = &a
		}
	}
	return declined
}

func absentAt(absences []models.TeacherAbsence, teacherID string, period int) bool {
	for _, a := range absences {
		if a.TeacherID == teacherID && a.Covers(period) {
			return true
		}
	}
	return false
}

func substitutingAt(assignments []models.SubstitutionAssignment, teacherID string, period int) bool {
	for _, a := range assignments {
		if a.Live() && a.SubstituteTeacherID == teacherID && a.Period == period {
			return true
		}
	}
	return false
}

func findLoad(loads []models.TeacherLoad, teacherID string) (models.TeacherLoad, bool) {
	for _, load := range loads {
		if load.TeacherID == teacherID {
			return load, true
		}
	}
	return models.TeacherLoad{}, false
}

func uniquePeriods(periods []int) []int {
	seen := make(map[int]struct{}, len(periods))
	result := make([]int, 0, len(periods))
	for _, p := range periods {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	sort.Ints(result)
	return result
}

func substituteConflict(message string, lesson models.TimetableEntry) error {
	return wrapSlotConflict(models.ConflictDimensionSubstitute, message, lesson)
}

func parseDate(raw string) (time.Time, error) {
	date, err := dateutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid date %q", raw))
	}
	return date, nil
}

func optionalDate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	date, err := parseDate(raw)
	if err != nil {
		return "", err
	}
	return dateutil.FormatDate(date), nil
}

func absenceNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("absence %s not found", id))
}

func substitutionNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("substitution %s not found", id))
}
