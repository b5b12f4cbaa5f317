package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

// SnapshotJobType identifies autosave jobs on the queue.
const SnapshotJobType = "timetable.snapshot"

// TimetableEntryRepository persists the whole entry set.
type TimetableEntryRepository interface {
	List(ctx context.Context) ([]models.TimetableEntry, error)
	ReplaceAll(ctx context.Context, entries []models.TimetableEntry) error
}

// TeacherLoadRepository lists the teacher roster.
type TeacherLoadRepository interface {
	List(ctx context.Context) ([]models.TeacherLoad, error)
}

type slotBlockChecker interface {
	IsSlotBlocked(ctx context.Context, date time.Time, period int, batchID string) (models.BlockCheckResult, error)
}

type snapshotQueue interface {
	Enqueue(job jobs.Job) (string, error)
}

// SnapshotPayload is the autosave job payload. Older versions are skipped.
type SnapshotPayload struct {
	Version uint64
	Entries []models.TimetableEntry
}

// TimetableConfig bounds the weekly grid.
type TimetableConfig struct {
	WorkingDays   []string
	PeriodsPerDay int
	HistoryLimit  int
}

// TimetableServiceOption configures the service.
type TimetableServiceOption func(*TimetableService)

// WithExamBlocks enables the exam block check for dated placements and moves.
func WithExamBlocks(blocks slotBlockChecker) TimetableServiceOption {
	return func(s *TimetableService) {
		s.blocks = blocks
	}
}

// WithAutosave enqueues a snapshot after every successful change.
func WithAutosave(queue snapshotQueue) TimetableServiceOption {
	return func(s *TimetableService) {
		s.autosave = queue
	}
}

// WithTimetableMetrics records mutations, conflicts and history operations.
func WithTimetableMetrics(metrics *MetricsService) TimetableServiceOption {
	return func(s *TimetableService) {
		s.metrics = metrics
	}
}

// TimetableService is the entry point for timetable edits. One mutex makes
// check, mutate and record a single step.
type TimetableService struct {
	mu       sync.RWMutex
	store    *EntryStore
	history  *ActionHistory
	detector *ConflictDetector

	repo      TimetableEntryRepository
	roster    TeacherLoadRepository
	blocks    slotBlockChecker
	autosave  snapshotQueue
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig

	version   atomic.Uint64
	savedMu   sync.Mutex
	savedUpTo uint64
}

// NewTimetableService wires a fresh store, history and detector.
func NewTimetableService(repo TimetableEntryRepository, roster TeacherLoadRepository, cfg TimetableConfig, validate *validator.Validate, logger *zap.Logger, opts ...TimetableServiceOption) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PeriodsPerDay <= 0 {
		cfg.PeriodsPerDay = 8
	}
	store := NewEntryStore()
	s := &TimetableService{
		store:     store,
		history:   NewActionHistory(store, cfg.HistoryLimit),
		detector:  NewConflictDetector(store),
		repo:      repo,
		roster:    roster,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Store exposes the live entry store for read-only collaborators.
func (s *TimetableService) Store() *EntryStore {
	return s.store
}

// Detector exposes the conflict detector over the live store.
func (s *TimetableService) Detector() *ConflictDetector {
	return s.detector
}

// PlaceEntry adds an entry after roster, grid, exam block and conflict checks.
func (s *TimetableService) PlaceEntry(ctx context.Context, req dto.PlaceEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload")
	}
	day, err := s.checkSlot(req.Day, req.PeriodNumber)
	if err != nil {
		return nil, err
	}

	candidate := models.TimetableEntry{
		ID:           req.ID,
		Day:          day,
		PeriodNumber: req.PeriodNumber,
		TeacherID:    req.TeacherID,
		BatchID:      req.BatchID,
		SubjectName:  strings.TrimSpace(req.SubjectName),
	}

	roster, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}
	if err := resolveAssignment(roster, &candidate); err != nil {
		return nil, err
	}
	if candidate.SubjectName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject_name is required when the teacher has no subject for this batch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureNotBlocked(ctx, req.Date, candidate); err != nil {
		return nil, err
	}
	if err := s.ensureNoConflict(candidate, ""); err != nil {
		return nil, err
	}

	entry, err := s.store.Add(candidate)
	if err != nil {
		return nil, err
	}
	s.afterMutation(models.ActionAdd)
	s.logger.Info("timetable entry placed", zap.String("entry_id", entry.ID), zap.String("day", entry.Day), zap.Int("period", entry.PeriodNumber), zap.String("teacher_id", entry.TeacherID), zap.String("batch_id", entry.BatchID))
	return &entry, nil
}

// MoveEntry relocates an entry; the entry's own slot never counts as a conflict.
func (s *TimetableService) MoveEntry(ctx context.Context, id string, req dto.MoveEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	day, err := s.checkSlot(req.Day, req.PeriodNumber)
	if err != nil {
		return nil, err
	}
	roster, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.store.Get(id)
	if !ok {
		return nil, entryNotFound(id)
	}
	candidate := current
	candidate.Day = day
	candidate.PeriodNumber = req.PeriodNumber
	if load, ok := roster[candidate.TeacherID]; ok && !load.WorksOn(day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s does not work on %s", candidate.TeacherID, day))
	}
	if err := s.ensureNotBlocked(ctx, req.Date, candidate); err != nil {
		return nil, err
	}
	if err := s.ensureNoConflict(candidate, id); err != nil {
		return nil, err
	}

	moved, err := s.store.Move(id, day, req.PeriodNumber)
	if err != nil {
		return nil, err
	}
	s.afterMutation(models.ActionMove)
	s.logger.Info("timetable entry moved", zap.String("entry_id", id), zap.String("from_day", current.Day), zap.Int("from_period", current.PeriodNumber), zap.String("to_day", moved.Day), zap.Int("to_period", moved.PeriodNumber))
	return &moved, nil
}

// UpdateEntry changes the teacher, batch or subject of an entry in place.
func (s *TimetableService) UpdateEntry(ctx context.Context, id string, req dto.UpdateEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	if req.TeacherID == nil && req.BatchID == nil && req.SubjectName == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "update requires at least one field")
	}
	roster, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.store.Get(id)
	if !ok {
		return nil, entryNotFound(id)
	}
	candidate := current
	if req.TeacherID != nil {
		candidate.TeacherID = *req.TeacherID
	}
	if req.BatchID != nil {
		candidate.BatchID = *req.BatchID
	}
	if req.SubjectName != nil {
		candidate.SubjectName = strings.TrimSpace(*req.SubjectName)
	}
	if req.TeacherID != nil || req.BatchID != nil {
		if req.SubjectName == nil {
			candidate.SubjectName = ""
		}
		candidate.TeacherName, candidate.BatchName = "", ""
		if err := resolveAssignment(roster, &candidate); err != nil {
			return nil, err
		}
		if candidate.SubjectName == "" {
			candidate.SubjectName = current.SubjectName
		}
		if err := s.ensureNoConflict(candidate, id); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.Update(id, models.EntryPatch{
		TeacherID:   &candidate.TeacherID,
		TeacherName: &candidate.TeacherName,
		BatchID:     &candidate.BatchID,
		BatchName:   &candidate.BatchName,
		SubjectName: &candidate.SubjectName,
	})
	if err != nil {
		return nil, err
	}
	s.afterMutation(models.ActionUpdate)
	s.logger.Info("timetable entry updated", zap.String("entry_id", id))
	return &updated, nil
}

// RemoveEntry deletes an entry.
func (s *TimetableService) RemoveEntry(ctx context.Context, id string) (*models.TimetableEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.Remove(id)
	if err != nil {
		return nil, err
	}
	s.afterMutation(models.ActionRemove)
	s.logger.Info("timetable entry removed", zap.String("entry_id", id))
	return &removed, nil
}

// Undo reverts the latest change.
func (s *TimetableService) Undo(ctx context.Context) (*models.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, err := s.history.Undo()
	s.metrics.RecordHistory("undo", err == nil)
	if err != nil {
		return nil, err
	}
	s.afterHistoryStep()
	s.logger.Info("timetable change undone", zap.String("type", string(action.Type)), zap.String("entry_id", action.Entry.ID))
	return &action, nil
}

// Redo re-applies the latest undone change.
func (s *TimetableService) Redo(ctx context.Context) (*models.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, err := s.history.Redo()
	s.metrics.RecordHistory("redo", err == nil)
	if err != nil {
		return nil, err
	}
	s.afterHistoryStep()
	s.logger.Info("timetable change redone", zap.String("type", string(action.Type)), zap.String("entry_id", action.Entry.ID))
	return &action, nil
}

// History returns both history stacks.
func (s *TimetableService) History() models.HistoryState {
	return s.history.State()
}

// ListEntries returns entries matching filter in grid order.
func (s *TimetableService) ListEntries(filter models.EntryFilter) []models.TimetableEntry {
	if filter.Day != "" {
		if day, err := dateutil.NormalizeDay(filter.Day); err == nil {
			filter.Day = day
		}
	}
	return s.store.List(filter)
}

// GetEntry returns a single entry.
func (s *TimetableService) GetEntry(id string) (*models.TimetableEntry, error) {
	entry, ok := s.store.Get(id)
	if !ok {
		return nil, entryNotFound(id)
	}
	return &entry, nil
}

// CheckSlot reports the conflicts and exam block a candidate would hit without mutating anything.
func (s *TimetableService) CheckSlot(ctx context.Context, req dto.CheckSlotRequest) (*models.SlotCheck, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot query")
	}
	day, err := dateutil.NormalizeDay(req.Day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid day %q", req.Day))
	}
	candidate := models.TimetableEntry{Day: day, PeriodNumber: req.PeriodNumber, TeacherID: req.TeacherID, BatchID: req.BatchID}
	result := &models.SlotCheck{
		Day:          day,
		PeriodNumber: req.PeriodNumber,
		Conflicts:    s.detector.FindConflicts(candidate, req.ExcludeEntryID),
	}
	if result.Conflicts == nil {
		result.Conflicts = []models.SlotConflict{}
	}
	if req.Date != "" && req.BatchID != "" && s.blocks != nil {
		date, err := s.datedSlot(req.Date, day)
		if err != nil {
			return nil, err
		}
		check, err := s.blocks.IsSlotBlocked(ctx, date, req.PeriodNumber, req.BatchID)
		if err != nil {
			return nil, err
		}
		if check.Blocked {
			result.Block = &check
		}
	}
	result.Available = len(result.Conflicts) == 0 && result.Block == nil
	return result, nil
}

// TeacherLoads returns the roster with the number of periods currently scheduled per teacher.
func (s *TimetableService) TeacherLoads(ctx context.Context) ([]models.TeacherLoad, error) {
	if s.roster == nil {
		return []models.TeacherLoad{}, nil
	}
	loads, err := s.roster.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher loads")
	}
	counts := make(map[string]int)
	for _, entry := range s.store.Snapshot() {
		counts[entry.TeacherID]++
	}
	result := make([]models.TeacherLoad, len(loads))
	for i, load := range loads {
		load.AssignedPeriods = counts[load.TeacherID]
		result[i] = load
	}
	return result, nil
}

// ScheduleLock returns a read lock on the timetable. Holders see no edit,
// undo, redo or reload until they release it.
func (s *TimetableService) ScheduleLock() sync.Locker {
	return s.mu.RLocker()
}

// Load replaces the in-memory timetable with the persisted one and clears history.
func (s *TimetableService) Load(ctx context.Context) error {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	if err := CheckEntrySet(entries); err != nil {
		s.logger.Warn("persisted timetable is double-booked", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Reset(entries); err != nil {
		return err
	}
	s.history.Clear()
	s.metrics.SetEntries(len(entries))
	s.logger.Info("timetable loaded", zap.Int("entries", len(entries)))
	return nil
}

// Save persists the current timetable in one transaction.
func (s *TimetableService) Save(ctx context.Context) (int, error) {
	s.mu.Lock()
	snapshot := s.store.Snapshot()
	version := s.version.Load()
	s.mu.Unlock()

	if err := s.persist(ctx, SnapshotPayload{Version: version, Entries: snapshot}); err != nil {
		return 0, err
	}
	return len(snapshot), nil
}

// SnapshotHandler returns the autosave queue handler.
func (s *TimetableService) SnapshotHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(SnapshotPayload)
		if !ok {
			s.logger.Error("unexpected snapshot payload", zap.String("job_id", job.ID))
			return nil
		}
		return s.persist(ctx, payload)
	}
}

func (s *TimetableService) persist(ctx context.Context, payload SnapshotPayload) error {
	s.savedMu.Lock()
	defer s.savedMu.Unlock()
	if payload.Version < s.savedUpTo {
		s.logger.Debug("skipping stale snapshot", zap.Uint64("version", payload.Version), zap.Uint64("saved", s.savedUpTo))
		return nil
	}
	if err := s.repo.ReplaceAll(ctx, payload.Entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	s.savedUpTo = payload.Version
	s.logger.Info("timetable saved", zap.Int("entries", len(payload.Entries)), zap.Uint64("version", payload.Version))
	return nil
}

func (s *TimetableService) afterMutation(actionType models.ActionType) {
	s.metrics.RecordMutation(actionType, s.store.Len())
	s.enqueueSnapshot()
}

func (s *TimetableService) afterHistoryStep() {
	s.metrics.SetEntries(s.store.Len())
	s.enqueueSnapshot()
}

// enqueueSnapshot must be called with s.mu held so versions follow mutation order.
func (s *TimetableService) enqueueSnapshot() {
	version := s.version.Add(1)
	if s.autosave == nil {
		return
	}
	payload := SnapshotPayload{Version: version, Entries: s.store.Snapshot()}
	if _, err := s.autosave.Enqueue(jobs.Job{Type: SnapshotJobType, Key: SnapshotJobType, Payload: payload}); err != nil {
		s.logger.Warn("failed to enqueue timetable snapshot", zap.Uint64("version", version), zap.Error(err))
	}
}

// checkSlot normalises day and checks it against the configured grid.
func (s *TimetableService) checkSlot(rawDay string, period int) (string, error) {
	day, err := dateutil.NormalizeDay(rawDay)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid day %q", rawDay))
	}
	if len(s.cfg.WorkingDays) > 0 && !containsDay(s.cfg.WorkingDays, day) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a working day", day))
	}
	if period < 1 || period > s.cfg.PeriodsPerDay {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period_number must be between 1 and %d", s.cfg.PeriodsPerDay))
	}
	return day, nil
}

func (s *TimetableService) rosterIndex(ctx context.Context) (map[string]models.TeacherLoad, error) {
	if s.roster == nil {
		return nil, nil
	}
	loads, err := s.roster.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher roster")
	}
	index := make(map[string]models.TeacherLoad, len(loads))
	for _, load := range loads {
		index[load.TeacherID] = load
	}
	return index, nil
}

// resolveAssignment fills names and the default subject from the roster and
// enforces working days and allowed batches. An empty roster checks nothing.
func resolveAssignment(roster map[string]models.TeacherLoad, entry *models.TimetableEntry) error {
	if len(roster) == 0 {
		fillNames(entry)
		return nil
	}
	load, ok := roster[entry.TeacherID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s not found", entry.TeacherID))
	}
	if !load.WorksOn(entry.Day) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s does not work on %s", entry.TeacherID, entry.Day))
	}
	entry.TeacherName = load.TeacherName
	if len(load.AllowedBatches) > 0 {
		batch, ok := load.Batch(entry.BatchID)
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s is not assigned to batch %s", entry.TeacherID, entry.BatchID))
		}
		entry.BatchName = batch.BatchName
		if entry.SubjectName == "" {
			entry.SubjectName = batch.Subject
		}
	}
	fillNames(entry)
	return nil
}

func fillNames(entry *models.TimetableEntry) {
	if entry.TeacherName == "" {
		entry.TeacherName = entry.TeacherID
	}
	if entry.BatchName == "" {
		entry.BatchName = entry.BatchID
	}
}

func (s *TimetableService) ensureNoConflict(candidate models.TimetableEntry, excludeID string) error {
	err := s.detector.Check(candidate, excludeID)
	if err == nil {
		return nil
	}
	var conflict *models.SlotConflictError
	if errors.As(err, &conflict) {
		s.metrics.RecordConflict(conflict.Dimension)
		s.logger.Debug("placement rejected", zap.String("dimension", conflict.Dimension), zap.String("day", candidate.Day), zap.Int("period", candidate.PeriodNumber), zap.String("existing_entry_id", conflict.Conflict.EntryID))
	}
	return err
}

func (s *TimetableService) ensureNotBlocked(ctx context.Context, rawDate string, candidate models.TimetableEntry) error {
	if rawDate == "" || s.blocks == nil {
		return nil
	}
	date, err := s.datedSlot(rawDate, candidate.Day)
	if err != nil {
		return err
	}
	check, err := s.blocks.IsSlotBlocked(ctx, date, candidate.PeriodNumber, candidate.BatchID)
	if err != nil {
		return err
	}
	if !check.Blocked {
		return nil
	}
	s.metrics.RecordConflict(models.ConflictDimensionExamBlock)
	message := fmt.Sprintf("slot blocked by %s", check.BlockName)
	if len(check.Periods) > 0 {
		message = fmt.Sprintf("%s (periods %s)", message, formatPeriods(check.Periods))
	}
	domainErr := &models.SlotConflictError{
		Dimension: models.ConflictDimensionExamBlock,
		Message:   message,
		Conflict: models.SlotConflict{
			Day:          candidate.Day,
			PeriodNumber: candidate.PeriodNumber,
			BatchID:      candidate.BatchID,
			Dimension:    models.ConflictDimensionExamBlock,
		},
	}
	return appErrors.Wrap(domainErr, appErrors.ErrSlotBlocked.Code, appErrors.ErrSlotBlocked.Status, message)
}

// datedSlot parses rawDate and requires it to fall on day.
func (s *TimetableService) datedSlot(rawDate, day string) (time.Time, error) {
	date, err := dateutil.ParseDate(rawDate)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid date %q", rawDate))
	}
	if weekday := dateutil.WeekdayName(date); weekday != day {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is a %s, not %s", rawDate, weekday, day))
	}
	return date, nil
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if dateutil.SameDay(d, day) {
			return true
		}
	}
	return false
}
