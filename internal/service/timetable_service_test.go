package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

var schoolWeek = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func testRoster() []models.TeacherLoad {
	return []models.TeacherLoad{
		{
			TeacherID:      "T1",
			TeacherName:    "Bu Ani",
			WorkingDays:    schoolWeek,
			AllowedBatches: []models.AllowedBatch{{BatchID: "B1", BatchName: "X IPA 1", Subject: "Math"}},
		},
		{
			TeacherID:   "T2",
			TeacherName: "Pak Budi",
			WorkingDays: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			AllowedBatches: []models.AllowedBatch{
				{BatchID: "B1", BatchName: "X IPA 1", Subject: "Physics"},
				{BatchID: "B2", BatchName: "X IPA 2", Subject: "Physics"},
			},
		},
		{
			TeacherID:   "T3",
			TeacherName: "Bu Citra",
			WorkingDays: schoolWeek,
		},
	}
}

type queueStub struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, job)
	return "job", nil
}

type failingEntryRepo struct{}

func (failingEntryRepo) List(ctx context.Context) ([]models.TimetableEntry, error) {
	return nil, errors.New("db down")
}

func (failingEntryRepo) ReplaceAll(ctx context.Context, entries []models.TimetableEntry) error {
	return errors.New("db down")
}

func newTimetableService(t *testing.T, opts ...TimetableServiceOption) (*TimetableService, *repository.MemoryEntryRepository) {
	t.Helper()
	repo := repository.NewMemoryEntryRepository(nil)
	roster := repository.NewMemoryTeacherLoadRepository(testRoster())
	cfg := TimetableConfig{WorkingDays: schoolWeek, PeriodsPerDay: 8, HistoryLimit: 50}
	return NewTimetableService(repo, roster, cfg, nil, nil, opts...), repo
}

func place(t *testing.T, svc *TimetableService, req dto.PlaceEntryRequest) *models.TimetableEntry {
	t.Helper()
	entry, err := svc.PlaceEntry(context.Background(), req)
	require.NoError(t, err)
	return entry
}

func TestTimetableServicePlaceEntryFillsFromRoster(t *testing.T) {
	svc, _ := newTimetableService(t)

	entry := place(t, svc, dto.PlaceEntryRequest{ID: "e1", Day: "monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})
	assert.Equal(t, "Monday", entry.Day)
	assert.Equal(t, "Bu Ani", entry.TeacherName)
	assert.Equal(t, "X IPA 1", entry.BatchName)
	assert.Equal(t, "Math", entry.SubjectName)

	free := place(t, svc, dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 2, TeacherID: "T3", BatchID: "B9", SubjectName: "Art"})
	assert.Equal(t, "B9", free.BatchName)
	assert.NotEmpty(t, free.ID)
}

func TestTimetableServicePlaceEntryRejections(t *testing.T) {
	svc, _ := newTimetableService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.PlaceEntryRequest
		code string
	}{
		{"missing teacher", dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 1, BatchID: "B1"}, appErrors.ErrValidation.Code},
		{"unknown day", dto.PlaceEntryRequest{Day: "Someday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"}, appErrors.ErrValidation.Code},
		{"day off grid", dto.PlaceEntryRequest{Day: "Sunday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"}, appErrors.ErrValidation.Code},
		{"period past grid", dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 9, TeacherID: "T1", BatchID: "B1"}, appErrors.ErrValidation.Code},
		{"unknown teacher", dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 1, TeacherID: "T9", BatchID: "B1"}, appErrors.ErrNotFound.Code},
		{"teacher off duty", dto.PlaceEntryRequest{Day: "Saturday", PeriodNumber: 1, TeacherID: "T2", BatchID: "B1"}, appErrors.ErrValidation.Code},
		{"batch not allowed", dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B2"}, appErrors.ErrValidation.Code},
		{"no subject", dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 1, TeacherID: "T3", BatchID: "B1"}, appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceEntry(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, appErrors.IsCode(err, tc.code), "got %v", err)
		})
	}
	assert.Empty(t, svc.ListEntries(models.EntryFilter{}))
}

func TestTimetableServiceNeverDoubleBooks(t *testing.T) {
	metrics := NewMetricsService()
	svc, _ := newTimetableService(t, WithTimetableMetrics(metrics))
	ctx := context.Background()
	place(t, svc, dto.PlaceEntryRequest{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})

	_, err := svc.PlaceEntry(ctx, dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 1, TeacherID: "T2", BatchID: "B1"})
	require.Error(t, err)
	var conflict *models.SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictDimensionBatch, conflict.Dimension)

	_, err = svc.PlaceEntry(ctx, dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 1, TeacherID: "T3", BatchID: "B2", SubjectName: "Art"})
	require.NoError(t, err)
	_, err = svc.PlaceEntry(ctx, dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 1, TeacherID: "T3", BatchID: "B3", SubjectName: "Art"})
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictDimensionTeacher, conflict.Dimension)

	seen := map[string]bool{}
	for _, e := range svc.ListEntries(models.EntryFilter{}) {
		teacherKey := e.Day + "|" + e.TeacherID
		batchKey := e.Day + "|" + e.BatchID
		for _, key := range []string{teacherKey, batchKey} {
			slotKey := key + "|" + string(rune('0'+e.PeriodNumber))
			assert.False(t, seen[slotKey], "double booking at %s", slotKey)
			seen[slotKey] = true
		}
	}
	assert.Equal(t, uint64(2), metrics.Snapshot().ConflictsTotal)
}

func TestTimetableServiceMoveEntry(t *testing.T) {
	svc, _ := newTimetableService(t)
	ctx := context.Background()
	place(t, svc, dto.PlaceEntryRequest{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})
	place(t, svc, dto.PlaceEntryRequest{ID: "e2", Day: "Monday", PeriodNumber: 2, TeacherID: "T2", BatchID: "B2"})

	moved, err := svc.MoveEntry(ctx, "e1", dto.MoveEntryRequest{Day: "Monday", PeriodNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, moved.PeriodNumber)

	_, err = svc.MoveEntry(ctx, "e2", dto.MoveEntryRequest{Day: "Saturday", PeriodNumber: 2})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	moved, err = svc.MoveEntry(ctx, "e2", dto.MoveEntryRequest{Day: "Tuesday", PeriodNumber: 4})
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", moved.Day)

	place(t, svc, dto.PlaceEntryRequest{ID: "e3", Day: "Tuesday", PeriodNumber: 5, TeacherID: "T3", BatchID: "B2", SubjectName: "Art"})
	_, err = svc.MoveEntry(ctx, "e2", dto.MoveEntryRequest{Day: "Tuesday", PeriodNumber: 5})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.MoveEntry(ctx, "missing", dto.MoveEntryRequest{Day: "Tuesday", PeriodNumber: 5})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableServiceUpdateEntry(t *testing.T) {
	svc, _ := newTimetableService(t)
	ctx := context.Background()
	place(t, svc, dto.PlaceEntryRequest{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})
	place(t, svc, dto.PlaceEntryRequest{ID: "e2", Day: "Monday", PeriodNumber: 2, TeacherID: "T2", BatchID: "B2"})

	_, err := svc.UpdateEntry(ctx, "e1", dto.UpdateEntryRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	teacher := "T2"
	updated, err := svc.UpdateEntry(ctx, "e1", dto.UpdateEntryRequest{TeacherID: &teacher})
	require.NoError(t, err)
	assert.Equal(t, "Pak Budi", updated.TeacherName)
	assert.Equal(t, "Physics", updated.SubjectName)

	batch := "B2"
	_, err = svc.MoveEntry(ctx, "e2", dto.MoveEntryRequest{Day: "Monday", PeriodNumber: 3})
	require.NoError(t, err)
	place(t, svc, dto.PlaceEntryRequest{ID: "e3", Day: "Monday", PeriodNumber: 1, TeacherID: "T3", BatchID: "B2", SubjectName: "Art"})
	_, err = svc.UpdateEntry(ctx, "e1", dto.UpdateEntryRequest{BatchID: &batch})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	subject := "  Biology "
	updated, err = svc.UpdateEntry(ctx, "e3", dto.UpdateEntryRequest{SubjectName: &subject})
	require.NoError(t, err)
	assert.Equal(t, "Biology", updated.SubjectName)
}

func TestTimetableServiceUndoRedo(t *testing.T) {
	metrics := NewMetricsService()
	svc, _ := newTimetableService(t, WithTimetableMetrics(metrics))
	ctx := context.Background()

	_, err := svc.Undo(ctx)
	assert.ErrorIs(t, err, appErrors.ErrEmptyHistory)

	place(t, svc, dto.PlaceEntryRequest{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})
	_, err = svc.MoveEntry(ctx, "e1", dto.MoveEntryRequest{Day: "Wednesday", PeriodNumber: 3})
	require.NoError(t, err)
	_, err = svc.RemoveEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, svc.ListEntries(models.EntryFilter{}))

	action, err := svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ActionRemove, action.Type)
	got, err := svc.GetEntry("e1")
	require.NoError(t, err)
	assert.Equal(t, "Wednesday", got.Day)

	_, err = svc.Undo(ctx)
	require.NoError(t, err)
	got, err = svc.GetEntry("e1")
	require.NoError(t, err)
	assert.Equal(t, "Monday", got.Day)

	_, err = svc.Redo(ctx)
	require.NoError(t, err)
	state := svc.History()
	assert.Len(t, state.Past, 2)
	assert.Len(t, state.Future, 1)

	place(t, svc, dto.PlaceEntryRequest{ID: "e2", Day: "Friday", PeriodNumber: 1, TeacherID: "T2", BatchID: "B2"})
	assert.False(t, svc.History().CanRedo)
}

func TestTimetableServiceExamBlocks(t *testing.T) {
	blocks := NewExamBlockService(&examBlockRepoStub{blocks: []models.ExamBlock{saturdayQuiz()}}, nil, 0, nil)
	svc, _ := newTimetableService(t, WithExamBlocks(blocks))
	ctx := context.Background()

	_, err := svc.PlaceEntry(ctx, dto.PlaceEntryRequest{Day: "Saturday", PeriodNumber: 2, TeacherID: "T1", BatchID: "B1", Date: "2025-01-11"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSlotBlocked)
	var conflict *models.SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictDimensionExamBlock, conflict.Dimension)

	_, err = svc.PlaceEntry(ctx, dto.PlaceEntryRequest{Day: "Saturday", PeriodNumber: 2, TeacherID: "T1", BatchID: "B1", Date: "2025-01-13"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	place(t, svc, dto.PlaceEntryRequest{ID: "e1", Day: "Saturday", PeriodNumber: 2, TeacherID: "T1", BatchID: "B1", Date: "2025-04-05"})
	place(t, svc, dto.PlaceEntryRequest{ID: "e2", Day: "Friday", PeriodNumber: 2, TeacherID: "T3", BatchID: "B3", SubjectName: "Art"})

	_, err = svc.MoveEntry(ctx, "e2", dto.MoveEntryRequest{Day: "Saturday", PeriodNumber: 3, Date: "2025-02-01"})
	assert.ErrorIs(t, err, appErrors.ErrSlotBlocked)

	check, err := svc.CheckSlot(ctx, dto.CheckSlotRequest{Day: "Saturday", PeriodNumber: 2, TeacherID: "T1", BatchID: "B1", Date: "2025-01-18"})
	require.NoError(t, err)
	assert.False(t, check.Available)
	require.NotNil(t, check.Block)
	assert.Equal(t, "blk-sat", check.Block.BlockID)
	require.Len(t, check.Conflicts, 2)

	check, err = svc.CheckSlot(ctx, dto.CheckSlotRequest{Day: "Saturday", PeriodNumber: 2, TeacherID: "T1", BatchID: "B1", ExcludeEntryID: "e1"})
	require.NoError(t, err)
	assert.True(t, check.Available)
	assert.NotNil(t, check.Conflicts)
}

func TestTimetableServiceTeacherLoads(t *testing.T) {
	svc, _ := newTimetableService(t)
	place(t, svc, dto.PlaceEntryRequest{Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})
	place(t, svc, dto.PlaceEntryRequest{Day: "Tuesday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})

	loads, err := svc.TeacherLoads(context.Background())
	require.NoError(t, err)
	require.Len(t, loads, 3)
	assert.Equal(t, "T1", loads[0].TeacherID)
	assert.Equal(t, 2, loads[0].AssignedPeriods)
	assert.Equal(t, 0, loads[1].AssignedPeriods)

	bare := NewTimetableService(repository.NewMemoryEntryRepository(nil), nil, TimetableConfig{}, nil, nil)
	loads, err = bare.TeacherLoads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loads)
}

func TestTimetableServiceLoadAndSave(t *testing.T) {
	svc, repo := newTimetableService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.ReplaceAll(ctx, []models.TimetableEntry{
		{ID: "e1", Day: "monday", PeriodNumber: 1, TeacherID: "T1", TeacherName: "Bu Ani", BatchID: "B1", BatchName: "X IPA 1", SubjectName: "Math", CreatedAt: now, UpdatedAt: now},
	}))

	require.NoError(t, svc.Load(ctx))
	got, err := svc.GetEntry("e1")
	require.NoError(t, err)
	assert.Equal(t, "Monday", got.Day)
	assert.False(t, svc.History().CanUndo)

	place(t, svc, dto.PlaceEntryRequest{ID: "e2", Day: "Monday", PeriodNumber: 2, TeacherID: "T1", BatchID: "B1"})
	saved, err := svc.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	stored, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	broken := NewTimetableService(failingEntryRepo{}, nil, TimetableConfig{}, nil, nil)
	assert.True(t, appErrors.IsCode(broken.Load(ctx), appErrors.ErrInternal.Code))
	_, err = broken.Save(ctx)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
}

func TestTimetableServiceLoadRejectsDoubleBooking(t *testing.T) {
	svc, repo := newTimetableService(t)
	ctx := context.Background()
	place(t, svc, dto.PlaceEntryRequest{ID: "e0", Day: "Tuesday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})
	require.NoError(t, repo.ReplaceAll(ctx, []models.TimetableEntry{
		lesson("e2", "monday", 1, "T1", "B2"),
		lesson("e1", "Monday", 1, "T1", "B1"),
	}))

	err := svc.Load(ctx)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrConflict.Code))
	var conflict *models.SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictDimensionTeacher, conflict.Dimension)
	assert.Equal(t, "e1", conflict.Conflict.EntryID)

	entries := svc.ListEntries(models.EntryFilter{})
	require.Len(t, entries, 1)
	assert.Equal(t, "e0", entries[0].ID)
	assert.True(t, svc.History().CanUndo)
}

func TestTimetableServiceAutosaveSkipsStaleSnapshots(t *testing.T) {
	queue := &queueStub{}
	svc, repo := newTimetableService(t, WithAutosave(queue))
	ctx := context.Background()

	place(t, svc, dto.PlaceEntryRequest{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1"})
	place(t, svc, dto.PlaceEntryRequest{ID: "e2", Day: "Monday", PeriodNumber: 2, TeacherID: "T1", BatchID: "B1"})
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, SnapshotJobType, queue.jobs[0].Type)

	handler := svc.SnapshotHandler()
	require.NoError(t, handler(ctx, queue.jobs[1]))
	require.NoError(t, handler(ctx, queue.jobs[0]))

	stored, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	require.NoError(t, handler(ctx, jobs.Job{ID: "bogus", Payload: "not a snapshot"}))

	queue.err = errors.New("queue full")
	_, err = svc.RemoveEntry(ctx, "e1")
	require.NoError(t, err)
}
