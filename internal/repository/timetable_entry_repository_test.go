package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() {
		_ = sqlxDB.Close()
	})
	return sqlxDB, mock
}

func TestTimetableEntryRepositoryList(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableEntryRepository(db)
	now := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "day", "period_number", "teacher_id", "teacher_name", "batch_id", "batch_name", "subject_name", "created_at", "updated_at"}).
		AddRow("e1", "Monday", 1, "T1", "Bu Ani", "B1", "X IPA 1", "Math", now, now).
		AddRow("e2", "Monday", 2, "T2", "Pak Budi", "B1", "X IPA 1", "Physics", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries ORDER BY day ASC, period_number ASC, id ASC")).WillReturnRows(rows)

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e1", entries[0].ID)
	assert.Equal(t, "Physics", entries[1].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryReplaceAll(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableEntryRepository(db)
	now := time.Now().UTC()
	entries := []models.TimetableEntry{
		{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", TeacherName: "Bu Ani", BatchID: "B1", BatchName: "X IPA 1", SubjectName: "Math", CreatedAt: now, UpdatedAt: now},
		{ID: "e2", Day: "Tuesday", PeriodNumber: 3, TeacherID: "T2", TeacherName: "Pak Budi", BatchID: "B2", BatchName: "X IPA 2", SubjectName: "Physics", CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries")).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WithArgs("e1", "Monday", 1, "T1", "Bu Ani", "B1", "X IPA 1", "Math", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WithArgs("e2", "Tuesday", 3, "T2", "Pak Budi", "B2", "X IPA 2", "Physics", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAll(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryReplaceAllRollsBack(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), []models.TimetableEntry{{ID: "e1", Day: "Monday", PeriodNumber: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert timetable entry e1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherLoadRepositoryList(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTeacherLoadRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id", "teacher_name", "working_days", "allowed_batches", "periods_per_week"}).
		AddRow("T1", "Bu Ani", []byte(`["Monday","Tuesday"]`), []byte(`[{"batch_id":"B1","batch_name":"X IPA 1","subject":"Math"}]`), 24).
		AddRow("T2", "Pak Budi", []byte(`null`), []byte(`[]`), 0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_loads ORDER BY teacher_id ASC")).WillReturnRows(rows)

	loads, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, []string{"Monday", "Tuesday"}, loads[0].WorkingDays)
	require.Len(t, loads[0].AllowedBatches, 1)
	assert.Equal(t, "Math", loads[0].AllowedBatches[0].Subject)
	assert.Empty(t, loads[1].WorkingDays)
	assert.NotNil(t, loads[1].WorkingDays)
}

func TestTeacherLoadRepositoryListRejectsBadJSON(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTeacherLoadRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id", "teacher_name", "working_days", "allowed_batches", "periods_per_week"}).
		AddRow("T1", "Bu Ani", []byte(`{`), []byte(`[]`), 0)
	mock.ExpectQuery("FROM teacher_loads").WillReturnRows(rows)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "working days for T1")
}

func TestTeacherLoadRepositoryUpsert(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTeacherLoadRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_loads")).
		WithArgs("T1", "Bu Ani", sqlmock.AnyArg(), sqlmock.AnyArg(), 24).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), models.TeacherLoad{TeacherID: "T1", TeacherName: "Bu Ani", WorkingDays: []string{"Monday"}, PeriodsPerWeek: 24})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryList(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBatchRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "course_id", "class_id"}).
		AddRow("B1", "X IPA 1", "C1", "K1").
		AddRow("B2", "X IPA 2", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM batches ORDER BY name ASC")).WillReturnRows(rows)

	batches, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.NotNil(t, batches[0].CourseID)
	assert.Equal(t, "C1", *batches[0].CourseID)
	assert.Nil(t, batches[1].ClassID)
}

func TestExamBlockRepositoryListActive(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewExamBlockRepository(db)

	columns := []string{"id", "name", "exam_type_id", "scope_type", "scope_id", "date_type", "dates", "recurring_config", "time_type", "start_time", "end_time", "periods", "is_active"}
	rows := sqlmock.NewRows(columns).
		AddRow("blk-1", "Midterm", "mid", "institution", nil, "multi_day", []byte(`["2025-03-10","2025-03-11"]`), nil, "full_day", nil, nil, []byte(`[]`), true).
		AddRow("blk-2", "Saturday quiz", "quiz", "batch", "B1", "recurring", []byte(`[]`), []byte(`{"day_of_week":"Saturday","start_date":"2025-01-01","end_date":"2025-03-31"}`), "periods", nil, nil, []byte(`[1,2]`), true)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = TRUE ORDER BY sort_order ASC, created_at ASC, id ASC")).WillReturnRows(rows)

	blocks, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"2025-03-10", "2025-03-11"}, blocks[0].Dates)
	assert.Nil(t, blocks[0].RecurringConfig)
	assert.Nil(t, blocks[0].ScopeID)
	require.NotNil(t, blocks[1].RecurringConfig)
	assert.Equal(t, "Saturday", blocks[1].RecurringConfig.DayOfWeek)
	assert.Equal(t, []int{1, 2}, blocks[1].Periods)
	require.NotNil(t, blocks[1].ScopeID)
	assert.Equal(t, "B1", *blocks[1].ScopeID)
}

func TestExamBlockRepositoryUpsert(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewExamBlockRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exam_blocks")).
		WithArgs("blk-1", "Midterm", "mid", "institution", nil, "single_day", sqlmock.AnyArg(), nil, "full_day", nil, nil, sqlmock.AnyArg(), true, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	block := models.ExamBlock{
		ID:         "blk-1",
		Name:       "Midterm",
		ExamTypeID: "mid",
		ScopeType:  models.ExamBlockScopeInstitution,
		DateType:   models.ExamBlockDateSingleDay,
		Dates:      []string{"2025-03-10"},
		TimeType:   models.ExamBlockTimeFullDay,
		IsActive:   true,
	}
	require.NoError(t, repo.Upsert(context.Background(), block, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
