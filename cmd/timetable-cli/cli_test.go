package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func saturdayBlock() models.ExamBlock {
	return models.ExamBlock{
		ID: "blk-sat", Name: "Saturday quiz", ExamTypeID: "quiz",
		ScopeType: models.ExamBlockScopeInstitution,
		DateType:  models.ExamBlockDateRecurring,
		RecurringConfig: &models.RecurringConfig{
			DayOfWeek: "Saturday", StartDate: "2025-01-01", EndDate: "2025-03-31",
		},
		TimeType: models.ExamBlockTimePeriods,
		Periods:  []int{1, 2},
		IsActive: true,
	}
}

func newTestCLI(seed *repository.Seed) (*cli, *bytes.Buffer) {
	cfg := &config.Config{Timetable: config.TimetableConfig{
		WorkingDays:   []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		PeriodsPerDay: 8,
		Storage:       config.StorageMemory,
	}}
	c := newCLI(cfg, zap.NewNop())
	c.openStores = func(ctx context.Context) (*repository.Stores, error) {
		return repository.NewMemoryStores(seed), nil
	}
	out := &bytes.Buffer{}
	c.root.SetOut(out)
	c.root.SetErr(out)
	return c, out
}

func TestBlocksCheck(t *testing.T) {
	c, out := newTestCLI(&repository.Seed{ExamBlocks: []models.ExamBlock{saturdayBlock()}})

	require.NoError(t, c.execute(context.Background(), []string{"blocks", "check", "--date", "2025-01-11", "--period", "2", "--batch", "B1"}))
	assert.Contains(t, out.String(), "blocked by Saturday quiz (blk-sat, periods)")

	out.Reset()
	require.NoError(t, c.execute(context.Background(), []string{"blocks", "check", "--date", "2025-01-11", "--period", "3", "--batch", "B1"}))
	assert.Contains(t, out.String(), "is free")
}

func TestBlocksCheckRejectsBadDate(t *testing.T) {
	c, _ := newTestCLI(&repository.Seed{})

	err := c.execute(context.Background(), []string{"blocks", "check", "--date", "11/01/2025", "--period", "1", "--batch", "B1"})
	require.Error(t, err)
}

func TestBlocksList(t *testing.T) {
	inactive := saturdayBlock()
	inactive.ID = "blk-off"
	inactive.IsActive = false
	c, out := newTestCLI(&repository.Seed{ExamBlocks: []models.ExamBlock{saturdayBlock(), inactive}})

	require.NoError(t, c.execute(context.Background(), []string{"blocks", "list"}))
	assert.Contains(t, out.String(), "blk-sat")
	assert.NotContains(t, out.String(), "blk-off")

	out.Reset()
	require.NoError(t, c.execute(context.Background(), []string{"blocks", "list", "--date", "2025-01-12"}))
	assert.Empty(t, strings.TrimSpace(out.String()))
}

func TestExportWritesFile(t *testing.T) {
	dir := t.TempDir()
	c, out := newTestCLI(&repository.Seed{Entries: []models.TimetableEntry{
		{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", TeacherName: "Bu Ani", BatchID: "B1", BatchName: "X IPA 1", SubjectName: "Math"},
	}})

	require.NoError(t, c.execute(context.Background(), []string{"export", "--format", "csv", "--dir", dir}))

	path := strings.TrimSpace(out.String())
	require.Equal(t, dir, filepath.Dir(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Math")
}

func TestExportSemicolonCSV(t *testing.T) {
	dir := t.TempDir()
	c, out := newTestCLI(&repository.Seed{Entries: []models.TimetableEntry{
		{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1", SubjectName: "Math"},
	}})

	require.NoError(t, c.execute(context.Background(), []string{"export", "--dir", dir, "--delimiter", ";"}))

	content, err := os.ReadFile(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Contains(t, string(content), ";Math;")
}

func TestExportRejectsLongDelimiter(t *testing.T) {
	c, _ := newTestCLI(&repository.Seed{})

	err := c.execute(context.Background(), []string{"export", "--dir", t.TempDir(), "--delimiter", "||"})
	require.Error(t, err)
}

func TestApplySeed(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "postgres")
	defer db.Close()

	seed := &repository.Seed{
		Teachers:   []models.TeacherLoad{{TeacherID: "T1", TeacherName: "Bu Ani", WorkingDays: []string{"Monday"}}},
		Batches:    []models.Batch{{ID: "B1", Name: "X IPA 1"}},
		ExamBlocks: []models.ExamBlock{saturdayBlock()},
		Entries:    []models.TimetableEntry{{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1", SubjectName: "Math"}},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_loads")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batches")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exam_blocks")).
		WithArgs("blk-sat", "Saturday quiz", "quiz", "institution", nil, "recurring", sqlmock.AnyArg(), sqlmock.AnyArg(), "periods", nil, nil, sqlmock.AnyArg(), true, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, applySeed(context.Background(), db, seed))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySeedRejectsInvalidBlock(t *testing.T) {
	rawDB, _, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "postgres")
	defer db.Close()

	broken := saturdayBlock()
	broken.RecurringConfig = nil

	err = applySeed(context.Background(), db, &repository.Seed{ExamBlocks: []models.ExamBlock{broken}})
	require.Error(t, err)
}

func TestApplySeedRejectsDoubleBookedEntries(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "postgres")
	defer db.Close()

	seed := &repository.Seed{
		Teachers: []models.TeacherLoad{{TeacherID: "T1", TeacherName: "Bu Ani", WorkingDays: []string{"Monday"}}},
		Entries: []models.TimetableEntry{
			{ID: "e1", Day: "Monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B1", SubjectName: "Math"},
			{ID: "e2", Day: "monday", PeriodNumber: 1, TeacherID: "T1", BatchID: "B2", SubjectName: "Math"},
		},
	}

	err = applySeed(context.Background(), db, seed)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
