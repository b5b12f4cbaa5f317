package service

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

type datasetRecorder struct {
	last export.Dataset
	err  error
}

func (r *datasetRecorder) Render(data export.Dataset) ([]byte, error) {
	r.last = data
	return []byte("rendered"), r.err
}

func exportFixture(t *testing.T) *EntryStore {
	t.Helper()
	store := NewEntryStore()
	for _, e := range []models.TimetableEntry{
		lesson("e1", "Monday", 1, "T1", "B1"),
		lesson("e2", "Monday", 2, "T2", "B2"),
		lesson("e3", "Tuesday", 1, "T1", "B2"),
	} {
		_, err := store.Add(e)
		require.NoError(t, err)
	}
	return store
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(exportFixture(t), TimetableConfig{WorkingDays: schoolWeek, PeriodsPerDay: 8}, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 18, 9, 30, 0, 0, time.UTC) }

	result, err := svc.Render(models.EntryFilter{TeacherID: "T1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "timetable_20250118_093000.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Day,Period,Subject,Batch ID,Batch,Teacher ID,Teacher", lines[0])
	assert.Equal(t, "Monday,1,Math,B1,B1,T1,T1", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Tuesday,1,"))
}

func TestExportServicePDFGrid(t *testing.T) {
	pdf := &datasetRecorder{}
	svc := NewExportService(exportFixture(t), TimetableConfig{WorkingDays: []string{"Monday", "Tuesday"}, PeriodsPerDay: 3}, nil, nil, pdf)

	result, err := svc.Render(models.EntryFilter{BatchID: "B2"}, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))

	assert.Equal(t, "Weekly Timetable - B2", pdf.last.Title)
	assert.Equal(t, []string{"Period", "Monday", "Tuesday"}, pdf.last.Headers)
	require.Len(t, pdf.last.Rows, 3)
	assert.Equal(t, "", pdf.last.Rows[0]["Monday"])
	assert.Equal(t, "Math\nB2\nT1", pdf.last.Rows[0]["Tuesday"])
	assert.Equal(t, "Math\nB2\nT2", pdf.last.Rows[1]["Monday"])
}

func TestExportServiceRejectsBadInput(t *testing.T) {
	svc := NewExportService(exportFixture(t), TimetableConfig{}, nil, nil, nil)

	_, err := svc.Render(models.EntryFilter{}, "xlsx")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
	_, err = svc.Render(models.EntryFilter{Day: "Caturday"}, "csv")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	failing := NewExportService(exportFixture(t), TimetableConfig{}, nil, &datasetRecorder{err: errors.New("boom")}, nil)
	_, err = failing.Render(models.EntryFilter{}, "csv")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
}

func TestExportServiceArchive(t *testing.T) {
	dir := t.TempDir()
	local, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewExportService(exportFixture(t), TimetableConfig{WorkingDays: schoolWeek, PeriodsPerDay: 8}, nil, nil, nil)

	path, err := svc.Archive(local, models.EntryFilter{Day: "monday"}, "csv")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
}
