package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func seededDetector(t *testing.T, entries ...models.TimetableEntry) *ConflictDetector {
	t.Helper()
	store := NewEntryStore()
	for _, e := range entries {
		_, err := store.Add(e)
		require.NoError(t, err)
	}
	return NewConflictDetector(store)
}

func TestConflictDetectorTeacherAndBatch(t *testing.T) {
	detector := seededDetector(t, lesson("e1", "Monday", 1, "T1", "B1"))

	assert.True(t, detector.HasTeacherConflict("monday", 1, "T1", ""))
	assert.False(t, detector.HasTeacherConflict("Monday", 2, "T1", ""))
	assert.False(t, detector.HasTeacherConflict("Monday", 1, "T1", "e1"))
	assert.True(t, detector.HasBatchConflict("Monday", 1, "B1", ""))
	assert.False(t, detector.HasBatchConflict("Monday", 1, "B2", ""))
}

func TestConflictDetectorCheckReportsBatchFirst(t *testing.T) {
	detector := seededDetector(t, lesson("e1", "Monday", 1, "T1", "B1"))

	err := detector.Check(lesson("", "Monday", 1, "T1", "B1"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	var conflict *models.SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictDimensionBatch, conflict.Dimension)
	assert.Equal(t, "e1", conflict.Conflict.EntryID)

	err = detector.Check(lesson("", "Monday", 1, "T1", "B9"), "")
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictDimensionTeacher, conflict.Dimension)

	assert.NoError(t, detector.Check(lesson("", "Monday", 1, "T2", "B2"), ""))
	assert.NoError(t, detector.Check(lesson("e1", "Monday", 1, "T1", "B1"), "e1"))
}

func TestConflictDetectorFindConflictsListsEveryDimension(t *testing.T) {
	detector := seededDetector(t,
		lesson("e1", "Monday", 1, "T1", "B1"),
		lesson("e2", "Monday", 1, "T2", "B2"),
	)

	conflicts := detector.FindConflicts(lesson("", "Monday", 1, "T2", "B1"), "")
	require.Len(t, conflicts, 2)
	dims := map[string]string{}
	for _, c := range conflicts {
		dims[c.EntryID] = c.Dimension
	}
	assert.Equal(t, models.ConflictDimensionBatch, dims["e1"])
	assert.Equal(t, models.ConflictDimensionTeacher, dims["e2"])

	remaining := detector.FindConflicts(lesson("", "Monday", 1, "T2", "B1"), "e1")
	require.Len(t, remaining, 1)
	assert.Equal(t, "e2", remaining[0].EntryID)
}

func TestCheckEntrySet(t *testing.T) {
	require.NoError(t, CheckEntrySet(nil))
	require.NoError(t, CheckEntrySet([]models.TimetableEntry{
		lesson("e1", "Monday", 1, "T1", "B1"),
		lesson("e2", "Monday", 2, "T1", "B1"),
		lesson("e3", "Tuesday", 1, "T1", "B1"),
		lesson("e4", "Monday", 1, "T2", "B2"),
	}))

	cases := []struct {
		name      string
		entries   []models.TimetableEntry
		dimension string
		existing  string
	}{
		{
			name:      "teacher twice",
			entries:   []models.TimetableEntry{lesson("e2", "monday", 1, "T1", "B2"), lesson("e1", "Monday", 1, "T1", "B1")},
			dimension: models.ConflictDimensionTeacher,
			existing:  "e1",
		},
		{
			name:      "batch twice",
			entries:   []models.TimetableEntry{lesson("e1", "Saturday", 3, "T1", "B1"), lesson("e2", "SATURDAY", 3, "T2", "B1")},
			dimension: models.ConflictDimensionBatch,
			existing:  "e1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckEntrySet(tc.entries)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrConflict)
			var conflict *models.SlotConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tc.dimension, conflict.Dimension)
			assert.Equal(t, tc.existing, conflict.Conflict.EntryID)
		})
	}
}
