package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestActionHistoryUndoRedoRoundTrip(t *testing.T) {
	store := NewEntryStore()
	history := NewActionHistory(store, 0)

	_, err := store.Add(lesson("e1", "Monday", 1, "T1", "B1"))
	require.NoError(t, err)
	_, err = store.Add(lesson("e2", "Monday", 2, "T2", "B1"))
	require.NoError(t, err)
	subject := "Chemistry"
	_, err = store.Update("e1", models.EntryPatch{SubjectName: &subject})
	require.NoError(t, err)
	_, err = store.Move("e2", "Tuesday", 5)
	require.NoError(t, err)
	_, err = store.Remove("e1")
	require.NoError(t, err)

	final := store.Snapshot()

	for i := 0; i < 5; i++ {
		_, err := history.Undo()
		require.NoError(t, err)
	}
	assert.Empty(t, store.Snapshot())
	assert.False(t, history.CanUndo())
	assert.True(t, history.CanRedo())

	for i := 0; i < 5; i++ {
		_, err := history.Redo()
		require.NoError(t, err)
	}
	assert.Equal(t, final, store.Snapshot())
	assert.False(t, history.CanRedo())
}

func TestActionHistoryUndoRestoresPreviousEntry(t *testing.T) {
	store := NewEntryStore()
	history := NewActionHistory(store, 0)

	original, err := store.Add(lesson("e1", "Monday", 1, "T1", "B1"))
	require.NoError(t, err)
	_, err = store.Move("e1", "Thursday", 6)
	require.NoError(t, err)

	action, err := history.Undo()
	require.NoError(t, err)
	assert.Equal(t, models.ActionMove, action.Type)
	require.NotNil(t, action.PreviousEntry)

	got, ok := store.Get("e1")
	require.True(t, ok)
	assert.Equal(t, original, got)
}

func TestActionHistoryNewActionClearsRedo(t *testing.T) {
	store := NewEntryStore()
	history := NewActionHistory(store, 0)

	_, err := store.Add(lesson("e1", "Monday", 1, "T1", "B1"))
	require.NoError(t, err)
	_, err = history.Undo()
	require.NoError(t, err)
	require.True(t, history.CanRedo())

	_, err = store.Add(lesson("e2", "Monday", 2, "T2", "B2"))
	require.NoError(t, err)
	assert.False(t, history.CanRedo())

	_, err = history.Redo()
	assert.ErrorIs(t, err, appErrors.ErrEmptyHistory)
}

func TestActionHistoryEmpty(t *testing.T) {
	history := NewActionHistory(NewEntryStore(), 0)

	_, err := history.Undo()
	assert.ErrorIs(t, err, appErrors.ErrEmptyHistory)
	_, err = history.Redo()
	assert.ErrorIs(t, err, appErrors.ErrEmptyHistory)

	state := history.State()
	assert.NotNil(t, state.Past)
	assert.False(t, state.CanUndo)
}

func TestActionHistoryLimitDropsOldest(t *testing.T) {
	store := NewEntryStore()
	history := NewActionHistory(store, 2)

	for i, id := range []string{"e1", "e2", "e3"} {
		_, err := store.Add(lesson(id, "Monday", i+1, "T1", "B1"))
		require.NoError(t, err)
	}
	state := history.State()
	require.Len(t, state.Past, 2)
	assert.Equal(t, "e2", state.Past[0].Entry.ID)

	_, err := history.Undo()
	require.NoError(t, err)
	_, err = history.Undo()
	require.NoError(t, err)
	_, err = history.Undo()
	assert.ErrorIs(t, err, appErrors.ErrEmptyHistory)
	assert.Equal(t, 1, store.Len())
}
