package models

import "time"

// ActionType names a recorded timetable mutation.
type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionRemove ActionType = "remove"
	ActionUpdate ActionType = "update"
	ActionMove   ActionType = "move"
)

// Action is one entry in the undo/redo history. PreviousEntry is set for
// update and move so the inverse never has to be re-derived.
type Action struct {
	Type          ActionType      `json:"type"`
	Entry         TimetableEntry  `json:"entry"`
	PreviousEntry *TimetableEntry `json:"previous_entry,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Description   string          `json:"description"`
}

// HistoryState summarises the undo/redo stacks for clients.
type HistoryState struct {
	Past    []Action `json:"past"`
	Future  []Action `json:"future"`
	CanUndo bool     `json:"can_undo"`
	CanRedo bool     `json:"can_redo"`
}
