package service

import (
	"sync"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// ActionHistory is a linear undo/redo stack over EntryStore mutations. It is
// attached to its store on construction and applies inverses through the
// store's unrecorded primitives.
type ActionHistory struct {
	mu     sync.Mutex
	store  *EntryStore
	past   []models.Action
	future []models.Action
	limit  int
}

// NewActionHistory attaches a history to store. A limit <= 0 keeps every action.
func NewActionHistory(store *EntryStore, limit int) *ActionHistory {
	h := &ActionHistory{store: store, limit: limit}
	store.recorder = h
	return h
}

func (h *ActionHistory) record(action models.Action) {
	h.Record(action)
}

// Record appends an applied action and clears the redo stack.
func (h *ActionHistory) Record(action models.Action) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = append(h.past, action)
	if h.limit > 0 && len(h.past) > h.limit {
		h.past = append([]models.Action(nil), h.past[len(h.past)-h.limit:]...)
	}
	h.future = nil
}

// Undo reverts the most recent action.
func (h *ActionHistory) Undo() (models.Action, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.past) == 0 {
		return models.Action{}, appErrors.Clone(appErrors.ErrEmptyHistory, "nothing to undo")
	}
	action := h.past[len(h.past)-1]
	if err := h.applyInverse(action); err != nil {
		return models.Action{}, err
	}
	h.past = h.past[:len(h.past)-1]
	h.future = append([]models.Action{action}, h.future...)
	return action, nil
}

// Redo re-applies the most recently undone action.
func (h *ActionHistory) Redo() (models.Action, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.future) == 0 {
		return models.Action{}, appErrors.Clone(appErrors.ErrEmptyHistory, "nothing to redo")
	}
	action := h.future[0]
	if err := h.applyForward(action); err != nil {
		return models.Action{}, err
	}
	h.future = h.future[1:]
	h.past = append(h.past, action)
	return action, nil
}

// CanUndo reports whether Undo has work to do.
func (h *ActionHistory) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

// CanRedo reports whether Redo has work to do.
func (h *ActionHistory) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// State copies both stacks.
func (h *ActionHistory) State() models.HistoryState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return models.HistoryState{
		Past:    append([]models.Action{}, h.past...),
		Future:  append([]models.Action{}, h.future...),
		CanUndo: len(h.past) > 0,
		CanRedo: len(h.future) > 0,
	}
}

// Clear drops both stacks.
func (h *ActionHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.future = nil
}

func (h *ActionHistory) applyInverse(action models.Action) error {
	switch action.Type {
	case models.ActionAdd:
		return h.store.discard(action.Entry.ID)
	case models.ActionRemove:
		return h.store.insert(action.Entry)
	case models.ActionUpdate, models.ActionMove:
		if action.PreviousEntry == nil {
			return appErrors.Clone(appErrors.ErrInternal, "history action is missing its previous entry")
		}
		return h.store.replace(*action.PreviousEntry)
	default:
		return appErrors.Clone(appErrors.ErrInternal, "unknown history action "+string(action.Type))
	}
}

func (h *ActionHistory) applyForward(action models.Action) error {
	switch action.Type {
	case models.ActionAdd:
		return h.store.insert(action.Entry)
	case models.ActionRemove:
		return h.store.discard(action.Entry.ID)
	case models.ActionUpdate, models.ActionMove:
		return h.store.replace(action.Entry)
	default:
		return appErrors.Clone(appErrors.ErrInternal, "unknown history action "+string(action.Type))
	}
}
