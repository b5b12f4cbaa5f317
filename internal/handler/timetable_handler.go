package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableService interface {
	PlaceEntry(ctx context.Context, req dto.PlaceEntryRequest) (*models.TimetableEntry, error)
	MoveEntry(ctx context.Context, id string, req dto.MoveEntryRequest) (*models.TimetableEntry, error)
	UpdateEntry(ctx context.Context, id string, req dto.UpdateEntryRequest) (*models.TimetableEntry, error)
	RemoveEntry(ctx context.Context, id string) (*models.TimetableEntry, error)
	GetEntry(id string) (*models.TimetableEntry, error)
	ListEntries(filter models.EntryFilter) []models.TimetableEntry
	CheckSlot(ctx context.Context, req dto.CheckSlotRequest) (*models.SlotCheck, error)
	Undo(ctx context.Context) (*models.Action, error)
	Redo(ctx context.Context) (*models.Action, error)
	History() models.HistoryState
	TeacherLoads(ctx context.Context) ([]models.TeacherLoad, error)
	Save(ctx context.Context) (int, error)
	Load(ctx context.Context) error
}

type timetableExporter interface {
	Render(filter models.EntryFilter, format string) (*service.ExportResult, error)
}

// TimetableHandler exposes the weekly grid, its history and exports.
type TimetableHandler struct {
	service  timetableService
	exporter timetableExporter
}

// NewTimetableHandler constructs the handler. exporter may be nil, in which case export answers 503.
func NewTimetableHandler(service timetableService, exporter timetableExporter) *TimetableHandler {
	return &TimetableHandler{service: service, exporter: exporter}
}

// List godoc
// @Summary List timetable entries
// @Tags Timetable
// @Produce json
// @Param day query string false "Weekday name"
// @Param period query int false "Period number"
// @Param teacher_id query string false "Teacher ID"
// @Param batch_id query string false "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/entries [get]
func (h *TimetableHandler) List(c *gin.Context) {
	filter, err := entryFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries := h.service.ListEntries(filter)
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"total": len(entries)})
}

// Get godoc
// @Summary Get a timetable entry
// @Tags Timetable
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/entries/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	entry, err := h.service.GetEntry(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Place godoc
// @Summary Place a lesson on the grid
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.PlaceEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/entries [post]
func (h *TimetableHandler) Place(c *gin.Context) {
	var req dto.PlaceEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry payload"))
		return
	}
	entry, err := h.service.PlaceEntry(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Change teacher, batch or subject of an entry
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.UpdateEntryRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/entries/{id} [patch]
func (h *TimetableHandler) Update(c *gin.Context) {
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry patch"))
		return
	}
	entry, err := h.service.UpdateEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Move godoc
// @Summary Move an entry to another slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.MoveEntryRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/entries/{id}/move [post]
func (h *TimetableHandler) Move(c *gin.Context) {
	var req dto.MoveEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	entry, err := h.service.MoveEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Remove godoc
// @Summary Remove an entry
// @Tags Timetable
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/entries/{id} [delete]
func (h *TimetableHandler) Remove(c *gin.Context) {
	entry, err := h.service.RemoveEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Undo godoc
// @Summary Undo the latest change
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/undo [post]
func (h *TimetableHandler) Undo(c *gin.Context) {
	action, err := h.service.Undo(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, map[string]interface{}{"history": h.service.History()})
}

// Redo godoc
// @Summary Re-apply the latest undone change
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/redo [post]
func (h *TimetableHandler) Redo(c *gin.Context) {
	action, err := h.service.Redo(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, map[string]interface{}{"history": h.service.History()})
}

// History godoc
// @Summary Show undo and redo stacks
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/history [get]
func (h *TimetableHandler) History(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.History(), nil)
}

// Conflicts godoc
// @Summary Check a candidate slot for conflicts and exam blocks
// @Tags Timetable
// @Produce json
// @Param day query string true "Weekday name"
// @Param period query int true "Period number"
// @Param teacher_id query string false "Teacher ID"
// @Param batch_id query string false "Batch ID"
// @Param exclude_entry_id query string false "Entry to ignore, e.g. the one being moved"
// @Param date query string false "Concrete date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetable/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	var req dto.CheckSlotRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot query"))
		return
	}
	check, err := h.service.CheckSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// TeacherLoads godoc
// @Summary List teachers with their scheduled period counts
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/teacher-loads [get]
func (h *TimetableHandler) TeacherLoads(c *gin.Context) {
	loads, err := h.service.TeacherLoads(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loads, map[string]interface{}{"total": len(loads)})
}

// Save godoc
// @Summary Persist the current timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/save [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	saved, err := h.service.Save(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"saved": saved}, nil)
}

// Reload godoc
// @Summary Discard unsaved changes and reload the persisted timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/reload [post]
func (h *TimetableHandler) Reload(c *gin.Context) {
	if err := h.service.Load(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	entries := h.service.ListEntries(models.EntryFilter{})
	response.JSON(c, http.StatusOK, gin.H{"loaded": len(entries)}, nil)
}

// Export godoc
// @Summary Export the timetable as CSV or PDF
// @Tags Timetable
// @Produce octet-stream
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param teacher_id query string false "Teacher ID"
// @Param batch_id query string false "Batch ID"
// @Param day query string false "Weekday name"
// @Success 200 {file} binary
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrServiceUnavailable, "export is not configured"))
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = service.ExportFormatCSV
	}
	result, err := h.exporter.Render(models.EntryFilter{Day: query.Day, TeacherID: query.TeacherID, BatchID: query.BatchID}, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

func entryFilterFromQuery(c *gin.Context) (models.EntryFilter, error) {
	filter := models.EntryFilter{
		Day:       strings.TrimSpace(c.Query("day")),
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		BatchID:   strings.TrimSpace(c.Query("batch_id")),
	}
	if raw := strings.TrimSpace(c.Query("period")); raw != "" {
		period, err := parsePositiveInt(raw)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "period must be a positive integer")
		}
		filter.PeriodNumber = period
	}
	return filter, nil
}
