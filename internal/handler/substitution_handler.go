package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type substitutionService interface {
	MarkAbsent(ctx context.Context, req dto.MarkAbsentRequest) (*models.TeacherAbsence, error)
	CancelAbsence(ctx context.Context, id string) (int, error)
	ListAbsences(ctx context.Context, rawDate string) ([]models.TeacherAbsence, error)
	ComputeAffectedEntries(ctx context.Context, rawDate string) ([]models.AffectedSlot, error)
	AvailableTeachers(ctx context.Context, query dto.AvailableTeachersQuery) ([]models.TeacherLoad, error)
	AssignSubstitute(ctx context.Context, req dto.AssignSubstituteRequest) (*models.SubstitutionAssignment, error)
	ConfirmSubstitution(ctx context.Context, id string) (*models.SubstitutionAssignment, error)
	DeclineSubstitution(ctx context.Context, id string) (*models.SubstitutionAssignment, error)
	RemoveSubstitution(ctx context.Context, id string) error
	ListSubstitutions(ctx context.Context, rawDate string) ([]models.SubstitutionAssignment, error)
}

// SubstitutionHandler exposes teacher absences and their substitute assignments.
type SubstitutionHandler struct {
	service substitutionService
}

// NewSubstitutionHandler constructs the handler.
func NewSubstitutionHandler(service substitutionService) *SubstitutionHandler {
	return &SubstitutionHandler{service: service}
}

// ListAbsences godoc
// @Summary List teacher absences
// @Tags Substitutions
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /absences [get]
func (h *SubstitutionHandler) ListAbsences(c *gin.Context) {
	absences, err := h.service.ListAbsences(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absences, map[string]interface{}{"total": len(absences)})
}

// MarkAbsent godoc
// @Summary Record a teacher absence
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param payload body dto.MarkAbsentRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /absences [post]
func (h *SubstitutionHandler) MarkAbsent(c *gin.Context) {
	var req dto.MarkAbsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	absence, err := h.service.MarkAbsent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, absence)
}

// CancelAbsence godoc
// @Summary Cancel an absence and its substitutions
// @Tags Substitutions
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id} [delete]
func (h *SubstitutionHandler) CancelAbsence(c *gin.Context) {
	removed, err := h.service.CancelAbsence(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id"), "substitutions_removed": removed}, nil)
}

// Affected godoc
// @Summary List lessons affected by absences on a date
// @Tags Substitutions
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /substitutions/affected [get]
func (h *SubstitutionHandler) Affected(c *gin.Context) {
	slots, err := h.service.ComputeAffectedEntries(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	uncovered := 0
	for _, slot := range slots {
		if slot.State == models.CoverageUncovered {
			uncovered++
		}
	}
	response.JSON(c, http.StatusOK, slots, map[string]interface{}{"total": len(slots), "uncovered": uncovered})
}

// Available godoc
// @Summary List teachers who could cover a dated period
// @Tags Substitutions
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param period query int true "Period number"
// @Param exclude_teacher_id query string false "Teacher to leave out, usually the absent one"
// @Success 200 {object} response.Envelope
// @Router /substitutions/available [get]
func (h *SubstitutionHandler) Available(c *gin.Context) {
	var query dto.AvailableTeachersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability query"))
		return
	}
	teachers, err := h.service.AvailableTeachers(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, map[string]interface{}{"total": len(teachers)})
}

// List godoc
// @Summary List substitution assignments
// @Tags Substitutions
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /substitutions [get]
func (h *SubstitutionHandler) List(c *gin.Context) {
	assignments, err := h.service.ListSubstitutions(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, map[string]interface{}{"total": len(assignments)})
}

// Assign godoc
// @Summary Assign a substitute to an affected period
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param payload body dto.AssignSubstituteRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitutions [post]
func (h *SubstitutionHandler) Assign(c *gin.Context) {
	var req dto.AssignSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitution payload"))
		return
	}
	assignment, err := h.service.AssignSubstitute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Confirm godoc
// @Summary Confirm a substitution
// @Tags Substitutions
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /substitutions/{id}/confirm [post]
func (h *SubstitutionHandler) Confirm(c *gin.Context) {
	assignment, err := h.service.ConfirmSubstitution(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Decline godoc
// @Summary Decline a substitution, leaving the period uncovered
// @Tags Substitutions
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /substitutions/{id}/decline [post]
func (h *SubstitutionHandler) Decline(c *gin.Context) {
	assignment, err := h.service.DeclineSubstitution(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Remove godoc
// @Summary Delete a substitution
// @Tags Substitutions
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /substitutions/{id} [delete]
func (h *SubstitutionHandler) Remove(c *gin.Context) {
	if err := h.service.RemoveSubstitution(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
