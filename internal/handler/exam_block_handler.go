package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type examBlockService interface {
	IsSlotBlocked(ctx context.Context, date time.Time, period int, batchID string) (models.BlockCheckResult, error)
	BlocksForDate(ctx context.Context, date time.Time) ([]models.ExamBlock, error)
	ListActive(ctx context.Context) ([]models.ExamBlock, error)
	Refresh(ctx context.Context) error
}

// ExamBlockHandler exposes the active exam and activity blocks.
type ExamBlockHandler struct {
	service examBlockService
}

// NewExamBlockHandler constructs the handler.
func NewExamBlockHandler(service examBlockService) *ExamBlockHandler {
	return &ExamBlockHandler{service: service}
}

// List godoc
// @Summary List active exam blocks
// @Description Without a date every active block is returned in evaluation order.
// @Tags ExamBlocks
// @Produce json
// @Param date query string false "Only blocks covering this date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /exam-blocks [get]
func (h *ExamBlockHandler) List(c *gin.Context) {
	date, err := parseDateParam(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var blocks []models.ExamBlock
	if date != nil {
		blocks, err = h.service.BlocksForDate(c.Request.Context(), *date)
	} else {
		blocks, err = h.service.ListActive(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, map[string]interface{}{"total": len(blocks)})
}

// Check godoc
// @Summary Check whether a dated slot is blocked
// @Tags ExamBlocks
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param period query int true "Period number"
// @Param batch_id query string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /exam-blocks/check [get]
func (h *ExamBlockHandler) Check(c *gin.Context) {
	var req dto.BlockCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid block query"))
		return
	}
	req.BatchID = strings.TrimSpace(req.BatchID)
	if req.BatchID == "" || req.Period < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "batch_id and a positive period are required"))
		return
	}
	date, err := parseDateParam(req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	if date == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	result, err := h.service.IsSlotBlocked(c.Request.Context(), *date, req.Period, req.BatchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Refresh godoc
// @Summary Reload active exam blocks from storage
// @Tags ExamBlocks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exam-blocks/refresh [post]
func (h *ExamBlockHandler) Refresh(c *gin.Context) {
	if err := h.service.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	blocks, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"active": len(blocks)}, nil)
}
