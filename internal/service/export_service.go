package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var csvHeaders = []string{"Day", "Period", "Subject", "Batch ID", "Batch", "Teacher ID", "Teacher"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
}

// ExportResult is a rendered timetable document.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the timetable as a flat CSV list or a weekly PDF grid.
type ExportService struct {
	entries     entryLister
	workingDays []string
	periods     int
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers use the defaults.
func NewExportService(entries entryLister, cfg TimetableConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		entries:     entries,
		workingDays: cfg.WorkingDays,
		periods:     cfg.PeriodsPerDay,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Render builds the document for the entries matching filter.
func (s *ExportService) Render(filter models.EntryFilter, format string) (*ExportResult, error) {
	if filter.Day != "" {
		day, err := dateutil.NormalizeDay(filter.Day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid day %q", filter.Day))
		}
		filter.Day = day
	}
	entries := s.entries.List(filter)
	stamp := s.now().Format("20060102_150405")

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch strings.ToLower(format) {
	case "", ExportFormatCSV:
		format = ExportFormatCSV
		contentType = "text/csv"
		payload, err = s.csv.Render(s.listDataset(entries))
	case ExportFormatPDF:
		contentType = "application/pdf"
		payload, err = s.pdf.Render(s.gridDataset(entries, filter))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	s.logger.Debug("timetable exported", zap.String("format", format), zap.Int("entries", len(entries)))
	return &ExportResult{
		Filename:    fmt.Sprintf("timetable_%s.%s", stamp, strings.ToLower(format)),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

// Archive renders and writes the document to storage, returning its path.
func (s *ExportService) Archive(storage fileStorage, filter models.EntryFilter, format string) (string, error) {
	result, err := s.Render(filter, format)
	if err != nil {
		return "", err
	}
	path, err := storage.Save(result.Filename, result.Payload)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	return path, nil
}

func (s *ExportService) listDataset(entries []models.TimetableEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			"Day":        e.Day,
			"Period":     strconv.Itoa(e.PeriodNumber),
			"Subject":    e.SubjectName,
			"Batch ID":   e.BatchID,
			"Batch":      e.BatchName,
			"Teacher ID": e.TeacherID,
			"Teacher":    e.TeacherName,
		})
	}
	return export.Dataset{Title: "Timetable", Headers: csvHeaders, Rows: rows}
}

// gridDataset lays entries out with one row per period and one column per working day.
func (s *ExportService) gridDataset(entries []models.TimetableEntry, filter models.EntryFilter) export.Dataset {
	days := s.workingDays
	if filter.Day != "" {
		days = []string{filter.Day}
	}
	periods := s.periods
	for _, e := range entries {
		if e.PeriodNumber > periods {
			periods = e.PeriodNumber
		}
	}

	headers := append([]string{"Period"}, days...)
	cells := make(map[string][]string)
	for _, e := range entries {
		key := gridKey(e.Day, e.PeriodNumber)
		cells[key] = append(cells[key], fmt.Sprintf("%s\n%s\n%s", e.SubjectName, e.BatchName, e.TeacherName))
	}
	rows := make([]map[string]string, 0, periods)
	for p := 1; p <= periods; p++ {
		row := map[string]string{"Period": strconv.Itoa(p)}
		for _, day := range days {
			row[day] = strings.Join(cells[gridKey(day, p)], "\n")
		}
		rows = append(rows, row)
	}

	title := "Weekly Timetable"
	switch {
	case filter.BatchID != "" && len(entries) > 0:
		title = fmt.Sprintf("Weekly Timetable - %s", entries[0].BatchName)
	case filter.TeacherID != "" && len(entries) > 0:
		title = fmt.Sprintf("Weekly Timetable - %s", entries[0].TeacherName)
	}
	return export.Dataset{Title: title, Headers: headers, Rows: rows}
}

func gridKey(day string, period int) string {
	return day + "#" + strconv.Itoa(period)
}
