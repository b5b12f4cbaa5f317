package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Dataset is a titled table whose rows are keyed by header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOption tunes the CSV dialect.
type CSVOption func(*CSVExporter)

// WithDelimiter replaces the comma, e.g. ';' for spreadsheets in comma-decimal locales.
func WithDelimiter(r rune) CSVOption {
	return func(e *CSVExporter) { e.delimiter = r }
}

// WithBOM prefixes the output with a UTF-8 byte order mark so Excel detects the encoding.
func WithBOM() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// CSVExporter writes a Dataset as one CSV record per row. The title is not written.
type CSVExporter struct {
	delimiter rune
	bom       bool
}

func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{delimiter: ','}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("csv requires at least one header")
	}
	if e.delimiter == '"' || e.delimiter == '\r' || e.delimiter == '\n' || !utf8.ValidRune(e.delimiter) {
		return nil, fmt.Errorf("invalid csv delimiter %q", e.delimiter)
	}

	buf := &bytes.Buffer{}
	if e.bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(buf)
	w.Comma = e.delimiter

	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
