package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// XLSXExtractor reads the first worksheet that carries a recognizable header.
type XLSXExtractor struct{}

// Name implements Extractor.
func (e *XLSXExtractor) Name() string { return "xlsx" }

// Extract implements Extractor.
func (e *XLSXExtractor) Extract(ctx context.Context, path string) (objectives []models.ControlObjective, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing workbook: %w", cerr)
		}
	}()

	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		if found := fromTable(rows); len(found) > 0 {
			return found, nil
		}
	}
	return nil, nil
}

// CSVExtractor reads a delimited file with a header row.
type CSVExtractor struct{}

// Name implements Extractor.
func (e *CSVExtractor) Name() string { return "csv" }

// Extract implements Extractor.
func (e *CSVExtractor) Extract(ctx context.Context, path string) ([]models.ControlObjective, error) {
	file, err := os.Open(path) // #nosec G304 - path validated by caller
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer func() { _ = file.Close() }()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return fromTable(rows), nil
}
