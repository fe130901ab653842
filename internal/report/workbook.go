package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/risk"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// Workbook sheet names, in order.
const (
	SheetRiskSummary       = "Risk Summary"
	SheetControlObjectives = "Control Objectives"
	SheetDepartmentRisk    = "Department Risk Analysis"
	SheetRecommendations   = "Recommendations"
)

// Labels of the trailing Risk Summary rows.
const (
	TotalRowLabel      = "Total"
	UnassignedRowLabel = "Unassigned gaps"
)

// SummaryColumns are the Risk Summary headers.
var SummaryColumns = []string{
	"Department",
	"Overall Risk Level",
	"Control Objectives",
	"High Risk Objectives",
	"Control Gaps",
	"Recommendations",
}

// DepartmentRiskColumns are the Department Risk Analysis headers.
var DepartmentRiskColumns = []string{
	"Department",
	"Overall Risk",
	string(risk.Operational),
	string(risk.Financial),
	string(risk.Fraud),
	string(risk.FinancialFraud),
	string(risk.OperationalFraud),
	"Control Gaps",
	"Summary",
}

// RecommendationColumns are the Recommendations headers.
var RecommendationColumns = []string{"Title", "Department", "Priority", "Description", "Impact"}

const (
	headerFill     = "1F4E78"
	assertionFill  = "DDEBF7"
	minValidatedTo = 1000
)

// WriteWorkbook writes the four-sheet analysis workbook to w using the global
// logger. Empty input yields header-only sheets.
func WriteWorkbook(w io.Writer, result *models.AnalysisResult) error {
	return WriteWorkbookWithLogger(w, result, logger.GetGlobalLogger())
}

// WriteWorkbookWithLogger writes the workbook with a custom logger. Cells
// longer than Excel's limit are truncated by the spreadsheet writer and
// reported as warnings.
func WriteWorkbookWithLogger(w io.Writer, result *models.AnalysisResult, log logger.Logger) (err error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if result == nil {
		result = &models.AnalysisResult{}
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing workbook: %w", cerr)
		}
	}()

	b := &workbookBuilder{f: f, result: result, logger: log, fills: make(map[risk.Severity]int)}
	if err := b.build(); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

type workbookBuilder struct {
	f           *excelize.File
	result      *models.AnalysisResult
	logger      logger.Logger
	fills       map[risk.Severity]int
	headerStyle int
}

func (b *workbookBuilder) build() error {
	if err := b.f.SetSheetName("Sheet1", SheetRiskSummary); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for _, name := range []string{SheetControlObjectives, SheetDepartmentRisk, SheetRecommendations} {
		if _, err := b.f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", name, err)
		}
	}
	b.f.SetActiveSheet(0)

	style, err := b.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	b.headerStyle = style

	steps := []struct {
		name string
		fn   func() error
	}{
		{SheetRiskSummary, b.writeSummary},
		{SheetControlObjectives, b.writeObjectives},
		{SheetDepartmentRisk, b.writeDepartmentRisk},
		{SheetRecommendations, b.writeRecommendations},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("writing %s sheet: %w", step.name, err)
		}
	}
	return nil
}

func (b *workbookBuilder) writeSummary() error {
	sheet := SheetRiskSummary
	if err := b.writeHeader(sheet, SummaryColumns, 20); err != nil {
		return err
	}

	names := b.result.DepartmentNames()
	if len(names) == 0 {
		return nil
	}

	row := 2
	for _, name := range names {
		profile, _ := b.result.DepartmentRisks.Get(name)
		objectives := b.result.ObjectivesFor(name)
		values := []any{
			name,
			string(risk.DepartmentSeverity(profile)),
			len(objectives),
			countHighRisk(objectives),
			len(b.result.GapsFor(name)),
			countRecommendations(b.result.Recommendations, name),
		}
		if err := b.writeRow(sheet, row, values); err != nil {
			return err
		}
		row++
	}

	totals := []any{
		TotalRowLabel,
		"",
		len(b.result.ControlObjectives),
		countHighRisk(b.result.ControlObjectives),
		len(b.result.Gaps),
		len(b.result.Recommendations),
	}
	if err := b.writeRow(sheet, row, totals); err != nil {
		return err
	}

	if orphaned := b.result.OrphanedGaps(); len(orphaned) > 0 {
		row++
		if err := b.writeRow(sheet, row, []any{UnassignedRowLabel, "", "", "", len(orphaned), ""}); err != nil {
			return err
		}
	}
	return nil
}

func (b *workbookBuilder) writeObjectives() error {
	sheet := SheetControlObjectives
	if err := b.writeHeader(sheet, ObjectiveColumns, 22); err != nil {
		return err
	}

	objectives := b.result.ControlObjectives
	for i, obj := range objectives {
		cells := objectiveRow(obj)
		values := make([]any, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		if err := b.writeRow(sheet, i+2, values); err != nil {
			return err
		}
	}

	if len(objectives) > 0 {
		style, err := b.f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{assertionFill}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return fmt.Errorf("creating assertion style: %w", err)
		}
		from, _ := excelize.CoordinatesToCellName(colFirstAssertion, 2)
		to, _ := excelize.CoordinatesToCellName(colLastAssertion, len(objectives)+1)
		if err := b.f.SetCellStyle(sheet, from, to, style); err != nil {
			return fmt.Errorf("styling assertion columns: %w", err)
		}
	}

	lastRow := max(len(objectives)+1, minValidatedTo)
	lists := []struct {
		col    int
		values []string
	}{
		{colRiskLevel, models.ValidRiskLevels()},
		{colKeyControl, yesNo},
		{colAutomatedManual, automatedManual},
		{colPreventiveDetective, preventiveDetective},
		{colFrequency, frequencies},
		{colDesignGap, yesNo},
	}
	for _, l := range lists {
		if err := b.addDropList(sheet, l.col, lastRow, l.values); err != nil {
			return err
		}
	}
	return nil
}

func (b *workbookBuilder) writeDepartmentRisk() error {
	sheet := SheetDepartmentRisk
	if err := b.writeHeader(sheet, DepartmentRiskColumns, 18); err != nil {
		return err
	}

	for i, name := range b.result.DepartmentNames() {
		row := i + 2
		profile, _ := b.result.DepartmentRisks.Get(name)
		classification := risk.Classify(b.result.ObjectivesFor(name), profile)

		values := []any{name, string(risk.DepartmentSeverity(profile))}
		severities := make([]risk.Severity, 0, len(risk.Types)+1)
		for _, t := range risk.Types {
			bucket := classification.Bucket(t)
			values = append(values, severityCell(bucket.Severity, bucket.Count()))
			severities = append(severities, bucket.Severity)
		}
		gaps := len(b.result.GapsFor(name))
		gapSeverity := risk.SeverityForCount(gaps)
		values = append(values, severityCell(gapSeverity, gaps))
		severities = append(severities, gapSeverity)

		summary := ""
		if profile != nil {
			summary = profile.SummaryOrDefault()
		}
		values = append(values, summary)

		if err := b.writeRow(sheet, row, values); err != nil {
			return err
		}
		for j, sev := range severities {
			if err := b.fillCell(sheet, j+3, row, sev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *workbookBuilder) writeRecommendations() error {
	sheet := SheetRecommendations
	if err := b.writeHeader(sheet, RecommendationColumns, 24); err != nil {
		return err
	}

	for i, rec := range b.result.Recommendations {
		title := rec.Title
		if strings.TrimSpace(title) == "" {
			title = fmt.Sprintf("Recommendation %d", i+1)
		}
		values := []any{title, rec.DepartmentOrGeneral(), rec.PriorityOrDefault(), rec.Description, rec.Impact}
		if err := b.writeRow(sheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func (b *workbookBuilder) writeHeader(sheet string, headers []string, width float64) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := b.writeRow(sheet, 1, values); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := b.f.SetCellStyle(sheet, "A1", last, b.headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := b.f.SetColWidth(sheet, "A", lastCol, width); err != nil {
		return fmt.Errorf("setting column width: %w", err)
	}

	return b.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (b *workbookBuilder) writeRow(sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := b.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	b.warnTruncated(sheet, row, values)
	return nil
}

// warnTruncated logs text cells that exceed the Excel cell limit; the CSV
// export keeps their full text.
func (b *workbookBuilder) warnTruncated(sheet string, row int, values []any) {
	for i, v := range values {
		text, ok := v.(string)
		if !ok {
			continue
		}
		n := utf8.RuneCountInString(text)
		if n <= excelize.TotalCellChars {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		b.logger.Warn("Workbook cell truncated",
			"sheet", sheet,
			"cell", cell,
			"length", n,
			"limit", excelize.TotalCellChars)
	}
}

func (b *workbookBuilder) addDropList(sheet string, col, lastRow int, values []string) error {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = fmt.Sprintf("%s2:%s%d", name, name, lastRow)
	if err := dv.SetDropList(values); err != nil {
		return fmt.Errorf("building %s validation: %w", name, err)
	}
	if err := b.f.AddDataValidation(sheet, dv); err != nil {
		return fmt.Errorf("adding %s validation: %w", name, err)
	}
	return nil
}

func (b *workbookBuilder) fillCell(sheet string, col, row int, sev risk.Severity) error {
	style, ok := b.fills[sev]
	if !ok {
		var err error
		style, err = b.f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(sev.Color(), "#")}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return fmt.Errorf("creating %s fill: %w", sev, err)
		}
		b.fills[sev] = style
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return b.f.SetCellStyle(sheet, cell, cell, style)
}

func severityCell(sev risk.Severity, count int) string {
	return fmt.Sprintf("%s (%d)", sev, count)
}

func countHighRisk(objectives []models.ControlObjective) int {
	n := 0
	for _, obj := range objectives {
		if obj.IsKeyRisk() {
			n++
		}
	}
	return n
}

func countRecommendations(recs []models.Recommendation, dept string) int {
	n := 0
	for _, rec := range recs {
		if rec.Department == dept {
			n++
		}
	}
	return n
}
