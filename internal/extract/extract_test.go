package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func writeXLSX(t *testing.T, sheets map[string][][]any, order []string) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "rcm.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func writeDOCX(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rcm.docx")
	file, err := os.Create(path) // #nosec G304 - test file path
	require.NoError(t, err)

	zw := zip.NewWriter(file)
	w, err := zw.Create(docxBody)
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, file.Close())
	return path
}

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func table(rows ...[]string) string {
	var sb strings.Builder
	sb.WriteString("<w:tbl>")
	for _, row := range rows {
		sb.WriteString("<w:tr>")
		for _, c := range row {
			sb.WriteString("<w:tc>" + para(c) + "</w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
	return sb.String()
}

func TestProcessDocumentCSV(t *testing.T) {
	path := writeFile(t, "rcm.csv", "\ufeffDepartment,Control Objective,What Can Go Wrong,Risk Level,Gap Details\n"+
		"Finance,Approve invoices,Unauthorized access to payment system,High,\n"+
		",Reconcile bank,Missed reconciliations,Medium,No reviewer\n"+
		"IT,Back up data,database error,Low,\n"+
		",,,,\n")

	p := NewProcessorWithLogger(logger.NewMockLogger())
	result, err := p.ProcessDocument(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, result.ControlObjectives, 3)
	assert.Equal(t, []string{"Finance", "IT"}, result.Departments)
	assert.Equal(t, "rcm.csv", result.SourceFile)

	second := result.ControlObjectives[1]
	assert.Equal(t, "Finance", second.Department, "blank department inherits the row above")
	assert.Equal(t, "No reviewer", second.GapDetails)
	assert.True(t, second.HasGap())
	assert.Equal(t, "database error", result.ControlObjectives[2].WhatCanGoWrong)
}

func TestProcessDocumentXLSXSkipsUnrecognizedSheets(t *testing.T) {
	path := writeXLSX(t, map[string][][]any{
		"Cover": {{"Risk Control Matrix FY25"}, {"Prepared by", "Internal Audit"}},
		"RCM": {
			{"Company RCM"},
			{},
			{"Dept", "Process", "Control Objective", "Risk", "Risk Rating", "Control ID", "Key Control", "Existence/Occurrence", "Control/Design Gap"},
			{"Procurement", "Purchasing", "Orders are authorized", "Override of approval limits", "H", "PR-1", "Yes", "Y", "No"},
			{nil, nil, "Vendors are vetted", "Fictitious vendor", "Medium"},
		},
	}, []string{"Cover", "RCM"})

	result, err := NewProcessorWithLogger(logger.NewMockLogger()).ProcessDocument(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, result.ControlObjectives, 2)

	first := result.ControlObjectives[0]
	assert.Equal(t, models.ControlObjective{
		Department:     "Procurement",
		Process:        "Purchasing",
		Objective:      "Orders are authorized",
		WhatCanGoWrong: "Override of approval limits",
		RiskLevel:      "H",
		ControlID:      "PR-1",
		KeyControl:     "Yes",
		Existence:      "Y",
	}, first)
	assert.Equal(t, "Procurement", result.ControlObjectives[1].Department)
	assert.Equal(t, "Purchasing", result.ControlObjectives[1].Process)
}

func TestProcessDocumentDOCXTable(t *testing.T) {
	path := writeDOCX(t, para("Risk Control Matrix")+table(
		[]string{"Department", "Objective", "What can go wrong", "Risk Level"},
		[]string{"HR", "Payroll is accurate", "Ghost employees", "High"},
	))

	result, err := NewProcessorWithLogger(logger.NewMockLogger()).ProcessDocument(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, result.ControlObjectives, 1)
	assert.Equal(t, "HR", result.ControlObjectives[0].Department)
	assert.Equal(t, "Ghost employees", result.ControlObjectives[0].WhatCanGoWrong)
}

func TestProcessDocumentDOCXParagraphs(t *testing.T) {
	path := writeDOCX(t, para("Department: Treasury")+para("")+
		para("Control Objective: Cash is safeguarded")+
		para("What Can Go Wrong: Theft of petty cash")+
		para("Risk Level: High")+
		para("Control Objective: Investments are approved")+
		para("What Can Go Wrong: Unauthorized investment"))

	result, err := NewProcessorWithLogger(logger.NewMockLogger()).ProcessDocument(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, result.ControlObjectives, 2)
	assert.Equal(t, "Treasury", result.ControlObjectives[0].Department)
	assert.Equal(t, "High", result.ControlObjectives[0].RiskLevel)
	assert.Equal(t, "Treasury", result.ControlObjectives[1].Department)
	assert.Equal(t, "Unauthorized investment", result.ControlObjectives[1].WhatCanGoWrong)
}

func TestProcessDocumentErrors(t *testing.T) {
	p := NewProcessorWithLogger(logger.NewMockLogger())
	ctx := context.Background()

	_, err := p.ProcessDocument(ctx, writeFile(t, "notes.txt", "hello"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = p.ProcessDocument(ctx, writeFile(t, "empty.csv", "Name,Value\nfoo,bar\n"))
	require.ErrorIs(t, err, ErrNoControlObjectives)

	_, err = p.ProcessDocument(ctx, writeFile(t, "broken.xlsx", "not a zip"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoControlObjectives)

	_, err = p.ProcessDocument(ctx, writeFile(t, "broken.pdf", "not a pdf"))
	require.Error(t, err)
}

func TestProcessDocumentDoesNotModifyInput(t *testing.T) {
	content := "Department,Objective,Risk\nOps,Ship on time,Late delivery\n"
	path := writeFile(t, "rcm.csv", content)

	_, err := NewProcessorWithLogger(logger.NewMockLogger()).ProcessDocument(context.Background(), path)
	require.NoError(t, err)

	data, err := os.ReadFile(path) // #nosec G304 - test file path
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestProcessorExtensions(t *testing.T) {
	assert.Equal(t, []string{".csv", ".docx", ".pdf", ".xlsx"}, NewProcessorWithLogger(logger.NewMockLogger()).Extensions())
}

func TestNewRowMapper(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   bool
	}{
		{"objective and risk", []string{"Control Objective", "Risk"}, true},
		{"snake case headers", []string{"department", "what_can_go_wrong"}, true},
		{"trailing markers", []string{"Objective*", "Risk Level:"}, true},
		{"single column", []string{"Objective"}, false},
		{"no objective or risk", []string{"Department", "Control Owner"}, false},
		{"only derived column", []string{"Objective", "Control/Design Gap"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := newRowMapper(tt.header)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestFromKeyValueLines(t *testing.T) {
	lines := []string{
		"Department: Sales",
		"",
		"- Control Objective: Discounts are approved",
		"What Can Go Wrong: Excessive discounts",
		"granted without review",
		"Risk Level: Medium",
		"",
		"Objective: Commissions are accurate",
		"Risk: Overpaid commissions",
		"Department: Payroll",
		"",
		"Unrelated heading",
	}

	got := fromKeyValueLines(lines)
	require.Len(t, got, 2)
	assert.Equal(t, "Sales", got[0].Department)
	assert.Equal(t, "Excessive discounts granted without review", got[0].WhatCanGoWrong)
	assert.Equal(t, "Payroll", got[1].Department)
}

func TestFromKeyValueLinesDefaultsDepartment(t *testing.T) {
	got := fromKeyValueLines([]string{"Objective: Only one"})
	require.Len(t, got, 1)
	assert.Equal(t, models.GeneralDepartment, got[0].Department)
}
