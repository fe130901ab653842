package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

func writeResult(t *testing.T) string {
	t.Helper()
	result := models.AnalysisResult{
		ID:        "a-1",
		CreatedAt: time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC),
		ControlObjectives: []models.ControlObjective{
			{Department: "Finance", Objective: "Payments are authorized", RiskLevel: "High"},
		},
		Departments: []string{"Finance"},
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "analysis.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestRunFromInputFile(t *testing.T) {
	input := writeResult(t)
	out := t.TempDir()

	require.NoError(t, Run([]string{"--input", input, "--output", out, "--format", "csv, markdown"}))

	csvData, err := os.ReadFile(filepath.Join(out, "rcm_analysis_20250506_070809.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "Payments are authorized")

	md, err := os.ReadFile(filepath.Join(out, "rcm_analysis_20250506_070809.md"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(md), "Finance Department"))
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	input := writeResult(t)
	err := Run([]string{"--input", input, "--output", t.TempDir(), "--format", "pdf"})
	assert.Error(t, err)
}

func TestRunRequiresFormat(t *testing.T) {
	assert.ErrorContains(t, Run([]string{"--format", " , "}), "at least one format")
}

func TestReadResultFile(t *testing.T) {
	result, err := readResultFile(writeResult(t))
	require.NoError(t, err)
	assert.Equal(t, "a-1", result.ID)

	_, err = readResultFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "reading analysis file")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0600))
	_, err = readResultFile(bad)
	assert.ErrorContains(t, err, "parsing analysis file")
}
