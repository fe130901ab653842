package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// financeResult is the single-department scenario: one high-risk objective,
// no gaps and no recommendations.
func financeResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:          "finance-1",
		SourceFile:  "finance.xlsx",
		CreatedAt:   time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC),
		Departments: []string{"Finance"},
		ControlObjectives: []models.ControlObjective{
			{
				Department:     "Finance",
				Objective:      "Approve invoices",
				WhatCanGoWrong: "unauthorized access to payment system",
				RiskLevel:      "High",
			},
		},
	}
}

// sampleResult covers two departments, a pass-through profile, gaps with and
// without solutions, an orphaned gap and more than five recommendations.
func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:         "sample-1",
		SourceFile: "rcm.xlsx",
		Model:      "gemini-2.0-flash",
		CreatedAt:  time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC),
		ControlObjectives: []models.ControlObjective{
			{Department: "IT", Process: "Access", Objective: "Restrict admin access", WhatCanGoWrong: "Unauthorized access to systems", RiskLevel: "h", ControlID: "IT-01", KeyControl: "Yes", Existence: "Y"},
			{Department: "IT", Objective: "Back up databases", WhatCanGoWrong: "database error corrupts records", RiskLevel: "Medium", GapDetails: "No restore testing"},
			{Department: "Finance", Objective: "Reconcile accounts", WhatCanGoWrong: "Accounting misstatement", RiskLevel: "Critical", ProposedControl: "Monthly reconciliation sign-off"},
			{Department: "Finance", Objective: "Approve payments", WhatCanGoWrong: "Duplicate payment", RiskLevel: "Low"},
		},
		Departments: []string{"IT", "Finance"},
		DepartmentRisks: models.DepartmentRisks{
			{Name: "Finance", Profile: models.DepartmentRiskProfile{
				OverallRiskLevel: "High",
				Summary:          "Finance has material payment exposure.",
				RiskTypes: map[string]models.FindingList{
					"Financial": {"Duplicate payments", "FX losses", "Late close"},
					"Fraud":     {"Vendor kickbacks"},
				},
				KeyRisks: models.FindingList{"Payment fraud"},
			}},
			{Name: "IT", Profile: models.DepartmentRiskProfile{
				Scores: &models.DimensionScores{Financial: 1, Operational: 2, Compliance: 2, Strategic: 2, Technological: 3},
			}},
		},
		Gaps: []models.Gap{
			{Department: "IT", GapTitle: "No restore tests", ControlObjective: "Back up databases", RiskImpact: "Data loss"},
			{Department: "Finance", GapTitle: "Manual reconciliations", ControlObjective: "Reconcile accounts", RiskImpact: "Misstatement", ProposedSolution: "Automate reconciliations"},
			{Department: "Legal", GapTitle: "Contract register missing", RiskImpact: "Missed obligations"},
		},
		Recommendations: []models.Recommendation{
			{Department: "IT", Title: "Test restores", Description: "Run quarterly restore tests", Priority: "High", Impact: "Recoverability"},
			{Department: "Finance", Description: "Automate payment matching", Priority: "low"},
			{Title: "Policy refresh", Description: "Refresh policies"},
			{Title: "Four", Description: "4"},
			{Title: "Five", Description: "5"},
			{Title: "Six", Description: "6"},
		},
	}
}

func readWorkbook(t *testing.T, result *models.AnalysisResult) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, result))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func readCSV(t *testing.T, result *models.AnalysisResult) [][]string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, result))

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}
