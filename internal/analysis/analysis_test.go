package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/rcmatrix/internal/analysis/cache"
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

type fakeDriver struct {
	err      error
	response string
	prompts  []string
	delay    time.Duration
}

func (f *fakeDriver) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.response, f.err
}

func (f *fakeDriver) Model() string                     { return "fake-model" }
func (f *fakeDriver) HealthCheck(context.Context) error { return nil }

const financeResponse = "```json\n" + `{
  "department_risks": {
    "Finance": {
      "overall_risk_level": "High",
      "summary": "Payments lack dual approval.",
      "risk_types": {"Financial": ["Duplicate payments"], "Fraud": []},
      "key_risks": ["Duplicate payments"],
      "risk_scores": {"financial": 4, "operational": 3, "compliance": 3, "strategic": 2, "technological": 2}
    }
  },
  "gaps": [{"department": "Finance", "gap_title": "No dual approval", "control_objective": "Payments are approved", "risk_impact": "Loss", "proposed_solution": "Require two approvers"}],
  "recommendations": [{"department": "Finance", "title": "Dual approval", "description": "Add a second approver", "priority": "High"}]
}` + "\n```"

func financeRecord() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:         "a-1",
		SourceFile: "finance.xlsx",
		ControlObjectives: []models.ControlObjective{
			{Department: "Finance", Objective: "Payments are approved", WhatCanGoWrong: "Duplicate payments", RiskLevel: "High"},
			{Department: "Finance", Objective: "Reconciliations are performed", WhatCanGoWrong: "Misstatement", RiskLevel: "Medium", GapDetails: "Not evidenced"},
		},
		Departments: []string{"Finance"},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(financeRecord())

	assert.Contains(t, prompt, "### Finance")
	assert.Contains(t, prompt, "1. Objective: Payments are approved")
	assert.Contains(t, prompt, "Documented gap: Not evidenced")
	assert.Contains(t, prompt, `"Operational Fraud": ["<specific risk>"]`)
	assert.Contains(t, prompt, `"risk_distribution"`)

	record := financeRecord()
	record.Departments = nil
	assert.Contains(t, BuildPrompt(record), "- Finance\n", "departments are derived from rows when absent")
}

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse(financeResponse)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance"}, resp.DepartmentRisks.Names())
	require.Len(t, resp.Gaps, 1)
	assert.Equal(t, "Require two approvers", resp.Gaps[0].ProposedSolution)

	profile, ok := resp.DepartmentRisks.Get("Finance")
	require.True(t, ok)
	assert.NotNil(t, profile.RiskTypes["Fraud"])

	for _, bad := range []string{"", "no json here", "{broken", `{"gaps": "not a list"}`} {
		_, err := ParseResponse(bad)
		assert.ErrorIs(t, err, ErrMalformedResponse, bad)
	}
}

func TestMerge(t *testing.T) {
	record := financeRecord()
	resp, err := ParseResponse(financeResponse)
	require.NoError(t, err)

	merged := Merge(record, resp, "fake-model")
	assert.Equal(t, "fake-model", merged.Model)
	assert.Equal(t, "a-1", merged.ID)
	assert.Len(t, merged.ControlObjectives, 2)
	assert.Len(t, merged.Recommendations, 1)
	assert.Equal(t, map[string]int{"High": 1, "Medium": 1}, merged.RiskDistribution, "distribution is computed when the model omits it")

	assert.Empty(t, record.Gaps, "the input record is not modified")

	resp.RiskDistribution = map[string]int{"High": 7}
	assert.Equal(t, map[string]int{"High": 7}, Merge(record, resp, "m").RiskDistribution)
}

func TestServiceAnalyze(t *testing.T) {
	driver := &fakeDriver{response: financeResponse}
	log := logger.NewMockLogger()
	svc := NewService(driver, WithLogger(log))
	assert.Equal(t, "fake-model", svc.Model())

	result, err := svc.Analyze(context.Background(), financeRecord())
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance"}, result.DepartmentRisks.Names())
	assert.Len(t, driver.prompts, 1)
	assert.True(t, log.HasMessage("INFO", "Risk analysis complete"))
}

func TestServiceAnalyzeErrors(t *testing.T) {
	t.Run("driver failure", func(t *testing.T) {
		svc := NewService(&fakeDriver{err: errors.New("quota exceeded")}, WithLogger(logger.NewMockLogger()))
		_, err := svc.Analyze(context.Background(), financeRecord())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "analyzing with fake-model: quota exceeded")
	})

	t.Run("malformed response", func(t *testing.T) {
		svc := NewService(&fakeDriver{response: "I cannot help with that."}, WithLogger(logger.NewMockLogger()))
		_, err := svc.Analyze(context.Background(), financeRecord())
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("timeout", func(t *testing.T) {
		svc := NewService(&fakeDriver{response: financeResponse, delay: time.Second},
			WithLogger(logger.NewMockLogger()), WithTimeout(10*time.Millisecond))
		_, err := svc.Analyze(context.Background(), financeRecord())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestServiceAnalyzeUsesCache(t *testing.T) {
	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	driver := &fakeDriver{response: financeResponse}
	log := logger.NewMockLogger()
	svc := NewService(driver, WithLogger(log), WithCache(fc, time.Hour))

	first, err := svc.Analyze(context.Background(), financeRecord())
	require.NoError(t, err)

	again := financeRecord()
	again.ID = "a-2"
	again.SourceFile = "copy.xlsx"
	second, err := svc.Analyze(context.Background(), again)
	require.NoError(t, err)

	assert.Len(t, driver.prompts, 1, "second run is served from cache")
	assert.True(t, log.HasMessage("INFO", "Using cached analysis"))
	assert.Equal(t, "a-2", second.ID)
	assert.Equal(t, "copy.xlsx", second.SourceFile)
	assert.Equal(t, first.Gaps, second.Gaps)

	changed := financeRecord()
	changed.ControlObjectives[0].RiskLevel = "Low"
	_, err = svc.Analyze(context.Background(), changed)
	require.NoError(t, err)
	assert.Len(t, driver.prompts, 2)
}

func TestRiskDistribution(t *testing.T) {
	dist := RiskDistribution([]models.ControlObjective{
		{RiskLevel: "h"}, {RiskLevel: "High"}, {RiskLevel: "low"}, {RiskLevel: "??"},
	})
	assert.Equal(t, map[string]int{"High": 2, "Low": 1, "Unknown": 1}, dist)
	assert.True(t, strings.HasPrefix(BuildPrompt(&models.AnalysisResult{}), "You are"))
}
