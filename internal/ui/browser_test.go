package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

func plainRenderer(md string, _ int) (string, error) {
	return md, nil
}

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		SourceFile: "rcm.xlsx",
		ControlObjectives: []models.ControlObjective{
			{Department: "Finance", Objective: "Payments are authorized", WhatCanGoWrong: "Unauthorized transfers", RiskLevel: "High"},
			{Department: "IT", Objective: "Access is reviewed", WhatCanGoWrong: "Unauthorized access to systems", RiskLevel: "Medium"},
		},
		Departments: []string{"Finance", "IT"},
		Gaps: []models.Gap{
			{Department: "IT", GapTitle: "No quarterly access review", ControlObjective: "Access is reviewed", RiskImpact: "Stale accounts"},
		},
		Recommendations: []models.Recommendation{
			{Title: "Introduce dual approval", Description: "Require two approvers", Priority: "high"},
		},
	}
}

func sized(t *testing.T, b *Browser) *Browser {
	t.Helper()
	m, cmd := b.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Nil(t, cmd)
	return m.(*Browser)
}

func key(b *Browser, k string) (*Browser, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, cmd := b.Update(msg)
	return m.(*Browser), cmd
}

func TestNewBrowserTabs(t *testing.T) {
	b := NewBrowser(sampleResult(), WithRenderer(plainRenderer))
	assert.Equal(t, []string{"Finance", "IT", RecommendationsTab}, b.Tabs())
	assert.Equal(t, 0, b.Active())
	assert.Nil(t, b.Init())
}

func TestBrowserViewBeforeResize(t *testing.T) {
	b := NewBrowser(sampleResult(), WithRenderer(plainRenderer))
	assert.Equal(t, "Loading...", b.View())
}

func TestBrowserNavigation(t *testing.T) {
	b := sized(t, NewBrowser(sampleResult(), WithRenderer(plainRenderer)))
	assert.Contains(t, b.Markdown(), "## Finance Department")

	b, _ = key(b, "tab")
	assert.Equal(t, 1, b.Active())
	assert.Contains(t, b.Markdown(), "No quarterly access review")

	b, _ = key(b, "l")
	assert.Equal(t, 2, b.Active())
	assert.Contains(t, b.Markdown(), "Introduce dual approval")

	b, _ = key(b, "tab")
	assert.Equal(t, 0, b.Active(), "wraps to the first tab")

	b, _ = key(b, "shift+tab")
	assert.Equal(t, 2, b.Active(), "wraps to the last tab")

	b, _ = key(b, "2")
	assert.Equal(t, 1, b.Active())

	b, _ = key(b, "9")
	assert.Equal(t, 1, b.Active(), "out of range jumps are ignored")
}

func TestBrowserView(t *testing.T) {
	b := sized(t, NewBrowser(sampleResult(), WithRenderer(plainRenderer)))

	out := b.View()
	assert.Contains(t, out, "rcm.xlsx")
	assert.Contains(t, out, "2 objectives, 1 gaps")
	assert.Contains(t, out, "Finance")
	assert.Contains(t, out, RecommendationsTab)
	assert.Contains(t, out, "q quit")
}

func TestBrowserQuit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			b := sized(t, NewBrowser(sampleResult(), WithRenderer(plainRenderer)))
			_, cmd := key(b, k)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestBrowserRendererFailureFallsBackToMarkdown(t *testing.T) {
	failing := func(string, int) (string, error) { return "", errors.New("no style") }
	b := sized(t, NewBrowser(sampleResult(), WithRenderer(failing)))
	assert.Equal(t, b.Markdown(), b.content())
}

func TestBrowserRendererReceivesPaneWidth(t *testing.T) {
	var widths []int
	record := func(md string, width int) (string, error) {
		widths = append(widths, width)
		return strings.ToUpper(md), nil
	}
	b := sized(t, NewBrowser(sampleResult(), WithRenderer(record)))
	require.NotEmpty(t, widths)
	assert.Equal(t, 96, widths[len(widths)-1])

	b.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Equal(t, 56, widths[len(widths)-1])
}

func TestBrowserEmptyResult(t *testing.T) {
	b := sized(t, NewBrowser(&models.AnalysisResult{}, WithRenderer(plainRenderer)))
	assert.Equal(t, []string{RecommendationsTab}, b.Tabs())
	assert.Contains(t, b.Markdown(), "**Warning:**")

	b, _ = key(b, "tab")
	assert.Equal(t, 0, b.Active())
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Finance\n\n- one\n", 60)
	require.NoError(t, err)
	assert.Contains(t, out, "Finance")
	assert.Contains(t, out, "one")
}
