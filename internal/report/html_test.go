package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleResult()))
	html := buf.String()

	assert.Contains(t, html, "<title>"+DefaultPageTitle+"</title>")
	assert.Contains(t, html, "Finance Department - High Risk")
	assert.Contains(t, html, "View Specific Risks by Type")
	assert.Contains(t, html, "Vendor kickbacks")
	assert.Contains(t, html, "<strong>Recommended Action</strong>: Run quarterly restore tests")
	assert.Contains(t, html, "color:#FF5252")
	assert.Contains(t, html, "Recommendation 2")
	assert.NotContains(t, html, "<form", "static exports have no upload form")
	assert.Equal(t, 2, strings.Count(html, `class="panel"`))
}

func TestRenderHTMLInteractive(t *testing.T) {
	page := &HTMLPage{
		View:         Assemble(financeResult()),
		Interactive:  true,
		Accept:       ".xlsx,.csv,.pdf,.docx",
		UploadedName: "finance.xlsx",
		Flash:        "Analysis complete!",
		Exports:      []ExportLink{{Label: "Excel", URL: "/export/xlsx"}},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, page))
	html := buf.String()

	assert.Contains(t, html, `action="/analyze"`)
	assert.Contains(t, html, `action="/reset"`)
	assert.Contains(t, html, "Uploaded: finance.xlsx")
	assert.Contains(t, html, "Analysis complete!")
	assert.Contains(t, html, `href="/export/xlsx"`)
	assert.Contains(t, html, NoGapsMessage)
	assert.Contains(t, html, "Based on analysis of control objectives:")
	assert.Contains(t, html, NoRecommendationsMessage)
}

func TestRenderHTMLWithoutView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, &HTMLPage{Interactive: true, Error: "Error analyzing document: boom"}))
	html := buf.String()

	assert.Contains(t, html, "Error analyzing document: boom")
	assert.NotContains(t, html, `action="/reset"`)
	assert.NotContains(t, html, "Departmental Risk Analysis")
}

func TestRenderHTMLEscapes(t *testing.T) {
	result := &models.AnalysisResult{
		Departments: []string{"<script>alert(1)</script>"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, result))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
}

func TestRenderHTMLEmptyWarning(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, &models.AnalysisResult{}))
	assert.Contains(t, buf.String(), NoDepartmentsMessage)
}
