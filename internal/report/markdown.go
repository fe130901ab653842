package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// WriteMarkdown renders the assembled view of result as Markdown.
func WriteMarkdown(w io.Writer, result *models.AnalysisResult) error {
	_, err := io.WriteString(w, RenderMarkdown(Assemble(result)))
	return err
}

// RenderMarkdown renders the whole view.
func RenderMarkdown(view *View) string {
	var sb strings.Builder

	sb.WriteString("# Departmental Risk Analysis\n\n")
	if view.SourceFile != "" {
		fmt.Fprintf(&sb, "_Source: %s_\n\n", view.SourceFile)
	}

	if view.Empty {
		fmt.Fprintf(&sb, "> **Warning:** %s\n", view.Warning)
		return sb.String()
	}

	for _, dept := range view.Departments {
		sb.WriteString(RenderDepartmentMarkdown(dept))
		sb.WriteString("\n")
	}

	sb.WriteString(RenderRecommendationsMarkdown(view))
	return sb.String()
}

// RenderDepartmentMarkdown renders one department section.
func RenderDepartmentMarkdown(dept DepartmentView) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s Department - %s Risk\n\n", dept.Name, dept.Severity)
	if dept.HasProfile {
		fmt.Fprintf(&sb, "**Summary**: %s\n\n", dept.Summary)
	}

	sb.WriteString("### Risk Type Analysis\n\n")
	sb.WriteString("| Risk Type | Count | Severity |\n")
	sb.WriteString("|-----------|------:|----------|\n")
	for _, b := range dept.Classification.Buckets {
		fmt.Fprintf(&sb, "| %s | %d | %s Risk |\n", b.Type, b.Count(), b.Severity)
	}
	sb.WriteString("\n")

	if dept.SpecificRisks() {
		sb.WriteString("#### Specific Risks by Type\n\n")
		for _, b := range dept.Classification.Buckets {
			if b.Count() == 0 {
				continue
			}
			fmt.Fprintf(&sb, "**%s Risks**\n\n", b.Type)
			for _, item := range b.Items {
				fmt.Fprintf(&sb, "- %s\n", item.Display())
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("### Control Gaps and Recommendations\n\n")
	if len(dept.Gaps) == 0 {
		fmt.Fprintf(&sb, "_%s_\n\n", dept.GapsMessage)
	}
	for _, gap := range dept.Gaps {
		fmt.Fprintf(&sb, "**Gap %d**: %s\n\n", gap.Number, gap.Title)
		fmt.Fprintf(&sb, "- **Control Objective**: %s\n", gap.ControlObjective)
		fmt.Fprintf(&sb, "- **Impact**: %s\n", gap.Impact)
		fmt.Fprintf(&sb, "- **Recommended Action**: %s\n\n", gap.Action)
	}

	sb.WriteString("### Key Risks\n\n")
	if len(dept.KeyRisks) == 0 {
		fmt.Fprintf(&sb, "_%s_\n", dept.KeyRisksMessage)
		return sb.String()
	}
	if dept.KeyRisksDerived {
		sb.WriteString(DerivedKeyRisksLead + "\n\n")
	}
	for _, r := range dept.KeyRisks {
		fmt.Fprintf(&sb, "- %s\n", r)
	}
	return sb.String()
}

// RenderRecommendationsMarkdown renders the overall recommendations.
func RenderRecommendationsMarkdown(view *View) string {
	var sb strings.Builder

	sb.WriteString("## Overall Recommendations\n\n")
	if len(view.Recommendations) == 0 {
		fmt.Fprintf(&sb, "_%s_\n", view.RecommendationsMessage)
		return sb.String()
	}
	for _, rec := range view.Recommendations {
		fmt.Fprintf(&sb, "### %s (Priority: %s)\n\n", rec.Title, rec.Priority)
		if rec.Description != "" {
			sb.WriteString(rec.Description + "\n\n")
		}
		if rec.Impact != "" {
			fmt.Fprintf(&sb, "**Expected Impact**: %s\n\n", rec.Impact)
		}
		if rec.Department != "" {
			fmt.Fprintf(&sb, "**Department**: %s\n\n", rec.Department)
		}
	}
	return sb.String()
}
