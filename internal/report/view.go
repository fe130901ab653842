package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/risk"
)

// Empty-state messages.
const (
	NoDepartmentsMessage     = "No departments found in the document. Please check the file format."
	NoGapsMessage            = "No control gaps identified for this department."
	NoKeyRisksMessage        = "No key risks identified for this department."
	NoRecommendationsMessage = "No specific recommendations generated. Consider reviewing the identified gaps."
	DerivedKeyRisksLead      = "Based on analysis of control objectives:"
)

// Display limits.
const (
	MaxDerivedKeyRisks = 3
	MaxRecommendations = 5
)

// View is the presentation model of one analysis.
type View struct {
	CreatedAt              time.Time            `json:"created_at"`
	ID                     string               `json:"id,omitempty"`
	SourceFile             string               `json:"source_file,omitempty"`
	Model                  string               `json:"model,omitempty"`
	Warning                string               `json:"warning,omitempty"`
	RecommendationsMessage string               `json:"recommendations_message,omitempty"`
	Departments            []DepartmentView     `json:"departments"`
	Recommendations        []RecommendationView `json:"recommendations"`
	OrphanedGaps           []models.Gap         `json:"orphaned_gaps,omitempty"`
	TotalObjectives        int                  `json:"total_objectives"`
	TotalGaps              int                  `json:"total_gaps"`
	TotalRecommendations   int                  `json:"total_recommendations"`
	Empty                  bool                 `json:"empty"`
}

// DepartmentView is the per-department section of a report.
type DepartmentView struct {
	Name            string              `json:"name"`
	Severity        risk.Severity       `json:"severity"`
	Summary         string              `json:"summary,omitempty"`
	GapsMessage     string              `json:"gaps_message,omitempty"`
	KeyRisksMessage string              `json:"key_risks_message,omitempty"`
	Classification  risk.Classification `json:"classification"`
	Gaps            []GapView           `json:"gaps"`
	KeyRisks        []string            `json:"key_risks"`
	ObjectiveCount  int                 `json:"objective_count"`
	HasProfile      bool                `json:"has_profile"`
	KeyRisksDerived bool                `json:"key_risks_derived"`
}

// GapView is a gap joined with its recommended action.
type GapView struct {
	Title            string `json:"title"`
	ControlObjective string `json:"control_objective"`
	Impact           string `json:"impact"`
	Action           string `json:"action"`
	Number           int    `json:"number"`
}

// RecommendationView is one entry of the overall recommendations list.
type RecommendationView struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    string        `json:"priority"`
	Impact      string        `json:"impact,omitempty"`
	Department  string        `json:"department,omitempty"`
	Severity    risk.Severity `json:"severity"`
	Number      int           `json:"number"`
}

// SpecificRisks reports whether the department lists per-type findings
// supplied by the analysis.
func (d DepartmentView) SpecificRisks() bool {
	if d.Classification.Mode != risk.PassThrough {
		return false
	}
	for _, b := range d.Classification.Buckets {
		if b.Count() > 0 {
			return true
		}
	}
	return false
}

// Assemble builds the presentation model for result. It never fails; missing
// data becomes empty-state messages.
func Assemble(result *models.AnalysisResult) *View {
	if result == nil {
		result = &models.AnalysisResult{}
	}

	view := &View{
		ID:                   result.ID,
		SourceFile:           result.SourceFile,
		CreatedAt:            result.CreatedAt,
		Model:                result.Model,
		TotalObjectives:      len(result.ControlObjectives),
		TotalGaps:            len(result.Gaps),
		TotalRecommendations: len(result.Recommendations),
	}

	names := result.DepartmentNames()
	if len(names) == 0 {
		view.Empty = true
		view.Warning = NoDepartmentsMessage
		return view
	}

	view.Departments = make([]DepartmentView, 0, len(names))
	for _, name := range names {
		view.Departments = append(view.Departments, assembleDepartment(result, name))
	}
	view.OrphanedGaps = result.OrphanedGaps()

	recs := result.Recommendations
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	for i, rec := range recs {
		title := rec.Title
		if strings.TrimSpace(title) == "" {
			title = fmt.Sprintf("Recommendation %d", i+1)
		}
		view.Recommendations = append(view.Recommendations, RecommendationView{
			Number:      i + 1,
			Title:       title,
			Description: rec.Description,
			Priority:    rec.PriorityOrDefault(),
			Impact:      rec.Impact,
			Department:  rec.Department,
			Severity:    risk.PrioritySeverity(rec.Priority),
		})
	}
	if len(view.Recommendations) == 0 {
		view.RecommendationsMessage = NoRecommendationsMessage
	}

	return view
}

func assembleDepartment(result *models.AnalysisResult, name string) DepartmentView {
	objectives := result.ObjectivesFor(name)
	profile, ok := result.DepartmentRisks.Get(name)
	if !ok {
		profile = nil
	}

	dept := DepartmentView{
		Name:           name,
		Severity:       risk.DepartmentSeverity(profile),
		HasProfile:     profile != nil,
		ObjectiveCount: len(objectives),
		Classification: risk.Classify(objectives, profile),
	}
	if profile != nil {
		dept.Summary = profile.SummaryOrDefault()
	}

	for i, gap := range result.GapsFor(name) {
		dept.Gaps = append(dept.Gaps, GapView{
			Number:           i + 1,
			Title:            gap.GapTitle,
			ControlObjective: gap.ControlObjective,
			Impact:           gap.RiskImpact,
			Action:           risk.ResolveGap(gap, result.Recommendations),
		})
	}
	if len(dept.Gaps) == 0 {
		dept.GapsMessage = NoGapsMessage
	}

	switch {
	case profile != nil && len(profile.KeyRisks) > 0:
		dept.KeyRisks = append([]string(nil), profile.KeyRisks...)
	default:
		dept.KeyRisks = deriveKeyRisks(objectives)
		dept.KeyRisksDerived = len(dept.KeyRisks) > 0
	}
	if len(dept.KeyRisks) == 0 {
		dept.KeyRisksMessage = NoKeyRisksMessage
	}

	return dept
}

func deriveKeyRisks(objectives []models.ControlObjective) []string {
	var out []string
	for _, obj := range objectives {
		if !obj.IsKeyRisk() {
			continue
		}
		out = append(out, obj.WhatCanGoWrong)
		if len(out) == MaxDerivedKeyRisks {
			break
		}
	}
	return out
}
