package risk

import (
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// Remediation templates chosen from an objective's what-can-go-wrong text.
const (
	AccessControlTemplate = "Implement role-based access controls with multi-factor authentication, " +
		"enforce least-privilege access reviews on a quarterly basis, and log and monitor all privileged access attempts."
	DatabaseMonitoringTemplate = "Deploy database activity monitoring with automated alerts on anomalous queries, " +
		"restrict direct database access to authorized administrators, and perform regular integrity and backup validation checks."
	FinancialControlsTemplate = "Enforce segregation of duties over financial transactions, " +
		"require documented dual approval for journal entries and payments, and perform monthly reconciliations with management review."
	GenericTemplate = "Document the control procedure, assign a control owner, " +
		"and establish periodic monitoring with evidence retained for review."
)

// TemplateRules select a remediation template. Order matters: the first
// matching rule wins.
var TemplateRules = RuleTable[string]{
	{Outcome: AccessControlTemplate, Keywords: []string{"unauthorized access"}},
	{Outcome: DatabaseMonitoringTemplate, Keywords: []string{"database"}},
	{Outcome: FinancialControlsTemplate, Keywords: []string{"accounting", "financial"}},
}

// ResolveObjective returns the remediation for an objective: its proposed
// control when set, otherwise a template. The result is never empty.
func ResolveObjective(obj models.ControlObjective) string {
	if strings.TrimSpace(obj.ProposedControl) != "" {
		return obj.ProposedControl
	}
	if tmpl, ok := TemplateRules.FirstMatch(obj.WhatCanGoWrong); ok {
		return tmpl
	}
	return GenericTemplate
}

// ResolveGap returns the recommended action for a gap: its own proposed
// solution, else the description of the first recommendation for the same
// department, else "". Departments are compared exactly.
func ResolveGap(gap models.Gap, recs []models.Recommendation) string {
	if strings.TrimSpace(gap.ProposedSolution) != "" {
		return gap.ProposedSolution
	}
	for _, rec := range recs {
		if rec.Department == gap.Department {
			return rec.Description
		}
	}
	return ""
}
