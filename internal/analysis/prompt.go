package analysis

import (
	"fmt"
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/risk"
)

// BuildPrompt creates the risk analysis prompt for an extracted record.
func BuildPrompt(record *models.AnalysisResult) string {
	var sb strings.Builder

	sb.WriteString("You are an internal audit and risk management expert reviewing a Risk Control Matrix. ")
	sb.WriteString("Analyze the control objectives below department by department, classify the risks, ")
	sb.WriteString("identify control gaps and recommend remediations.\n\n")

	departments := record.Departments
	if len(departments) == 0 {
		departments = distinctDepartments(record.ControlObjectives)
	}

	sb.WriteString("## Departments\n")
	for _, dept := range departments {
		sb.WriteString("- " + dept + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Control Objectives\n")
	for _, dept := range departments {
		objectives := record.ObjectivesFor(dept)
		if len(objectives) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s\n", dept))
		for i, obj := range objectives {
			sb.WriteString(fmt.Sprintf("%d. Objective: %s\n", i+1, obj.Objective))
			sb.WriteString(fmt.Sprintf("   What can go wrong: %s\n", obj.WhatCanGoWrong))
			sb.WriteString(fmt.Sprintf("   Risk level: %s\n", obj.RiskLevel))
			if obj.ControlActivities != "" {
				sb.WriteString(fmt.Sprintf("   Control activities: %s\n", obj.ControlActivities))
			}
			if obj.HasGap() {
				sb.WriteString(fmt.Sprintf("   Documented gap: %s\n", obj.GapDetails))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Instructions\n")
	sb.WriteString("Respond with a single JSON object in the following format:\n\n")
	sb.WriteString("```json\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"department_risks\": {\n")
	sb.WriteString("    \"<department name exactly as listed>\": {\n")
	sb.WriteString("      \"overall_risk_level\": \"<High|Medium|Low>\",\n")
	sb.WriteString("      \"summary\": \"<two sentence summary of the department's risk posture>\",\n")
	sb.WriteString("      \"risk_types\": {\n")
	for i, t := range risk.Types {
		sep := ","
		if i == len(risk.Types)-1 {
			sep = ""
		}
		sb.WriteString(fmt.Sprintf("        \"%s\": [\"<specific risk>\"]%s\n", t, sep))
	}
	sb.WriteString("      },\n")
	sb.WriteString("      \"key_risks\": [\"<most important risks>\"],\n")
	sb.WriteString("      \"risk_scores\": {\"financial\": <0-5>, \"operational\": <0-5>, \"compliance\": <0-5>, \"strategic\": <0-5>, \"technological\": <0-5>}\n")
	sb.WriteString("    }\n")
	sb.WriteString("  },\n")
	sb.WriteString("  \"gaps\": [\n")
	sb.WriteString("    {\"department\": \"<department>\", \"gap_title\": \"<short title>\", \"control_objective\": \"<affected objective>\", \"risk_impact\": \"<impact>\", \"proposed_solution\": \"<remediation>\"}\n")
	sb.WriteString("  ],\n")
	sb.WriteString("  \"recommendations\": [\n")
	sb.WriteString("    {\"department\": \"<department or empty>\", \"title\": \"<title>\", \"description\": \"<what to do>\", \"priority\": \"<High|Medium|Low>\", \"impact\": \"<expected benefit>\"}\n")
	sb.WriteString("  ],\n")
	sb.WriteString("  \"risk_distribution\": {\"High\": <count>, \"Medium\": <count>, \"Low\": <count>}\n")
	sb.WriteString("}\n")
	sb.WriteString("```\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("- Use department names exactly as listed above\n")
	sb.WriteString("- Leave a risk type list empty when no risk of that type applies\n")
	sb.WriteString("- Order recommendations by priority, most urgent first\n")
	sb.WriteString("- Provide specific remediation steps, not generic advice\n")
	sb.WriteString("- Ensure all JSON is valid and properly formatted\n")

	return sb.String()
}

func distinctDepartments(objectives []models.ControlObjective) []string {
	seen := make(map[string]bool)
	var out []string
	for _, obj := range objectives {
		if !seen[obj.Department] {
			seen[obj.Department] = true
			out = append(out, obj.Department)
		}
	}
	return out
}
