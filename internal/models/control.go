// Package models contains the normalized records exchanged between the
// extraction, analysis and reporting stages of rcmatrix.
package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// ControlObjective is one row of a Risk Control Matrix.
type ControlObjective struct {
	Department        string `json:"department"`
	Objective         string `json:"objective"`
	WhatCanGoWrong    string `json:"what_can_go_wrong"`
	RiskLevel         string `json:"risk_level"`
	ControlActivities string `json:"control_activities,omitempty"`
	GapDetails        string `json:"gap_details,omitempty"`
	ProposedControl   string `json:"proposed_control,omitempty"`

	Process             string `json:"process,omitempty"`
	ControlID           string `json:"control_id,omitempty"`
	ControlOwner        string `json:"control_owner,omitempty"`
	KeyControl          string `json:"key_control,omitempty"`
	AutomatedManual     string `json:"automated_manual,omitempty"`
	PreventiveDetective string `json:"preventive_detective,omitempty"`
	Frequency           string `json:"frequency,omitempty"`

	// Financial statement assertions, usually "Y" or blank.
	Existence              string `json:"existence,omitempty"`
	Completeness           string `json:"completeness,omitempty"`
	Accuracy               string `json:"accuracy,omitempty"`
	Valuation              string `json:"valuation,omitempty"`
	RightsObligations      string `json:"rights_obligations,omitempty"`
	PresentationDisclosure string `json:"presentation_disclosure,omitempty"`
}

// Level returns the normalized risk level.
func (c ControlObjective) Level() RiskLevel {
	return ParseRiskLevel(c.RiskLevel)
}

// IsKeyRisk reports whether the row's risk level is High, H or Critical, the
// levels that qualify an objective as a derived key risk.
func (c ControlObjective) IsKeyRisk() bool {
	switch strings.ToLower(strings.TrimSpace(c.RiskLevel)) {
	case "high", "h", "critical":
		return true
	default:
		return false
	}
}

// HasGap reports whether the row documents a control or design gap.
func (c ControlObjective) HasGap() bool {
	return strings.TrimSpace(c.GapDetails) != ""
}

// ControlActivitiesOrDefault returns the documented control activities, or a
// templated description derived from the objective when none are recorded.
func (c ControlObjective) ControlActivitiesOrDefault() string {
	if strings.TrimSpace(c.ControlActivities) != "" {
		return c.ControlActivities
	}
	objective := strings.TrimSpace(c.Objective)
	if objective == "" {
		return "Review and approval procedures to be documented"
	}
	return "Review and approval procedures to ensure " + lowerFirst(objective)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// DimensionScores are the five department risk dimensions, each typically 0-5.
type DimensionScores struct {
	Financial     float64 `json:"financial"`
	Operational   float64 `json:"operational"`
	Compliance    float64 `json:"compliance"`
	Strategic     float64 `json:"strategic"`
	Technological float64 `json:"technological"`

	// missing lists dimensions absent from the decoded JSON.
	missing []string
}

// Mean returns the arithmetic mean of the five dimensions.
func (d DimensionScores) Mean() float64 {
	return (d.Financial + d.Operational + d.Compliance + d.Strategic + d.Technological) / 5
}

// Complete reports whether all five dimensions were supplied.
func (d DimensionScores) Complete() bool {
	return len(d.missing) == 0
}

// Missing returns the JSON names of dimensions that were not supplied.
func (d DimensionScores) Missing() []string {
	return d.missing
}

type dimensionScoresWire struct {
	Financial     *float64 `json:"financial,omitempty"`
	Operational   *float64 `json:"operational,omitempty"`
	Compliance    *float64 `json:"compliance,omitempty"`
	Strategic     *float64 `json:"strategic,omitempty"`
	Technological *float64 `json:"technological,omitempty"`
}

// MarshalJSON implements json.Marshaler. Dimensions that were never supplied
// are omitted so a decoded record keeps its gaps.
func (d DimensionScores) MarshalJSON() ([]byte, error) {
	var wire dimensionScoresWire
	for _, dim := range d.dimensions(&wire) {
		if !slices.Contains(d.missing, dim.name) {
			*dim.wire = &dim.value
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler. Absent or null dimensions decode
// as 0 and are reported by Missing.
func (d *DimensionScores) UnmarshalJSON(data []byte) error {
	var wire dimensionScoresWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*d = DimensionScores{}
	targets := map[string]*float64{
		"financial":     &d.Financial,
		"operational":   &d.Operational,
		"compliance":    &d.Compliance,
		"strategic":     &d.Strategic,
		"technological": &d.Technological,
	}
	for _, dim := range d.dimensions(&wire) {
		if *dim.wire == nil {
			d.missing = append(d.missing, dim.name)
			continue
		}
		*targets[dim.name] = **dim.wire
	}
	return nil
}

type dimension struct {
	name  string
	value float64
	wire  **float64
}

func (d DimensionScores) dimensions(wire *dimensionScoresWire) []dimension {
	return []dimension{
		{"financial", d.Financial, &wire.Financial},
		{"operational", d.Operational, &wire.Operational},
		{"compliance", d.Compliance, &wire.Compliance},
		{"strategic", d.Strategic, &wire.Strategic},
		{"technological", d.Technological, &wire.Technological},
	}
}

// DepartmentRiskProfile is the upstream analysis of one department.
type DepartmentRiskProfile struct {
	OverallRiskLevel string `json:"overall_risk_level,omitempty"`
	Summary          string `json:"summary,omitempty"`
	// RiskTypes is nil when the analysis supplied no per-type findings. A
	// non-nil map, even an empty one, is authoritative.
	RiskTypes map[string]FindingList `json:"risk_types"`
	KeyRisks  FindingList            `json:"key_risks,omitempty"`
	Scores    *DimensionScores       `json:"risk_scores,omitempty"`
}

// DefaultSummary is shown when a department profile carries no summary.
const DefaultSummary = "No summary available."

// SummaryOrDefault returns the summary text or DefaultSummary.
func (p DepartmentRiskProfile) SummaryOrDefault() string {
	if strings.TrimSpace(p.Summary) == "" {
		return DefaultSummary
	}
	return p.Summary
}

// UnmarshalJSON accepts both "risk_types" and "risk_analysis" for the per-type
// findings, preferring "risk_types" when both are present.
func (p *DepartmentRiskProfile) UnmarshalJSON(data []byte) error {
	var wire struct {
		OverallRiskLevel string                 `json:"overall_risk_level"`
		Summary          string                 `json:"summary"`
		RiskTypes        map[string]FindingList `json:"risk_types"`
		RiskAnalysis     map[string]FindingList `json:"risk_analysis"`
		KeyRisks         FindingList            `json:"key_risks"`
		Scores           *DimensionScores       `json:"risk_scores"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	p.OverallRiskLevel = wire.OverallRiskLevel
	p.Summary = wire.Summary
	p.KeyRisks = wire.KeyRisks
	p.Scores = wire.Scores
	p.RiskTypes = wire.RiskTypes
	if p.RiskTypes == nil {
		p.RiskTypes = wire.RiskAnalysis
	}
	return nil
}

// FindingList is a list of finding descriptions. On the wire each entry may be
// a plain string or an object; objects are reduced to their most descriptive
// text field.
type FindingList []string

var findingTextKeys = []string{"description", "risk", "what_can_go_wrong", "title", "objective", "finding"}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FindingList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// A single string is treated as a one-element list.
		var single string
		if serr := json.Unmarshal(data, &single); serr != nil {
			return err
		}
		*f = FindingList{single}
		return nil
	}

	out := make(FindingList, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err == nil {
			out = append(out, describeObject(obj, item))
			continue
		}

		out = append(out, string(bytes.TrimSpace(item)))
	}
	*f = out
	return nil
}

func describeObject(obj map[string]any, raw json.RawMessage) string {
	for _, key := range findingTextKeys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

// Gap is a deficiency identified in an existing control.
type Gap struct {
	Department       string `json:"department"`
	GapTitle         string `json:"gap_title"`
	ControlObjective string `json:"control_objective"`
	RiskImpact       string `json:"risk_impact"`
	ProposedSolution string `json:"proposed_solution,omitempty"`
}

// Recommendation is a remediation suggested by the analysis.
type Recommendation struct {
	Department  string `json:"department,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
	Impact      string `json:"impact,omitempty"`
}

// GeneralDepartment labels recommendations that name no department.
const GeneralDepartment = "General"

// DepartmentOrGeneral returns the department or GeneralDepartment.
func (r Recommendation) DepartmentOrGeneral() string {
	if strings.TrimSpace(r.Department) == "" {
		return GeneralDepartment
	}
	return r.Department
}

// PriorityOrDefault returns the title-cased priority, defaulting to Medium.
func (r Recommendation) PriorityOrDefault() string {
	if strings.TrimSpace(r.Priority) == "" {
		return string(RiskLevelMedium)
	}
	return TitleCase(r.Priority)
}
