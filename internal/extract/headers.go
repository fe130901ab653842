package extract

import (
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// Canonical field keys.
const (
	fieldDepartment             = "department"
	fieldProcess                = "process"
	fieldObjective              = "objective"
	fieldWhatCanGoWrong         = "what_can_go_wrong"
	fieldRiskLevel              = "risk_level"
	fieldControlID              = "control_id"
	fieldControlActivities      = "control_activities"
	fieldControlOwner           = "control_owner"
	fieldKeyControl             = "key_control"
	fieldAutomatedManual        = "automated_manual"
	fieldPreventiveDetective    = "preventive_detective"
	fieldFrequency              = "frequency"
	fieldExistence              = "existence"
	fieldCompleteness           = "completeness"
	fieldAccuracy               = "accuracy"
	fieldValuation              = "valuation"
	fieldRightsObligations      = "rights_obligations"
	fieldPresentationDisclosure = "presentation_disclosure"
	fieldGapDetails             = "gap_details"
	fieldProposedControl        = "proposed_control"
	fieldIgnored                = "-"
)

// headerAliases maps normalized header text to a field key.
var headerAliases = map[string]string{
	"department":    fieldDepartment,
	"dept":          fieldDepartment,
	"division":      fieldDepartment,
	"business unit": fieldDepartment,
	"function":      fieldDepartment,

	"process":      fieldProcess,
	"sub process":  fieldProcess,
	"sub-process":  fieldProcess,
	"process area": fieldProcess,

	"control objective":  fieldObjective,
	"control objectives": fieldObjective,
	"objective":          fieldObjective,

	"what can go wrong":   fieldWhatCanGoWrong,
	"what could go wrong": fieldWhatCanGoWrong,
	"wcgw":                fieldWhatCanGoWrong,
	"risk":                fieldWhatCanGoWrong,
	"risks":               fieldWhatCanGoWrong,
	"risk description":    fieldWhatCanGoWrong,

	"risk level":    fieldRiskLevel,
	"risk rating":   fieldRiskLevel,
	"inherent risk": fieldRiskLevel,
	"risk severity": fieldRiskLevel,
	"severity":      fieldRiskLevel,
	"rating":        fieldRiskLevel,

	"control id":     fieldControlID,
	"control no":     fieldControlID,
	"control no.":    fieldControlID,
	"control number": fieldControlID,
	"control ref":    fieldControlID,

	"control activities":  fieldControlActivities,
	"control activity":    fieldControlActivities,
	"control description": fieldControlActivities,
	"controls":            fieldControlActivities,

	"control owner": fieldControlOwner,
	"owner":         fieldControlOwner,

	"key control": fieldKeyControl,

	"automated/manual": fieldAutomatedManual,
	"manual/automated": fieldAutomatedManual,
	"automated manual": fieldAutomatedManual,

	"preventive/detective":   fieldPreventiveDetective,
	"preventative/detective": fieldPreventiveDetective,
	"preventive detective":   fieldPreventiveDetective,

	"frequency":         fieldFrequency,
	"control frequency": fieldFrequency,

	"existence/occurrence":        fieldExistence,
	"existence":                   fieldExistence,
	"completeness":                fieldCompleteness,
	"accuracy":                    fieldAccuracy,
	"valuation/allocation":        fieldValuation,
	"valuation":                   fieldValuation,
	"rights & obligations":        fieldRightsObligations,
	"rights and obligations":      fieldRightsObligations,
	"presentation & disclosure":   fieldPresentationDisclosure,
	"presentation and disclosure": fieldPresentationDisclosure,

	"gap details":     fieldGapDetails,
	"gap description": fieldGapDetails,
	"control gap":     fieldGapDetails,
	"design gap":      fieldGapDetails,
	"gap":             fieldGapDetails,

	"proposed solution":   fieldProposedControl,
	"proposed control":    fieldProposedControl,
	"recommended control": fieldProposedControl,
	"remediation":         fieldProposedControl,

	// Derived Yes/No column written by our own exports.
	"control/design gap": fieldIgnored,
}

var fieldSetters = map[string]func(*models.ControlObjective, string){
	fieldDepartment:             func(o *models.ControlObjective, v string) { o.Department = v },
	fieldProcess:                func(o *models.ControlObjective, v string) { o.Process = v },
	fieldObjective:              func(o *models.ControlObjective, v string) { o.Objective = v },
	fieldWhatCanGoWrong:         func(o *models.ControlObjective, v string) { o.WhatCanGoWrong = v },
	fieldRiskLevel:              func(o *models.ControlObjective, v string) { o.RiskLevel = v },
	fieldControlID:              func(o *models.ControlObjective, v string) { o.ControlID = v },
	fieldControlActivities:      func(o *models.ControlObjective, v string) { o.ControlActivities = v },
	fieldControlOwner:           func(o *models.ControlObjective, v string) { o.ControlOwner = v },
	fieldKeyControl:             func(o *models.ControlObjective, v string) { o.KeyControl = v },
	fieldAutomatedManual:        func(o *models.ControlObjective, v string) { o.AutomatedManual = v },
	fieldPreventiveDetective:    func(o *models.ControlObjective, v string) { o.PreventiveDetective = v },
	fieldFrequency:              func(o *models.ControlObjective, v string) { o.Frequency = v },
	fieldExistence:              func(o *models.ControlObjective, v string) { o.Existence = v },
	fieldCompleteness:           func(o *models.ControlObjective, v string) { o.Completeness = v },
	fieldAccuracy:               func(o *models.ControlObjective, v string) { o.Accuracy = v },
	fieldValuation:              func(o *models.ControlObjective, v string) { o.Valuation = v },
	fieldRightsObligations:      func(o *models.ControlObjective, v string) { o.RightsObligations = v },
	fieldPresentationDisclosure: func(o *models.ControlObjective, v string) { o.PresentationDisclosure = v },
	fieldGapDetails:             func(o *models.ControlObjective, v string) { o.GapDetails = v },
	fieldProposedControl:        func(o *models.ControlObjective, v string) { o.ProposedControl = v },
}

// normalizeHeader lower-cases s, collapses whitespace and drops trailing
// markers such as ':' and '*'.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	s = strings.TrimRight(s, ":* ")
	return strings.ReplaceAll(s, "_", " ")
}

// lookupField returns the field key for a header.
func lookupField(header string) (string, bool) {
	key, ok := headerAliases[normalizeHeader(header)]
	return key, ok
}

// rowMapper converts table rows into objectives using a recognized header.
type rowMapper struct {
	columns    map[int]string
	department string
	process    string
}

// newRowMapper recognizes a header row. A header must name at least two known
// columns, one of them the objective or what-can-go-wrong column.
func newRowMapper(header []string) (*rowMapper, bool) {
	columns := make(map[int]string)
	seen := make(map[string]bool)
	for i, cell := range header {
		key, ok := lookupField(cell)
		if !ok || key == fieldIgnored || seen[key] {
			continue
		}
		seen[key] = true
		columns[i] = key
	}

	if len(columns) < 2 || !(seen[fieldObjective] || seen[fieldWhatCanGoWrong]) {
		return nil, false
	}
	return &rowMapper{columns: columns}, true
}

// objective maps one data row. Department and process cells left blank (as
// merged cells read) inherit the previous row's value. Rows without objective
// or risk text are skipped.
func (m *rowMapper) objective(row []string) (models.ControlObjective, bool) {
	var obj models.ControlObjective
	for i, key := range m.columns {
		if i >= len(row) {
			continue
		}
		fieldSetters[key](&obj, strings.TrimSpace(row[i]))
	}

	if obj.Department == "" {
		obj.Department = m.department
	}
	if obj.Process == "" {
		obj.Process = m.process
	}
	m.department = obj.Department
	m.process = obj.Process

	if obj.Objective == "" && obj.WhatCanGoWrong == "" {
		return obj, false
	}
	if obj.Department == "" {
		obj.Department = models.GeneralDepartment
	}
	return obj, true
}

// maxHeaderScan bounds how far down a sheet the header row is searched for.
const maxHeaderScan = 25

// fromTable finds the header row among the first rows of a table and maps the
// rows beneath it.
func fromTable(rows [][]string) []models.ControlObjective {
	for h := 0; h < len(rows) && h < maxHeaderScan; h++ {
		mapper, ok := newRowMapper(rows[h])
		if !ok {
			continue
		}
		var out []models.ControlObjective
		for _, row := range rows[h+1:] {
			if obj, ok := mapper.objective(row); ok {
				out = append(out, obj)
			}
		}
		return out
	}
	return nil
}
