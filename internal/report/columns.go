package report

import (
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/risk"
)

// ObjectiveColumns are the headers of the Control Objectives sheet and the CSV
// export, in order.
var ObjectiveColumns = []string{
	"Department",
	"Process",
	"Control Objective",
	"What Can Go Wrong",
	"Risk Level",
	"Control ID",
	"Control Activities",
	"Control Owner",
	"Key Control",
	"Automated/Manual",
	"Preventive/Detective",
	"Frequency",
	"Existence/Occurrence",
	"Completeness",
	"Accuracy",
	"Valuation/Allocation",
	"Rights & Obligations",
	"Presentation & Disclosure",
	"Control/Design Gap",
	"Gap Details",
	"Proposed Solution",
}

// Column positions (1-based) used for styling and validation.
const (
	colRiskLevel           = 5
	colKeyControl          = 9
	colAutomatedManual     = 10
	colPreventiveDetective = 11
	colFrequency           = 12
	colFirstAssertion      = 13
	colLastAssertion       = 18
	colDesignGap           = 19
)

// Drop-down lists applied to the Control Objectives sheet.
var (
	yesNo               = []string{"Yes", "No"}
	automatedManual     = []string{"Automated", "Manual", "IT-Dependent Manual"}
	preventiveDetective = []string{"Preventive", "Detective"}
	frequencies         = []string{"Daily", "Weekly", "Monthly", "Quarterly", "Annually", "Ad Hoc"}
)

// objectiveRow renders one objective as the 21 export cells.
func objectiveRow(obj models.ControlObjective) []string {
	gap := "No"
	if obj.HasGap() {
		gap = "Yes"
	}
	return []string{
		obj.Department,
		obj.Process,
		obj.Objective,
		obj.WhatCanGoWrong,
		obj.RiskLevel,
		obj.ControlID,
		obj.ControlActivitiesOrDefault(),
		obj.ControlOwner,
		obj.KeyControl,
		obj.AutomatedManual,
		obj.PreventiveDetective,
		obj.Frequency,
		obj.Existence,
		obj.Completeness,
		obj.Accuracy,
		obj.Valuation,
		obj.RightsObligations,
		obj.PresentationDisclosure,
		gap,
		obj.GapDetails,
		risk.ResolveObjective(obj),
	}
}
