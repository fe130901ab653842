package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RiskLevel is the normalized risk level of a control objective.
type RiskLevel string

// Risk levels as they appear in RCM documents.
const (
	RiskLevelCritical RiskLevel = "Critical"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelMedium   RiskLevel = "Medium"
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelUnknown  RiskLevel = "Unknown"
)

// ValidRiskLevels returns the risk levels accepted in exported workbooks.
func ValidRiskLevels() []string {
	return []string{
		string(RiskLevelHigh),
		string(RiskLevelMedium),
		string(RiskLevelLow),
		string(RiskLevelCritical),
	}
}

// ParseRiskLevel normalizes free-form risk level text. Matching is
// case-insensitive and accepts the single-letter forms used in many matrices.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "very high", "very-high", "c":
		return RiskLevelCritical
	case "high", "h":
		return RiskLevelHigh
	case "medium", "moderate", "med", "m":
		return RiskLevelMedium
	case "low", "l":
		return RiskLevelLow
	default:
		return RiskLevelUnknown
	}
}

// IsHighOrCritical reports whether the level folds into High severity.
func (l RiskLevel) IsHighOrCritical() bool {
	return l == RiskLevelHigh || l == RiskLevelCritical
}

// TitleCase lower-cases s and upper-cases the first letter of each word.
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
}
