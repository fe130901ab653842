package risk

import (
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// Severity is the three-level rating shown on reports.
type Severity string

// Severities, highest first.
const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Score thresholds applied to the mean of the five risk dimensions.
const (
	HighScoreThreshold   = 3.5
	MediumScoreThreshold = 2.0
)

// Count thresholds applied to the number of findings in a bucket.
const (
	HighCountThreshold   = 3
	MediumCountThreshold = 1
)

// Color returns the report palette color for the severity.
func (s Severity) Color() string {
	switch s {
	case SeverityHigh:
		return "#FF5252"
	case SeverityMedium:
		return "#FFC107"
	default:
		return "#4CAF50"
	}
}

// CSSClass returns the HTML class used for department and recommendation cards.
func (s Severity) CSSClass() string {
	switch s {
	case SeverityHigh:
		return "high-risk"
	case SeverityMedium:
		return "medium-risk"
	default:
		return "low-risk"
	}
}

// SeverityForCount rates a bucket by how many findings it holds.
func SeverityForCount(n int) Severity {
	switch {
	case n >= HighCountThreshold:
		return SeverityHigh
	case n >= MediumCountThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SeverityForScores rates a department by the mean of its dimension scores.
func SeverityForScores(s models.DimensionScores) Severity {
	mean := s.Mean()
	switch {
	case mean >= HighScoreThreshold:
		return SeverityHigh
	case mean >= MediumScoreThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DepartmentSeverity rates a department from its profile. A full set of five
// scores wins over the stated overall level; partial scores are ignored. A
// missing or unreadable level yields Medium.
func DepartmentSeverity(profile *models.DepartmentRiskProfile) Severity {
	if profile == nil {
		return SeverityMedium
	}
	if profile.Scores != nil && profile.Scores.Complete() {
		return SeverityForScores(*profile.Scores)
	}
	return FromRiskLevel(models.ParseRiskLevel(profile.OverallRiskLevel))
}

// PrioritySeverity maps a recommendation priority to a severity.
func PrioritySeverity(priority string) Severity {
	if strings.TrimSpace(priority) == "" {
		return SeverityMedium
	}
	return FromRiskLevel(models.ParseRiskLevel(priority))
}

// FromRiskLevel folds a risk level into a severity. Critical counts as High.
func FromRiskLevel(level models.RiskLevel) Severity {
	switch {
	case level.IsHighOrCritical():
		return SeverityHigh
	case level == models.RiskLevelLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}
