package risk

import (
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// Type is a risk-type bucket label.
type Type string

// Risk types in display order.
const (
	Operational      Type = "Operational"
	Financial        Type = "Financial"
	Fraud            Type = "Fraud"
	FinancialFraud   Type = "Financial Fraud"
	OperationalFraud Type = "Operational Fraud"
)

// Types lists every risk type in display order.
var Types = []Type{Operational, Financial, Fraud, FinancialFraud, OperationalFraud}

// KeywordRules drive the fallback classification. Each rule is tested
// independently, so one objective may land in several buckets.
var KeywordRules = RuleTable[Type]{
	{Outcome: Operational, Keywords: []string{"process", "workflow", "efficiency", "performance", "delivery", "resource", "procedure"}},
	{Outcome: Financial, Keywords: []string{"financial", "budget", "cost", "expense", "revenue", "payment", "accounting"}},
	{Outcome: Fraud, Keywords: []string{"fraud", "misappropriation", "theft", "falsification", "bribery", "corruption", "unauthorized"}},
	{Outcome: FinancialFraud, Keywords: []string{"financial fraud", "embezzlement", "accounting fraud", "false reporting", "misstatement"}},
	{Outcome: OperationalFraud, Keywords: []string{"operational fraud", "process manipulation", "override", "unauthorized"}},
}

// Mode records how a classification was produced.
type Mode string

const (
	// PassThrough buckets come verbatim from the analysis.
	PassThrough Mode = "pass-through"
	// Keyword buckets were derived from the objectives by keyword match.
	Keyword Mode = "keyword"
)

// Finding is one bucket entry. Keyword findings carry the objective fields;
// pass-through findings carry only Text.
type Finding struct {
	Objective string `json:"objective,omitempty"`
	Risk      string `json:"risk,omitempty"`
	RiskLevel string `json:"risk_level,omitempty"`
	Keyword   string `json:"keyword,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Display returns the text shown for the finding.
func (f Finding) Display() string {
	if f.Text != "" {
		return f.Text
	}
	if f.Risk != "" {
		return f.Risk
	}
	return f.Objective
}

// Bucket holds the findings for one risk type.
type Bucket struct {
	Type     Type      `json:"type"`
	Severity Severity  `json:"severity"`
	Items    []Finding `json:"items"`
}

// Count returns the number of findings.
func (b Bucket) Count() int {
	return len(b.Items)
}

// Classification is the bucketed view of one department.
type Classification struct {
	Mode    Mode     `json:"mode"`
	Buckets []Bucket `json:"buckets"`
}

// Bucket returns the bucket for t.
func (c Classification) Bucket(t Type) Bucket {
	for _, b := range c.Buckets {
		if b.Type == t {
			return b
		}
	}
	return Bucket{Type: t, Severity: SeverityForCount(0)}
}

// Classify buckets a department's objectives by risk type. When the profile
// supplies per-type findings they are used verbatim and the objectives are
// ignored; otherwise every objective is matched against KeywordRules on its
// objective and what-can-go-wrong text.
func Classify(objectives []models.ControlObjective, profile *models.DepartmentRiskProfile) Classification {
	if profile != nil && profile.RiskTypes != nil {
		return passThrough(profile.RiskTypes)
	}

	c := Classification{Mode: Keyword, Buckets: make([]Bucket, 0, len(Types))}
	for _, t := range Types {
		rule, _ := ruleFor(t)
		bucket := Bucket{Type: t}
		for _, obj := range objectives {
			text := strings.ToLower(obj.Objective) + " " + strings.ToLower(obj.WhatCanGoWrong)
			kw, ok := rule.MatchedKeyword(text)
			if !ok {
				continue
			}
			level := obj.RiskLevel
			if strings.TrimSpace(level) == "" {
				level = string(models.RiskLevelMedium)
			}
			bucket.Items = append(bucket.Items, Finding{
				Objective: obj.Objective,
				Risk:      obj.WhatCanGoWrong,
				RiskLevel: level,
				Keyword:   kw,
			})
		}
		bucket.Severity = SeverityForCount(bucket.Count())
		c.Buckets = append(c.Buckets, bucket)
	}
	return c
}

func passThrough(findings map[string]models.FindingList) Classification {
	c := Classification{Mode: PassThrough, Buckets: make([]Bucket, 0, len(Types))}
	for _, t := range Types {
		bucket := Bucket{Type: t}
		for _, text := range findings[string(t)] {
			bucket.Items = append(bucket.Items, Finding{Text: text})
		}
		bucket.Severity = SeverityForCount(bucket.Count())
		c.Buckets = append(c.Buckets, bucket)
	}
	return c
}

func ruleFor(t Type) (Rule[Type], bool) {
	for _, rule := range KeywordRules {
		if rule.Outcome == t {
			return rule, true
		}
	}
	return Rule[Type]{Outcome: t}, false
}
