// Package risk classifies control objectives into risk-type buckets, derives
// severities from counts and dimension scores, and resolves remediation text
// for objectives and gaps.
package risk

import "strings"

// Rule maps a set of keywords to an outcome.
type Rule[T any] struct {
	Outcome  T
	Keywords []string
}

// Matches reports whether any keyword occurs in text, ignoring case.
func (r Rule[T]) Matches(text string) bool {
	_, ok := r.MatchedKeyword(text)
	return ok
}

// MatchedKeyword returns the first keyword, in rule order, that occurs in text.
func (r Rule[T]) MatchedKeyword(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range r.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// RuleTable is an ordered list of rules. Earlier rules take precedence.
type RuleTable[T any] []Rule[T]

// FirstMatch returns the outcome of the first rule matching text.
func (t RuleTable[T]) FirstMatch(text string) (T, bool) {
	for _, rule := range t {
		if rule.Matches(text) {
			return rule.Outcome, true
		}
	}
	var zero T
	return zero, false
}

// Matches reports whether rule matches text.
func Matches[T any](rule Rule[T], text string) bool {
	return rule.Matches(text)
}
