package extract

import (
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// fromKeyValueLines reads "Key: value" blocks, as found in prose documents.
// A record ends at a blank line or when a key repeats. A department line on
// its own sets the department for the records that follow.
func fromKeyValueLines(lines []string) []models.ControlObjective {
	var (
		out        []models.ControlObjective
		current    models.ControlObjective
		seen       = make(map[string]bool)
		lastKey    string
		department string
	)

	flush := func() {
		if current.Department == "" {
			current.Department = department
		}
		if current.Objective != "" || current.WhatCanGoWrong != "" {
			if current.Department == "" {
				current.Department = models.GeneralDepartment
			}
			out = append(out, current)
		} else if current.Department != "" {
			department = current.Department
		}
		current = models.ControlObjective{}
		seen = make(map[string]bool)
		lastKey = ""
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}

		key, value, ok := splitKeyValue(line)
		if !ok {
			// Continuation of the previous value.
			if lastKey != "" {
				appendField(&current, lastKey, line)
			}
			continue
		}

		if seen[key] {
			flush()
		}
		if key == fieldDepartment && value != "" {
			department = value
		}
		seen[key] = true
		lastKey = key
		fieldSetters[key](&current, value)
	}
	flush()

	return out
}

// splitKeyValue splits "Key: value" when Key is a known header.
func splitKeyValue(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	key, ok := lookupField(strings.TrimLeft(line[:idx], "-•* \t"))
	if !ok || key == fieldIgnored {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

// appendField extends a multi-line text field. Short fields are not continued.
func appendField(obj *models.ControlObjective, key, text string) {
	var existing string
	switch key {
	case fieldObjective:
		existing = obj.Objective
	case fieldWhatCanGoWrong:
		existing = obj.WhatCanGoWrong
	case fieldControlActivities:
		existing = obj.ControlActivities
	case fieldGapDetails:
		existing = obj.GapDetails
	case fieldProposedControl:
		existing = obj.ProposedControl
	default:
		return
	}
	fieldSetters[key](obj, strings.TrimSpace(existing+" "+text))
}
