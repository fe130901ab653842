package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AnalysisResult is the normalized record produced by extraction and
// augmented by the risk analysis.
type AnalysisResult struct {
	CreatedAt         time.Time          `json:"created_at"`
	RiskDistribution  map[string]int     `json:"risk_distribution,omitempty"`
	ID                string             `json:"id,omitempty"`
	SourceFile        string             `json:"source_file,omitempty"`
	Model             string             `json:"model,omitempty"`
	ControlObjectives []ControlObjective `json:"control_objectives"`
	Departments       []string           `json:"departments,omitempty"`
	DepartmentRisks   DepartmentRisks    `json:"department_risks,omitempty"`
	Gaps              []Gap              `json:"gaps,omitempty"`
	Recommendations   []Recommendation   `json:"recommendations,omitempty"`
}

// DepartmentNames returns the departments a report is partitioned by: the
// keys of DepartmentRisks when present, otherwise Departments.
func (r *AnalysisResult) DepartmentNames() []string {
	if len(r.DepartmentRisks) > 0 {
		return r.DepartmentRisks.Names()
	}
	return r.Departments
}

// ObjectivesFor returns the control objectives whose department equals dept.
func (r *AnalysisResult) ObjectivesFor(dept string) []ControlObjective {
	var out []ControlObjective
	for _, obj := range r.ControlObjectives {
		if obj.Department == dept {
			out = append(out, obj)
		}
	}
	return out
}

// GapsFor returns the gaps whose department equals dept.
func (r *AnalysisResult) GapsFor(dept string) []Gap {
	var out []Gap
	for _, gap := range r.Gaps {
		if gap.Department == dept {
			out = append(out, gap)
		}
	}
	return out
}

// OrphanedGaps returns gaps whose department is not one of DepartmentNames.
func (r *AnalysisResult) OrphanedGaps() []Gap {
	known := make(map[string]bool)
	for _, name := range r.DepartmentNames() {
		known[name] = true
	}
	var out []Gap
	for _, gap := range r.Gaps {
		if !known[gap.Department] {
			out = append(out, gap)
		}
	}
	return out
}

// Clone returns a deep copy so later stages never mutate an earlier record.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		panic(fmt.Sprintf("models: cloning analysis result: %v", err))
	}
	var out AnalysisResult
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("models: cloning analysis result: %v", err))
	}
	return &out
}

// DepartmentEntry pairs a department name with its profile.
type DepartmentEntry struct {
	Name    string
	Profile DepartmentRiskProfile
}

// DepartmentRisks is an ordered department name to profile mapping. It is
// encoded as a JSON object and keeps the object's key order when decoded.
type DepartmentRisks []DepartmentEntry

// Names returns department names in order.
func (d DepartmentRisks) Names() []string {
	names := make([]string, 0, len(d))
	for _, e := range d {
		names = append(names, e.Name)
	}
	return names
}

// Get returns the profile for name.
func (d DepartmentRisks) Get(name string) (*DepartmentRiskProfile, bool) {
	for i := range d {
		if d[i].Name == name {
			return &d[i].Profile, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (d DepartmentRisks) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Profile)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Duplicate keys keep the first
// position and the last value.
func (d *DepartmentRisks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("department_risks: expected object, got %v", tok)
	}

	out := DepartmentRisks{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("department_risks: expected string key, got %v", tok)
		}

		var profile DepartmentRiskProfile
		if err := dec.Decode(&profile); err != nil {
			return fmt.Errorf("department_risks[%q]: %w", name, err)
		}

		if i, dup := index[name]; dup {
			out[i].Profile = profile
			continue
		}
		index[name] = len(out)
		out = append(out, DepartmentEntry{Name: name, Profile: profile})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = out
	return nil
}
