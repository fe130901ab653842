package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// ErrMalformedResponse is returned when the model's answer is not the
// expected JSON object.
var ErrMalformedResponse = errors.New("malformed model response")

// Response is the JSON object the model is asked to produce.
type Response struct {
	RiskDistribution map[string]int          `json:"risk_distribution"`
	DepartmentRisks  models.DepartmentRisks  `json:"department_risks"`
	Gaps             []models.Gap            `json:"gaps"`
	Recommendations  []models.Recommendation `json:"recommendations"`
}

// ParseResponse decodes the model's answer. Markdown code fences and text
// around the outermost JSON object are tolerated.
func ParseResponse(raw string) (*Response, error) {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var resp Response
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// Merge returns a copy of record augmented with the model's findings. The
// extracted rows are kept as they are.
func Merge(record *models.AnalysisResult, resp *Response, model string) *models.AnalysisResult {
	out := record.Clone()
	if out == nil {
		out = &models.AnalysisResult{}
	}

	out.Model = model
	out.DepartmentRisks = resp.DepartmentRisks
	out.Gaps = resp.Gaps
	out.Recommendations = resp.Recommendations
	out.RiskDistribution = resp.RiskDistribution
	if len(out.RiskDistribution) == 0 {
		out.RiskDistribution = RiskDistribution(out.ControlObjectives)
	}
	return out
}

// RiskDistribution counts objectives per normalized risk level.
func RiskDistribution(objectives []models.ControlObjective) map[string]int {
	dist := make(map[string]int)
	for _, obj := range objectives {
		dist[string(obj.Level())]++
	}
	return dist
}
