package database

import (
	"encoding/json"
	"time"
)

// Analysis is a stored analysis run. Result holds the full analysis record as
// JSON; the counts are denormalized for listing.
type Analysis struct {
	CreatedAt           time.Time
	ID                  string
	SourceFile          string
	Model               string
	Result              json.RawMessage
	ObjectiveCount      int
	DepartmentCount     int
	GapCount            int
	RecommendationCount int
}

// AnalysisFilter narrows ListAnalyses.
type AnalysisFilter struct {
	Since      time.Time
	SourceFile string
	Limit      int
}

// IndexDocument is one embedded text stored in a similarity collection.
type IndexDocument struct {
	Metadata   map[string]string
	Collection string
	Key        string
	AnalysisID string
	Department string
	Content    string
	Embedding  []float32
	ID         int64
}
