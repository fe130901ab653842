package pipeline

// Stage names a step of an analyze run.
type Stage string

// Pipeline stages in execution order.
const (
	StageExtraction  Stage = "extraction"
	StageIndexing    Stage = "indexing"
	StageAnalysis    Stage = "analysis"
	StagePersistence Stage = "persistence"
	StagePublishing  Stage = "publishing"
	StageCleanup     Stage = "cleanup"
)

// StageError reports which stage of a run failed.
type StageError struct {
	Err   error
	Stage Stage
}

func (e *StageError) Error() string {
	return string(e.Stage) + " failed: " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the failure aborts the run. Extraction and analysis
// failures do; the other stages are logged and skipped.
func (e *StageError) Fatal() bool {
	return e.Stage == StageExtraction || e.Stage == StageAnalysis
}
