package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// WriteCSV writes one row per control objective with the ObjectiveColumns
// header. An empty result produces a header-only file.
func WriteCSV(w io.Writer, result *models.AnalysisResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ObjectiveColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	if result != nil {
		for i, obj := range result.ControlObjectives {
			if err := cw.Write(objectiveRow(obj)); err != nil {
				return fmt.Errorf("writing csv row %d: %w", i+1, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
