package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// PDFExtractor reads "Key: value" blocks from the text of a PDF.
type PDFExtractor struct{}

// Name implements Extractor.
func (e *PDFExtractor) Name() string { return "pdf" }

// Extract implements Extractor.
func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]models.ControlObjective, error) {
	file, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		for _, row := range rows {
			lines = append(lines, joinTexts(row.Content))
		}
		// Page breaks end a record.
		lines = append(lines, "")
	}

	return fromKeyValueLines(lines), nil
}

// joinTexts joins the glyph runs of one row, inserting a space where the
// horizontal gap between runs is wider than a fraction of the font size.
func joinTexts(texts []pdf.Text) string {
	var sb strings.Builder
	for i, t := range texts {
		if i > 0 {
			prev := texts[i-1]
			gap := t.X - (prev.X + prev.W)
			if gap > prev.FontSize*0.15 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
	}
	return strings.TrimSpace(sb.String())
}
