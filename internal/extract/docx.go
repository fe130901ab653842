package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

const docxBody = "word/document.xml"

// DOCXExtractor reads the first table with a recognizable header, falling
// back to "Key: value" paragraphs.
type DOCXExtractor struct{}

// Name implements Extractor.
func (e *DOCXExtractor) Name() string { return "docx" }

// Extract implements Extractor.
func (e *DOCXExtractor) Extract(ctx context.Context, path string) ([]models.ControlObjective, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening docx: %w", err)
	}
	defer func() { _ = zr.Close() }()

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("docx has no %s", docxBody)
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", docxBody, err)
	}
	defer func() { _ = rc.Close() }()

	doc, err := parseDocument(ctx, rc)
	if err != nil {
		return nil, err
	}

	for _, table := range doc.tables {
		if found := fromTable(table); len(found) > 0 {
			return found, nil
		}
	}
	return fromKeyValueLines(doc.paragraphs), nil
}

// wordDocument is the text content of a document body.
type wordDocument struct {
	tables     [][][]string
	paragraphs []string
}

// parseDocument walks WordprocessingML tokens. Text in nested tables is
// folded into the enclosing cell.
func parseDocument(ctx context.Context, r io.Reader) (*wordDocument, error) {
	dec := xml.NewDecoder(r)
	doc := &wordDocument{}

	var (
		depth     int
		table     [][]string
		row       []string
		cell      strings.Builder
		paragraph strings.Builder
		inText    bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				depth++
				if depth == 1 {
					table = nil
				}
			case "tr":
				if depth == 1 {
					row = nil
				}
			case "tc":
				if depth == 1 {
					cell.Reset()
				}
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte(' ')
			case "br":
				paragraph.WriteByte(' ')
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(paragraph.String())
				paragraph.Reset()
				if depth == 0 {
					doc.paragraphs = append(doc.paragraphs, text)
					continue
				}
				if text != "" {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
				}
			case "tc":
				if depth == 1 {
					row = append(row, cell.String())
				}
			case "tr":
				if depth == 1 {
					table = append(table, row)
				}
			case "tbl":
				if depth == 1 {
					doc.tables = append(doc.tables, table)
					// A table separates key-value blocks.
					doc.paragraphs = append(doc.paragraphs, "")
				}
				depth--
			}

		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}

	return doc, nil
}
