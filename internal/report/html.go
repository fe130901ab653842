package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/risk"
)

//go:embed templates/*
var templateFS embed.FS

// DefaultPageTitle heads every rendered page.
const DefaultPageTitle = "Risk Control Matrix Analyzer"

// HTMLPage is the data rendered by the report template. The web server fills
// the interactive fields; static exports leave them empty.
type HTMLPage struct {
	GeneratedAt  time.Time
	View         *View
	Title        string
	Flash        string
	Error        string
	UploadedName string
	Accept       string
	Exports      []ExportLink
	Interactive  bool
}

// ExportLink is a download offered on the page.
type ExportLink struct {
	Label string
	URL   string
}

// RenderHTML executes the report template for page.
func RenderHTML(w io.Writer, page *HTMLPage) error {
	tmpl, err := template.New("report").Funcs(templateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}

	if page.Title == "" {
		page.Title = DefaultPageTitle
	}
	if page.GeneratedAt.IsZero() {
		page.GeneratedAt = time.Now()
	}

	if err := tmpl.ExecuteTemplate(w, "report.html", page); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	return nil
}

// WriteHTML renders a standalone page for result.
func WriteHTML(w io.Writer, result *models.AnalysisResult) error {
	return RenderHTML(w, &HTMLPage{View: Assemble(result)})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"severityClass": func(s risk.Severity) string {
			return s.CSSClass()
		},
		"severityColor": func(s risk.Severity) string {
			return s.Color()
		},
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"title": cases.Title(language.English).String,
		"add": func(a, b int) int {
			return a + b
		},
	}
}
