// Package ui implements the terminal browser for a stored analysis: one tab
// per department plus the overall recommendations.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/report"
)

// RecommendationsTab labels the last tab.
const RecommendationsTab = "Recommendations"

// RenderFunc turns Markdown into terminal output wrapped at width.
type RenderFunc func(markdown string, width int) (string, error)

// Browser is the bubbletea model of the department browser.
type Browser struct {
	view     *report.View
	render   RenderFunc
	tabs     []string
	viewport viewport.Model
	active   int
	width    int
	height   int
	ready    bool
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithRenderer replaces the glamour Markdown renderer.
func WithRenderer(fn RenderFunc) BrowserOption {
	return func(b *Browser) {
		b.render = fn
	}
}

// NewBrowser assembles result and prepares a browser over it.
func NewBrowser(result *models.AnalysisResult, opts ...BrowserOption) *Browser {
	b := &Browser{
		view:   report.Assemble(result),
		render: RenderMarkdown,
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, dept := range b.view.Departments {
		b.tabs = append(b.tabs, dept.Name)
	}
	b.tabs = append(b.tabs, RecommendationsTab)
	return b
}

// Tabs returns the tab labels in display order.
func (b *Browser) Tabs() []string {
	return b.tabs
}

// Active returns the index of the selected tab.
func (b *Browser) Active() int {
	return b.active
}

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		w, h := b.paneSize()
		if !b.ready {
			b.viewport = viewport.New(w, h)
			b.ready = true
		} else {
			b.viewport.Width = w
			b.viewport.Height = h
		}
		b.refresh()
		return b, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "tab", "right", "l":
			b.selectTab(b.active + 1)
			return b, nil
		case "shift+tab", "left", "h":
			b.selectTab(b.active - 1)
			return b, nil
		}
		if k := msg.String(); len(k) == 1 && k[0] >= '1' && k[0] <= '9' {
			if n := int(k[0] - '1'); n < len(b.tabs) {
				b.selectTab(n)
			}
			return b, nil
		}
	}

	if !b.ready {
		return b, nil
	}
	var cmd tea.Cmd
	b.viewport, cmd = b.viewport.Update(msg)
	return b, cmd
}

// selectTab wraps around at both ends.
func (b *Browser) selectTab(i int) {
	n := len(b.tabs)
	b.active = ((i % n) + n) % n
	b.refresh()
}

func (b *Browser) paneSize() (int, int) {
	w := b.width - 4
	h := b.height - 7
	if w < 20 {
		w = 20
	}
	if h < 3 {
		h = 3
	}
	return w, h
}

func (b *Browser) refresh() {
	if !b.ready {
		return
	}
	b.viewport.SetContent(b.content())
	b.viewport.GotoTop()
}

// Markdown returns the Markdown source of the active tab.
func (b *Browser) Markdown() string {
	if b.view.Empty {
		return "> **Warning:** " + b.view.Warning + "\n"
	}
	if b.active < len(b.view.Departments) {
		return report.RenderDepartmentMarkdown(b.view.Departments[b.active])
	}
	return report.RenderRecommendationsMarkdown(b.view)
}

func (b *Browser) content() string {
	md := b.Markdown()
	out, err := b.render(md, b.viewport.Width)
	if err != nil {
		return md
	}
	return out
}

// View implements tea.Model.
func (b *Browser) View() string {
	if !b.ready {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(browserTitleStyle.Render(b.title()))
	sb.WriteString("\n")
	sb.WriteString(b.tabBar())
	sb.WriteString("\n")
	sb.WriteString(browserPaneStyle.Render(b.viewport.View()))
	sb.WriteString("\n")
	sb.WriteString(browserHelpStyle.Render(fmt.Sprintf(
		"tab/→ next • shift+tab/← prev • 1-9 jump • j/k scroll • q quit  %3.f%%",
		b.viewport.ScrollPercent()*100)))
	return sb.String()
}

func (b *Browser) title() string {
	t := report.DefaultPageTitle
	if b.view.SourceFile != "" {
		t += " · " + b.view.SourceFile
	}
	return fmt.Sprintf("%s  (%d objectives, %d gaps)", t, b.view.TotalObjectives, b.view.TotalGaps)
}

func (b *Browser) tabBar() string {
	rendered := make([]string, 0, len(b.tabs))
	for i, name := range b.tabs {
		style := browserTabStyle
		if i == b.active {
			style = browserActiveTabStyle
		}
		if i < len(b.view.Departments) {
			sev := b.view.Departments[i].Severity
			name = lipgloss.NewStyle().Foreground(lipgloss.Color(sev.Color())).Render("●") + " " + name
		}
		rendered = append(rendered, style.Render(name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
