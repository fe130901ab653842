package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// Run opens the browser on the alternate screen and blocks until the user
// quits.
func Run(result *models.AnalysisResult, opts ...BrowserOption) error {
	p := tea.NewProgram(NewBrowser(result, opts...), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}
