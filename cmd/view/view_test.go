package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRequiresTerminal(t *testing.T) {
	// go test never attaches stdout to a terminal.
	assert.ErrorIs(t, Run(nil), ErrNotTerminal)
}
