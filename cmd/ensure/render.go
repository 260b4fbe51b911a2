package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/ensureops/ensure/internal/model"
)

var (
	changedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
)

// renderOutcome formats the terminal result of one invocation: a changed/ok
// tag followed by the adapter's message.
func renderOutcome(outcome *model.Outcome) string {
	tag := okStyle.Render("ok")
	if outcome.Changed {
		tag = changedStyle.Render("changed")
	}

	if outcome.Message == "" {
		return tag
	}
	return fmt.Sprintf("%s: %s", tag, outcome.Message)
}
