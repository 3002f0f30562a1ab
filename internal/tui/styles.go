package tui

import (
	"github.com/charmbracelet/lipgloss"

	"vantage/internal/termtext"
	"vantage/pkg/types"
)

// Styles defines the chrome around the grid.
var (
	StatusBar = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#dddddd")).
			Background(lipgloss.Color("#3a3a3a"))

	StatusBarPaused = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#d7af00")).
			Bold(true)

	HelpTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B61FF")).
			MarginBottom(1)

	HelpKey = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#73F59F")).
		Bold(true)

	Banner = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#d75f5f")).
		Bold(true)
)

// statusStyles colors a tool name in the grid by its report status.
var statusStyles = map[types.Status]termtext.Style{
	types.Pending:       {Faint: true},
	types.Running:       {Fg: termtext.RGB(215, 175, 0), Bold: true},
	types.Ok:            {Fg: termtext.RGB(95, 215, 95)},
	types.Problem:       {Fg: termtext.RGB(215, 95, 95), Bold: true},
	types.NotApplicable: {Fg: termtext.RGB(95, 135, 175), Faint: true},
	types.TimedOut:      {Fg: termtext.RGB(215, 95, 215)},
	types.Error:         {Fg: termtext.RGB(255, 255, 255), Bg: termtext.RGB(175, 0, 0), Bold: true},
	types.Paused:        {Fg: termtext.RGB(95, 175, 175), Faint: true},
}

// StatusStyle returns the grid style for a status.
func StatusStyle(st types.Status) termtext.Style {
	return statusStyles[st]
}

// cursorize inverts a style to mark the cell under the cursor.
func cursorize(st termtext.Style) termtext.Style {
	st.Reverse = true
	st.Faint = false
	return st
}

// statusLegend is the help-screen explanation of each status color.
var statusLegend = []struct {
	Status types.Status
	Desc   string
}{
	{types.Pending, "queued, not yet run"},
	{types.Running, "tool is running now"},
	{types.Ok, "tool finished clean"},
	{types.Problem, "tool reported findings"},
	{types.NotApplicable, "tool declined this file"},
	{types.TimedOut, "killed after the deadline"},
	{types.Error, "tool or worker failed"},
	{types.Paused, "dispatch paused"},
}
