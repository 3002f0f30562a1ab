package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"vantage/internal/watch"
	"vantage/pkg/types"
)

type FileEventMsg struct {
	Event watch.Event
}

type ResultMsg struct {
	Result types.Result
}

type StartedMsg struct {
	Started types.Started
}

// TickMsg drives periodic redraws: the running spinner, the progress
// wash and the log pane.
type TickMsg struct{}

type EditorFinishedMsg struct {
	Err error
}

// ChannelClosedMsg arrives when a source channel is closed on shutdown.
type ChannelClosedMsg struct{}

func waitForEvent(events <-chan watch.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return ChannelClosedMsg{}
		}
		return FileEventMsg{Event: ev}
	}
}

func waitForStart(starts <-chan types.Started) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-starts
		if !ok {
			return ChannelClosedMsg{}
		}
		return StartedMsg{Started: s}
	}
}

func waitForResult(completions <-chan types.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-completions
		if !ok {
			return ChannelClosedMsg{}
		}
		return ResultMsg{Result: res}
	}
}
