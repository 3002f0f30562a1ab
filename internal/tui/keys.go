package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The help screen swallows everything except its own dismissal.
	if m.helpVisible {
		switch msg.String() {
		case "h", "q", "esc", "?":
			m.helpVisible = false
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.saver.Flush(m.agg)
		return m, tea.Quit
	case "h", "?":
		m.helpVisible = true
	case "o", "t":
		m.portrait = !m.portrait
		m.layoutResultView()
		m.persistAppState()
	case "l":
		m.logVisible = !m.logVisible
		m.layoutResultView()
		m.persistAppState()
	case "f":
		m.fullscreen = !m.fullscreen
		m.layoutResultView()
	case "tab":
		m.focusResult = !m.focusResult
	case "s":
		m.toggleSort()
	case "p":
		m.togglePause()
	case "e":
		return m, m.editCurrent()
	case "x":
		m.openCurrent()
	case "n":
		m.nextIssue(false, false)
	case "N":
		m.nextIssue(false, true)
	case "r":
		m.refreshCell()
	case "R":
		m.refreshTool()
	case "up", "k":
		if m.focusResult {
			m.resultView.LineUp(1)
		} else {
			m.moveCursor(-1, 0)
		}
	case "down", "j":
		if m.focusResult {
			m.resultView.LineDown(1)
		} else {
			m.moveCursor(1, 0)
		}
	case "left":
		if !m.focusResult {
			m.moveCursor(0, -1)
		}
	case "right":
		if !m.focusResult {
			m.moveCursor(0, 1)
		}
	case "pgup":
		if m.focusResult {
			m.resultView.ViewUp()
		} else {
			m.moveCursor(-m.gridPageSize(), 0)
		}
	case "pgdown":
		if m.focusResult {
			m.resultView.ViewDown()
		} else {
			m.moveCursor(m.gridPageSize(), 0)
		}
	case "home":
		if m.focusResult {
			m.resultView.GotoTop()
		} else {
			m.moveCursor(-len(m.rows), 0)
		}
	case "end":
		if m.focusResult {
			m.resultView.GotoBottom()
		} else {
			m.moveCursor(len(m.rows), 0)
		}
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if m.focusResult {
			m.resultView.LineUp(3)
		} else {
			m.moveCursor(-3, 0)
		}
		return m, nil
	case tea.MouseButtonWheelDown:
		if m.focusResult {
			m.resultView.LineDown(3)
		} else {
			m.moveCursor(3, 0)
		}
		return m, nil
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		if row, col, ok := m.gridCellAt(msg.X, msg.Y); ok {
			m.focusResult = false
			m.row, m.col = row, col
			m.clampCursor()
			m.afterCursorMove()
		}
	}
	return m, nil
}

// gridPageSize is how many rows a page jump moves the cursor.
func (m *Model) gridPageSize() int {
	_, h := m.gridPaneSize()
	if h < 1 {
		return 1
	}
	return h
}
