package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vantage/internal/termtext"
	"vantage/internal/widgets"
)

// logPaneHeight is the fixed height of the activity log pane.
const logPaneHeight = 6

// pathColMax caps the path column so deep trees cannot push the grid off
// screen.
const pathColMax = 40

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.helpVisible {
		return m.helpView()
	}

	m.refreshResultPane()

	var sections []string
	if m.width < minWidth || m.height < minHeight {
		sections = append(sections, Banner.Render(fmt.Sprintf("terminal too small (%dx%d), need at least %dx%d",
			m.width, m.height, minWidth, minHeight)))
	}
	if m.fullscreen {
		sections = append(sections, m.resultPaneView())
	} else {
		gridW, gridH := m.gridPaneSize()
		grid := m.gridView(gridW, gridH)
		result := m.resultPaneView()
		if m.portrait {
			sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, grid, result))
		} else {
			sections = append(sections, grid, result)
		}
	}
	if m.logVisible {
		sections = append(sections, m.logView())
	}
	sections = append(sections, m.statusBarView())
	return strings.Join(sections, "\n")
}

// mainAreaSize is the screen minus status bar and log pane.
func (m *Model) mainAreaSize() (int, int) {
	h := m.height - 1
	if m.logVisible {
		h -= logPaneHeight
	}
	if h < 2 {
		h = 2
	}
	return m.width, h
}

// gridPaneSize is the summary grid's rectangle.
func (m *Model) gridPaneSize() (int, int) {
	w, h := m.mainAreaSize()
	if m.fullscreen {
		return 0, 0
	}
	if m.portrait {
		return w / 2, h
	}
	return w, h / 2
}

// resultPaneSize is the report pane's rectangle, minus its header line.
func (m *Model) resultPaneSize() (int, int) {
	w, h := m.mainAreaSize()
	if m.fullscreen {
		return w, h - 1
	}
	if m.portrait {
		return w - w/2, h - 1
	}
	return w, h - h/2 - 1
}

// gridTable lays the rows out as a table: path column then one column
// per tool slot, widths shared across the grid.
func (m *Model) gridTable() widgets.Table {
	pathW := 0
	var toolW []int
	for _, row := range m.rows {
		if w := termtext.Plain(row.Path).Width(); w > pathW {
			pathW = w
		}
		for i, cell := range row.Cells {
			w := termtext.Plain(cell.Tool.Name).Width()
			if i >= len(toolW) {
				toolW = append(toolW, w)
			} else if w > toolW[i] {
				toolW[i] = w
			}
		}
	}
	if pathW > pathColMax {
		pathW = pathColMax
	}

	cells := make([][]termtext.Text, 0, len(m.rows))
	for ri, row := range m.rows {
		line := []termtext.Text{m.pathCell(ri, row)}
		for ci, cell := range row.Cells {
			st := StatusStyle(m.displayStatus(cell.Status))
			if ri == m.row && ci == m.col {
				st = cursorize(st)
			}
			line = append(line, termtext.Styled(cell.Tool.Name, st))
		}
		cells = append(cells, line)
	}
	return widgets.Table{
		Cells:     cells,
		ColWidths: append([]int{pathW}, toolW...),
		Gutter:    1,
	}
}

func (m *Model) pathCell(ri int, row *FileRow) termtext.Text {
	st := m.palette.Style(row.Path)
	if ri == m.row {
		st.Bold = true
	}
	return termtext.Styled(row.Path, st)
}

// gridView renders the grid pane, scrolled so the cursor row stays
// visible.
func (m *Model) gridView(width, height int) string {
	table := m.gridTable()
	if m.row < m.gridTop {
		m.gridTop = m.row
	}
	if m.row >= m.gridTop+height {
		m.gridTop = m.row - height + 1
	}
	if m.gridTop < 0 {
		m.gridTop = 0
	}
	portal := widgets.Portal{Content: table.Frame(), Y: m.gridTop}
	frame := portal.Render(width, height)
	m.gridTop = portal.Y
	return frame.String()
}

// gridCellAt maps screen coordinates to a grid cell. The grid pane sits
// at the origin in both orientations.
func (m *Model) gridCellAt(x, y int) (row, col int, ok bool) {
	if m.fullscreen {
		return 0, 0, false
	}
	gridW, gridH := m.gridPaneSize()
	if x < 0 || x >= gridW || y < 0 || y >= gridH {
		return 0, 0, false
	}
	tr, tc, ok := m.gridTable().CellAt(x, y+m.gridTop)
	if !ok {
		return 0, 0, false
	}
	if tc == 0 {
		return tr, 0, true // the path column focuses the first tool
	}
	return tr, tc - 1, true
}

// resultPaneView renders the header line plus the scrolling report body.
func (m *Model) resultPaneView() string {
	w, h := m.resultPaneSize()
	m.resultView.Width = w
	m.resultView.Height = h

	header := termtext.Plain("no file selected")
	if row, cell := m.currentRow(), m.currentCell(); row != nil && cell != nil {
		st := m.displayStatus(cell.Status)
		header = termtext.Concat(
			termtext.Styled(row.Path, m.palette.Style(row.Path)),
			termtext.Plain(" · "),
			termtext.Plain(cell.Tool.Name),
			termtext.Plain(" · "),
			termtext.Styled(st.String(), StatusStyle(st)),
		)
	}
	if m.focusResult {
		header = termtext.Concat(header, termtext.Plain("  [scrolling]"))
	}
	headerLine := header.Truncate(w, "…").PadRight(w)
	return headerLine.SGR() + "\n" + m.resultView.View()
}

// logView renders the tail of the activity ring.
func (m *Model) logView() string {
	lines := m.ring.Lines()
	if len(lines) > logPaneHeight {
		lines = lines[len(lines)-logPaneHeight:]
	}
	out := make([]string, 0, logPaneHeight)
	for _, line := range lines {
		text := termtext.Concat(
			termtext.Styled(line.Time.Format("15:04:05"), termtext.Style{Faint: true}),
			termtext.Plain(" "),
			termtext.Plain(line.Message),
		)
		out = append(out, text.Truncate(m.width, "…").PadRight(m.width).SGR())
	}
	for len(out) < logPaneHeight {
		out = append(out, strings.Repeat(" ", m.width))
	}
	return strings.Join(out, "\n")
}

// statusBarView shows progress, pause state and the key reminder.
func (m *Model) statusBarView() string {
	done, total := m.Progress()
	pending, active := m.sched.Counts()

	left := fmt.Sprintf(" %s  %d/%d reports", m.root, done, total)
	if active > 0 || pending > 0 {
		left += fmt.Sprintf("  (%d running, %d queued)", active, pending)
	}
	right := "h help  q quit "
	style := StatusBar
	if m.paused {
		left += "  PAUSED"
		style = StatusBarPaused
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := termtext.Plain(left + strings.Repeat(" ", gap) + right).Truncate(m.width, "").String()
	return style.Render(bar)
}

// helpView is the full-screen key and status reference.
func (m *Model) helpView() string {
	var b strings.Builder
	b.WriteString(HelpTitle.Render("vantage — keys"))
	b.WriteString("\n")
	keys := [][2]string{
		{"arrows / mouse", "move between reports"},
		{"tab", "toggle scrolling focus between grid and report"},
		{"pgup/pgdn/home/end", "page through the focused pane"},
		{"n / N", "next finding (N: same tool only)"},
		{"r / R", "re-run this report / this tool everywhere"},
		{"s", "toggle sort: by directory or by file type"},
		{"o / t", "toggle landscape/portrait layout"},
		{"f", "fullscreen report pane"},
		{"l", "toggle activity log pane"},
		{"p", "pause/resume analyzer dispatch"},
		{"e", "edit the current file ($EDITOR)"},
		{"x", "open the current file (xdg-open)"},
		{"h / ?", "this help"},
		{"q", "quit"},
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s  %s\n", HelpKey.Render(fmt.Sprintf("%-20s", k[0])), k[1])
	}
	b.WriteString("\n")
	b.WriteString(HelpTitle.Render("status colors"))
	b.WriteString("\n")
	for _, entry := range statusLegend {
		label := termtext.Styled(fmt.Sprintf("%-15s", entry.Status.String()), StatusStyle(entry.Status))
		fmt.Fprintf(&b, "  %s %s\n", label.SGR(), entry.Desc)
	}
	b.WriteString("\npress h to return")
	return b.String()
}
