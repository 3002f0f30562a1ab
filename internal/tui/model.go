// Package tui is the presenter: a bubbletea model owning the summary
// grid, the result pane, the activity log pane and the key map. It talks
// to the engine through a narrow scheduler interface and persists its
// state in the cache aggregate.
package tui

import (
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"vantage/internal/cache"
	"vantage/internal/config"
	"vantage/internal/engine"
	"vantage/internal/log"
	"vantage/internal/termtext"
	"vantage/internal/tools"
	"vantage/internal/watch"
	"vantage/pkg/types"
)

// minWidth/minHeight is the smallest terminal the grid is usable in;
// below it a resize banner is shown above the clipped view.
const (
	minWidth  = 10
	minHeight = 20
)

// tickInterval drives the running spinner and the log pane refresh.
const tickInterval = 250 * time.Millisecond

// Scheduler is the slice of the engine the presenter needs.
type Scheduler interface {
	Enqueue(path, absPath, tool string, argv []string, timeout time.Duration,
		key types.SnapshotKey, tier, distance int) bool
	CancelPath(path string)
	Rescore(score func(path, tool string) (tier, distance int))
	SetPaused(paused bool)
	Counts() (pending, active int)
}

// Model is the bubbletea model for the whole screen.
type Model struct {
	cfg     *config.Config
	root    string
	reg     *tools.Registry
	sched   Scheduler
	store   *cache.Store
	agg     *cache.Aggregate
	saver   *cache.Saver
	ring    *log.Ring
	events  <-chan watch.Event
	results <-chan types.Result
	starts  <-chan types.Started
	palette *PathPalette

	rows     []*FileRow
	rowIndex map[string]int
	row, col int

	width, height int
	sortByType    bool
	portrait      bool
	paused        bool
	logVisible    bool
	helpVisible   bool
	fullscreen    bool
	focusResult   bool

	resultView viewport.Model
	resultPath string
	resultTool string

	gridTop int // first visible grid row, kept so the cursor stays on screen

	quitting bool
}

// Options carries the model's collaborators.
type Options struct {
	Config   *config.Config
	Root     string
	Registry *tools.Registry
	Sched    Scheduler
	Store    *cache.Store
	Agg      *cache.Aggregate
	Saver    *cache.Saver
	Ring     *log.Ring
	Events   <-chan watch.Event
	Results  <-chan types.Result
	Starts   <-chan types.Started
	LSColors string
	Initial  map[string]types.FileSnapshot
}

// New builds the model from the initial scan and the loaded aggregate:
// cached reports are surfaced immediately, everything else is enqueued.
func New(opts Options) *Model {
	m := &Model{
		cfg:      opts.Config,
		root:     opts.Root,
		reg:      opts.Registry,
		sched:    opts.Sched,
		store:    opts.Store,
		agg:      opts.Agg,
		saver:    opts.Saver,
		ring:     opts.Ring,
		events:   opts.Events,
		results:  opts.Results,
		starts:   opts.Starts,
		palette:  NewPathPalette(opts.LSColors, opts.Config.Theme.LSColors),
		rowIndex: map[string]int{},
	}

	app := opts.Agg.App
	m.sortByType = app.SortByType
	m.portrait = app.Portrait
	m.paused = app.Paused
	m.logVisible = app.LogVisible

	for path, snap := range opts.Initial {
		m.rows = append(m.rows, m.buildRow(path, snap))
	}
	sortRows(m.rows, m.sortByType)
	m.reindex()

	m.row = clamp(app.CursorRow, 0, len(m.rows)-1)
	m.col = 0
	if len(m.rows) > 0 {
		m.col = clamp(app.CursorCol, 0, len(m.rows[m.row].Cells)-1)
	}

	// Drop aggregate entries for files that no longer exist.
	for path := range m.agg.Entries {
		if _, ok := m.rowIndex[path]; !ok {
			m.agg.Remove(path)
		}
	}

	if m.paused {
		m.sched.SetPaused(true)
	}
	for _, row := range m.rows {
		m.enqueueRow(row)
	}
	return m
}

// buildRow routes the file through the registry and overlays any cached
// report whose snapshot key still matches.
func (m *Model) buildRow(path string, snap types.FileSnapshot) *FileRow {
	row := &FileRow{Path: path, Snap: snap}
	for _, desc := range m.reg.ToolsFor(m.root, path) {
		cell := Cell{Tool: desc, Status: types.Pending, Key: snap.Key(desc.Tag())}
		if st, ok := m.agg.Get(path, desc.Name); ok && st.Key == cell.Key {
			cell.Status = st.Status
			cell.BodyDigest = st.BodyDigest
		}
		row.Cells = append(row.Cells, cell)
	}
	return row
}

func (m *Model) reindex() {
	m.rowIndex = make(map[string]int, len(m.rows))
	for i, row := range m.rows {
		m.rowIndex[row.Path] = i
	}
}

// enqueueRow schedules every cell of a row that has no current report.
func (m *Model) enqueueRow(row *FileRow) {
	for i := range row.Cells {
		cell := &row.Cells[i]
		if cell.Status.Terminal() || cell.Status == types.NotApplicable {
			continue
		}
		m.enqueueCell(row, i)
	}
}

func (m *Model) enqueueCell(row *FileRow, col int) {
	cell := &row.Cells[col]
	desc := cell.Tool
	abs := m.absPath(row.Path)
	tier, dist := m.placement(row.Path, desc.Name)
	m.sched.Enqueue(row.Path, abs, desc.Name, desc.Command(abs), desc.Timeout,
		cell.Key, tier, dist)
}

func (m *Model) absPath(rel string) string {
	return m.root + "/" + rel
}

// placement scores a job against the cursor: the focused cell first, the
// cursor's tool column next, then Manhattan distance across the grid.
func (m *Model) placement(path, tool string) (int, int) {
	ri, ok := m.rowIndex[path]
	if !ok || len(m.rows) == 0 {
		return engine.TierRest, 1 << 20
	}
	ci := m.rows[ri].CellIndex(tool)
	if ri == m.row && ci == m.col {
		return engine.TierFocus, 0
	}
	dist := abs(ri-m.row) + abs(ci-m.col)
	if m.currentCell() != nil && tool == m.currentCell().Tool.Name {
		return engine.TierColumn, dist
	}
	return engine.TierRest, dist
}

// displayStatus maps a stored status to the rendered one: while dispatch
// is paused, cells still waiting show as Paused.
func (m *Model) displayStatus(st types.Status) types.Status {
	if m.paused && st == types.Pending {
		return types.Paused
	}
	return st
}

func (m *Model) currentCell() *Cell {
	if m.row >= len(m.rows) {
		return nil
	}
	row := m.rows[m.row]
	if m.col >= len(row.Cells) {
		return nil
	}
	return &row.Cells[m.col]
}

func (m *Model) currentRow() *FileRow {
	if m.row >= len(m.rows) {
		return nil
	}
	return m.rows[m.row]
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		waitForResult(m.results),
		waitForStart(m.starts),
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layoutResultView()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case FileEventMsg:
		m.applyEvent(msg.Event)
		return m, waitForEvent(m.events)
	case ResultMsg:
		m.applyResult(msg.Result)
		return m, waitForResult(m.results)
	case StartedMsg:
		m.applyStart(msg.Started)
		return m, waitForStart(m.starts)
	case TickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tick()
	case EditorFinishedMsg:
		if msg.Err != nil {
			log.Error("editor exited", msg.Err)
		}
		return m, nil
	case ChannelClosedMsg:
		return m, nil
	}
	return m, nil
}

// applyEvent folds one filesystem change into the grid.
func (m *Model) applyEvent(ev watch.Event) {
	switch ev.Kind {
	case watch.Added:
		if _, exists := m.rowIndex[ev.Path]; exists {
			return
		}
		row := m.buildRow(ev.Path, ev.Snap)
		m.rows = append(m.rows, row)
		sortRows(m.rows, m.sortByType)
		m.reindex()
		m.clampCursor()
		m.enqueueRow(row)
		log.WithFields(map[string]interface{}{"path": ev.Path}).Info("file added")
	case watch.Modified:
		ri, ok := m.rowIndex[ev.Path]
		if !ok {
			m.applyEvent(watch.Event{Kind: watch.Added, Path: ev.Path, Snap: ev.Snap})
			return
		}
		row := m.rows[ri]
		row.Snap = ev.Snap
		m.sched.CancelPath(ev.Path)
		for i := range row.Cells {
			row.Cells[i].Status = types.Pending
			row.Cells[i].Key = ev.Snap.Key(row.Cells[i].Tool.Tag())
			row.Cells[i].BodyDigest = ""
			row.Cells[i].Body = ""
		}
		m.enqueueRow(row)
		log.WithFields(map[string]interface{}{"path": ev.Path}).Info("file modified")
	case watch.Removed:
		ri, ok := m.rowIndex[ev.Path]
		if !ok {
			return
		}
		m.sched.CancelPath(ev.Path)
		m.agg.Remove(ev.Path)
		m.rows = append(m.rows[:ri], m.rows[ri+1:]...)
		m.reindex()
		m.clampCursor()
		m.saver.Mark(m.agg)
		log.WithFields(map[string]interface{}{"path": ev.Path}).Info("file removed")
	}
}

// applyStart flips a dispatched cell to Running. Never persisted: on a
// cold start an interrupted run is Pending again.
func (m *Model) applyStart(s types.Started) {
	ri, ok := m.rowIndex[s.Path]
	if !ok {
		return
	}
	row := m.rows[ri]
	ci := row.CellIndex(s.Tool)
	if ci < 0 || row.Cells[ci].Key != s.Key {
		return
	}
	if row.Cells[ci].Status == types.Pending {
		row.Cells[ci].Status = types.Running
	}
}

// applyResult folds one completed report into the grid, dropping it when
// the file changed underneath the running tool.
func (m *Model) applyResult(res types.Result) {
	ri, ok := m.rowIndex[res.Path]
	if !ok {
		return // file disappeared while the tool ran
	}
	row := m.rows[ri]
	ci := row.CellIndex(res.Tool)
	if ci < 0 {
		return
	}
	cell := &row.Cells[ci]
	if cell.Key != res.Key {
		return // stale: a newer snapshot owns this cell now
	}

	cell.Status = res.Status
	if res.Status.Terminal() {
		cell.BodyDigest = m.storeBody(row, res)
		cell.Body = ""
	} else {
		// Non-terminal bodies are synthetic; they stay in memory and
		// never reach the blob store.
		cell.BodyDigest = ""
		cell.Body = res.Body
	}

	m.agg.Set(res.Path, res.Tool, cache.EntryState{
		Key:        cell.Key,
		Status:     cell.Status,
		BodyDigest: cell.BodyDigest,
	})
	m.saver.Mark(m.agg)

	log.WithFields(map[string]interface{}{
		"path":     res.Path,
		"tool":     res.Tool,
		"status":   res.Status.String(),
		"duration": res.Duration().Round(time.Millisecond).String(),
	}).Debug("report complete")

	if m.resultPath == res.Path && m.resultTool == res.Tool {
		m.resultPath = "" // force the pane to reload
	}
}

// storeBody writes the report body to the content-addressed store and
// returns its digest, or "" when the body is empty or the write failed.
func (m *Model) storeBody(row *FileRow, res types.Result) string {
	if res.Body == "" {
		return ""
	}
	if row.Snap.Digest == "" {
		digest, err := watch.ContentDigest(m.root, row.Path)
		if err != nil {
			log.Debug("content digest for %s: %v", row.Path, err)
			return ""
		}
		row.Snap.Digest = digest
	}
	digest := cache.BlobDigest(row.Path, res.Tool, row.Snap.Digest)
	if err := m.store.WriteBlob(digest, []byte(res.Body)); err != nil {
		log.Error("storing report body", err)
		return ""
	}
	return digest
}

// loadBody reads the current cell's report body from the store, or
// returns the in-memory synthetic body when nothing was persisted.
func (m *Model) loadBody(cell *Cell) string {
	if cell == nil {
		return ""
	}
	if cell.BodyDigest == "" {
		return cell.Body
	}
	body, err := m.store.ReadBlob(cell.BodyDigest)
	if err != nil {
		log.Debug("reading report body: %v", err)
		return ""
	}
	return string(body)
}

// rescore feeds the new cursor placement to the engine.
func (m *Model) rescore() {
	m.sched.Rescore(m.placement)
}

func (m *Model) clampCursor() {
	m.row = clamp(m.row, 0, len(m.rows)-1)
	if row := m.currentRow(); row != nil {
		m.col = clamp(m.col, 0, len(row.Cells)-1)
	} else {
		m.col = 0
	}
}

// moveCursor shifts the cursor and propagates the focus change.
func (m *Model) moveCursor(dr, dc int) {
	m.row += dr
	m.col += dc
	m.clampCursor()
	m.afterCursorMove()
}

func (m *Model) afterCursorMove() {
	m.rescore()
	m.persistAppState()
	// Focused cell jumps the queue if it has no report yet.
	if row, cell := m.currentRow(), m.currentCell(); row != nil && cell != nil {
		if !cell.Status.Terminal() && cell.Status != types.NotApplicable {
			m.enqueueCell(row, m.col)
		}
	}
}

func (m *Model) persistAppState() {
	m.agg.App = cache.AppState{
		CursorRow:  m.row,
		CursorCol:  m.col,
		SortByType: m.sortByType,
		Portrait:   m.portrait,
		Paused:     m.paused,
		LogVisible: m.logVisible,
	}
	m.saver.Mark(m.agg)
}

// nextIssue advances the cursor to the next cell whose status is a
// finding, wrapping around; sameTool restricts the search to the current
// tool column.
func (m *Model) nextIssue(backward, sameTool bool) {
	if len(m.rows) == 0 {
		return
	}
	var wantTool string
	if sameTool {
		if cell := m.currentCell(); cell != nil {
			wantTool = cell.Tool.Name
		}
	}
	total := 0
	for _, row := range m.rows {
		total += len(row.Cells)
	}
	ri, ci := m.row, m.col
	for step := 0; step < total; step++ {
		if backward {
			ri, ci = m.prevCell(ri, ci)
		} else {
			ri, ci = m.nextCell(ri, ci)
		}
		cell := m.rows[ri].Cells[ci]
		if !cell.Status.Issue() {
			continue
		}
		if wantTool != "" && cell.Tool.Name != wantTool {
			continue
		}
		m.row, m.col = ri, ci
		m.afterCursorMove()
		return
	}
}

func (m *Model) nextCell(ri, ci int) (int, int) {
	ci++
	for ci >= len(m.rows[ri].Cells) {
		ci = 0
		ri = (ri + 1) % len(m.rows)
	}
	return ri, ci
}

func (m *Model) prevCell(ri, ci int) (int, int) {
	ci--
	for ci < 0 {
		ri--
		if ri < 0 {
			ri = len(m.rows) - 1
		}
		ci = len(m.rows[ri].Cells) - 1
	}
	return ri, ci
}

// refreshCell forces the current cell to run again.
func (m *Model) refreshCell() {
	row, cell := m.currentRow(), m.currentCell()
	if row == nil || cell == nil {
		return
	}
	cell.Status = types.Pending
	cell.BodyDigest = ""
	cell.Body = ""
	m.agg.Set(row.Path, cell.Tool.Name, cache.EntryState{Key: cell.Key, Status: types.Pending})
	m.enqueueCell(row, m.col)
}

// refreshTool re-runs the current tool on every file it applies to.
func (m *Model) refreshTool() {
	cur := m.currentCell()
	if cur == nil {
		return
	}
	name := cur.Tool.Name
	for _, row := range m.rows {
		ci := row.CellIndex(name)
		if ci < 0 {
			continue
		}
		row.Cells[ci].Status = types.Pending
		row.Cells[ci].BodyDigest = ""
		row.Cells[ci].Body = ""
		m.agg.Set(row.Path, name, cache.EntryState{Key: row.Cells[ci].Key, Status: types.Pending})
		m.enqueueCell(row, ci)
	}
	m.saver.Mark(m.agg)
}

func (m *Model) togglePause() {
	m.paused = !m.paused
	m.sched.SetPaused(m.paused)
	m.persistAppState()
	if m.paused {
		log.Info("dispatch paused")
	} else {
		log.Info("dispatch resumed")
	}
}

func (m *Model) toggleSort() {
	m.sortByType = !m.sortByType
	var keep string
	if row := m.currentRow(); row != nil {
		keep = row.Path
	}
	sortRows(m.rows, m.sortByType)
	m.reindex()
	if ri, ok := m.rowIndex[keep]; ok {
		m.row = ri
	}
	m.clampCursor()
	m.rescore()
	m.persistAppState()
}

// editCurrent suspends the program and opens the editor on the current
// file; bubbletea restores the terminal around the child.
func (m *Model) editCurrent() tea.Cmd {
	row := m.currentRow()
	if row == nil {
		return nil
	}
	editor := m.cfg.EditorCommand()
	if editor == "" {
		log.Warn("no editor configured and $EDITOR unset")
		return nil
	}
	parts := strings.Fields(editor)
	parts = append(parts, m.absPath(row.Path))
	c := exec.Command(parts[0], parts[1:]...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return EditorFinishedMsg{Err: err}
	})
}

// openCurrent hands the file to the desktop opener, fire and forget.
func (m *Model) openCurrent() {
	row := m.currentRow()
	if row == nil {
		return
	}
	c := exec.Command("xdg-open", m.absPath(row.Path))
	if err := c.Start(); err != nil {
		log.Error("xdg-open", err)
		return
	}
	go c.Wait()
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// layoutResultView resizes the viewport to the pane geometry; the real
// sizes are computed in View, this keeps scrolling consistent meanwhile.
func (m *Model) layoutResultView() {
	w, h := m.resultPaneSize()
	m.resultView.Width = w
	m.resultView.Height = h
	m.resultPath = "" // reload content at the new width
}

// Progress reports completed cells over total cells for the status bar.
func (m *Model) Progress() (done, total int) {
	for _, row := range m.rows {
		for _, cell := range row.Cells {
			total++
			if cell.Status.Terminal() || cell.Status == types.NotApplicable {
				done++
			}
		}
	}
	return done, total
}

// refreshResultPane loads the focused report into the viewport when the
// focus or the report changed.
func (m *Model) refreshResultPane() {
	row, cell := m.currentRow(), m.currentCell()
	if row == nil || cell == nil {
		m.resultView.SetContent("")
		m.resultPath, m.resultTool = "", ""
		return
	}
	if m.resultPath == row.Path && m.resultTool == cell.Tool.Name {
		return
	}
	body := m.loadBody(cell)
	text := termtext.Parse(body)
	m.resultView.SetContent(text.SGR())
	m.resultView.GotoTop()
	m.resultPath, m.resultTool = row.Path, cell.Tool.Name
}
