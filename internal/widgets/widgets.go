// Package widgets provides the layout primitives the presenter composes:
// fixed text, rows, columns, scrollable portals, the summary table and a
// two-pane view. Layout is a pure function from (widget, size) to a frame
// of styled lines; no widget touches the terminal.
package widgets

import (
	"strings"

	"vantage/internal/termtext"
)

// Widget renders itself into a frame of exactly height lines, each exactly
// width cells, clipping or padding as needed.
type Widget interface {
	Render(width, height int) termtext.Frame
}

// Fit clips and pads a frame to an exact rectangle.
func Fit(f termtext.Frame, width, height int) termtext.Frame {
	if width < 0 {
		width = 0
	}
	out := make(termtext.Frame, 0, height)
	for i := 0; i < height; i++ {
		var line termtext.Text
		if i < len(f) {
			line = f[i]
		}
		out = append(out, line.Slice(0, width).PadRight(width))
	}
	return out
}

// Text renders styled text with clipping.
type Text struct {
	Content termtext.Text
}

func (t Text) Render(width, height int) termtext.Frame {
	return Fit(t.Content.Lines(), width, height)
}

// Child is one slot in a Row or Column: either a fixed number of cells or
// a weighted share of whatever remains.
type Child struct {
	W      Widget
	Size   int
	Weight int
}

// Fixed wraps a widget at a fixed size along the composition axis.
func Fixed(w Widget, size int) Child {
	return Child{W: w, Size: size}
}

// Flex wraps a widget taking a weighted share of the remaining space.
func Flex(w Widget, weight int) Child {
	return Child{W: w, Weight: weight}
}

// split distributes total cells over the children: fixed sizes first, the
// remainder proportionally by weight with the leftover cells going to the
// last flexible child.
func split(children []Child, total int) []int {
	sizes := make([]int, len(children))
	remaining := total
	weightSum := 0
	for i, c := range children {
		if c.Size > 0 {
			sizes[i] = min(c.Size, max(remaining, 0))
			remaining -= sizes[i]
		} else {
			weightSum += max(c.Weight, 1)
		}
	}
	if remaining < 0 {
		remaining = 0
	}
	lastFlex := -1
	used := 0
	for i, c := range children {
		if c.Size > 0 {
			continue
		}
		w := max(c.Weight, 1)
		sizes[i] = remaining * w / weightSum
		used += sizes[i]
		lastFlex = i
	}
	if lastFlex >= 0 {
		sizes[lastFlex] += remaining - used
	}
	return sizes
}

// Row composes children left to right.
type Row struct {
	Children []Child
}

func (r Row) Render(width, height int) termtext.Frame {
	widths := split(r.Children, width)
	frames := make([]termtext.Frame, len(r.Children))
	for i, c := range r.Children {
		frames[i] = c.W.Render(widths[i], height)
	}
	out := make(termtext.Frame, height)
	for y := 0; y < height; y++ {
		parts := make([]termtext.Text, len(frames))
		for i, f := range frames {
			parts[i] = f[y]
		}
		out[y] = termtext.Concat(parts...)
	}
	return out
}

// Column composes children top to bottom.
type Column struct {
	Children []Child
}

func (c Column) Render(width, height int) termtext.Frame {
	heights := split(c.Children, height)
	out := make(termtext.Frame, 0, height)
	for i, child := range c.Children {
		out = append(out, child.W.Render(width, heights[i])...)
	}
	return Fit(out, width, height)
}

// Portal is a scrollable viewport over a larger content frame. Offsets are
// always clamped so the view never scrolls past the content bounds.
type Portal struct {
	Content termtext.Frame
	X, Y    int
}

// contentWidth is the widest content line.
func (p *Portal) contentWidth() int {
	w := 0
	for _, line := range p.Content {
		w = max(w, line.Width())
	}
	return w
}

// Clamp constrains the offsets for a view of the given size.
func (p *Portal) Clamp(viewW, viewH int) {
	p.X = max(0, min(p.X, p.contentWidth()-viewW))
	p.Y = max(0, min(p.Y, len(p.Content)-viewH))
}

// ScrollBy moves the viewport, refusing to leave the content.
func (p *Portal) ScrollBy(dx, dy, viewW, viewH int) {
	p.X += dx
	p.Y += dy
	p.Clamp(viewW, viewH)
}

// ScrollPage moves by whole view heights.
func (p *Portal) ScrollPage(pages, viewW, viewH int) {
	p.ScrollBy(0, pages*viewH, viewW, viewH)
}

// ScrollHome jumps to the top.
func (p *Portal) ScrollHome() {
	p.X, p.Y = 0, 0
}

// ScrollEnd jumps to the bottom.
func (p *Portal) ScrollEnd(viewW, viewH int) {
	p.Y = len(p.Content)
	p.Clamp(viewW, viewH)
}

func (p *Portal) Render(width, height int) termtext.Frame {
	p.Clamp(width, height)
	out := make(termtext.Frame, 0, height)
	for y := p.Y; y < p.Y+height; y++ {
		var line termtext.Text
		if y >= 0 && y < len(p.Content) {
			line = p.Content[y]
		}
		out = append(out, line.Slice(p.X, p.X+width).PadRight(width))
	}
	return out
}

// Table is the summary grid: one line per row, cells padded to fixed
// column widths and separated by a gutter.
type Table struct {
	Cells     [][]termtext.Text
	ColWidths []int
	Gutter    int
}

// Frame lays out the whole table at its natural size.
func (t Table) Frame() termtext.Frame {
	gutter := termtext.Plain(strings.Repeat(" ", t.Gutter))
	out := make(termtext.Frame, 0, len(t.Cells))
	for _, row := range t.Cells {
		parts := make([]termtext.Text, 0, len(row)*2)
		for x, cell := range row {
			if x > 0 {
				parts = append(parts, gutter)
			}
			width := 0
			if x < len(t.ColWidths) {
				width = t.ColWidths[x]
			}
			parts = append(parts, cell.Slice(0, width).PadRight(width))
		}
		out = append(out, termtext.Concat(parts...))
	}
	return out
}

func (t Table) Render(width, height int) termtext.Frame {
	return Fit(t.Frame(), width, height)
}

// CellAt maps table-local coordinates to a (row, column) pair for mouse
// hit-testing. ok is false between columns and outside the grid.
func (t Table) CellAt(x, y int) (row, col int, ok bool) {
	if y < 0 || y >= len(t.Cells) {
		return 0, 0, false
	}
	start := 0
	for c, w := range t.ColWidths {
		if x >= start && x < start+w {
			if c >= len(t.Cells[y]) {
				return 0, 0, false
			}
			return y, c, true
		}
		start += w + t.Gutter
	}
	return 0, 0, false
}

// View shows two panes either side by side (portrait) or stacked
// (landscape), the first pane taking Ratio tenths of the axis.
type View struct {
	First, Second Widget
	Portrait      bool
	Ratio         int
}

func (v View) Render(width, height int) termtext.Frame {
	ratio := v.Ratio
	if ratio <= 0 || ratio >= 10 {
		ratio = 5
	}
	if v.Portrait {
		first := width * ratio / 10
		return Row{Children: []Child{
			Fixed(v.First, first),
			Flex(v.Second, 1),
		}}.Render(width, height)
	}
	first := height * ratio / 10
	return Column{Children: []Child{
		Fixed(v.First, first),
		Flex(v.Second, 1),
	}}.Render(width, height)
}
