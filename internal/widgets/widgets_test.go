package widgets_test

import (
	"testing"

	"vantage/internal/termtext"
	"vantage/internal/widgets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainFrame(f termtext.Frame) []string {
	out := make([]string, len(f))
	for i, line := range f {
		out[i] = line.String()
	}
	return out
}

func TestTextClipsAndPads(t *testing.T) {
	w := widgets.Text{Content: termtext.Plain("abcdef\nxy")}
	frame := w.Render(4, 3)
	assert.Equal(t, []string{"abcd", "xy  ", "    "}, plainFrame(frame))
}

func TestRowFixedAndFlex(t *testing.T) {
	row := widgets.Row{Children: []widgets.Child{
		widgets.Fixed(widgets.Text{Content: termtext.Plain("ab")}, 3),
		widgets.Flex(widgets.Text{Content: termtext.Plain("rest")}, 1),
	}}
	frame := row.Render(10, 1)
	assert.Equal(t, []string{"ab rest   "}, plainFrame(frame))
}

func TestColumnWeights(t *testing.T) {
	col := widgets.Column{Children: []widgets.Child{
		widgets.Flex(widgets.Text{Content: termtext.Plain("a")}, 1),
		widgets.Flex(widgets.Text{Content: termtext.Plain("b")}, 1),
	}}
	frame := col.Render(1, 4)
	assert.Equal(t, []string{"a", " ", "b", " "}, plainFrame(frame))
}

func TestPortalScrollClamped(t *testing.T) {
	content := termtext.Frame{
		termtext.Plain("line one is long"),
		termtext.Plain("line two"),
		termtext.Plain("line three"),
		termtext.Plain("line four"),
	}
	portal := &widgets.Portal{Content: content}

	t.Run("refuses to scroll past bounds", func(t *testing.T) {
		portal.ScrollBy(0, -5, 8, 2)
		assert.Equal(t, 0, portal.Y)
		portal.ScrollBy(0, 100, 8, 2)
		assert.Equal(t, 2, portal.Y)
	})

	t.Run("renders the visible window", func(t *testing.T) {
		portal.ScrollHome()
		portal.ScrollBy(0, 1, 8, 2)
		frame := portal.Render(8, 2)
		assert.Equal(t, []string{"line two", "line thr"}, plainFrame(frame))
	})

	t.Run("page and end", func(t *testing.T) {
		portal.ScrollHome()
		portal.ScrollPage(1, 8, 2)
		assert.Equal(t, 2, portal.Y)
		portal.ScrollEnd(8, 2)
		assert.Equal(t, 2, portal.Y)
	})
}

func TestTableLayoutAndHitTesting(t *testing.T) {
	table := widgets.Table{
		Cells: [][]termtext.Text{
			{termtext.Plain("a"), termtext.Plain("bb")},
			{termtext.Plain("c"), termtext.Plain("dd")},
		},
		ColWidths: []int{1, 2},
		Gutter:    1,
	}

	frame := table.Frame()
	require.Len(t, frame, 2)
	assert.Equal(t, "a bb", frame[0].String())

	t.Run("hit inside cells", func(t *testing.T) {
		row, col, ok := table.CellAt(0, 1)
		require.True(t, ok)
		assert.Equal(t, 1, row)
		assert.Equal(t, 0, col)

		row, col, ok = table.CellAt(3, 0)
		require.True(t, ok)
		assert.Equal(t, 0, row)
		assert.Equal(t, 1, col)
	})

	t.Run("misses gutters and outside", func(t *testing.T) {
		_, _, ok := table.CellAt(1, 0)
		assert.False(t, ok)
		_, _, ok = table.CellAt(0, 5)
		assert.False(t, ok)
	})
}

func TestViewOrientation(t *testing.T) {
	first := widgets.Text{Content: termtext.Plain("1")}
	second := widgets.Text{Content: termtext.Plain("2")}

	portrait := widgets.View{First: first, Second: second, Portrait: true, Ratio: 5}
	frame := portrait.Render(4, 1)
	assert.Equal(t, []string{"1 2 "}, plainFrame(frame))

	landscape := widgets.View{First: first, Second: second, Ratio: 5}
	frame = landscape.Render(1, 4)
	assert.Equal(t, []string{"1", " ", "2", " "}, plainFrame(frame))
}

func TestRenderDeterminism(t *testing.T) {
	table := widgets.Table{
		Cells:     [][]termtext.Text{{termtext.Styled("x", termtext.Style{Bold: true})}},
		ColWidths: []int{1},
	}
	a := table.Render(3, 2)
	b := table.Render(3, 2)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
}
