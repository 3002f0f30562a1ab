package termtext

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// span is a run of characters sharing one style.
type span struct {
	text  string
	style Style
}

// Text is an immutable sequence of styled characters. All operations
// return new values; a Text is never mutated after construction.
type Text struct {
	spans []span
}

// Plain builds an unstyled Text.
func Plain(s string) Text {
	if s == "" {
		return Text{}
	}
	return Text{spans: []span{{text: s}}}
}

// Styled builds a Text whose characters all share one style.
func Styled(s string, st Style) Text {
	if s == "" {
		return Text{}
	}
	return Text{spans: []span{{text: s, style: st}}}
}

// Concat joins texts left to right.
func Concat(ts ...Text) Text {
	var spans []span
	for _, t := range ts {
		for _, sp := range t.spans {
			if len(spans) > 0 && spans[len(spans)-1].style == sp.style {
				spans[len(spans)-1].text += sp.text
				continue
			}
			spans = append(spans, sp)
		}
	}
	return Text{spans: spans}
}

// Join concatenates texts with an unstyled separator.
func Join(sep string, ts []Text) Text {
	joined := make([]Text, 0, len(ts)*2)
	for i, t := range ts {
		if i > 0 {
			joined = append(joined, Plain(sep))
		}
		joined = append(joined, t)
	}
	return Concat(joined...)
}

// String returns the characters without styling.
func (t Text) String() string {
	var b strings.Builder
	for _, sp := range t.spans {
		b.WriteString(sp.text)
	}
	return b.String()
}

// Width returns the displayed width in monospace cells.
func (t Text) Width() int {
	w := 0
	for _, sp := range t.spans {
		w += runewidth.StringWidth(sp.text)
	}
	return w
}

// Slice returns the cells in [i, j). A double-width rune straddling either
// boundary is replaced by a space so the result is exactly j-i cells wide
// when the text covers the interval.
func (t Text) Slice(i, j int) Text {
	if j <= i {
		return Text{}
	}
	var out []Text
	col := 0
	for _, sp := range t.spans {
		for _, r := range sp.text {
			rw := runewidth.RuneWidth(r)
			if rw == 0 {
				rw = 1
			}
			switch {
			case col+rw <= i || col >= j:
				// outside
			case col < i || col+rw > j:
				// straddles a boundary
				overlap := min(col+rw, j) - max(col, i)
				out = append(out, Styled(strings.Repeat(" ", overlap), sp.style))
			default:
				out = append(out, Styled(string(r), sp.style))
			}
			col += rw
			if col >= j {
				break
			}
		}
		if col >= j {
			break
		}
	}
	return Concat(out...)
}

// PadRight pads with spaces to at least w cells.
func (t Text) PadRight(w int) Text {
	gap := w - t.Width()
	if gap <= 0 {
		return t
	}
	return Concat(t, Plain(strings.Repeat(" ", gap)))
}

// PadLeft pads with spaces on the left to at least w cells.
func (t Text) PadLeft(w int) Text {
	gap := w - t.Width()
	if gap <= 0 {
		return t
	}
	return Concat(Plain(strings.Repeat(" ", gap)), t)
}

// Truncate limits the text to w cells, replacing the tail with ellipsis
// when something was cut. Truncation is idempotent: truncating an already
// fitting text returns it unchanged.
func (t Text) Truncate(w int, ellipsis string) Text {
	if w <= 0 {
		return Text{}
	}
	if t.Width() <= w {
		return t
	}
	ew := runewidth.StringWidth(ellipsis)
	if ew >= w {
		return Plain(ellipsis).Slice(0, w)
	}
	return Concat(t.Slice(0, w-ew), Plain(ellipsis))
}

// Lines splits at line feeds. CRLF is collapsed to a single break.
func (t Text) Lines() []Text {
	lines := []Text{{}}
	for _, sp := range t.spans {
		parts := strings.Split(sp.text, "\n")
		for i, part := range parts {
			part = strings.TrimSuffix(part, "\r")
			if i > 0 {
				lines = append(lines, Text{})
			}
			if part != "" {
				last := len(lines) - 1
				lines[last] = Concat(lines[last], Styled(part, sp.style))
			}
		}
	}
	return lines
}

// Transform applies fn to the style of every run, e.g. to wash a cursor
// highlight over a row.
func (t Text) Transform(fn func(Style) Style) Text {
	spans := make([]span, len(t.spans))
	for i, sp := range t.spans {
		spans[i] = span{text: sp.text, style: fn(sp.style)}
	}
	return Concat(Text{spans: spans})
}

// SGR renders the text as an ANSI escape string. The rendition is reset
// between runs of different styles and left at the default afterwards, so
// styles never leak between cells.
func (t Text) SGR() string {
	var b strings.Builder
	styled := false
	for _, sp := range t.spans {
		if styled {
			b.WriteString(sgrReset)
			styled = false
		}
		if !sp.style.IsZero() {
			b.WriteString(sp.style.sgr())
			styled = true
		}
		b.WriteString(sp.text)
	}
	if styled {
		b.WriteString(sgrReset)
	}
	return b.String()
}

// Equal reports span-for-span equality.
func (t Text) Equal(o Text) bool {
	if len(t.spans) != len(o.spans) {
		return false
	}
	for i := range t.spans {
		if t.spans[i] != o.spans[i] {
			return false
		}
	}
	return true
}
