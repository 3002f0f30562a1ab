package termtext

import (
	"fmt"
	"strings"
)

// Frame is a screenful of styled lines, top to bottom.
type Frame []Text

// String renders every line with SGR styling, joined by line feeds.
// Rendering is deterministic: equal frames produce equal strings.
func (f Frame) String() string {
	lines := make([]string, len(f))
	for i, line := range f {
		lines[i] = line.SGR()
	}
	return strings.Join(lines, "\n")
}

// Equal reports line-for-line equality.
func (f Frame) Equal(o Frame) bool {
	if len(f) != len(o) {
		return false
	}
	for i := range f {
		if !f[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Diff emits the escape sequences transforming prev into next: for each
// changed line a cursor move, an erase and the restyled line. An empty
// string means the frames are identical.
func Diff(prev, next Frame) string {
	var b strings.Builder
	for i, line := range next {
		if i < len(prev) && prev[i].Equal(line) {
			continue
		}
		fmt.Fprintf(&b, "\x1b[%d;1H\x1b[2K%s", i+1, line.SGR())
	}
	for i := len(next); i < len(prev); i++ {
		fmt.Fprintf(&b, "\x1b[%d;1H\x1b[2K", i+1)
	}
	return b.String()
}
