// Package termtext provides an immutable model of styled terminal text:
// runs of characters with a common style, measured in display cells.
// Widgets build frames of styled text and the renderer diffs frames into
// the minimum escape sequences, so every layer above is testable by plain
// string comparison.
package termtext

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a 24-bit RGB color. The zero value is the terminal default.
type Color struct {
	R, G, B uint8
	Set     bool
}

// RGB builds a concrete color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, Set: true}
}

// Style is the rendition of a run of characters.
type Style struct {
	Fg, Bg    Color
	Bold      bool
	Faint     bool
	Italic    bool
	Underline bool
	Reverse   bool
}

// IsZero reports whether the style is the terminal default rendition.
func (s Style) IsZero() bool {
	return s == Style{}
}

// sgr returns the SGR parameter string selecting this style, assuming the
// terminal is currently in the default rendition.
func (s Style) sgr() string {
	var params []string
	if s.Bold {
		params = append(params, "1")
	}
	if s.Faint {
		params = append(params, "2")
	}
	if s.Italic {
		params = append(params, "3")
	}
	if s.Underline {
		params = append(params, "4")
	}
	if s.Reverse {
		params = append(params, "7")
	}
	if s.Fg.Set {
		params = append(params, "38", "2", strconv.Itoa(int(s.Fg.R)),
			strconv.Itoa(int(s.Fg.G)), strconv.Itoa(int(s.Fg.B)))
	}
	if s.Bg.Set {
		params = append(params, "48", "2", strconv.Itoa(int(s.Bg.R)),
			strconv.Itoa(int(s.Bg.G)), strconv.Itoa(int(s.Bg.B)))
	}
	if len(params) == 0 {
		return ""
	}
	return fmt.Sprintf("\x1b[%sm", strings.Join(params, ";"))
}

const sgrReset = "\x1b[0m"

// ansi16 maps the classic 16 terminal colors to RGB, used when tool output
// selects colors by index rather than truecolor.
var ansi16 = [16]Color{
	RGB(0, 0, 0), RGB(205, 0, 0), RGB(0, 205, 0), RGB(205, 205, 0),
	RGB(0, 0, 238), RGB(205, 0, 205), RGB(0, 205, 205), RGB(229, 229, 229),
	RGB(127, 127, 127), RGB(255, 0, 0), RGB(0, 255, 0), RGB(255, 255, 0),
	RGB(92, 92, 255), RGB(255, 0, 255), RGB(0, 255, 255), RGB(255, 255, 255),
}

// palette256 resolves an xterm 256-color index to RGB.
func palette256(n int) Color {
	switch {
	case n < 0 || n > 255:
		return Color{}
	case n < 16:
		return ansi16[n]
	case n < 232:
		n -= 16
		steps := [6]uint8{0, 95, 135, 175, 215, 255}
		return RGB(steps[n/36], steps[n/6%6], steps[n%6])
	default:
		v := uint8(8 + (n-232)*10)
		return RGB(v, v, v)
	}
}
