package termtext

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// tabStop is the monospace tab stop; tabs expand to the next multiple.
const tabStop = 8

// replacementDot stands in for control characters in tool output.
const replacementDot = "·"

// Parse normalizes raw tool output into styled text. Embedded SGR escapes
// for colors (16, 256 and truecolor), bold, faint, italic, underline,
// reverse and reset are interpreted; every other escape sequence is
// dropped. Remaining control characters become a printable dot, tabs
// expand to the next multiple of 8 and CRLF collapses to LF.
func Parse(raw string) Text {
	var out []Text
	var cur Style
	col := 0

	flush := func(b *strings.Builder) {
		if b.Len() > 0 {
			out = append(out, Styled(b.String(), cur))
			b.Reset()
		}
	}

	var buf strings.Builder
	var state byte
	remaining := raw
	for len(remaining) > 0 {
		seq, width, n, newState := ansi.DecodeSequence(remaining, state, nil)
		state = newState
		remaining = remaining[n:]

		if width > 0 {
			buf.WriteString(seq)
			col += width
			continue
		}

		switch {
		case seq == "\n":
			buf.WriteString("\n")
			col = 0
		case seq == "\r":
			if strings.HasPrefix(remaining, "\n") {
				break // CRLF, the LF will be taken next
			}
			buf.WriteString(replacementDot)
			col++
		case seq == "\t":
			pad := tabStop - col%tabStop
			buf.WriteString(strings.Repeat(" ", pad))
			col += pad
		case strings.HasPrefix(seq, "\x1b[") && strings.HasSuffix(seq, "m"):
			flush(&buf)
			cur = applySGR(cur, seq[2:len(seq)-1])
		case strings.HasPrefix(seq, "\x1b"):
			// Non-SGR escape sequence, dropped.
		default:
			for range seq {
				buf.WriteString(replacementDot)
				col++
			}
		}
	}
	flush(&buf)
	return Concat(out...)
}

// StyleFromSGR builds a style from a bare SGR parameter list like
// "01;35", the form LS_COLORS uses.
func StyleFromSGR(params string) Style {
	return applySGR(Style{}, params)
}

// applySGR folds one SGR parameter list into a style.
func applySGR(st Style, params string) Style {
	if params == "" {
		return Style{}
	}
	fields := strings.Split(params, ";")
	for i := 0; i < len(fields); i++ {
		code, err := strconv.Atoi(fields[i])
		if err != nil {
			continue
		}
		switch {
		case code == 0:
			st = Style{}
		case code == 1:
			st.Bold = true
		case code == 2:
			st.Faint = true
		case code == 3:
			st.Italic = true
		case code == 4:
			st.Underline = true
		case code == 7:
			st.Reverse = true
		case code == 22:
			st.Bold, st.Faint = false, false
		case code == 23:
			st.Italic = false
		case code == 24:
			st.Underline = false
		case code == 27:
			st.Reverse = false
		case code >= 30 && code <= 37:
			st.Fg = ansi16[code-30]
		case code == 39:
			st.Fg = Color{}
		case code >= 40 && code <= 47:
			st.Bg = ansi16[code-40]
		case code == 49:
			st.Bg = Color{}
		case code >= 90 && code <= 97:
			st.Fg = ansi16[code-90+8]
		case code >= 100 && code <= 107:
			st.Bg = ansi16[code-100+8]
		case code == 38 || code == 48:
			color, consumed := extendedColor(fields[i+1:])
			if consumed == 0 {
				return st // malformed, ignore the rest
			}
			if code == 38 {
				st.Fg = color
			} else {
				st.Bg = color
			}
			i += consumed
		}
	}
	return st
}

// extendedColor parses the tail of a 38/48 parameter sequence, returning
// how many fields it consumed.
func extendedColor(fields []string) (Color, int) {
	if len(fields) == 0 {
		return Color{}, 0
	}
	switch fields[0] {
	case "5":
		if len(fields) < 2 {
			return Color{}, 0
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Color{}, 0
		}
		return palette256(n), 2
	case "2":
		if len(fields) < 4 {
			return Color{}, 0
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(fields[1+i])
			if err != nil || v < 0 || v > 255 {
				return Color{}, 0
			}
			rgb[i] = uint8(v)
		}
		return RGB(rgb[0], rgb[1], rgb[2]), 4
	}
	return Color{}, 0
}
