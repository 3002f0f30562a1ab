package termtext_test

import (
	"fmt"
	"testing"

	"vantage/internal/termtext"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRoundTrip(t *testing.T) {
	text := termtext.Plain("hello world")
	assert.Equal(t, "hello world", text.String())
	assert.Equal(t, 11, text.Width())
}

func TestConcatMergesAdjacentRuns(t *testing.T) {
	red := termtext.Style{Fg: termtext.RGB(255, 0, 0)}
	joined := termtext.Concat(termtext.Styled("ab", red), termtext.Styled("cd", red))
	assert.Equal(t, "abcd", joined.String())
	// A single run renders with a single escape pair.
	assert.Equal(t, "\x1b[38;2;255;0;0mabcd\x1b[0m", joined.SGR())
}

func TestSliceByCells(t *testing.T) {
	text := termtext.Plain("abcdef")

	assert.Equal(t, "cde", text.Slice(2, 5).String())
	assert.Equal(t, "", text.Slice(4, 4).String())
	assert.Equal(t, "abcdef", text.Slice(0, 100).String())
}

func TestSliceSplitsWideRunes(t *testing.T) {
	// 漢 is two cells wide; slicing through it yields a space.
	text := termtext.Plain("a漢b")
	assert.Equal(t, 4, text.Width())
	assert.Equal(t, "a ", text.Slice(0, 2).String())
	assert.Equal(t, " b", text.Slice(2, 4).String())
}

func TestPadding(t *testing.T) {
	text := termtext.Plain("ab")
	assert.Equal(t, "ab   ", text.PadRight(5).String())
	assert.Equal(t, "   ab", text.PadLeft(5).String())
	assert.Equal(t, "ab", text.PadRight(1).String())
}

func TestTruncate(t *testing.T) {
	text := termtext.Plain("abcdefgh")

	assert.Equal(t, "abcd…", text.Truncate(5, "…").String())
	assert.Equal(t, "abcdefgh", text.Truncate(8, "…").String())
	assert.Equal(t, "", text.Truncate(0, "…").String())
}

func TestTruncateIdempotent(t *testing.T) {
	inputs := []string{"", "a", "hello world", "漢字テスト", "tabs\tand\tmore"}
	for _, input := range inputs {
		text := termtext.Parse(input)
		for width := 0; width < 16; width++ {
			once := text.Truncate(width, "…")
			twice := once.Truncate(width, "…")
			require.True(t, once.Equal(twice),
				"truncate(truncate(%q, %d)) changed the value", input, width)
		}
	}
}

func TestLines(t *testing.T) {
	lines := termtext.Plain("one\ntwo\r\nthree").Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "one", lines[0].String())
	assert.Equal(t, "two", lines[1].String())
	assert.Equal(t, "three", lines[2].String())
}

func TestParseExpandsTabs(t *testing.T) {
	text := termtext.Parse("ab\tc")
	assert.Equal(t, "ab      c", text.String())

	// Tab stops restart on every line.
	lines := termtext.Parse("x\ty\nz\tw").Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "x       y", lines[0].String())
	assert.Equal(t, "z       w", lines[1].String())
}

func TestParseNormalizesControlCharacters(t *testing.T) {
	text := termtext.Parse("a\x07b\x00c")
	assert.Equal(t, "a·b·c", text.String())
}

func TestParseInterpretsSGR(t *testing.T) {
	t.Run("truecolor foreground", func(t *testing.T) {
		text := termtext.Parse("\x1b[38;2;10;20;30mhi\x1b[0m")
		assert.Equal(t, "hi", text.String())
		assert.Equal(t, "\x1b[38;2;10;20;30mhi\x1b[0m", text.SGR())
	})

	t.Run("16 color and bold", func(t *testing.T) {
		text := termtext.Parse("\x1b[1;31mbad\x1b[m ok")
		assert.Equal(t, "bad ok", text.String())
		assert.Equal(t, "\x1b[1;38;2;205;0;0mbad\x1b[0m ok", text.SGR())
	})

	t.Run("256 color palette", func(t *testing.T) {
		text := termtext.Parse("\x1b[38;5;196mx")
		assert.Equal(t, "\x1b[38;2;255;0;0mx\x1b[0m", text.SGR())
	})

	t.Run("non-SGR escapes dropped", func(t *testing.T) {
		text := termtext.Parse("a\x1b[2Jb")
		assert.Equal(t, "ab", text.String())
	})
}

func TestFrameDiff(t *testing.T) {
	prev := termtext.Frame{termtext.Plain("one"), termtext.Plain("two")}

	t.Run("identical frames emit nothing", func(t *testing.T) {
		assert.Equal(t, "", termtext.Diff(prev, prev))
	})

	t.Run("only changed lines are redrawn", func(t *testing.T) {
		next := termtext.Frame{termtext.Plain("one"), termtext.Plain("TWO")}
		assert.Equal(t, "\x1b[2;1H\x1b[2KTWO", termtext.Diff(prev, next))
	})

	t.Run("shrinking clears leftover lines", func(t *testing.T) {
		next := termtext.Frame{termtext.Plain("one")}
		assert.Equal(t, "\x1b[2;1H\x1b[2K", termtext.Diff(prev, next))
	})
}

func TestRenderDeterminism(t *testing.T) {
	frame := termtext.Frame{
		termtext.Parse("\x1b[32mok\x1b[0m plain"),
		termtext.Plain("second"),
	}
	first := frame.String()
	second := frame.String()
	assert.Equal(t, first, second)
}

func TestTransform(t *testing.T) {
	bold := termtext.Plain("x").Transform(func(s termtext.Style) termtext.Style {
		s.Bold = true
		return s
	})
	assert.Equal(t, "\x1b[1mx\x1b[0m", bold.SGR())
}

func ExamplePlain() {
	fmt.Println(termtext.Plain("report").Truncate(3, "…").String())
	// Output: re…
}
