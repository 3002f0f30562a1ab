package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vantage/internal/termtext"
)

func TestPathPaletteParsesLSColors(t *testing.T) {
	p := NewPathPalette("*.py=01;35:*.tar.gz=31:di=01;34", true)

	py := p.Style("src/app.py")
	assert.True(t, py.Bold)
	assert.Equal(t, termtext.RGB(205, 0, 205), py.Fg)

	// Longest suffix wins over a plain .gz rule.
	tarball := p.Style("release.tar.gz")
	assert.Equal(t, termtext.RGB(205, 0, 0), tarball.Fg)

	// Unknown extensions stay unstyled.
	assert.True(t, p.Style("README").IsZero())
}

func TestPathPaletteFallback(t *testing.T) {
	p := NewPathPalette("", true)
	assert.False(t, p.Style("main.go").IsZero())
	assert.False(t, p.Style("archive.zip").IsZero())
}

func TestPathPaletteDisabled(t *testing.T) {
	p := NewPathPalette("*.py=01;35", false)
	assert.True(t, p.Style("src/app.py").IsZero())
}
