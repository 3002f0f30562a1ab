package tui

import (
	"strings"

	"vantage/internal/termtext"
)

// PathPalette colors file paths in the grid the way ls would: from the
// LS_COLORS environment variable when present, otherwise a small built-in
// fallback keyed on extension.
type PathPalette struct {
	suffixes map[string]termtext.Style // "*.py" entries, keyed by ".py"
	enabled  bool
}

// NewPathPalette parses an LS_COLORS value ("*.py=01;35:di=01;34:...").
// Only suffix entries are used; the grid never shows directories or
// special files. An empty value yields the fallback palette.
func NewPathPalette(lsColors string, enabled bool) *PathPalette {
	p := &PathPalette{suffixes: map[string]termtext.Style{}, enabled: enabled}
	if !enabled {
		return p
	}
	for _, entry := range strings.Split(lsColors, ":") {
		key, params, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, "*.") {
			continue
		}
		p.suffixes[strings.ToLower(key[1:])] = termtext.StyleFromSGR(params)
	}
	if len(p.suffixes) == 0 {
		p.suffixes = fallbackPalette()
	}
	return p
}

// Style returns the display style for a relative path.
func (p *PathPalette) Style(rel string) termtext.Style {
	if !p.enabled {
		return termtext.Style{}
	}
	lower := strings.ToLower(rel)
	// Longest matching suffix wins, so ".tar.gz" beats ".gz".
	best := ""
	var style termtext.Style
	for suffix, st := range p.suffixes {
		if strings.HasSuffix(lower, suffix) && len(suffix) > len(best) {
			best, style = suffix, st
		}
	}
	return style
}

func fallbackPalette() map[string]termtext.Style {
	source := termtext.Style{Fg: termtext.RGB(135, 215, 255)}
	script := termtext.Style{Fg: termtext.RGB(95, 215, 135)}
	archive := termtext.Style{Fg: termtext.RGB(215, 95, 95), Bold: true}
	media := termtext.Style{Fg: termtext.RGB(215, 135, 215)}
	out := map[string]termtext.Style{}
	for _, ext := range []string{".py", ".go", ".c", ".h", ".cpp", ".js", ".rb", ".pl", ".php"} {
		out[ext] = source
	}
	for _, ext := range []string{".sh", ".bash"} {
		out[ext] = script
	}
	for _, ext := range []string{".zip", ".tar.gz", ".tar.bz2", ".tgz"} {
		out[ext] = archive
	}
	for _, ext := range []string{".pdf", ".mp3", ".png", ".jpg"} {
		out[ext] = media
	}
	return out
}
