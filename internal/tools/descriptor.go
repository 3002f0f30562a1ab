// Package tools defines the analyzer registry: which tools exist, which
// files they apply to, how their argv is built and how their exit is
// classified into a report status.
package tools

import (
	"regexp"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"vantage/pkg/types"
)

// DefaultTimeout bounds a tool run unless the descriptor says otherwise.
const DefaultTimeout = 60 * time.Second

// ClassifierKind selects how a finished tool run maps to a status.
type ClassifierKind int

const (
	// ExitCode: exit 0 yields Success, anything else Failure.
	ExitCode ClassifierKind = iota
	// OutputPattern: Success when the combined output matches Pattern,
	// Failure otherwise, regardless of exit code.
	OutputPattern
	// Builtin: the tool runs in-process in the worker; the builtin
	// decides the status itself.
	Builtin
)

// Classifier turns (exit code, output) into a status.
type Classifier struct {
	Kind    ClassifierKind
	Success types.Status
	Failure types.Status
	Pattern string

	re *regexp.Regexp
}

// Classify maps one completed run. Builtin classifiers never reach here.
func (c *Classifier) Classify(exitCode int, output string) types.Status {
	switch c.Kind {
	case OutputPattern:
		if c.re == nil {
			c.re = regexp.MustCompile(c.Pattern)
		}
		if c.re.MatchString(output) {
			return c.Success
		}
		return c.Failure
	default:
		if exitCode == 0 {
			return c.Success
		}
		return c.Failure
	}
}

// Descriptor is the static description of one analyzer tool, registered
// at startup.
type Descriptor struct {
	Name string
	URL  string
	// Argv is the invocation template; "{}" expands to the absolute
	// file path. Empty for builtins.
	Argv    []string
	Timeout time.Duration
	// Extensions lists the table rows this tool appears under. Generic
	// tools have none and apply everywhere.
	Extensions []string
	// Glob further narrows applicability within an extension row, e.g.
	// test runners that only accept "*_test.py".
	Glob     string
	AllFiles bool
	Classify Classifier
	// VersionTag changes when the tool's behavior changes, invalidating
	// cached results.
	VersionTag string

	available bool
	matcher   glob.Glob
}

// Tag is the tool-version component of a snapshot key.
func (d *Descriptor) Tag() string {
	return d.Name + "@" + d.VersionTag
}

// Available reports whether the tool's executable was found at startup.
func (d *Descriptor) Available() bool {
	return d.available
}

// Executable is the program the descriptor invokes, empty for builtins.
func (d *Descriptor) Executable() string {
	if len(d.Argv) == 0 {
		return ""
	}
	return d.Argv[0]
}

// Command expands the argv template for one file.
func (d *Descriptor) Command(absPath string) []string {
	argv := make([]string, len(d.Argv))
	for i, arg := range d.Argv {
		argv[i] = strings.ReplaceAll(arg, "{}", absPath)
	}
	return argv
}

// Applicable reports whether the tool wants this file. The registry has
// already routed by extension; this checks the per-tool glob refinement.
func (d *Descriptor) Applicable(relPath string) bool {
	if d.Glob == "" {
		return true
	}
	if d.matcher == nil {
		d.matcher = glob.MustCompile(d.Glob)
	}
	base := relPath
	if i := strings.LastIndex(relPath, "/"); i >= 0 {
		base = relPath[i+1:]
	}
	return d.matcher.Match(base)
}

// SplitExt returns the extension used for tool routing, without the dot
// and lower-cased. Compound archive extensions stay whole.
func SplitExt(path string) string {
	lower := strings.ToLower(path)
	for _, compound := range []string{".tar.gz", ".tar.bz2"} {
		if strings.HasSuffix(lower, compound) {
			return compound[1:]
		}
	}
	if i := strings.LastIndex(lower, "."); i >= 0 && i > strings.LastIndex(lower, "/") {
		return lower[i+1:]
	}
	return ""
}
