package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vantage/internal/log"
	"vantage/pkg/types"
)

// Registry holds every registered tool plus the routing tables built from
// them. It is constructed once at startup and passed to the components
// that need it; there is no package-level instance.
type Registry struct {
	Theme string

	tools   map[string]*Descriptor
	order   []string
	byExt   map[string][]*Descriptor
	generic []*Descriptor
}

// okProblem is the common exit-code classifier.
var okProblem = Classifier{Kind: ExitCode, Success: types.Ok, Failure: types.Problem}

// okDecline marks tools that report information when they can and decline
// otherwise (documentation extractors, git on untracked files).
var okDecline = Classifier{Kind: ExitCode, Success: types.Ok, Failure: types.NotApplicable}

// matrix returns every known descriptor. Extension rows mirror the kind
// of analyzers a codebase tends to have installed; missing executables
// are elided at registration, not reported per file.
func matrix() []*Descriptor {
	return []*Descriptor{
		// Generic tools apply to every file.
		{Name: "contents", AllFiles: true, VersionTag: "1",
			URL:      "https://github.com/alecthomas/chroma",
			Classify: Classifier{Kind: Builtin}},
		{Name: "metadata", AllFiles: true, VersionTag: "1",
			URL:      "https://www.darwinsys.com/file/",
			Classify: Classifier{Kind: Builtin}},
		{Name: "git_blame", AllFiles: true, VersionTag: "1",
			URL:  "https://git-scm.com/docs/git-blame",
			Argv: []string{"git", "blame", "--date=short", "{}"}, Classify: okDecline},
		{Name: "git_log", AllFiles: true, VersionTag: "1",
			URL:  "https://git-scm.com/docs/git-log",
			Argv: []string{"git", "log", "--oneline", "--follow", "--max-count=30", "{}"},
			Classify: okDecline},

		// Python
		{Name: "python_syntax", Extensions: []string{"py"}, VersionTag: "1",
			URL:  "https://docs.python.org/3/library/py_compile.html",
			Argv: []string{"python3", "-m", "py_compile", "{}"}, Classify: okProblem},
		{Name: "python_unittests", Extensions: []string{"py"}, Glob: "*_test.py", VersionTag: "1",
			URL:  "https://docs.python.org/3/library/unittest.html",
			Argv: []string{"python3", "{}"}, Classify: okProblem, Timeout: 20 * time.Second},
		{Name: "pydoc", Extensions: []string{"py"}, VersionTag: "1",
			URL:  "https://docs.python.org/3/library/pydoc.html",
			Argv: []string{"python3", "-m", "pydoc", "{}"}, Classify: okDecline},
		{Name: "pycodestyle", Extensions: []string{"py"}, VersionTag: "1",
			URL:  "https://pypi.org/project/pycodestyle/",
			Argv: []string{"python3", "-m", "pycodestyle", "{}"}, Classify: okProblem},
		{Name: "pyflakes", Extensions: []string{"py"}, VersionTag: "1",
			URL:  "https://pypi.org/project/pyflakes/",
			Argv: []string{"python3", "-m", "pyflakes", "{}"}, Classify: okProblem},
		{Name: "pylint", Extensions: []string{"py"}, VersionTag: "1",
			URL:  "https://pylint.readthedocs.io/",
			Argv: []string{"python3", "-m", "pylint", "--errors-only", "{}"}, Classify: okProblem},

		// Go
		{Name: "gofmt", Extensions: []string{"go"}, VersionTag: "1",
			URL:  "https://pkg.go.dev/cmd/gofmt",
			Argv: []string{"gofmt", "-l", "-d", "{}"},
			Classify: Classifier{Kind: OutputPattern, Pattern: `\A\s*\z`,
				Success: types.Ok, Failure: types.Problem}},
		{Name: "go_vet", Extensions: []string{"go"}, VersionTag: "1",
			URL:  "https://pkg.go.dev/cmd/vet",
			Argv: []string{"go", "vet", "{}"}, Classify: okProblem},

		// Shell
		{Name: "bash_syntax", Extensions: []string{"sh", "bash"}, VersionTag: "1",
			URL:  "https://www.gnu.org/software/bash/",
			Argv: []string{"bash", "-n", "{}"}, Classify: okProblem},
		{Name: "shellcheck", Extensions: []string{"sh", "bash"}, VersionTag: "1",
			URL:  "https://www.shellcheck.net/",
			Argv: []string{"shellcheck", "{}"}, Classify: okProblem},

		// Perl
		{Name: "perl_syntax", Extensions: []string{"pl", "pm"}, VersionTag: "1",
			URL:  "https://www.perl.org/",
			Argv: []string{"perl", "-c", "{}"}, Classify: okProblem},
		{Name: "perldoc", Extensions: []string{"pl", "pm"}, VersionTag: "1",
			URL:  "https://perldoc.perl.org/",
			Argv: []string{"perldoc", "-T", "{}"}, Classify: okDecline},

		// Ruby, PHP, JavaScript
		{Name: "ruby_syntax", Extensions: []string{"rb"}, VersionTag: "1",
			URL:  "https://www.ruby-lang.org/",
			Argv: []string{"ruby", "-c", "{}"}, Classify: okProblem},
		{Name: "php_syntax", Extensions: []string{"php"}, VersionTag: "1",
			URL:  "https://www.php.net/",
			Argv: []string{"php", "--syntax-check", "{}"}, Classify: okProblem},
		{Name: "node_syntax", Extensions: []string{"js", "mjs"}, VersionTag: "1",
			URL:  "https://nodejs.org/",
			Argv: []string{"node", "--check", "{}"}, Classify: okProblem},

		// C family
		{Name: "cppcheck", Extensions: []string{"c", "h", "cpp", "hpp", "cc"}, VersionTag: "1",
			URL:  "https://cppcheck.sourceforge.io/",
			Argv: []string{"cppcheck", "--quiet", "--error-exitcode=1", "{}"}, Classify: okProblem},

		// Data and markup
		{Name: "json_syntax", Extensions: []string{"json"}, VersionTag: "1",
			URL:  "https://docs.python.org/3/library/json.html",
			Argv: []string{"python3", "-m", "json.tool", "{}"}, Classify: okProblem},
		{Name: "yamllint", Extensions: []string{"yaml", "yml"}, VersionTag: "1",
			URL:  "https://yamllint.readthedocs.io/",
			Argv: []string{"yamllint", "{}"}, Classify: okProblem},
		{Name: "html_tidy", Extensions: []string{"html", "htm"}, VersionTag: "1",
			URL:  "https://www.html-tidy.org/",
			Argv: []string{"tidy", "-errors", "-quiet", "{}"}, Classify: okProblem},
		{Name: "csv_head", Extensions: []string{"csv"}, VersionTag: "1",
			URL:  "https://www.gnu.org/software/coreutils/",
			Argv: []string{"head", "--lines=20", "{}"}, Classify: okDecline},

		// Archives and binaries
		{Name: "unzip_list", Extensions: []string{"zip"}, VersionTag: "1",
			URL:  "https://infozip.sourceforge.net/",
			Argv: []string{"unzip", "-l", "{}"}, Classify: okDecline},
		{Name: "tar_gz_list", Extensions: []string{"tar.gz", "tgz"}, VersionTag: "1",
			URL:  "https://www.gnu.org/software/tar/",
			Argv: []string{"tar", "ztvf", "{}"}, Classify: okDecline},
		{Name: "tar_bz2_list", Extensions: []string{"tar.bz2"}, VersionTag: "1",
			URL:  "https://www.gnu.org/software/tar/",
			Argv: []string{"tar", "jtvf", "{}"}, Classify: okDecline},
		{Name: "pdf_text", Extensions: []string{"pdf"}, VersionTag: "1",
			URL:  "https://poppler.freedesktop.org/",
			Argv: []string{"pdftotext", "{}", "-"}, Classify: okDecline},
		{Name: "nm_symbols", Extensions: []string{"o", "a", "so"}, VersionTag: "1",
			URL:  "https://www.gnu.org/software/binutils/",
			Argv: []string{"nm", "--demangle", "{}"}, Classify: okDecline},
		{Name: "objdump_headers", Extensions: []string{"o", "so"}, VersionTag: "1",
			URL:  "https://www.gnu.org/software/binutils/",
			Argv: []string{"objdump", "--all-headers", "{}"}, Classify: okDecline},
		{Name: "readelf", Extensions: []string{"o", "so", "a"}, VersionTag: "1",
			URL:  "https://www.gnu.org/software/binutils/",
			Argv: []string{"readelf", "--all", "{}"}, Classify: okDecline},
	}
}

// NewRegistry builds the registry, probing each tool's executable. Tools
// whose executable is missing are elided with a log line rather than
// producing an Error per file.
func NewRegistry(theme string) *Registry {
	r := &Registry{
		Theme: theme,
		tools: map[string]*Descriptor{},
		byExt: map[string][]*Descriptor{},
	}
	for _, d := range matrix() {
		if d.Timeout == 0 {
			d.Timeout = DefaultTimeout
		}
		if d.Classify.Kind == Builtin {
			d.available = true
		} else if _, err := exec.LookPath(d.Executable()); err == nil {
			d.available = true
		} else {
			log.Info("tool %s unavailable (%s not found), skipping", d.Name, d.Executable())
		}
		r.tools[d.Name] = d
		r.order = append(r.order, d.Name)
		if !d.available {
			continue
		}
		if d.AllFiles {
			r.generic = append(r.generic, d)
			continue
		}
		for _, ext := range d.Extensions {
			r.byExt[ext] = append(r.byExt[ext], d)
		}
	}
	return r
}

// Get looks up a descriptor by name, available or not.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// ToolsFor routes one file to its ordered tool list: the generic tools
// first, then the extension row. Extensionless files are routed through
// the shebang line and finally a content sniff.
func (r *Registry) ToolsFor(root, rel string) []*Descriptor {
	ext := SplitExt(rel)
	if ext == "" {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if interp := Shebang(abs); interp != "" {
			ext = extForInterpreter(interp)
		}
		if ext == "" {
			ext = Sniff(abs)
		}
	}
	out := append([]*Descriptor{}, r.generic...)
	for _, d := range r.byExt[ext] {
		if d.Applicable(rel) {
			out = append(out, d)
		}
	}
	return out
}

// Shebang returns the interpreter named on a #! first line, or "".
func Shebang(abs string) string {
	f, err := os.Open(abs)
	if err != nil {
		return ""
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	if !strings.HasPrefix(line, "#!") {
		return ""
	}
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "#!"))
	if len(fields) == 0 {
		return ""
	}
	interp := filepath.Base(fields[0])
	if interp == "env" && len(fields) > 1 {
		interp = filepath.Base(fields[1])
	}
	return interp
}

// extForInterpreter maps a shebang interpreter to an extension row.
func extForInterpreter(interp string) string {
	switch {
	case strings.HasPrefix(interp, "python"):
		return "py"
	case interp == "perl":
		return "pl"
	case interp == "ruby":
		return "rb"
	case interp == "node":
		return "js"
	case interp == "php":
		return "php"
	case interp == "sh" || interp == "bash" || interp == "dash" || interp == "zsh":
		return "sh"
	}
	return ""
}

// sniffExtensions maps `file` mime types to extension rows for files that
// neither extension nor shebang could classify.
var sniffExtensions = map[string]string{
	"text/x-python":       "py",
	"text/x-perl":         "pl",
	"text/x-ruby":         "rb",
	"text/x-php":          "php",
	"text/x-shellscript":  "sh",
	"text/html":           "html",
	"application/json":    "json",
	"application/zip":     "zip",
	"application/x-sharedlib": "so",
	"application/x-object":    "o",
}

// Sniff invokes the file utility as the classification fallback.
func Sniff(abs string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "file", "--brief", "--mime-type", abs).Output()
	if err != nil {
		return ""
	}
	return sniffExtensions[strings.TrimSpace(string(out))]
}

// InfoMatrix renders the --info listing: every tool, its URL, extension
// rows and availability.
func (r *Registry) InfoMatrix() string {
	extensionRows := map[string][]string{}
	for ext, descs := range r.byExt {
		for _, d := range descs {
			extensionRows[d.Name] = append(extensionRows[d.Name], ext)
		}
	}
	var b strings.Builder
	for _, d := range r.All() {
		fmt.Fprintf(&b, "%s\n", d.Name)
		if d.URL != "" {
			fmt.Fprintf(&b, "  url: %s\n", d.URL)
		}
		exts := extensionRows[d.Name]
		if d.AllFiles {
			exts = []string{"*"}
		}
		sort.Strings(exts)
		fmt.Fprintf(&b, "  extensions: %s\n", strings.Join(exts, ", "))
		if cmd := d.Executable(); cmd != "" {
			fmt.Fprintf(&b, "  command: %s\n", strings.Join(d.Argv, " "))
		} else {
			fmt.Fprintf(&b, "  builtin\n")
		}
		fmt.Fprintf(&b, "  available: %v\n\n", d.Available())
	}
	return b.String()
}
