package tools

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/zeebo/blake3"

	"vantage/pkg/types"
)

// BuiltinFunc runs an in-process analyzer and returns the report status
// and body directly.
type BuiltinFunc func(reg *Registry, root, rel, abs string) (types.Status, string)

// Builtins maps builtin tool names to their implementations. The worker
// consults this table when a job names a tool with no argv.
var Builtins = map[string]BuiltinFunc{
	"contents": runContents,
	"metadata": runMetadata,
}

// maxHighlightBytes bounds the highlighter's input; enormous files get a
// head slice rather than an unbounded read.
const maxHighlightBytes = 1 << 20

// runContents renders the file syntax-highlighted with ANSI color. Files
// that are not valid UTF-8, or that no lexer claims, are declared not
// applicable rather than dumped raw.
func runContents(reg *Registry, root, rel, abs string) (types.Status, string) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return types.Error, fmt.Sprintf("reading %s: %v", rel, err)
	}
	truncated := false
	if len(data) > maxHighlightBytes {
		data = data[:maxHighlightBytes]
		truncated = true
	}
	if !utf8.Valid(data) {
		return types.NotApplicable, "not a UTF-8 text file"
	}

	lexer := lexers.Match(rel)
	if lexer == nil {
		lexer = lexers.Analyse(string(data))
	}
	if lexer == nil {
		return types.NotApplicable, "no syntax definition for this file"
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(reg.Theme)
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, string(data))
	if err != nil {
		return types.Error, fmt.Sprintf("tokenizing %s: %v", rel, err)
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return types.Error, fmt.Sprintf("highlighting %s: %v", rel, err)
	}
	if truncated {
		fmt.Fprintf(&b, "\n[truncated at %d bytes]\n", maxHighlightBytes)
	}
	return types.Ok, b.String()
}

// runMetadata reports the file's stat details, content digest, and the
// file utility's opinion of its type.
func runMetadata(reg *Registry, root, rel, abs string) (types.Status, string) {
	info, err := os.Stat(abs)
	if err != nil {
		return types.Error, fmt.Sprintf("stat %s: %v", rel, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "path:        %s\n", rel)
	fmt.Fprintf(&b, "size:        %s (%d bytes)\n", prettySize(info.Size()), info.Size())
	fmt.Fprintf(&b, "permissions: %04o (%s)\n", info.Mode().Perm(), info.Mode())
	fmt.Fprintf(&b, "modified:    %s\n", info.ModTime().Format(time.RFC3339))

	if owner, group, ok := ownership(info); ok {
		fmt.Fprintf(&b, "owner:       %s\n", owner)
		fmt.Fprintf(&b, "group:       %s\n", group)
	}

	if digest, err := fileDigest(abs); err == nil {
		fmt.Fprintf(&b, "blake3:      %s\n", digest)
	}

	if kind := fileKind(abs); kind != "" {
		fmt.Fprintf(&b, "type:        %s\n", kind)
	}
	return types.Ok, b.String()
}

// prettySize renders a byte count with a binary unit suffix.
func prettySize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ownership resolves uid/gid to names, falling back to numerics.
func ownership(info os.FileInfo) (string, string, bool) {
	st, ok := sysStat(info)
	if !ok {
		return "", "", false
	}
	owner := strconv.FormatUint(uint64(st.uid), 10)
	if u, err := user.LookupId(owner); err == nil {
		owner = u.Username
	}
	group := strconv.FormatUint(uint64(st.gid), 10)
	if g, err := user.LookupGroupId(group); err == nil {
		group = g.Name
	}
	return owner, group, true
}

func fileDigest(abs string) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// fileKind asks the file utility for a human description, best effort.
func fileKind(abs string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "file", "--brief", abs).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
