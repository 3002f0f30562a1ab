package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantage/pkg/types"
)

func TestSplitExt(t *testing.T) {
	assert.Equal(t, "py", SplitExt("src/main.py"))
	assert.Equal(t, "py", SplitExt("WEIRD.PY"))
	assert.Equal(t, "tar.gz", SplitExt("release.tar.gz"))
	assert.Equal(t, "tar.bz2", SplitExt("release.tar.bz2"))
	assert.Equal(t, "gz", SplitExt("notes.gz"))
	assert.Equal(t, "", SplitExt("Makefile"))
	assert.Equal(t, "", SplitExt("some.dir/README"))
}

func TestClassifierExitCode(t *testing.T) {
	c := Classifier{Kind: ExitCode, Success: types.Ok, Failure: types.Problem}
	assert.Equal(t, types.Ok, c.Classify(0, "whatever"))
	assert.Equal(t, types.Problem, c.Classify(1, ""))
	assert.Equal(t, types.Problem, c.Classify(127, ""))
}

func TestClassifierOutputPattern(t *testing.T) {
	// Empty output means clean for diff-style formatters.
	c := Classifier{Kind: OutputPattern, Pattern: `\A\s*\z`,
		Success: types.Ok, Failure: types.Problem}
	assert.Equal(t, types.Ok, c.Classify(0, ""))
	assert.Equal(t, types.Ok, c.Classify(0, "  \n"))
	assert.Equal(t, types.Problem, c.Classify(0, "main.go\ndiff...\n"))
}

func TestDescriptorCommand(t *testing.T) {
	d := Descriptor{Name: "x", Argv: []string{"tool", "--flag", "{}"}}
	assert.Equal(t, []string{"tool", "--flag", "/tmp/a.py"}, d.Command("/tmp/a.py"))
}

func TestDescriptorApplicable(t *testing.T) {
	d := Descriptor{Name: "runner", Glob: "*_test.py"}
	assert.True(t, d.Applicable("pkg/util_test.py"))
	assert.False(t, d.Applicable("pkg/util.py"))

	plain := Descriptor{Name: "any"}
	assert.True(t, plain.Applicable("pkg/util.py"))
}

func TestDescriptorTag(t *testing.T) {
	d := Descriptor{Name: "pylint", VersionTag: "2"}
	assert.Equal(t, "pylint@2", d.Tag())
}

func TestShebang(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
		return path
	}

	assert.Equal(t, "python3", Shebang(write("a", "#!/usr/bin/python3\nprint()\n")))
	assert.Equal(t, "bash", Shebang(write("b", "#!/usr/bin/env bash\necho\n")))
	assert.Equal(t, "", Shebang(write("c", "no shebang here\n")))
	assert.Equal(t, "", Shebang(filepath.Join(dir, "missing")))
}

func TestExtForInterpreter(t *testing.T) {
	assert.Equal(t, "py", extForInterpreter("python3.12"))
	assert.Equal(t, "sh", extForInterpreter("bash"))
	assert.Equal(t, "js", extForInterpreter("node"))
	assert.Equal(t, "", extForInterpreter("mystery"))
}

func TestRegistryRoutesBuiltinsEverywhere(t *testing.T) {
	reg := NewRegistry("monokai")
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.bin"), []byte{0, 1, 2}, 0o644))

	names := map[string]bool{}
	for _, d := range reg.ToolsFor(root, "data.bin") {
		names[d.Name] = true
	}
	assert.True(t, names["contents"])
	assert.True(t, names["metadata"])
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry("monokai")
	d, ok := reg.Get("contents")
	require.True(t, ok)
	assert.True(t, d.Available())
	_, ok = reg.Get("no-such-tool")
	assert.False(t, ok)
}

func TestInfoMatrix(t *testing.T) {
	reg := NewRegistry("monokai")
	info := reg.InfoMatrix()
	assert.Contains(t, info, "contents")
	assert.Contains(t, info, "pylint")
	assert.Contains(t, info, "available:")
}

func TestBuiltinContents(t *testing.T) {
	reg := NewRegistry("monokai")
	root := t.TempDir()

	py := filepath.Join(root, "hello.py")
	require.NoError(t, os.WriteFile(py, []byte("def f():\n    return 1\n"), 0o644))
	status, body := Builtins["contents"](reg, root, "hello.py", py)
	assert.Equal(t, types.Ok, status)
	assert.Contains(t, body, "\x1b[") // highlighted output carries color

	bin := filepath.Join(root, "blob")
	require.NoError(t, os.WriteFile(bin, []byte{0xff, 0xfe, 0x00, 0x01}, 0o644))
	status, body = Builtins["contents"](reg, root, "blob", bin)
	assert.Equal(t, types.NotApplicable, status)
	assert.Contains(t, body, "UTF-8")
}

func TestBuiltinMetadata(t *testing.T) {
	reg := NewRegistry("monokai")
	root := t.TempDir()
	path := filepath.Join(root, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("twelve bytes"), 0o644))

	status, body := Builtins["metadata"](reg, root, "doc.txt", path)
	assert.Equal(t, types.Ok, status)
	assert.Contains(t, body, "doc.txt")
	assert.Contains(t, body, "12 bytes")
	assert.Contains(t, body, "blake3:")
}

func TestPrettySize(t *testing.T) {
	assert.Equal(t, "512 B", prettySize(512))
	assert.True(t, strings.HasSuffix(prettySize(2048), "KiB"))
	assert.True(t, strings.HasSuffix(prettySize(5<<20), "MiB"))
}
