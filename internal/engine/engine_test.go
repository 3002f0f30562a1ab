package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantage/internal/tools"
	"vantage/pkg/types"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := types.JobSpec{
		ID:      7,
		Path:    "src/app.py",
		AbsPath: "/work/src/app.py",
		Tool:    "pylint",
		Argv:    []string{"python3", "-m", "pylint", "/work/src/app.py"},
		Timeout: 30 * time.Second,
		Key:     types.SnapshotKey{Size: 10, MtimeNS: 99, ToolTag: "pylint@1"},
	}
	require.NoError(t, WriteJob(&buf, in))
	out, err := ReadJob(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFrameRejectsWrongTag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJob(&buf, types.JobSpec{ID: 1}))
	_, err := ReadResult(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected frame tag")
}

func TestFrameRejectsOversize(t *testing.T) {
	header := []byte{0xff, 0xff, 0xff, 0xff, frameResult}
	_, err := ReadResult(bytes.NewReader(header))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestExecuteJobBuiltin(t *testing.T) {
	reg := tools.NewRegistry("monokai")
	root := t.TempDir()
	res := executeJob(reg, root, types.JobSpec{
		ID: 1, Path: "missing.py", AbsPath: root + "/missing.py", Tool: "metadata",
	})
	assert.Equal(t, types.Error, res.Status)

	res = executeJob(reg, root, types.JobSpec{
		ID: 2, Path: "x", AbsPath: root + "/x", Tool: "no-such-builtin",
	})
	assert.Equal(t, types.Error, res.Status)
	assert.Contains(t, res.Body, "no-such-builtin")
}

func TestRunCommandExitClassification(t *testing.T) {
	reg := tools.NewRegistry("monokai")
	root := t.TempDir()

	status, _ := runCommand(reg, root, types.JobSpec{
		Tool: "adhoc", Argv: []string{"true"}, Timeout: 5 * time.Second,
	})
	assert.Equal(t, types.Ok, status)

	status, _ = runCommand(reg, root, types.JobSpec{
		Tool: "adhoc", Argv: []string{"false"}, Timeout: 5 * time.Second,
	})
	assert.Equal(t, types.Problem, status)
}

func TestRunCommandCapturesOutput(t *testing.T) {
	reg := tools.NewRegistry("monokai")
	root := t.TempDir()

	status, body := runCommand(reg, root, types.JobSpec{
		Tool: "adhoc", Argv: []string{"sh", "-c", "echo out; echo err 1>&2"},
		Timeout: 5 * time.Second,
	})
	assert.Equal(t, types.Ok, status)
	assert.Contains(t, body, "out")
	assert.Contains(t, body, "err")
}

func TestRunCommandTimeout(t *testing.T) {
	reg := tools.NewRegistry("monokai")
	root := t.TempDir()

	start := time.Now()
	status, body := runCommand(reg, root, types.JobSpec{
		Tool: "adhoc", Argv: []string{"sh", "-c", "echo partial; sleep 30"},
		Timeout: 200 * time.Millisecond,
	})
	assert.Equal(t, types.TimedOut, status)
	assert.Contains(t, body, "partial")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestEnqueueSuppressesDuplicates(t *testing.T) {
	e := New(t.TempDir(), "monokai", 2)
	key := types.SnapshotKey{Size: 1, ToolTag: "pylint@1"}

	assert.True(t, e.Enqueue("a.py", "/w/a.py", "pylint", []string{"pylint"}, 0, key, TierRest, 5))
	assert.False(t, e.Enqueue("a.py", "/w/a.py", "pylint", []string{"pylint"}, 0, key, TierRest, 5))

	pending, active := e.Counts()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, active)

	// A changed snapshot replaces the stale pending job instead of piling up.
	fresh := types.SnapshotKey{Size: 2, ToolTag: "pylint@1"}
	assert.True(t, e.Enqueue("a.py", "/w/a.py", "pylint", []string{"pylint"}, 0, fresh, TierRest, 5))
	pending, _ = e.Counts()
	assert.Equal(t, 1, pending)
}

func TestCancelPath(t *testing.T) {
	e := New(t.TempDir(), "monokai", 2)
	key := types.SnapshotKey{Size: 1, ToolTag: "x@1"}
	e.Enqueue("a.py", "/w/a.py", "pylint", nil, 0, key, TierRest, 1)
	e.Enqueue("a.py", "/w/a.py", "pyflakes", nil, 0, key, TierRest, 2)
	e.Enqueue("b.py", "/w/b.py", "pylint", nil, 0, key, TierRest, 3)

	e.CancelPath("a.py")
	pending, _ := e.Counts()
	assert.Equal(t, 1, pending)
}

func TestEngineRescore(t *testing.T) {
	e := New(t.TempDir(), "monokai", 1)
	key := types.SnapshotKey{ToolTag: "x@1"}
	e.Enqueue("a.py", "/w/a.py", "x", nil, 0, key, TierRest, 50)
	e.Enqueue("b.py", "/w/b.py", "x", nil, 0, key, TierRest, 2)

	e.Rescore(func(path, tool string) (int, int) {
		if path == "a.py" {
			return TierFocus, 0
		}
		return TierRest, 99
	})

	e.mu.Lock()
	next, tier, ok := e.queue.Pop()
	e.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "a.py", next.Path)
	assert.Equal(t, TierFocus, tier)
}
