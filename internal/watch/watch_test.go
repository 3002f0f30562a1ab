package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vantage/internal/watch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExcluded(t *testing.T) {
	assert.True(t, watch.Excluded(".git/config"))
	assert.True(t, watch.Excluded("src/.hidden"))
	assert.True(t, watch.Excluded(".vantage/status.db"))
	assert.False(t, watch.Excluded("src/main.py"))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "hello.py", "print('hi')\n")
	writeFile(t, root, "src/util.py", "pass\n")
	writeFile(t, root, ".hidden/skipped.py", "")
	writeFile(t, root, ".vantage/status.db", "")

	snaps, err := watch.Scan(root)
	require.NoError(t, err)

	assert.Len(t, snaps, 2)
	assert.Contains(t, snaps, "hello.py")
	assert.Contains(t, snaps, "src/util.py")

	snap := snaps["hello.py"]
	assert.Equal(t, int64(len("print('hi')\n")), snap.Size)
	assert.NotZero(t, snap.Ino)
}

func TestScanSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, root, "real.txt", "content")
	writeFile(t, outside, "external.txt", "outside")

	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "inlink.txt")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "external.txt"), filepath.Join(root, "outlink.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken.txt")))

	snaps, err := watch.Scan(root)
	require.NoError(t, err)

	// In-tree links resolve to their target; links outside the tree and
	// broken links are omitted entirely.
	assert.Contains(t, snaps, "real.txt")
	assert.Contains(t, snaps, "inlink.txt")
	assert.NotContains(t, snaps, "outlink.txt")
	assert.NotContains(t, snaps, "broken.txt")
}

func TestScanKeepsHardLinkedSiblings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "shared")
	require.NoError(t, os.Link(filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")))

	snaps, err := watch.Scan(root)
	require.NoError(t, err)

	// Hard links are distinct files: both rows survive even though they
	// share an inode.
	assert.Contains(t, snaps, "a.txt")
	assert.Contains(t, snaps, "b.txt")
	assert.Equal(t, snaps["a.txt"].Ino, snaps["b.txt"].Ino)
}

func TestSnapshotEquivalence(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one")

	first, err := watch.TakeSnapshot(root, "a.txt")
	require.NoError(t, err)
	second, err := watch.TakeSnapshot(root, "a.txt")
	require.NoError(t, err)
	assert.True(t, first.Same(second))

	// A permission change alone breaks equivalence.
	require.NoError(t, os.Chmod(filepath.Join(root, "a.txt"), 0o600))
	third, err := watch.TakeSnapshot(root, "a.txt")
	require.NoError(t, err)
	assert.False(t, first.Same(third))
}

func TestContentDigest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "same bytes")
	writeFile(t, root, "b.txt", "same bytes")
	writeFile(t, root, "c.txt", "different")

	da, err := watch.ContentDigest(root, "a.txt")
	require.NoError(t, err)
	db, err := watch.ContentDigest(root, "b.txt")
	require.NoError(t, err)
	dc, err := watch.ContentDigest(root, "c.txt")
	require.NoError(t, err)

	assert.Equal(t, da, db)
	assert.NotEqual(t, da, dc)
}

func collectEvent(t *testing.T, events <-chan watch.Event, timeout time.Duration) watch.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for filesystem event")
		return watch.Event{}
	}
}

func TestSynchronizerLifecycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "start.py", "pass\n")

	sync, initial, err := watch.NewSynchronizer(root, time.Hour)
	require.NoError(t, err)
	require.Contains(t, initial, "start.py")
	require.NoError(t, sync.Start())
	defer sync.Stop()

	t.Run("added", func(t *testing.T) {
		writeFile(t, root, "new.py", "x = 1\n")
		ev := collectEvent(t, sync.Events(), 2*time.Second)
		assert.Equal(t, watch.Added, ev.Kind)
		assert.Equal(t, "new.py", ev.Path)
		assert.Equal(t, int64(len("x = 1\n")), ev.Snap.Size)
	})

	t.Run("modified", func(t *testing.T) {
		writeFile(t, root, "new.py", "x = 1  # comment\n")
		ev := collectEvent(t, sync.Events(), 2*time.Second)
		assert.Equal(t, watch.Modified, ev.Kind)
		assert.Equal(t, "new.py", ev.Path)
	})

	t.Run("removed", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(root, "new.py")))
		ev := collectEvent(t, sync.Events(), 2*time.Second)
		assert.Equal(t, watch.Removed, ev.Kind)
		assert.Equal(t, "new.py", ev.Path)
	})

	t.Run("cache directory is filtered", func(t *testing.T) {
		writeFile(t, root, ".vantage/results/ab/abcd", "blob")
		select {
		case ev := <-sync.Events():
			t.Fatalf("unexpected event for cache path: %+v", ev)
		case <-time.After(200 * time.Millisecond):
		}
	})
}

func TestRescanCatchesMissedChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one")

	sync, _, err := watch.NewSynchronizer(root, time.Hour)
	require.NoError(t, err)
	require.NoError(t, sync.Start())
	defer sync.Stop()

	// Simulate a missed notification by mutating and forcing a rescan.
	writeFile(t, root, "ghost.txt", "appeared")
	sync.Rescan()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sync.Events():
			if ev.Kind == watch.Added && ev.Path == "ghost.txt" {
				return
			}
		case <-deadline:
			t.Fatal("rescan did not surface the new file")
		}
	}
}
