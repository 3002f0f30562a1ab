package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vantage/internal/cache"
	"vantage/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*cache.Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := cache.Open(root, 6, time.Time{})
	require.NoError(t, err)
	return store, root
}

func TestBlobRoundTrip(t *testing.T) {
	store, _ := openStore(t)

	bodies := [][]byte{
		[]byte("plain report"),
		[]byte(""),
		[]byte("styled \x1b[31mred\x1b[0m output\nwith lines\n"),
		make([]byte, 64*1024),
	}
	for i, body := range bodies {
		digest := cache.BlobDigest("src/a.py", "pyflakes", string(rune('a'+i)))
		require.NoError(t, store.WriteBlob(digest, body))
		loaded, err := store.ReadBlob(digest)
		require.NoError(t, err)
		assert.Equal(t, body, loaded, "blob %d must round-trip bit-exactly", i)
	}
}

func TestBlobDigestStability(t *testing.T) {
	a := cache.BlobDigest("src/a.py", "pyflakes", "deadbeef")
	b := cache.BlobDigest("src/a.py", "pyflakes", "deadbeef")
	assert.Equal(t, a, b, "identical inputs must produce identical digests")

	c := cache.BlobDigest("src/b.py", "pyflakes", "deadbeef")
	assert.NotEqual(t, a, c, "the path is part of the address")
}

func TestStatusAggregateRoundTrip(t *testing.T) {
	store, _ := openStore(t)

	agg := cache.NewAggregate()
	key := types.SnapshotKey{Size: 10, MtimeNS: 99, Mode: 0o644, Ino: 7, Dev: 3, ToolTag: "pyflakes/1"}
	agg.Set("src/a.py", "pyflakes", cache.EntryState{Key: key, Status: types.Ok, BodyDigest: "ab12"})
	agg.App = cache.AppState{CursorRow: 2, CursorCol: 1, SortByType: true, Paused: true}

	require.NoError(t, store.SaveStatus(agg))

	loaded, err := store.LoadStatus()
	require.NoError(t, err)
	st, ok := loaded.Get("src/a.py", "pyflakes")
	require.True(t, ok)
	assert.Equal(t, key, st.Key)
	assert.Equal(t, types.Ok, st.Status)
	assert.Equal(t, "ab12", st.BodyDigest)
	assert.Equal(t, agg.App, loaded.App)
}

func TestTornStatusTreatedAsAbsent(t *testing.T) {
	store, root := openStore(t)

	agg := cache.NewAggregate()
	agg.Set("a", "contents", cache.EntryState{Status: types.Ok})
	require.NoError(t, store.SaveStatus(agg))

	// Truncate the file mid-write.
	path := filepath.Join(root, cache.DirName, "status.db")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)/2], 0o644))

	loaded, err := store.LoadStatus()
	assert.Error(t, err)
	assert.Empty(t, loaded.Entries, "a torn aggregate loads as empty")
}

func TestGCRemovesUnreferencedBlobs(t *testing.T) {
	store, _ := openStore(t)

	live := cache.BlobDigest("a.py", "contents", "1")
	dead := cache.BlobDigest("b.py", "contents", "2")
	require.NoError(t, store.WriteBlob(live, []byte("live")))
	require.NoError(t, store.WriteBlob(dead, []byte("dead")))

	removed, err := store.GC(map[string]bool{live: true})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.ReadBlob(live)
	assert.NoError(t, err)
	_, err = store.ReadBlob(dead)
	assert.Error(t, err)
}

func TestForeignCacheDisablesWrites(t *testing.T) {
	store, root := openStore(t)

	// Another process recreates the cache with a new creation stamp.
	stamp := filepath.Join(root, cache.DirName, "creation-time")
	require.NoError(t, os.WriteFile(stamp, []byte("999"), 0o644))

	err := store.WriteBlob(cache.BlobDigest("a", "b", "c"), []byte("x"))
	assert.Error(t, err)
	assert.True(t, store.Disabled())

	// Once disabled, it stays disabled.
	err = store.SaveStatus(cache.NewAggregate())
	assert.Error(t, err)
}

func TestUpgradeClearsCache(t *testing.T) {
	root := t.TempDir()
	store, err := cache.Open(root, 1, time.Time{})
	require.NoError(t, err)
	digest := cache.BlobDigest("a", "contents", "1")
	require.NoError(t, store.WriteBlob(digest, []byte("old")))

	// Reopen with a build time far in the future: cache is discarded.
	fresh, err := cache.Open(root, 1, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = fresh.ReadBlob(digest)
	assert.Error(t, err)
}

func TestSaverDebounces(t *testing.T) {
	store, _ := openStore(t)
	saver := cache.NewSaver(store, 50*time.Millisecond)
	agg := cache.NewAggregate()

	assert.True(t, saver.Mark(agg), "first mark saves immediately")
	assert.False(t, saver.Mark(agg), "second mark within the window is deferred")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, saver.Mark(agg), "mark after the window saves")
}
