// Package watch reconciles the in-memory file model with the directory
// tree: an initial recursive scan, fsnotify change notifications with
// event coalescing, and a periodic light rescan that catches anything the
// notification stream missed.
package watch

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"

	"vantage/internal/cache"
	"vantage/pkg/types"
)

// TakeSnapshot stats one file and returns its snapshot. rel is the
// codebase-relative path with forward slashes.
func TakeSnapshot(root, rel string) (types.FileSnapshot, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	var st unix.Stat_t
	if err := unix.Stat(abs, &st); err != nil {
		return types.FileSnapshot{}, &os.PathError{Op: "stat", Path: abs, Err: err}
	}
	return snapshotFromStat(rel, &st), nil
}

func snapshotFromStat(rel string, st *unix.Stat_t) types.FileSnapshot {
	return types.FileSnapshot{
		Path:    rel,
		Size:    st.Size,
		MtimeNS: st.Mtim.Sec*1e9 + st.Mtim.Nsec,
		Mode:    st.Mode,
		Ino:     st.Ino,
		Dev:     uint64(st.Dev),
	}
}

// ContentDigest computes the blake3 digest of a file's bytes. It is
// called lazily: extension-routed tools never need it.
func ContentDigest(root, rel string) (string, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Excluded reports whether a codebase-relative path is outside the
// monitored set: anything under a dot directory (the cache directory
// included) or itself a dotfile.
func Excluded(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Scan walks the codebase and snapshots every regular file. Symlinks are
// followed only when the target is a file inside the codebase; each
// symlink target is visited at most once, which breaks symlink cycles.
// Hard-linked siblings are distinct files and all keep their row. Broken
// symlinks are omitted.
func Scan(root string) (map[string]types.FileSnapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	snaps := make(map[string]types.FileSnapshot)
	seen := make(map[[2]uint64]bool) // (dev, ino) of symlink targets already visited

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil // unreadable directories are skipped, not fatal
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			abs := filepath.Join(dir, name)
			rel := filepath.ToSlash(strings.TrimPrefix(abs, absRoot+string(filepath.Separator)))
			if Excluded(rel) || strings.HasPrefix(rel, cache.DirName+"/") {
				continue
			}
			isLink := entry.Type()&os.ModeSymlink != 0
			if isLink {
				target, err := filepath.EvalSymlinks(abs)
				if err != nil {
					continue // broken symlink
				}
				if !strings.HasPrefix(target, absRoot+string(filepath.Separator)) {
					continue // points outside the codebase
				}
				info, err := os.Stat(target)
				if err != nil || info.IsDir() {
					continue // directories are only followed in place
				}
			}
			var st unix.Stat_t
			if err := unix.Stat(abs, &st); err != nil {
				continue
			}
			if isLink {
				id := [2]uint64{uint64(st.Dev), st.Ino}
				if seen[id] {
					continue
				}
				seen[id] = true
			}
			switch {
			case st.Mode&unix.S_IFMT == unix.S_IFDIR:
				if err := walk(abs); err != nil {
					return err
				}
			case st.Mode&unix.S_IFMT == unix.S_IFREG:
				snaps[rel] = snapshotFromStat(rel, &st)
			}
		}
		return nil
	}
	if err := walk(absRoot); err != nil {
		return nil, err
	}
	return snaps, nil
}
