// Package cache is the disk-backed result store. It lives in a dot
// directory under the codebase root and holds one compressed blob per
// report body plus a single status aggregate from which the whole summary
// grid can be rebuilt on startup without running any tool.
package cache

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/zeebo/blake3"

	"vantage/internal/errors"
	"vantage/internal/log"
)

const (
	// DirName is the cache directory created under the codebase root.
	DirName = ".vantage"

	creationFile = "creation-time"
	statusFile   = "status.db"
	resultsDir   = "results"
)

// Store owns the cache directory for one running instance. The
// creation-time stamp read at open time is re-checked before every write;
// if another process recreated the cache the store silently disables its
// writes rather than corrupting the new owner's data.
type Store struct {
	root  string // codebase root
	dir   string
	level int // flate compression level 0..9

	mu       sync.Mutex
	created  string
	disabled bool
}

// Open prepares the cache directory, creating it on first use. When
// appBuildTime is newer than the existing creation stamp the cache is
// cleared: a new binary may classify results differently.
func Open(root string, level int, appBuildTime time.Time) (*Store, error) {
	dir := filepath.Join(root, DirName)
	stampPath := filepath.Join(dir, creationFile)

	if info, err := os.Stat(stampPath); err == nil {
		if !appBuildTime.IsZero() && appBuildTime.After(info.ModTime()) {
			log.Info("application is newer than the cache, recalculating all results")
			if err := os.RemoveAll(dir); err != nil {
				return nil, fmt.Errorf("clearing stale cache: %w", err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Join(dir, resultsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if _, err := os.Stat(stampPath); os.IsNotExist(err) {
		stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
		if err := writeAtomic(stampPath, []byte(stamp), false); err != nil {
			return nil, fmt.Errorf("writing creation stamp: %w", err)
		}
	}
	stamp, err := os.ReadFile(stampPath)
	if err != nil {
		return nil, fmt.Errorf("reading creation stamp: %w", err)
	}

	if level < 0 {
		level = 0
	}
	if level > 9 {
		level = 9
	}
	return &Store{root: root, dir: dir, level: level, created: string(stamp)}, nil
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

// LogPath returns the activity log file location inside the cache.
func (s *Store) LogPath() string {
	return filepath.Join(s.dir, "log")
}

// Disabled reports whether the store has observed a foreign owner and
// stopped writing.
func (s *Store) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// guard re-reads the creation stamp; a mismatch means another process now
// owns the directory and this store must not write again.
func (s *Store) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return errors.NewCacheError("cache owned by another process", errors.CacheForeign, nil)
	}
	stamp, err := os.ReadFile(filepath.Join(s.dir, creationFile))
	if err != nil || string(stamp) != s.created {
		s.disabled = true
		log.Warn("cache creation stamp changed, disabling cache writes")
		return errors.NewCacheError("cache owned by another process", errors.CacheForeign, err)
	}
	return nil
}

// BlobDigest derives the content address of a report body from the
// codebase-relative path, the tool name and the file content digest.
// Identical content under the same name digests identically across runs.
func BlobDigest(relPath, tool, contentDigest string) string {
	h := blake3.New()
	io.WriteString(h, relPath)
	h.Write([]byte{0})
	io.WriteString(h, tool)
	h.Write([]byte{0})
	io.WriteString(h, contentDigest)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) blobPath(digest string) string {
	return filepath.Join(s.dir, resultsDir, digest[:2], digest)
}

// WriteBlob persists one report body, compressed, under its digest.
func (s *Store) WriteBlob(digest string, body []byte) error {
	if err := s.guard(); err != nil {
		return err
	}
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, s.level)
	if err != nil {
		return fmt.Errorf("compressing blob: %w", err)
	}
	if _, err := zw.Write(body); err != nil {
		return fmt.Errorf("compressing blob: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing blob: %w", err)
	}
	path := s.blobPath(digest)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating blob directory: %w", err)
	}
	return writeAtomic(path, buf.Bytes(), true)
}

// ReadBlob loads and decompresses one report body.
func (s *Store) ReadBlob(digest string) ([]byte, error) {
	f, err := os.Open(s.blobPath(digest))
	if err != nil {
		return nil, errors.NewCacheError("blob missing", errors.CacheMiss, err)
	}
	defer f.Close()
	zr := flate.NewReader(f)
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.NewCacheError("blob unreadable", errors.CacheCorrupt, err)
	}
	return body, nil
}

// RemoveBlob deletes one body; a missing blob is not an error.
func (s *Store) RemoveBlob(digest string) error {
	err := os.Remove(s.blobPath(digest))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GC removes every blob the status aggregate no longer references.
// It runs at startup, before workers produce new blobs.
func (s *Store) GC(referenced map[string]bool) (removed int, err error) {
	base := filepath.Join(s.dir, resultsDir)
	entries, err := os.ReadDir(base)
	if err != nil {
		return 0, err
	}
	for _, prefix := range entries {
		if !prefix.IsDir() {
			continue
		}
		blobs, err := os.ReadDir(filepath.Join(base, prefix.Name()))
		if err != nil {
			continue
		}
		for _, blob := range blobs {
			name := blob.Name()
			if strings.HasPrefix(name, ".") || referenced[name] {
				continue
			}
			if err := os.Remove(filepath.Join(base, prefix.Name(), name)); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Info("garbage collected %d unreferenced result blobs", removed)
	}
	return removed, nil
}

// writeAtomic writes via a hidden .tmp neighbor, optionally fsyncs, then
// renames into place. On any failure the temporary file is removed.
func writeAtomic(path string, data []byte, durable bool) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err = f.Write(data); err == nil && durable {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
