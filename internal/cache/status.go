package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"vantage/internal/errors"
	"vantage/internal/log"
	"vantage/pkg/types"
)

// statusVersion is the aggregate schema tag; bump on incompatible change.
const statusVersion = 1

// checksumSize is the blake3 trailer appended to the encoded aggregate.
const checksumSize = 32

// EntryState is the persisted summary of one (path, tool) report.
type EntryState struct {
	Key        types.SnapshotKey `cbor:"1,keyasint"`
	Status     types.Status      `cbor:"2,keyasint"`
	BodyDigest string            `cbor:"3,keyasint,omitempty"`
}

// AppState is the UI state restored on the next launch.
type AppState struct {
	CursorRow  int  `cbor:"1,keyasint"`
	CursorCol  int  `cbor:"2,keyasint"`
	SortByType bool `cbor:"3,keyasint"`
	Portrait   bool `cbor:"4,keyasint"`
	Paused     bool `cbor:"5,keyasint"`
	LogVisible bool `cbor:"6,keyasint"`
}

// Aggregate maps every entry to its latest status and body reference. It
// is the single record that makes restart near-instant: loading it
// repopulates the grid before any tool runs.
type Aggregate struct {
	Version int                              `cbor:"1,keyasint"`
	Entries map[string]map[string]EntryState `cbor:"2,keyasint"`
	App     AppState                         `cbor:"3,keyasint"`
}

// NewAggregate returns an empty aggregate at the current version.
func NewAggregate() *Aggregate {
	return &Aggregate{Version: statusVersion, Entries: map[string]map[string]EntryState{}}
}

// Set records the state of one entry.
func (a *Aggregate) Set(path, tool string, st EntryState) {
	byTool, ok := a.Entries[path]
	if !ok {
		byTool = map[string]EntryState{}
		a.Entries[path] = byTool
	}
	byTool[tool] = st
}

// Get looks up one entry.
func (a *Aggregate) Get(path, tool string) (EntryState, bool) {
	st, ok := a.Entries[path][tool]
	return st, ok
}

// Remove drops every entry for a path.
func (a *Aggregate) Remove(path string) {
	delete(a.Entries, path)
}

// ReferencedDigests collects the body digests still reachable from the
// aggregate, the liveness set for GC.
func (a *Aggregate) ReferencedDigests() map[string]bool {
	refs := map[string]bool{}
	for _, byTool := range a.Entries {
		for _, st := range byTool {
			if st.BodyDigest != "" {
				refs[st.BodyDigest] = true
			}
		}
	}
	return refs
}

// SaveStatus atomically replaces status.db with the encoded aggregate
// followed by a blake3 checksum trailer.
func (s *Store) SaveStatus(a *Aggregate) error {
	if err := s.guard(); err != nil {
		return err
	}
	encoded, err := cbor.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding status aggregate: %w", err)
	}
	sum := blake3.Sum256(encoded)
	encoded = append(encoded, sum[:]...)
	return writeAtomic(filepath.Join(s.dir, statusFile), encoded, true)
}

// LoadStatus reads status.db. A missing, torn or mismatching file yields
// an empty aggregate and ErrCacheCorrupt (missing files yield no error):
// the caller falls back to a full rescan either way.
func (s *Store) LoadStatus() (*Aggregate, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, statusFile))
	if os.IsNotExist(err) {
		return NewAggregate(), nil
	}
	if err != nil {
		return NewAggregate(), errors.NewCacheError("status.db unreadable", errors.CacheCorrupt, err)
	}
	if len(raw) < checksumSize {
		return NewAggregate(), errors.NewCacheError("status.db truncated", errors.CacheCorrupt, nil)
	}
	body, trailer := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	sum := blake3.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return NewAggregate(), errors.NewCacheError("status.db checksum mismatch", errors.CacheCorrupt, nil)
	}
	var a Aggregate
	if err := cbor.Unmarshal(body, &a); err != nil {
		return NewAggregate(), errors.NewCacheError("status.db undecodable", errors.CacheCorrupt, err)
	}
	if a.Version != statusVersion {
		return NewAggregate(), errors.NewCacheError("status.db version unsupported", errors.CacheCorrupt, nil)
	}
	if a.Entries == nil {
		a.Entries = map[string]map[string]EntryState{}
	}
	return &a, nil
}

// Saver debounces aggregate writes: Mark schedules a save at least
// minInterval after the previous one, Flush forces a pending save through
// on shutdown.
type Saver struct {
	store       *Store
	minInterval time.Duration

	mu       sync.Mutex
	lastSave time.Time
	dirty    bool
}

// NewSaver wraps a store with a write debouncer.
func NewSaver(store *Store, minInterval time.Duration) *Saver {
	return &Saver{store: store, minInterval: minInterval}
}

// Mark notes a change; the aggregate is written when the debounce window
// has passed. Returns true when a save happened.
func (sv *Saver) Mark(a *Aggregate) bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.dirty = true
	if time.Since(sv.lastSave) < sv.minInterval {
		return false
	}
	sv.saveLocked(a)
	return true
}

// Flush writes the aggregate if anything changed since the last save.
func (sv *Saver) Flush(a *Aggregate) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.dirty {
		sv.saveLocked(a)
	}
}

func (sv *Saver) saveLocked(a *Aggregate) {
	if err := sv.store.SaveStatus(a); err != nil {
		log.Error("saving status aggregate", err)
		return
	}
	sv.dirty = false
	sv.lastSave = time.Now()
}
