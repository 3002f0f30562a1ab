package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"vantage/internal/log"
	"vantage/pkg/types"
)

// EventKind classifies a filesystem change.
type EventKind int

const (
	Added EventKind = iota
	Modified
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is one reconciled filesystem change. Snap is the zero value for
// Removed events.
type Event struct {
	Kind EventKind
	Path string
	Snap types.FileSnapshot
}

// coalesceWindow batches bursts of notifications: only the latest state
// per path within the window is forwarded, so an editor's save dance
// (write, chmod, rename) costs one invalidation instead of four.
const coalesceWindow = 50 * time.Millisecond

// Synchronizer watches the codebase and emits reconciled change events.
// A periodic rescan backs up the notification stream, so lost events
// surface within one rescan interval rather than never.
type Synchronizer struct {
	root           string
	events         chan Event
	stop           chan struct{}
	fsw            *fsnotify.Watcher
	rescanInterval time.Duration

	mu      sync.Mutex
	known   map[string]types.FileSnapshot
	pending map[string]bool // paths touched during the current window
	running bool
	wg      sync.WaitGroup
}

// NewSynchronizer scans the codebase and prepares the watcher. The
// returned initial snapshot map is the model's starting state; Start
// begins event delivery.
func NewSynchronizer(root string, rescanInterval time.Duration) (*Synchronizer, map[string]types.FileSnapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	initial, err := Scan(absRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning codebase: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if rescanInterval <= 0 {
		rescanInterval = 10 * time.Second
	}
	s := &Synchronizer{
		root:           absRoot,
		events:         make(chan Event, 256),
		stop:           make(chan struct{}),
		fsw:            fsw,
		rescanInterval: rescanInterval,
		known:          initial,
		pending:        make(map[string]bool),
	}
	if err := s.watchTree(absRoot); err != nil {
		fsw.Close()
		return nil, nil, err
	}
	snaps := make(map[string]types.FileSnapshot, len(initial))
	for k, v := range initial {
		snaps[k] = v
	}
	return s, snaps, nil
}

// watchTree adds fsnotify watches for root and every non-hidden
// subdirectory; fsnotify itself is not recursive.
func (s *Synchronizer) watchTree(dir string) error {
	if err := s.fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := s.watchTree(filepath.Join(dir, entry.Name())); err != nil {
			log.Debug("watch add failed: %v", err)
		}
	}
	return nil
}

// Events returns the reconciled change stream.
func (s *Synchronizer) Events() <-chan Event {
	return s.events
}

// Start begins watching. It may be called once.
func (s *Synchronizer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("synchronizer already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop ends watching and closes the event channel.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()
	close(s.stop)
	s.fsw.Close()
	s.wg.Wait()
	close(s.events)
}

func (s *Synchronizer) loop() {
	defer s.wg.Done()
	flush := time.NewTicker(coalesceWindow)
	defer flush.Stop()
	rescan := time.NewTicker(s.rescanInterval)
	defer rescan.Stop()

	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			s.onRawEvent(ev)
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("fsnotify: %v", err)
		case <-flush.C:
			s.flushPending()
		case <-rescan.C:
			s.Rescan()
		}
	}
}

// onRawEvent records that a path changed; reconciliation happens at the
// next window flush so bursts collapse to the final state.
func (s *Synchronizer) onRawEvent(ev fsnotify.Event) {
	rel, ok := s.relative(ev.Name)
	if !ok {
		return
	}
	// A new directory must be watched immediately or events inside it
	// are lost until the next rescan.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			s.watchTree(ev.Name)
			s.markTree(ev.Name)
			return
		}
	}
	s.mu.Lock()
	s.pending[rel] = true
	s.mu.Unlock()
}

// markTree marks every file under dir as pending, for directories that
// appear fully formed (e.g. a move into the codebase).
func (s *Synchronizer) markTree(dir string) {
	snaps, err := Scan(dir)
	if err != nil {
		return
	}
	prefix, ok := s.relative(dir)
	if !ok {
		return
	}
	s.mu.Lock()
	for rel := range snaps {
		s.pending[prefix+"/"+rel] = true
	}
	s.mu.Unlock()
}

// relative converts an absolute path to the codebase-relative form,
// rejecting excluded paths (dotfiles and the cache directory).
func (s *Synchronizer) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || Excluded(rel) {
		return "", false
	}
	return rel, true
}

// flushPending reconciles every path touched in the last window against
// the filesystem, emitting at most one event per path.
func (s *Synchronizer) flushPending() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	touched := s.pending
	s.pending = make(map[string]bool)
	s.mu.Unlock()

	for rel := range touched {
		s.reconcile(rel)
	}
}

// reconcile compares the live state of one path with the known snapshot
// and emits the appropriate event.
func (s *Synchronizer) reconcile(rel string) {
	snap, err := TakeSnapshot(s.root, rel)

	s.mu.Lock()
	old, existed := s.known[rel]
	switch {
	case err != nil && existed:
		delete(s.known, rel)
		s.mu.Unlock()
		s.emit(Event{Kind: Removed, Path: rel})
		return
	case err != nil:
		s.mu.Unlock()
		return
	case snap.Mode&0o170000 != 0o100000: // not a regular file
		if existed {
			delete(s.known, rel)
			s.mu.Unlock()
			s.emit(Event{Kind: Removed, Path: rel})
			return
		}
		s.mu.Unlock()
		return
	case !existed:
		s.known[rel] = snap
		s.mu.Unlock()
		s.emit(Event{Kind: Added, Path: rel, Snap: snap})
		return
	case !old.Same(snap):
		s.known[rel] = snap
		s.mu.Unlock()
		s.emit(Event{Kind: Modified, Path: rel, Snap: snap})
		return
	}
	s.mu.Unlock()
}

// Rescan walks the whole codebase and reconciles any drift against the
// known set. It is the safety net for lost notifications.
func (s *Synchronizer) Rescan() {
	current, err := Scan(s.root)
	if err != nil {
		log.Warn("rescan failed: %v", err)
		return
	}
	s.mu.Lock()
	var added, modified, removed []string
	for rel, snap := range current {
		old, ok := s.known[rel]
		if !ok {
			added = append(added, rel)
		} else if !old.Same(snap) {
			modified = append(modified, rel)
		}
	}
	for rel := range s.known {
		if _, ok := current[rel]; !ok {
			removed = append(removed, rel)
		}
	}
	s.known = current
	s.mu.Unlock()

	for _, rel := range added {
		s.emit(Event{Kind: Added, Path: rel, Snap: current[rel]})
	}
	for _, rel := range modified {
		s.emit(Event{Kind: Modified, Path: rel, Snap: current[rel]})
	}
	for _, rel := range removed {
		s.emit(Event{Kind: Removed, Path: rel})
	}
}

func (s *Synchronizer) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.stop:
	}
}
