package tui

import (
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"vantage/internal/cache"
	"vantage/internal/config"
	"vantage/internal/engine"
	"vantage/internal/errors"
	"vantage/internal/log"
	"vantage/internal/tools"
	"vantage/internal/watch"
)

// saveDebounce is the minimum interval between status.db writes.
const saveDebounce = time.Second

// Run wires the full pipeline for one codebase and blocks until the user
// quits: cache, scanner, watcher, engine, presenter.
func Run(cfg *config.Config, root string, appBuildTime time.Time) error {
	// Pin the color profile up front so the chrome degrades consistently
	// on terminals without truecolor.
	lipgloss.SetColorProfile(termenv.ColorProfile())

	store, err := cache.Open(root, cfg.Cache.Compression, appBuildTime)
	if err != nil {
		return err
	}
	// The terminal belongs to the presenter; file logging only. When even
	// the cache log cannot open, output stays discarded (the ring still
	// feeds the log pane).
	if cfg.Log.File == "" {
		_ = log.ToFile(store.LogPath())
	}

	agg, err := store.LoadStatus()
	if err != nil {
		// A corrupt aggregate only costs the cached reports.
		if errors.KindOf(err) == errors.CacheCorrupt {
			log.Warn("cache status unusable, starting cold: %v", err)
		} else {
			return err
		}
	}
	if removed, err := store.GC(agg.ReferencedDigests()); err != nil {
		log.Warn("cache GC: %v", err)
	} else if removed > 0 {
		log.Info("cache GC removed %d stale blobs", removed)
	}

	reg := tools.NewRegistry(cfg.Theme.Name)

	sync, initial, err := watch.NewSynchronizer(root, cfg.RescanInterval())
	if err != nil {
		return err
	}
	if err := sync.Start(); err != nil {
		return err
	}
	defer sync.Stop()

	eng := engine.New(root, cfg.Theme.Name, cfg.Workers)
	eng.Start()
	defer eng.Stop()

	model := New(Options{
		Config:   cfg,
		Root:     root,
		Registry: reg,
		Sched:    eng,
		Store:    store,
		Agg:      agg,
		Saver:    cache.NewSaver(store, saveDebounce),
		Ring:     log.NewRing(200),
		Events:   sync.Events(),
		Results:  eng.Completions(),
		Starts:   eng.Starts(),
		LSColors: os.Getenv("LS_COLORS"),
		Initial:  initial,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()

	model.saver.Flush(model.agg)
	return err
}
