// File path: internal/watcher/watcher.go
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/data/orchestrator"
	"github.com/contentlake/contentlake/internal/manifest"
)

// Config controls how file events are coalesced into rebuilds.
type Config struct {
	Debounce time.Duration
}

func applyDefaults(cfg Config) Config {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	return cfg
}

// Watcher observes the activity log trees and keeps the manifest and
// indexes current. Writes to *.jsonl files under sources/ and
// artifacts/ schedule an incremental rebuild; bursts of writes within
// the debounce window collapse into one.
type Watcher struct {
	orch     *orchestrator.Orchestrator
	cfg      Config
	notifier *fsnotify.Watcher

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	running bool

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func New(orch *orchestrator.Orchestrator, cfg Config) (*Watcher, error) {
	if orch == nil {
		return nil, errors.New("watcher: orchestrator required")
	}
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{
		orch:     orch,
		cfg:      applyDefaults(cfg),
		notifier: notifier,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	layout := orch.Layout()
	for _, root := range []string{layout.SourcesDir(), layout.ArtifactsDir()} {
		if err := w.addTree(root); err != nil {
			notifier.Close()
			return nil, err
		}
	}
	return w, nil
}

// addTree registers root and every directory below it, skipping the
// derived trees so index and enhancement writes never feed back into
// another rebuild.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") || base == "enhancements" || base == "indexes" {
			return filepath.SkipDir
		}
		if err := w.notifier.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// WatchedDirs reports the directories currently under observation.
func (w *Watcher) WatchedDirs() []string {
	return w.notifier.WatchList()
}

// Start launches the event loop. It returns immediately; Stop or
// context cancellation ends the loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	common.Logger().Info("watcher: started", "dirs", len(w.WatchedDirs()), "debounce", w.cfg.Debounce)
	go w.loop(ctx)
	return nil
}

// Stop ends the event loop and waits for it to drain. Safe to call even
// when Start never ran.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.notifier.Close()
	})
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if running {
		<-w.doneChan
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneChan)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.notifier.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.notifier.Errors:
			if !ok {
				return
			}
			common.Logger().Error("watcher: notify error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	// New platform directories join the watch set so logs created
	// after startup still trigger rebuilds.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				common.Logger().Warn("watcher: add directory failed", "path", event.Name, "error", err)
			}
			return
		}
	}
	if strings.ToLower(filepath.Ext(event.Name)) != ".jsonl" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	if w.timer == nil {
		w.timer = time.AfterFunc(w.cfg.Debounce, func() { w.rebuild(ctx) })
	} else {
		w.timer.Reset(w.cfg.Debounce)
	}
}

// Rebuild runs an incremental manifest build followed by an index
// refresh, recording the outcome in the run catalog.
func (w *Watcher) Rebuild(ctx context.Context) error {
	result, err := w.orch.Manifest().Build(ctx, false)
	if err == nil {
		_, _, err = manifest.RefreshIndexes(w.orch.Layout())
	}
	detail := map[string]any{"trigger": "file_event"}
	if result != nil {
		detail["added"] = result.Added
		detail["total"] = result.Manifest.TotalActivities
	}
	w.orch.RecordRun(ctx, "watch_build", detail, err)
	if err != nil {
		return fmt.Errorf("rebuild after file event: %w", err)
	}
	common.Logger().Info("watcher: rebuilt", "added", result.Added, "total", result.Manifest.TotalActivities)
	return nil
}

func (w *Watcher) rebuild(ctx context.Context) {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	select {
	case <-w.stopChan:
		return
	case <-ctx.Done():
		return
	default:
	}
	if err := w.Rebuild(ctx); err != nil {
		common.Logger().Error("watcher: rebuild failed", "error", err)
	}
}
