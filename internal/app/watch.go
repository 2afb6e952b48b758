package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/specialistvlad/terrane/internal/ctxlog"
	"github.com/specialistvlad/terrane/internal/hcl"
)

// watchDebounce is how long the watcher collects further changes before
// re-running. Editors fire several events per save.
const watchDebounce = 250 * time.Millisecond

// Watch resolves the workspace, then keeps re-resolving whenever its
// files change, until the context is cancelled. Failed runs are
// reported and watched through, never fatal: the next save gets a
// fresh chance.
func (a *App) Watch(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.cfg.ServePort > 0 {
		stop := a.startServer()
		defer stop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := a.addWatches(watcher); err != nil {
		return err
	}

	a.runCycle(ctx)
	a.logger.Info("👀 Watching for workspace changes...", "path", a.cfg.ConfigPath)

	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Watch mode stopping.", "reason", ctx.Err())
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if path, relevant := a.relevantChange(watcher, event); relevant {
				pending[path] = struct{}{}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("File watcher error.", "error", err)

		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			a.logger.Info("🔄 Workspace changed, re-running.", "files", len(pending))
			pending = make(map[string]struct{})
			a.metrics.reloads.Inc()
			a.runCycle(ctx)
		}
	}
}

// runCycle is one watch-mode resolution. Failures are logged, not
// returned.
func (a *App) runCycle(ctx context.Context) {
	res, err := a.resolve(ctx)
	if err != nil {
		a.logger.Error("Run failed.", "error", err)
		return
	}
	if err := a.render(res); err != nil {
		a.logger.Error("Rendering the result failed.", "error", err)
		return
	}
	if res.Err() != nil {
		a.logger.Warn("Run finished with failures.", "failures", len(res.Failures), "skipped", len(res.Skipped))
	}
}

// addWatches registers the workspace directories plus the directories
// holding var files. Directories are watched rather than files because
// editors typically replace files on save, which would silently drop a
// per-file watch.
func (a *App) addWatches(watcher *fsnotify.Watcher) error {
	dirs := make(map[string]struct{})

	info, err := os.Stat(a.cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", a.cfg.ConfigPath, err)
	}
	if !info.IsDir() {
		dirs[filepath.Dir(a.cfg.ConfigPath)] = struct{}{}
	} else {
		err := filepath.WalkDir(a.cfg.ConfigPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != a.cfg.ConfigPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			dirs[path] = struct{}{}
			return nil
		})
		if err != nil {
			return err
		}
	}
	for _, vf := range a.cfg.VarFiles {
		dirs[filepath.Dir(vf)] = struct{}{}
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		a.logger.Debug("Watching directory.", "path", dir)
	}
	return nil
}

// relevantChange decides whether a file system event warrants a re-run,
// and registers watches on directories created under the workspace.
func (a *App) relevantChange(watcher *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}

	path := event.Name
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := watcher.Add(path); err != nil {
				a.logger.Warn("Failed to watch new directory.", "path", path, "error", err)
			} else {
				a.logger.Debug("Watching new directory.", "path", path)
			}
			return "", false
		}
	}

	if strings.HasSuffix(path, hcl.Extension) {
		return path, true
	}
	for _, vf := range a.cfg.VarFiles {
		if filepath.Clean(vf) == filepath.Clean(path) {
			return path, true
		}
	}
	return "", false
}
