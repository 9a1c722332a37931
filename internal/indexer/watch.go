package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/solatis/pickerkt/internal/core/metrics"
)

// Watch follows changes below root until ctx is cancelled: created and
// written files are upserted, removed and renamed paths are deleted, and
// new directories are scanned and watched. It does not perform an initial
// scan; call Scan first.
func (ix *Indexer) Watch(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			ix.log.Warn("failed to close watcher", zap.Error(err))
		}
	}()

	n, err := ix.addTree(watcher, root)
	if err != nil {
		return err
	}
	ix.log.Info("watching", zap.String("root", root), zap.Int("directories", n))
	metrics.IndexerWatching.Set(1)
	defer metrics.IndexerWatching.Set(0)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if err := ix.handle(ctx, watcher, event); err != nil {
				metrics.IndexerErrors.Inc()
				ix.log.Warn("failed to apply change",
					zap.String("path", event.Name), zap.Stringer("op", event.Op), zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			metrics.IndexerErrors.Inc()
			ix.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// addTree watches dir and every non-hidden directory below it.
func (ix *Indexer) addTree(watcher *fsnotify.Watcher, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			ix.log.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			metrics.IndexerErrors.Inc()
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("watch %s: %w", dir, err)
	}
	return count, nil
}

func (ix *Indexer) handle(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) error {
	if hidden(filepath.Base(event.Name)) {
		return nil
	}
	ix.log.Debug("change", zap.String("path", event.Name), zap.Stringer("op", event.Op))

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return ix.removePath(ctx, event.Name)

	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if _, err := ix.addTree(watcher, event.Name); err != nil {
				return err
			}
			// Files created before the watch was added produce no events.
			_, err := ix.Scan(ctx, event.Name)
			return err
		}
		return ix.indexPath(ctx, event.Name)

	case event.Has(fsnotify.Write):
		return ix.indexPath(ctx, event.Name)
	}
	return nil
}
