// Package indexer keeps the media index in sync with directories on disk.
//
// Scan walks a directory tree once, upserting every file whose extension maps
// to a known MIME type and removing index entries whose files are gone.
// Watch follows changes with fsnotify until its context is cancelled.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/pickerkt/internal/core/metrics"
	"github.com/solatis/pickerkt/internal/types"
)

// defaultWorkers bounds concurrent upserts during a scan. SQLite serializes
// writers, so more workers only add lock contention.
const defaultWorkers = 4

// Store is the part of the media index the indexer writes to.
type Store interface {
	Upsert(ctx context.Context, path string, c types.Content) (int64, error)
	DeleteByPath(ctx context.Context, path string) (bool, error)
	DeleteUnder(ctx context.Context, dir string) (int64, error)
	PathsUnder(ctx context.Context, dir string) ([]string, error)
}

// Result summarizes one scan.
type Result struct {
	Indexed int
	Removed int
	Skipped int
}

// Indexer writes filesystem state into a Store.
type Indexer struct {
	store   Store
	log     *zap.Logger
	workers int
	now     func() time.Time
}

// New returns an indexer writing to store.
func New(store Store, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		store:   store,
		log:     log.Named("indexer"),
		workers: defaultWorkers,
		now:     time.Now,
	}
}

// SetWorkers sets how many files are upserted concurrently during a scan.
func (ix *Indexer) SetWorkers(n int) {
	if n > 0 {
		ix.workers = n
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// contentFor describes the file at path, or reports false when its
// extension is not a known MIME type.
func (ix *Indexer) contentFor(path string, info fs.FileInfo) (types.Content, bool) {
	mime := types.MimeTypeOfExtension(filepath.Ext(path))
	if !mime.Known() {
		return types.Content{}, false
	}
	dir := filepath.Dir(path)
	return types.Content{
		Name:           info.Name(),
		MimeType:       mime,
		Size:           types.ByteSize(info.Size()),
		DateAdded:      ix.now(),
		DateModified:   info.ModTime(),
		CollectionID:   strconv.FormatInt(types.BucketID(dir), 10),
		CollectionName: filepath.Base(dir),
	}, true
}

// Scan indexes every media file below root and removes index entries below
// root whose files no longer exist.
func (ix *Indexer) Scan(ctx context.Context, root string) (Result, error) {
	start := time.Now()
	root, err := filepath.Abs(root)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", root, err)
	}

	type candidate struct {
		path string
		info fs.FileInfo
	}
	var (
		candidates []candidate
		result     Result
	)
	seen := make(map[string]struct{})

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			ix.log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			metrics.IndexerErrors.Inc()
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !types.MimeTypeOfExtension(filepath.Ext(path)).Known() {
			result.Skipped++
			return nil
		}
		seen[path] = struct{}{}
		candidates = append(candidates, candidate{path: path, info: info})
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", root, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for _, c := range candidates {
		g.Go(func() error {
			return ix.index(gctx, c.path, c.info)
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	result.Indexed = len(candidates)

	indexed, err := ix.store.PathsUnder(ctx, root)
	if err != nil {
		return result, err
	}
	for _, path := range indexed {
		if _, ok := seen[path]; ok {
			continue
		}
		removed, err := ix.store.DeleteByPath(ctx, path)
		if err != nil {
			return result, err
		}
		if removed {
			result.Removed++
			metrics.IndexerFilesRemoved.Inc()
		}
	}

	elapsed := time.Since(start)
	metrics.IndexerLastScanDuration.Set(elapsed.Seconds())
	ix.log.Info("scan complete",
		zap.String("root", root),
		zap.Int("indexed", result.Indexed),
		zap.Int("removed", result.Removed),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

func (ix *Indexer) index(ctx context.Context, path string, info fs.FileInfo) error {
	c, ok := ix.contentFor(path, info)
	if !ok {
		return nil
	}
	if _, err := ix.store.Upsert(ctx, path, c); err != nil {
		metrics.IndexerErrors.Inc()
		return err
	}
	metrics.IndexerFilesIndexed.Inc()
	return nil
}

// indexPath indexes the regular file at path, ignoring anything else.
func (ix *Indexer) indexPath(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	return ix.index(ctx, path, info)
}

// removePath removes path from the index. A path with no entry of its own
// is treated as a directory and everything below it is removed.
func (ix *Indexer) removePath(ctx context.Context, path string) error {
	removed, err := ix.store.DeleteByPath(ctx, path)
	if err != nil {
		return err
	}
	if removed {
		metrics.IndexerFilesRemoved.Inc()
		return nil
	}
	n, err := ix.store.DeleteUnder(ctx, path)
	if err != nil {
		return err
	}
	metrics.IndexerFilesRemoved.Add(float64(n))
	return nil
}
