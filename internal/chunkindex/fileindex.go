package chunkindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// indexRecord is the per-document shape inside the engine's index file.
// Fields beyond chunk_ids are engine-internal and ignored here.
type indexRecord struct {
	ChunkIDs []string `json:"chunk_ids"`
}

// FileIndex reads the engine's JSON index file.
//
// The file is parsed once and cached; a watcher invalidates the cache when the
// engine rewrites the file, so readers pick up new ingestions without
// re-parsing on every lookup. Concurrent reads share the cached snapshot.
type FileIndex struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	snapshot map[string][]string
	loaded   bool

	watcher *fsnotify.Watcher
	done    chan struct{}
	closeMu sync.Once
}

// NewFileIndex creates a FileIndex over the engine's index file at path.
//
// The file may not exist yet (engine has ingested nothing); lookups then
// report ErrNotIndexed until it appears.
func NewFileIndex(path string, logger *zap.Logger) (*FileIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: index path required", ErrStorageUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	idx := &FileIndex{
		path:   path,
		logger: logger,
		done:   make(chan struct{}),
	}
	return idx, nil
}

// Watch starts watching the index file for rewrites, invalidating the cached
// snapshot on change. Safe to skip in tests; lookups then read the file once
// and serve the cached state.
func (f *FileIndex) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating index watcher: %w", err)
	}
	if err := watcher.Add(f.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", f.path, err)
	}
	f.watcher = watcher

	go func() {
		for {
			select {
			case <-f.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					f.invalidate()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("chunk index watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// Close stops the watcher.
func (f *FileIndex) Close() error {
	var err error
	f.closeMu.Do(func() {
		close(f.done)
		if f.watcher != nil {
			err = f.watcher.Close()
		}
	})
	return err
}

// Invalidate drops the cached snapshot, forcing a re-read on next access.
func (f *FileIndex) Invalidate() {
	f.invalidate()
}

func (f *FileIndex) invalidate() {
	f.mu.Lock()
	f.loaded = false
	f.snapshot = nil
	f.mu.Unlock()
	f.logger.Debug("chunk index snapshot invalidated", zap.String("path", f.path))
}

// ensureLoaded parses the index file into the cached snapshot if needed.
func (f *FileIndex) ensureLoaded(ctx context.Context) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	if f.loaded {
		snap := f.snapshot
		f.mu.RUnlock()
		return snap, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return f.snapshot, nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Engine has written nothing yet. Valid empty index.
			f.snapshot = map[string][]string{}
			f.loaded = true
			return f.snapshot, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorageUnavailable, f.path, err)
	}

	records := map[string]indexRecord{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrStorageUnavailable, f.path, err)
	}

	snapshot := make(map[string][]string, len(records))
	for internalID, rec := range records {
		ids := make([]string, len(rec.ChunkIDs))
		copy(ids, rec.ChunkIDs)
		snapshot[internalID] = ids
	}

	f.snapshot = snapshot
	f.loaded = true
	f.logger.Debug("chunk index snapshot loaded",
		zap.String("path", f.path),
		zap.Int("documents", len(snapshot)),
	)
	return snapshot, nil
}

// GetChunkIDs returns the chunk ids recorded for internalID.
func (f *FileIndex) GetChunkIDs(ctx context.Context, internalID string) ([]string, error) {
	snap, err := f.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	ids, ok := snap[internalID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, internalID)
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// Has reports whether internalID is present in the index.
func (f *FileIndex) Has(ctx context.Context, internalID string) (bool, error) {
	snap, err := f.ensureLoaded(ctx)
	if err != nil {
		return false, err
	}
	_, ok := snap[internalID]
	return ok, nil
}

// InternalIDs returns all indexed internal ids, sorted.
func (f *FileIndex) InternalIDs(ctx context.Context) ([]string, error) {
	snap, err := f.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var (
	_ Index       = (*FileIndex)(nil)
	_ Snapshotter = (*FileIndex)(nil)
)
