package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prasenjit/route-explorer/internal/models"
)

// FileStore implements HistoryStore with one JSON file per entry
type FileStore struct {
	mu      sync.Mutex
	logsDir string
	memory  *MemoryStore
}

// NewFileStore creates a file store rooted at basePath and loads existing
// entries from basePath/logs
func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		basePath = "./data"
	}
	logsDir := filepath.Join(basePath, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", logsDir, err)
	}

	fs := &FileStore{
		logsDir: logsDir,
		memory:  NewMemoryStore(),
	}
	if err := fs.loadAll(); err != nil {
		return nil, err
	}
	return fs, nil
}

// loadAll loads every readable entry from disk. Unreadable files are skipped.
func (f *FileStore) loadAll() error {
	entries, err := os.ReadDir(f.logsDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	loaded := make([]models.TestLogEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(f.logsDir, entry.Name()))
		if err != nil {
			continue
		}

		var e models.TestLogEntry
		if err := json.Unmarshal(data, &e); err != nil || e.ID <= 0 {
			continue
		}
		loaded = append(loaded, e)
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })
	for _, e := range loaded {
		f.memory.restore(e)
	}
	return nil
}

func (f *FileStore) entryPath(id int64) string {
	return filepath.Join(f.logsDir, strconv.FormatInt(id, 10)+".json")
}

func (f *FileStore) saveEntry(e *models.TestLogEntry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.entryPath(e.ID), data, 0644)
}

func (f *FileStore) deleteEntryFile(id int64) error {
	err := os.Remove(f.entryPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Append stores e in memory and on disk
func (f *FileStore) Append(ctx context.Context, e *models.TestLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.Append(ctx, e); err != nil {
		return err
	}
	if err := f.saveEntry(e); err != nil {
		f.memory.mu.Lock()
		f.memory.entries = f.memory.entries[:len(f.memory.entries)-1]
		f.memory.mu.Unlock()
		return fmt.Errorf("failed to write log entry %d: %w", e.ID, err)
	}
	return nil
}

// Get retrieves an entry by ID
func (f *FileStore) Get(ctx context.Context, id int64) (*models.TestLogEntry, error) {
	return f.memory.Get(ctx, id)
}

// List returns entries newest first
func (f *FileStore) List(ctx context.Context, limit, offset int) ([]*models.TestLogEntry, error) {
	return f.memory.List(ctx, limit, offset)
}

// Truncate removes every entry and its file
func (f *FileStore) Truncate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, _ := f.memory.List(ctx, 0, 0)
	if err := f.memory.Truncate(ctx); err != nil {
		return err
	}
	for _, e := range all {
		if err := f.deleteEntryFile(e.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteOlderThan removes entries created before cutoff and their files
func (f *FileStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.memory.mu.Lock()
	deleted := f.memory.deleteOlderThan(cutoff)
	f.memory.mu.Unlock()

	for _, id := range deleted {
		if err := f.deleteEntryFile(id); err != nil {
			return int64(len(deleted)), err
		}
	}
	return int64(len(deleted)), nil
}

// Stats aggregates every stored entry
func (f *FileStore) Stats(ctx context.Context, now time.Time) (*models.HistoryStats, error) {
	return f.memory.Stats(ctx, now)
}

// Close closes the store
func (f *FileStore) Close() error {
	return nil
}
