package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FileStore keeps each write as a timestamped file named <key>_<unixms>.json
// and reads back the newest one. At most maxFiles files are kept per key.
type FileStore struct {
	dir      string
	maxFiles int
}

// NewFileStore creates a FileStore rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string, maxFiles int) *FileStore {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &FileStore{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Put saves data to a timestamped file and prunes old files beyond maxFiles.
func (c *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validFileKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	ts := now()
	path := filepath.Join(c.dir, fmt.Sprintf("%s_%d.json", key, ts))

	// Write then rename so readers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}

	return c.prune(key)
}

// Get reads the newest file for key.
func (c *FileStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	if err := validFileKey(key); err != nil {
		return Entry{}, false, err
	}

	files, err := c.listFiles(key)
	if err != nil {
		return Entry{}, false, err
	}
	if len(files) == 0 {
		return Entry{}, false, nil
	}

	// Files are sorted oldest first; take the last one.
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading cache file: %w", err)
	}

	return Entry{Key: key, Data: data, Timestamp: latest.ts.UnixMilli()}, true, nil
}

func (c *FileStore) Close() error { return nil }

type cacheFile struct {
	name string
	ts   time.Time
}

func (c *FileStore) listFiles(key string) ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	prefix := key + "_"
	var files []cacheFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		// Extract unix millis from filename.
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		ms, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, ts: time.UnixMilli(ms)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})

	return files, nil
}

func (c *FileStore) prune(key string) error {
	files, err := c.listFiles(key)
	if err != nil {
		return err
	}

	if len(files) <= c.maxFiles {
		return nil
	}

	// Remove oldest files.
	toRemove := files[:len(files)-c.maxFiles]
	for _, f := range toRemove {
		path := filepath.Join(c.dir, f.name)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("pruning cache file %s: %w", f.name, err)
		}
	}

	return nil
}

func validFileKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}
