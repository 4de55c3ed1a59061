package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pevans/newsdigest/atomicfile"
)

// FileIndex keeps the index as a single JSON object mapping each URL to the
// time it was recorded. The whole file is rewritten atomically on every new
// URL.
type FileIndex struct {
	path    string
	mu      sync.Mutex
	entries map[string]string
	now     func() time.Time
}

// OpenFile loads the index at path. A missing file is an empty index; a file
// that cannot be read or decoded is an error.
func OpenFile(path string) (*FileIndex, error) {
	idx := &FileIndex{
		path:    path,
		entries: make(map[string]string),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &idx.entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if idx.entries == nil {
		// The file held a JSON null.
		return nil, fmt.Errorf("%w: %s: expected an object", ErrCorrupt, path)
	}
	for url := range idx.entries {
		if url == "" {
			return nil, fmt.Errorf("%w: %s: empty URL key", ErrCorrupt, path)
		}
	}

	return idx, nil
}

func (f *FileIndex) Contains(url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.entries[url]
	return ok, nil
}

func (f *FileIndex) Record(url string) error {
	if url == "" {
		return fmt.Errorf("cannot record empty URL")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[url]; ok {
		return nil
	}

	f.entries[url] = f.now().UTC().Format(time.RFC3339)
	if err := f.persist(); err != nil {
		delete(f.entries, url)
		return err
	}

	return nil
}

func (f *FileIndex) Len() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.entries), nil
}

func (f *FileIndex) URLs() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	urls := make([]string, 0, len(f.entries))
	for url := range f.entries {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls, nil
}

func (f *FileIndex) Close() error {
	return nil
}

// persist must be called with f.mu held.
func (f *FileIndex) persist() error {
	data, err := json.MarshalIndent(f.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := atomicfile.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}
