package summary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/atomicfile"
)

const fileSuffix = "_summary.txt"

// Record is one day's generated digest.
type Record struct {
	Date article.Date
	Text string
}

// Store keeps one summary file per date.
type Store struct {
	dir string
}

// NewStore creates a store in dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create summary directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file that holds the summary for d.
func (s *Store) Path(d article.Date) string {
	return filepath.Join(s.dir, d.Compact()+fileSuffix)
}

// Exists reports whether a summary for d has been written.
func (s *Store) Exists(d article.Date) (bool, error) {
	_, err := os.Stat(s.Path(d))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check summary: %w", err)
}

// Load reads the summary for d. A missing summary yields an error wrapping
// os.ErrNotExist.
func (s *Store) Load(d article.Date) (*Record, error) {
	data, err := os.ReadFile(s.Path(d))
	if err != nil {
		return nil, fmt.Errorf("failed to read summary for %s: %w", d, err)
	}
	return &Record{Date: d, Text: string(data)}, nil
}

// Save writes rec, replacing any existing summary for the same date.
func (s *Store) Save(rec Record) (string, error) {
	path := s.Path(rec.Date)
	if err := atomicfile.WriteFile(path, []byte(rec.Text), 0o600); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

// Dates returns the dates that have a summary, oldest first.
func (s *Store) Dates() ([]article.Date, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary directory: %w", err)
	}

	var dates []article.Date
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		d, err := article.ParseDate(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Compact() < dates[j].Compact()
	})
	return dates, nil
}
