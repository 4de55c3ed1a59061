// Package archive is the on-disk article store. Records live under a
// directory per publication date, one JSON file per article, with the file
// name derived from the article URL.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/atomicfile"
)

// ErrStorageUnavailable wraps any failure to write to the store. It is
// terminal for a scrape run.
var ErrStorageUnavailable = errors.New("article storage unavailable")

// Store is a collection of article records stored in a directory tree.
type Store struct {
	root string
}

// ReadError describes a failure to read a single article file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the records found by a listing, including any
// per-file errors that occurred during the operation.
type ListResult struct {
	Records []article.Record
	Paths   []string
	Errors  []ReadError
}

// NewStore creates a store rooted at root, creating the directory if it
// doesn't exist.
func NewStore(root string) (*Store, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("%w: failed to create storage directory: %v", ErrStorageUnavailable, err)
	}

	return &Store{root: root}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// DateDir returns the directory holding records published on d.
func (s *Store) DateDir(d article.Date) string {
	return filepath.Join(s.root, d.Compact())
}

// Save writes rec under its publication date and returns the file path. If
// the same URL was previously stored under a different date, the older copy
// is removed so that at most one record exists per URL. A file holding a
// different URL is never overwritten; rec goes to its alternate name
// instead.
func (s *Store) Save(rec article.Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	dir := s.DateDir(rec.PublishedDate)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: failed to create date directory: %v", ErrStorageUnavailable, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal article: %w", err)
	}

	path := slot(dir, rec.URL)
	if err := atomicfile.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	stale, err := s.copiesOf(rec.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	for _, other := range stale {
		if other == path {
			continue
		}
		if err := os.Remove(other); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("%w: failed to remove stale copy %s: %v", ErrStorageUnavailable, other, err)
		}
	}

	return path, nil
}

// Locate returns the path of the record for url, if one is stored.
func (s *Store) Locate(url string) (string, bool, error) {
	paths, err := s.copiesOf(url)
	if err != nil {
		return "", false, err
	}
	if len(paths) == 0 {
		return "", false, nil
	}
	return paths[0], true, nil
}

// slot picks the file in dir that the record for url is written to.
func slot(dir, url string) string {
	path := filepath.Join(dir, article.Filename(url))
	rec, err := readRecord(path)
	if err != nil || rec.URL == url {
		// Missing, damaged, or already ours.
		return path
	}
	return filepath.Join(dir, article.AltFilename(url))
}

// copiesOf returns every stored file whose name matches one of url's derived
// file names and whose record carries that URL.
func (s *Store) copiesOf(url string) ([]string, error) {
	var paths []string
	for _, name := range []string{article.Filename(url), article.AltFilename(url)} {
		matches, err := filepath.Glob(filepath.Join(s.root, "*", name))
		if err != nil {
			return nil, fmt.Errorf("failed to search store: %w", err)
		}

		for _, match := range matches {
			rec, err := readRecord(match)
			if err != nil {
				// A damaged file with this name still occupies the slot.
				paths = append(paths, match)
				continue
			}
			if rec.URL == url {
				paths = append(paths, match)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Dates returns the publication dates that have a directory in the store,
// oldest first.
func (s *Store) Dates() ([]article.Date, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var dates []article.Date
	for _, entry := range entries {
		if !entry.IsDir() || len(entry.Name()) != 8 {
			continue
		}
		d, err := article.ParseDate(entry.Name())
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

// ListByDate returns every record stored for d. Corrupted or invalid files
// are collected in the result's Errors slice rather than causing the entire
// operation to fail. A date with no directory yields an empty result.
func (s *Store) ListByDate(d article.Date) (*ListResult, error) {
	result := &ListResult{}
	if err := s.listDir(s.DateDir(d), result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListAll returns every record in the store, grouped by date in ascending
// order.
func (s *Store) ListAll() (*ListResult, error) {
	dates, err := s.Dates()
	if err != nil {
		return nil, err
	}

	result := &ListResult{}
	for _, d := range dates {
		if err := s.listDir(s.DateDir(d), result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) listDir(dir string, result *ListResult) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read date directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		rec, err := readRecord(path)
		if err != nil {
			result.Errors = append(result.Errors, ReadError{
				Filename: filepath.Join(filepath.Base(dir), name),
				Err:      err,
			})
			continue
		}

		result.Records = append(result.Records, *rec)
		result.Paths = append(result.Paths, path)
	}

	return nil
}

func readRecord(path string) (*article.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read article: %w", err)
	}

	var rec article.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal article: %w", err)
	}
	return &rec, nil
}
