package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteIndex stores processed URLs in a single-table SQLite database.
type SQLiteIndex struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.initSchema(); err != nil {
		db.Close()
		if isCorruption(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, dbPath, err)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return idx, nil
}

// initSchema creates the processed table if it doesn't exist.
func (s *SQLiteIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed (
		url TEXT PRIMARY KEY,
		recorded_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteIndex) Contains(url string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM processed WHERE url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query index: %w", err)
	}
	return true, nil
}

func (s *SQLiteIndex) Record(url string) error {
	if url == "" {
		return fmt.Errorf("cannot record empty URL")
	}

	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO processed (url, recorded_at) VALUES (?, ?)",
		url, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record URL: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM processed").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count index: %w", err)
	}
	return n, nil
}

func (s *SQLiteIndex) URLs() ([]string, error) {
	rows, err := s.db.Query("SELECT url FROM processed ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("failed to list index: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func isCorruption(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not a database") || strings.Contains(msg, "malformed")
}
