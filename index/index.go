// Package index records which article URLs have already been fetched.
//
// The index is consulted before every fetch and updated after every
// successful save. Each Record call is durable on return. A backing store
// that cannot be read is a fatal error: treating it as empty would re-fetch
// every article from a rate-limited source.
package index

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned when the backing store exists but cannot be
// decoded.
var ErrCorrupt = errors.New("index is corrupt")

// Index is a durable set of processed article URLs.
type Index interface {
	// Contains reports whether url has been recorded. It has no side
	// effects.
	Contains(url string) (bool, error)
	// Record adds url. Recording a URL that is already present is a
	// no-op.
	Record(url string) error
	// Len returns the number of recorded URLs.
	Len() (int, error)
	// URLs returns every recorded URL in lexical order.
	URLs() ([]string, error)
	Close() error
}

// Index backend types.
const (
	TypeJSON   = "json"
	TypeSQLite = "sqlite"
)

// Config selects and locates the backing store.
type Config struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// Open returns the index described by cfg. An empty type selects the JSON
// file backend.
func Open(cfg Config) (Index, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("index dsn is required")
	}

	switch cfg.Type {
	case "", TypeJSON:
		idx, err := OpenFile(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case TypeSQLite:
		idx, err := OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type %q (valid: %s, %s)", cfg.Type, TypeJSON, TypeSQLite)
	}
}
