package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pevans/newsdigest/atomicfile"
)

var (
	// ErrNoSession is returned when no session state has been configured.
	ErrNoSession = errors.New("no session state configured")
	// ErrInvalidSession is returned when the session state cannot be used.
	ErrInvalidSession = errors.New("invalid session state")
)

// Session is the saved authentication state of a browser. The JSON layout is
// the storage-state format written by Playwright, so state captured by either
// tool can be used by the other.
type Session struct {
	Cookies []Cookie `json:"cookies"`
	Origins []Origin `json:"origins"`
}

// Cookie is a browser cookie. Expires is seconds since the epoch, or -1 for
// a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Origin holds the local storage of one origin.
type Origin struct {
	Origin       string         `json:"origin"`
	LocalStorage []StorageEntry `json:"localStorage"`
}

// StorageEntry is a single local storage item.
type StorageEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseSession decodes session state.
func ParseSession(data []byte) (*Session, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrNoSession
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if len(s.Cookies) == 0 {
		return nil, fmt.Errorf("%w: no cookies", ErrInvalidSession)
	}
	for i, c := range s.Cookies {
		if c.Name == "" || c.Domain == "" {
			return nil, fmt.Errorf("%w: cookie %d has no name or domain", ErrInvalidSession, i)
		}
	}

	return &s, nil
}

// LoadSession returns the session from blob when it is set, otherwise from
// the file at path.
func LoadSession(blob, path string) (*Session, error) {
	if strings.TrimSpace(blob) != "" {
		return ParseSession([]byte(blob))
	}
	if path == "" {
		return nil, ErrNoSession
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNoSession, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	return ParseSession(data)
}

// Save writes the session to path, readable only by the owner.
func (s *Session) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return atomicfile.WriteFile(path, data, 0o600)
}

// Expired reports whether every persistent cookie in the session has
// expired by now. Session cookies never count as expired.
func (s *Session) Expired(now time.Time) bool {
	persistent := 0
	for _, c := range s.Cookies {
		if c.Expires <= 0 {
			return false
		}
		persistent++
		if time.Unix(int64(c.Expires), 0).After(now) {
			return false
		}
	}
	return persistent > 0
}
