// Package browsertest provides an in-memory Browser for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pevans/newsdigest/browser"
)

// Static serves canned pages keyed by URL and records every URL opened.
// A URL with no page yields a 404 page.
type Static struct {
	mu     sync.Mutex
	pages  map[string]*browser.Page
	errs   map[string]error
	opened []string
	closed bool
}

var _ browser.Browser = (*Static)(nil)

// New returns an empty Static browser.
func New() *Static {
	return &Static{
		pages: make(map[string]*browser.Page),
		errs:  make(map[string]error),
	}
}

// Serve registers html as the page at url with status 200.
func (s *Static) Serve(url, html string) *Static {
	return s.ServeStatus(url, 200, html)
}

// ServeStatus registers a page with an explicit status.
func (s *Static) ServeStatus(url string, status int, html string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = &browser.Page{URL: url, Status: status, HTML: html}
	return s
}

// Fail makes opening url return err.
func (s *Static) Fail(url string, err error) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[url] = err
	return s
}

// Open implements browser.Browser.
func (s *Static) Open(ctx context.Context, url string, _ int) (*browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("browser is closed")
	}
	s.opened = append(s.opened, url)

	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if page, ok := s.pages[url]; ok {
		p := *page
		return &p, nil
	}
	return &browser.Page{URL: url, Status: 404, HTML: "<html><head><title>Not Found</title></head><body></body></html>"}, nil
}

// Opened returns the URLs opened so far, in order.
func (s *Static) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

// Close implements browser.Browser.
func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
