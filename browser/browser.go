// Package browser drives the headless browser that renders pages for the
// scraper, and manages the session state that keeps it signed in.
package browser

import (
	"context"
	"time"
)

// Page is a rendered page.
type Page struct {
	// URL is the final URL after redirects.
	URL string
	// Status is the HTTP status of the main document, or 0 when the browser
	// did not report one.
	Status int
	HTML   string
}

// Browser opens pages one at a time in a shared, authenticated context.
type Browser interface {
	// Open navigates to url, waits for the page to settle, scrolls to the
	// bottom scrolls times to trigger lazy loading and returns the rendered
	// document.
	Open(ctx context.Context, url string, scrolls int) (*Page, error)
	Close() error
}

// Options configure a Chrome instance.
type Options struct {
	Headless    bool
	UserAgent   string
	Width       int
	Height      int
	ExecPath    string
	Timeout     time.Duration // per page
	SettleDelay time.Duration // after load and after each scroll
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Headless:    true,
		UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Width:       1920,
		Height:      1080,
		Timeout:     120 * time.Second,
		SettleDelay: 2 * time.Second,
	}
}
