// Package fetcher turns article URLs into article records using an
// authenticated browser, and enumerates the candidate URLs of a run.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/browser"
	"github.com/pevans/newsdigest/discovery"
	"github.com/pevans/newsdigest/scraper"
)

// Options tune a Fetcher.
type Options struct {
	// Location is the zone publication times are converted to before the
	// partition date is taken.
	Location *time.Location
	// Scrolls is the number of scroll passes on the listing page.
	Scrolls int
	// SaveHTMLDir, when set, receives the listing page and the first
	// article page for debugging selectors.
	SaveHTMLDir string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Fetcher fetches one article at a time through a Browser.
type Fetcher struct {
	browser browser.Browser
	site    scraper.SiteConfig
	opts    Options
	logger  *slog.Logger

	savedArticle bool
}

// New creates a fetcher.
func New(b browser.Browser, site scraper.SiteConfig, opts Options) *Fetcher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		browser: b,
		site:    site,
		opts:    opts,
		logger:  logger,
	}
}

// CheckSession opens the site's home page and returns ErrNotAuthenticated
// when it offers login or subscribe controls.
func (f *Fetcher) CheckSession(ctx context.Context) error {
	if f.site.HomeURL == "" {
		return nil
	}

	page, err := f.browser.Open(ctx, f.site.HomeURL, 0)
	if err != nil {
		return fmt.Errorf("failed to open home page: %w", err)
	}
	if page.Status >= 400 {
		return fmt.Errorf("home page returned HTTP %d", page.Status)
	}

	doc, err := parse(page.HTML)
	if err != nil {
		return err
	}
	if discovery.ShowsLoginControls(doc, f.site.Auth) {
		return fail(ErrNotAuthenticated, f.site.HomeURL, "home page shows login controls")
	}

	return nil
}

// Candidates enumerates the article links currently listed by the site.
func (f *Fetcher) Candidates(ctx context.Context) ([]discovery.Candidate, error) {
	if f.site.DiscoveryMode == scraper.ModeFeed {
		feed, err := discovery.FetchFeed(ctx, f.site.FeedURL)
		if err != nil {
			return nil, err
		}
		return discovery.FeedCandidates(feed, f.site.List)
	}

	page, err := f.browser.Open(ctx, f.site.ListURL, f.opts.Scrolls)
	if err != nil {
		return nil, fmt.Errorf("failed to open listing page: %w", err)
	}
	if page.Status >= 400 {
		return nil, fmt.Errorf("listing page returned HTTP %d", page.Status)
	}
	f.saveHTML("listing.html", page.HTML)

	doc, err := parse(page.HTML)
	if err != nil {
		return nil, err
	}

	base := page.URL
	if base == "" {
		base = f.site.ListURL
	}
	return discovery.ExtractCandidates(doc, base, f.site.List)
}

// Fetch loads the article at rawURL and returns its record. Failures are
// returned as *FetchError; any other error means ctx was cancelled.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*article.Record, error) {
	url, err := article.CanonicalURL(rawURL)
	if err != nil {
		return nil, fail(ErrExtractionFailed, rawURL, "%v", err)
	}

	page, err := f.browser.Open(ctx, url, 0)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Kind: ErrExtractionFailed, URL: url, Err: err}
	}

	switch {
	case page.Status == http.StatusNotFound || page.Status == http.StatusGone:
		return nil, fail(ErrNotFound, url, "HTTP %d", page.Status)
	case page.Status == http.StatusUnauthorized:
		return nil, fail(ErrNotAuthenticated, url, "HTTP %d", page.Status)
	case page.Status >= 400:
		return nil, fail(ErrExtractionFailed, url, "HTTP %d", page.Status)
	}

	if !f.savedArticle {
		f.savedArticle = f.saveHTML("article.html", page.HTML)
	}

	doc, err := parse(page.HTML)
	if err != nil {
		return nil, &FetchError{Kind: ErrExtractionFailed, URL: url, Err: err}
	}

	// A gated page may still render a teaser paragraph.
	if discovery.HasAuthGate(doc, f.site.Auth) {
		return nil, fail(ErrNotAuthenticated, url, "article is behind the paywall")
	}

	scraped := discovery.ExtractArticle(doc, f.site.Article)

	if len(scraped.Paragraphs) == 0 {
		if discovery.IsErrorPage(doc) {
			return nil, fail(ErrExtractionFailed, url, "server error page")
		}

		paragraphs, err := discovery.ReadableParagraphs(page.HTML, url, f.site.Article.MinFallback)
		if err != nil {
			f.logger.Debug("readability fallback failed", "url", url, "error", err)
		}
		if len(paragraphs) > 0 {
			f.logger.Warn("content selectors matched nothing; used readability fallback",
				"url", url, "paragraph_count", len(paragraphs))
			scraped.Paragraphs = paragraphs
		}
	}

	if scraped.Title == "" {
		return nil, fail(ErrExtractionFailed, url, "no title found")
	}
	if len(scraped.Paragraphs) == 0 {
		return nil, fail(ErrExtractionFailed, url, "no article content found")
	}

	rec := &article.Record{
		Title:          scraped.Title,
		URL:            url,
		Author:         scraped.Author,
		PublishedDate:  f.partitionDate(url, scraped),
		PublishedText:  scraped.PublishedText,
		Content:        scraped.Content(),
		ParagraphCount: len(scraped.Paragraphs),
		FetchedAt:      f.opts.Now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, &FetchError{Kind: ErrExtractionFailed, URL: url, Err: err}
	}

	return rec, nil
}

// partitionDate picks the storage date: the displayed publication time,
// then the machine-readable datetime attribute, then today.
func (f *Fetcher) partitionDate(url string, scraped *discovery.ScrapedArticle) article.Date {
	if d, ok := article.PartitionDate(scraped.PublishedText, f.opts.Location); ok {
		return d
	}

	if scraped.PublishedAttr != "" {
		if t, err := time.Parse(time.RFC3339, scraped.PublishedAttr); err == nil {
			return article.DateOf(t.In(f.opts.Location))
		}
	}

	today := article.DateOf(f.opts.Now().In(f.opts.Location))
	f.logger.Warn("could not parse publication date; filing under today",
		"url", url, "published_text", scraped.PublishedText, "date", today.String())
	return today
}

// saveHTML writes html for debugging and reports whether it was written.
func (f *Fetcher) saveHTML(name, html string) bool {
	if f.opts.SaveHTMLDir == "" {
		return false
	}

	if err := os.MkdirAll(f.opts.SaveHTMLDir, 0o700); err != nil {
		f.logger.Warn("failed to create HTML debug directory", "error", err)
		return false
	}
	path := filepath.Join(f.opts.SaveHTMLDir, name)
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		f.logger.Warn("failed to save page HTML", "path", path, "error", err)
		return false
	}

	f.logger.Info("saved page HTML", "path", path)
	return true
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
