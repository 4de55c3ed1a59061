package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/browser/browsertest"
	"github.com/pevans/newsdigest/discovery"
	"github.com/pevans/newsdigest/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleURL = "https://www.nytimes.com/athletic/6712345/2026/10/18/arsenal-spurs-report/"

const articleHTML = `<html><head><title>Arsenal beat Spurs</title></head><body>
<h1>Arsenal beat Spurs in the derby</h1>
<div class="byline">By Jane Writer</div>
<time datetime="2026-10-18T23:30:00Z">Oct. 19, 2026 12:30 am GMT+1</time>
<div class="article-content-container">
  <p>Arsenal won the north London derby on Saturday evening.</p>
  <p>The result moves them three points clear at the top.</p>
</div>
</body></html>`

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}

func newFetcher(t *testing.T, b *browsertest.Static) *Fetcher {
	t.Helper()
	return New(b, scraper.Default(), Options{
		Location: london(t),
		Now:      func() time.Time { return time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC) },
	})
}

func TestFetch_Success(t *testing.T) {
	b := browsertest.New().Serve(articleURL, articleHTML)
	f := newFetcher(t, b)

	rec, err := f.Fetch(context.Background(), articleURL+"?ref=list")
	require.NoError(t, err)

	assert.Equal(t, articleURL, rec.URL)
	assert.Equal(t, "Arsenal beat Spurs in the derby", rec.Title)
	assert.Equal(t, "Jane Writer", rec.Author)
	assert.Equal(t, "Oct. 19, 2026 12:30 am GMT+1", rec.PublishedText)
	// 00:30 GMT+1 is 00:30 BST in London, still the 19th.
	assert.Equal(t, article.Date{Year: 2026, Month: time.October, Day: 19}, rec.PublishedDate)
	assert.Equal(t, 2, rec.ParagraphCount)
	assert.Equal(t,
		"Arsenal won the north London derby on Saturday evening.\n\nThe result moves them three points clear at the top.",
		rec.Content)
	assert.Equal(t, time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC), rec.FetchedAt)
	assert.Equal(t, []string{articleURL}, b.Opened())
}

func TestFetch_DateFallbacks(t *testing.T) {
	withAttr := `<html><body><h1>Headline for the story</h1>
<time datetime="2026-10-17T23:30:00Z">Yesterday</time>
<div class="article-content-container"><p>Enough body text to keep.</p></div></body></html>`
	withoutDate := `<html><body><h1>Headline for the story</h1>
<div class="article-content-container"><p>Enough body text to keep.</p></div></body></html>`

	b := browsertest.New().
		Serve("https://example.com/a/", withAttr).
		Serve("https://example.com/b/", withoutDate)
	f := newFetcher(t, b)

	rec, err := f.Fetch(context.Background(), "https://example.com/a/")
	require.NoError(t, err)
	// 23:30 UTC on the 17th is 00:30 BST on the 18th.
	assert.Equal(t, "2026-10-18", rec.PublishedDate.String())

	rec, err = f.Fetch(context.Background(), "https://example.com/b/")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", rec.PublishedDate.String())
}

func TestFetch_Failures(t *testing.T) {
	tests := map[string]struct {
		status int
		html   string
		kind   error
	}{
		"not found": {404, "<html></html>", ErrNotFound},
		"gone":      {410, "<html></html>", ErrNotFound},
		"server":    {503, "<html></html>", ErrExtractionFailed},
		"forbidden": {403, "<html></html>", ErrExtractionFailed},
		"unauthorized": {
			401, "<html></html>", ErrNotAuthenticated,
		},
		"paywall": {
			200,
			`<html><body><h1>Headline for the story</h1><div data-testid="paywall">Subscribe now</div></body></html>`,
			ErrNotAuthenticated,
		},
		"teaser and paywall": {
			200,
			`<html><body><h1>Headline for the story</h1>
<div class="article-content-container"><p>The opening paragraph is free to read.</p></div>
<div data-testid="paywall">Subscribe to keep reading</div></body></html>`,
			ErrNotAuthenticated,
		},
		"error page": {
			200,
			`<html><head><title>Error</title></head><body><h1>Something went wrong</h1></body></html>`,
			ErrExtractionFailed,
		},
		"no content": {
			200,
			`<html><body><h1>Short headline</h1></body></html>`,
			ErrExtractionFailed,
		},
		"no title": {
			200,
			`<html><body><div class="article-content-container"><p>Body text with no headline.</p></div></body></html>`,
			ErrExtractionFailed,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			b := browsertest.New().ServeStatus(articleURL, tt.status, tt.html)
			f := newFetcher(t, b)

			rec, err := f.Fetch(context.Background(), articleURL)
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, articleURL, fe.URL)
		})
	}
}

func TestFetch_LoadErrorIsExtractionFailure(t *testing.T) {
	loadErr := errors.New("net::ERR_CONNECTION_RESET")
	b := browsertest.New().Fail(articleURL, loadErr)

	_, err := newFetcher(t, b).Fetch(context.Background(), articleURL)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.ErrorIs(t, err, loadErr)
}

func TestFetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(t, browsertest.New()).Fetch(ctx, articleURL)
	assert.ErrorIs(t, err, context.Canceled)

	var fe *FetchError
	assert.False(t, errors.As(err, &fe))
}

func TestCheckSession(t *testing.T) {
	home := scraper.Default().HomeURL

	b := browsertest.New().Serve(home, `<html><body><a href="/athletic/account/">My Account</a></body></html>`)
	assert.NoError(t, newFetcher(t, b).CheckSession(context.Background()))

	b = browsertest.New().Serve(home, `<html><body><button>Log In</button></body></html>`)
	err := newFetcher(t, b).CheckSession(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCandidates_ListingPage(t *testing.T) {
	site := scraper.Default()
	listing := `<html><body>
<a href="` + articleURL + `"><h5>Arsenal beat Spurs in a tense north London derby</h5></a>
<a href="https://www.nytimes.com/athletic/author/jane/">Jane Writer author page</a>
</body></html>`

	dir := t.TempDir()
	b := browsertest.New().Serve(site.ListURL, listing).Serve(articleURL, articleHTML)
	f := New(b, site, Options{Location: london(t), SaveHTMLDir: dir})

	got, err := f.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, articleURL, got[0].URL)

	_, err = f.Fetch(context.Background(), articleURL)
	require.NoError(t, err)

	for _, name := range []string{"listing.html", "article.html"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestCandidates_ListingUnavailable(t *testing.T) {
	b := browsertest.New()
	_, err := newFetcher(t, b).Candidates(context.Background())
	assert.Error(t, err)
}

const athleticFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>The Athletic</title>
<item><title>Arsenal beat Spurs in the derby</title><link>https://www.nytimes.com/athletic/6712345/2026/10/18/arsenal-spurs-report/?utm_source=rss</link></item>
<item><title>Arsenal beat Spurs (again)</title><link>https://www.nytimes.com/athletic/6712345/2026/10/18/arsenal-spurs-report</link></item>
<item><title>Chelsea confirm new manager</title><link>https://WWW.NYTIMES.COM/athletic/6712999/2026/10/18/chelsea-manager/#comments</link></item>
<item><title>The weekly podcast</title><link>https://www.nytimes.com/athletic/6713001/2026/10/18/podcast/episode-one/</link></item>
<item><title>Arsenal team page</title><link>https://www.nytimes.com/athletic/team/arsenal/</link></item>
<item><title>Elsewhere</title><link>https://example.com/sport/6713002/</link></item>
</channel></rss>`

func TestCandidates_Feed(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(athleticFeed))
	}))
	defer srv.Close()

	site := scraper.Default()
	site.DiscoveryMode = scraper.ModeFeed
	site.FeedURL = srv.URL
	b := browsertest.New()
	f := New(b, site, Options{Location: london(t)})

	got, err := f.Candidates(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []discovery.Candidate{
		{URL: articleURL, Title: "Arsenal beat Spurs in the derby"},
		{URL: "https://www.nytimes.com/athletic/6712999/2026/10/18/chelsea-manager/", Title: "Chelsea confirm new manager"},
	}, got)
	assert.Equal(t, int32(1), requests.Load())
	assert.Empty(t, b.Opened(), "feed mode does not open the listing page")
}

func TestCandidates_FeedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	site := scraper.Default()
	site.DiscoveryMode = scraper.ModeFeed
	site.FeedURL = srv.URL

	_, err := New(browsertest.New(), site, Options{}).Candidates(context.Background())
	assert.Error(t, err)
}
