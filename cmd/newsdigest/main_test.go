package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/pevans/newsdigest/archive"
	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/browser"
	"github.com/pevans/newsdigest/browser/browsertest"
	"github.com/pevans/newsdigest/index"
	"github.com/pevans/newsdigest/output"
	"github.com/pevans/newsdigest/scraper"
	"github.com/pevans/newsdigest/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	articleURL = "https://www.nytimes.com/athletic/6712345/2026/10/18/arsenal-spurs-report/"

	homeHTML = `<html><body><a href="/athletic/account/">My Account</a></body></html>`

	listingHTML = `<html><body>
<a href="` + articleURL + `"><h5>Arsenal beat Spurs in a tense north London derby</h5></a>
</body></html>`

	articleHTML = `<html><head><title>Arsenal beat Spurs</title></head><body>
<h1>Arsenal beat Spurs in the derby</h1>
<div class="byline">By Jane Writer</div>
<time datetime="2026-10-18T23:30:00Z">Oct. 19, 2026 12:30 am GMT+1</time>
<div class="article-content-container">
  <p>Arsenal won the north London derby on Saturday evening.</p>
  <p>The result moves them three points clear at the top.</p>
</div>
</body></html>`

	sessionJSON = `{"cookies":[{"name":"nyt-s","value":"token","domain":".nytimes.com","path":"/","expires":-1,"httpOnly":true,"secure":true}],"origins":[]}`
)

// yesterday relative to the harness clock, in Europe/London.
var yesterday = article.Date{Year: 2026, Month: time.October, Day: 18}

type harness struct {
	root       string
	configPath string
	stdout     bytes.Buffer
	stderr     bytes.Buffer
	pages      map[string]string
	browser    *browsertest.Static
}

func newHarness(t *testing.T, extraYAML string) *harness {
	t.Helper()

	for _, key := range []string{
		"NEWSDIGEST_DATA_DIR", "NEWSDIGEST_SUMMARY_DIR", "NEWSDIGEST_TIMEZONE",
		"NEWSDIGEST_LOG_LEVEL", "AUTH_STATE_JSON", "AUTH_STATE_FILE",
		"DEEPSEEK_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "FEISHU_WEBHOOK_URL",
		"FEISHU_INSECURE_SSL", "CI", "GITHUB_ACTIONS",
	} {
		t.Setenv(key, "")
	}

	root := t.TempDir()
	t.Chdir(root)

	cfg := "storage:\n" +
		"  articles_dir: " + filepath.Join(root, "articles") + "\n" +
		"  summary_dir: " + filepath.Join(root, "summary") + "\n" +
		"browser:\n" +
		"  request_interval: 1ms\n" +
		"auth:\n" +
		"  state_file: " + filepath.Join(root, "auth_state.json") + "\n" +
		extraYAML

	h := &harness{
		root:       root,
		configPath: filepath.Join(root, "newsdigest.yaml"),
		pages:      map[string]string{},
	}
	require.NoError(t, os.WriteFile(h.configPath, []byte(cfg), 0o600))

	return h
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()

	a := newApp()
	a.stdin = strings.NewReader("")
	a.stdout = &h.stdout
	a.stderr = &h.stderr
	a.now = func() time.Time { return time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC) }
	a.openBrowser = func(context.Context, browser.Options, *browser.Session, *slog.Logger) (browser.Browser, error) {
		h.browser = browsertest.New()
		for url, html := range h.pages {
			h.browser.Serve(url, html)
		}
		return h.browser, nil
	}

	return run(context.Background(), a, append(args, "--config", h.configPath))
}

func (h *harness) serveSite() {
	site := scraper.Default()
	h.pages[site.HomeURL] = homeHTML
	h.pages[site.ListURL] = listingHTML
	h.pages[articleURL] = articleHTML
}

func (h *harness) saveArticle(t *testing.T, url, title string, d article.Date) {
	t.Helper()
	store, err := archive.NewStore(filepath.Join(h.root, "articles"))
	require.NoError(t, err)
	_, err = store.Save(article.Record{
		Title:          title,
		URL:            url,
		Author:         "Jane Writer",
		PublishedDate:  d,
		Content:        "Body of " + title,
		ParagraphCount: 1,
		FetchedAt:      time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func (h *harness) openIndex(t *testing.T) index.Index {
	t.Helper()
	idx, err := index.OpenFile(filepath.Join(h.root, "articles", "index.json"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

// TestVersion verifies that version needs no configuration.
func TestVersion(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, os.WriteFile(h.configPath, []byte("storage: [broken"), 0o600))

	assert.Equal(t, output.ExitSuccess, h.run("version"))
	assert.Contains(t, h.stdout.String(), "newsdigest dev")
}

func TestNewApp_LoggerBeforeConfig(t *testing.T) {
	a := newApp()
	require.NotNil(t, a.logger)
	a.logger.Info("not written anywhere")
}

func TestBadConfig(t *testing.T) {
	h := newHarness(t, "timezone: Mars/Olympus\n")

	assert.Equal(t, output.ExitConfig, h.run("status"))
	assert.Contains(t, h.stderr.String(), "failed to load configuration")
}

func TestUnknownFlag(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, output.ExitUsage, h.run("scrape", "--bogus"))
}

// TestScrape verifies that a run saves the new article, records it, and
// that a second run fetches nothing.
func TestScrape(t *testing.T) {
	h := newHarness(t, "")
	h.serveSite()
	t.Setenv("AUTH_STATE_JSON", sessionJSON)

	require.Equal(t, output.ExitSuccess, h.run("scrape"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Saved 1 new articles")

	path := filepath.Join(h.root, "articles", "20261019", article.Filename(articleURL))
	_, err := os.Stat(path)
	require.NoError(t, err)

	known, err := h.openIndex(t).Contains(articleURL)
	require.NoError(t, err)
	assert.True(t, known)

	require.Equal(t, output.ExitSuccess, h.run("scrape"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), "No new articles saved")
	assert.NotContains(t, h.browser.Opened(), articleURL)
}

func TestScrape_DryRun(t *testing.T) {
	h := newHarness(t, "")
	h.serveSite()
	t.Setenv("AUTH_STATE_JSON", sessionJSON)

	require.Equal(t, output.ExitSuccess, h.run("scrape", "--dry-run"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), articleURL)
	assert.NotContains(t, h.browser.Opened(), articleURL)
}

func TestScrape_NoSession(t *testing.T) {
	h := newHarness(t, "")
	h.serveSite()

	assert.Equal(t, output.ExitAuth, h.run("scrape"))
	assert.Contains(t, h.stderr.String(), "newsdigest login")
}

func TestScrape_SessionExpired(t *testing.T) {
	h := newHarness(t, "")
	h.serveSite()
	h.pages[scraper.Default().HomeURL] = `<html><body><a href="/athletic/login/">Log In</a></body></html>`
	t.Setenv("AUTH_STATE_JSON", sessionJSON)

	assert.Equal(t, output.ExitAuth, h.run("scrape"))
	assert.NotContains(t, h.browser.Opened(), articleURL)
}

func TestSummarize(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Messages, 1) {
			prompt = req.Messages[0].Content
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Daily digest"}}],"usage":{"total_tokens":10}}`))
	}))
	defer srv.Close()

	h := newHarness(t, "llm:\n  base_url: "+srv.URL+"\n")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	h.saveArticle(t, articleURL, "Arsenal beat Spurs", yesterday)

	require.Equal(t, output.ExitSuccess, h.run("summarize"), h.stderr.String())
	assert.Contains(t, prompt, "Arsenal beat Spurs")
	assert.Contains(t, h.stderr.String(), "model=deepseek-chat")

	data, err := os.ReadFile(filepath.Join(h.root, "summary", "20261018_summary.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Daily digest", string(data))

	// A second run is skipped without calling the API.
	prompt = ""
	require.Equal(t, output.ExitSuccess, h.run("summarize"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), "already exists")
	assert.Empty(t, prompt)
}

func TestSummarize_NoArticles(t *testing.T) {
	h := newHarness(t, "")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	assert.Equal(t, output.ExitNoArticles, h.run("summarize", "--date", "2026-10-01"))
	_, err := os.Stat(filepath.Join(h.root, "summary", "20261001_summary.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSummarize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := newHarness(t, "llm:\n  base_url: "+srv.URL+"\n")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	h.saveArticle(t, articleURL, "Arsenal beat Spurs", yesterday)

	assert.Equal(t, output.ExitAPI, h.run("summarize"))
}

func TestSummarize_BadDate(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, output.ExitUsage, h.run("summarize", "--date", "18/10/2026"))
}

func TestSend(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	h := newHarness(t, "notify:\n  webhook_url: "+srv.URL+"\n")

	summaries, err := summary.NewStore(filepath.Join(h.root, "summary"))
	require.NoError(t, err)
	_, err = summaries.Save(summary.Record{Date: yesterday, Text: "Daily digest"})
	require.NoError(t, err)

	require.Equal(t, output.ExitSuccess, h.run("send"), h.stderr.String())
	assert.Equal(t, "text", body["msg_type"])
	assert.Equal(t, map[string]any{"msg": "Daily digest"}, body["content"])
}

func TestSend_MissingSummary(t *testing.T) {
	h := newHarness(t, "notify:\n  webhook_url: http://127.0.0.1:1/\n")

	assert.Equal(t, output.ExitGeneral, h.run("send", "--date", "20261001"))
	assert.Contains(t, h.stderr.String(), "no summary for 2026-10-01")
}

func TestSend_NoWebhook(t *testing.T) {
	h := newHarness(t, "")

	summaries, err := summary.NewStore(filepath.Join(h.root, "summary"))
	require.NoError(t, err)
	_, err = summaries.Save(summary.Record{Date: yesterday, Text: "Daily digest"})
	require.NoError(t, err)

	assert.Equal(t, output.ExitConfig, h.run("send"))
}

func TestStatus(t *testing.T) {
	h := newHarness(t, "")
	h.saveArticle(t, articleURL, "Arsenal beat Spurs", yesterday)
	h.saveArticle(t, "https://www.nytimes.com/athletic/6712346/2026/10/17/chelsea-report/", "Chelsea draw", yesterday.AddDays(-1))

	summaries, err := summary.NewStore(filepath.Join(h.root, "summary"))
	require.NoError(t, err)
	_, err = summaries.Save(summary.Record{Date: yesterday, Text: "Daily digest"})
	require.NoError(t, err)

	require.Equal(t, output.ExitSuccess, h.run("status"), h.stderr.String())

	out := h.stdout.String()
	assert.Contains(t, out, "2026-10-18")
	assert.Contains(t, out, "2026-10-17")
	assert.Contains(t, out, "Indexed URLs: 0")
	assert.Less(t, strings.Index(out, "2026-10-18"), strings.Index(out, "2026-10-17"), "newest first")
}

func TestVerify_Repair(t *testing.T) {
	h := newHarness(t, "")
	h.saveArticle(t, articleURL, "Arsenal beat Spurs", yesterday)

	idx := h.openIndex(t)
	require.NoError(t, idx.Record("https://www.nytimes.com/athletic/1/2026/10/01/pruned/"))
	require.NoError(t, idx.Close())

	require.Equal(t, output.ExitSuccess, h.run("verify"), h.stderr.String())
	assert.Contains(t, h.stderr.String(), "stored but not indexed: "+articleURL)
	assert.Contains(t, h.stderr.String(), "indexed but not stored")

	require.Equal(t, output.ExitSuccess, h.run("verify", "--repair"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Recorded 1 stored articles")

	known, err := h.openIndex(t).Contains(articleURL)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestResolveDate(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	a := &app{loc: loc, now: func() time.Time { return time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC) }}

	// 23:30 UTC is already the 19th in London.
	d, err := a.resolveDate("")
	require.NoError(t, err)
	assert.Equal(t, yesterday, d)

	d, err = a.resolveDate("20261001")
	require.NoError(t, err)
	assert.Equal(t, article.Date{Year: 2026, Month: time.October, Day: 1}, d)

	_, err = a.resolveDate("yesterday")
	assert.Equal(t, output.ExitUsage, output.ExitCodeOf(err))
}
