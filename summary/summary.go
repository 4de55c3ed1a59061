// Package summary generates and stores the daily digest of scraped
// articles.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"github.com/pevans/newsdigest/archive"
	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/llm"
)

var (
	// ErrNoArticlesFound is returned when a date has no valid articles. No
	// summary file is written.
	ErrNoArticlesFound = errors.New("no articles found")
	// ErrGenerationAPI wraps failures of the text generation call. It is
	// terminal for that day's summary until the next scheduled run.
	ErrGenerationAPI = errors.New("summary generation failed")
	// ErrSummaryExists is returned when a summary is already present and
	// regeneration was not forced.
	ErrSummaryExists = errors.New("summary already exists")
)

// Generator turns a day's stored articles into a summary.
type Generator struct {
	articles  *archive.Store
	summaries *Store
	llm       llm.Completer
	tmpl      *template.Template
	logger    *slog.Logger
}

// Result describes a generated (or skipped) summary.
type Result struct {
	Record
	Path string
	// Articles is the number of articles summarized; Excluded the number
	// of stored files that failed to load.
	Articles    int
	Excluded    int
	TotalTokens int
	Estimated   bool
}

// NewGenerator creates a generator. A nil tmpl selects the built-in prompt.
func NewGenerator(articles *archive.Store, summaries *Store, completer llm.Completer, tmpl *template.Template, logger *slog.Logger) (*Generator, error) {
	if tmpl == nil {
		var err error
		if tmpl, err = LoadTemplate(""); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{
		articles:  articles,
		summaries: summaries,
		llm:       completer,
		tmpl:      tmpl,
		logger:    logger,
	}, nil
}

// Generate produces the summary for d. Unless force is set, an existing
// summary is left untouched and ErrSummaryExists is returned along with its
// path.
func (g *Generator) Generate(ctx context.Context, d article.Date, force bool) (*Result, error) {
	logger := g.logger.With("date", d.String())

	if !force {
		exists, err := g.summaries.Exists(d)
		if err != nil {
			return nil, err
		}
		if exists {
			logger.Info("summary already exists; skipping", "path", g.summaries.Path(d))
			return &Result{Record: Record{Date: d}, Path: g.summaries.Path(d)}, ErrSummaryExists
		}
	}

	listed, err := g.articles.ListByDate(d)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	for _, readErr := range listed.Errors {
		logger.Warn("excluding unreadable article", "file", readErr.Filename, "error", readErr.Err)
	}

	excluded := len(listed.Errors)
	records := make([]article.Record, 0, len(listed.Records))
	for i, rec := range listed.Records {
		if rec.PublishedDate != d {
			excluded++
			logger.Warn("excluding article filed under another date",
				"path", listed.Paths[i], "url", rec.URL, "published_date", rec.PublishedDate.String())
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoArticlesFound, d)
	}

	// Summarize in the order the articles were fetched.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FetchedAt.Before(records[j].FetchedAt)
	})

	prompt, err := RenderPrompt(g.tmpl, NewPromptData(d, records))
	if err != nil {
		return nil, err
	}

	logger.Info("generating summary",
		"articles", len(records), "excluded", excluded, "prompt_tokens_estimate", llm.EstimateTokens(prompt))

	completion, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationAPI, err)
	}
	// The text is saved as returned; only a blank reply is rejected.
	if strings.TrimSpace(completion.Text) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrGenerationAPI)
	}

	rec := Record{Date: d, Text: completion.Text}
	path, err := g.summaries.Save(rec)
	if err != nil {
		return nil, err
	}

	logger.Info("wrote summary",
		"path", path, "total_tokens", completion.TotalTokens, "estimated", completion.Estimated)

	return &Result{
		Record:      rec,
		Path:        path,
		Articles:    len(records),
		Excluded:    excluded,
		TotalTokens: completion.TotalTokens,
		Estimated:   completion.Estimated,
	}, nil
}
