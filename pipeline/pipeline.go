// Package pipeline runs a scrape: enumerate candidates, skip the ones the
// index already knows, then fetch, save and record each new article in turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsdigest/archive"
	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/discovery"
	"github.com/pevans/newsdigest/fetcher"
	"github.com/pevans/newsdigest/index"
	"golang.org/x/time/rate"
)

// Source enumerates and fetches articles. *fetcher.Fetcher implements it.
type Source interface {
	CheckSession(ctx context.Context) error
	Candidates(ctx context.Context) ([]discovery.Candidate, error)
	Fetch(ctx context.Context, url string) (*article.Record, error)
}

// Options tune a Runner.
type Options struct {
	// Interval is the minimum time between two article fetches.
	Interval time.Duration
	// Limit caps the number of articles fetched in one run; 0 means no cap.
	Limit int
	// DryRun lists new candidates without fetching them.
	DryRun bool
	// CheckSession verifies the session before enumerating candidates.
	CheckSession bool
	Logger       *slog.Logger
}

// Runner executes scrape runs. Fetches are strictly sequential.
type Runner struct {
	source  Source
	index   index.Index
	store   *archive.Store
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Result summarizes a run. It is returned alongside a terminal error so that
// partial progress can be reported.
type Result struct {
	RunID      string
	Candidates int
	Skipped    int // already indexed or repeated in the listing
	Saved      int
	NotFound   int
	Failed     int // extraction failures
	// New lists the candidates that were not yet indexed.
	New   []discovery.Candidate
	Paths []string
}

// NewRunner creates a runner.
func NewRunner(source Source, idx index.Index, store *archive.Store, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}

	return &Runner{
		source:  source,
		index:   idx,
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Run performs a full scrape run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", result.RunID)

	if r.opts.CheckSession {
		if err := r.source.CheckSession(ctx); err != nil {
			logger.Error("session check failed", "error", err)
			return result, err
		}
		logger.Info("session check passed")
	}

	candidates, err := r.source.Candidates(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to enumerate candidates: %w", err)
	}
	logger.Info("found candidates", "count", len(candidates))

	return result, r.process(ctx, logger, candidates, result)
}

// Process runs the index check and the fetch loop over a fixed candidate
// list.
func (r *Runner) Process(ctx context.Context, candidates []discovery.Candidate) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", result.RunID)
	return result, r.process(ctx, logger, candidates, result)
}

func (r *Runner) process(ctx context.Context, logger *slog.Logger, candidates []discovery.Candidate, result *Result) error {
	result.Candidates = len(candidates)

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		url, err := article.CanonicalURL(c.URL)
		if err != nil {
			logger.Warn("skipping candidate with invalid URL", "url", c.URL, "error", err)
			result.Failed++
			continue
		}
		if seen[url] {
			result.Skipped++
			continue
		}
		seen[url] = true
		c.URL = url

		known, err := r.index.Contains(c.URL)
		if err != nil {
			return fmt.Errorf("failed to consult index: %w", err)
		}
		if known {
			result.Skipped++
			continue
		}
		result.New = append(result.New, c)
	}

	logger.Info("filtered candidates",
		"candidates", result.Candidates, "already_indexed", result.Skipped, "new", len(result.New))

	if r.opts.DryRun {
		return nil
	}

	pending := result.New
	if r.opts.Limit > 0 && len(pending) > r.opts.Limit {
		pending = pending[:r.opts.Limit]
	}

	for i, c := range pending {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		logger.Info("fetching article", "position", i+1, "total", len(pending), "url", c.URL, "title", c.Title)

		rec, err := r.source.Fetch(ctx, c.URL)
		if err != nil {
			switch {
			case errors.Is(err, fetcher.ErrNotAuthenticated):
				logger.Error("session is no longer authenticated; stopping run", "url", c.URL, "error", err)
				return err
			case errors.Is(err, fetcher.ErrNotFound):
				result.NotFound++
				logger.Warn("article not found", "url", c.URL)
				continue
			case errors.Is(err, fetcher.ErrExtractionFailed):
				result.Failed++
				logger.Warn("article extraction failed", "url", c.URL, "error", err)
				continue
			default:
				return err
			}
		}

		path, err := r.store.Save(*rec)
		if err != nil {
			if errors.Is(err, article.ErrInvalidRecord) {
				result.Failed++
				logger.Warn("extracted article is invalid", "url", c.URL, "error", err)
				continue
			}
			return fmt.Errorf("failed to save %s: %w", rec.URL, err)
		}

		if err := r.index.Record(rec.URL); err != nil {
			return fmt.Errorf("%w: failed to record %s in index: %w", archive.ErrStorageUnavailable, rec.URL, err)
		}

		result.Saved++
		result.Paths = append(result.Paths, path)
		logger.Info("saved article",
			"url", rec.URL, "date", rec.PublishedDate.String(), "paragraph_count", rec.ParagraphCount, "path", path)
	}

	logger.Info("run complete",
		"saved", result.Saved, "not_found", result.NotFound, "failed", result.Failed, "skipped", result.Skipped)
	return nil
}
