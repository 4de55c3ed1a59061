package main

import (
	"fmt"

	"github.com/pevans/newsdigest/browser"
	"github.com/pevans/newsdigest/fetcher"
	"github.com/pevans/newsdigest/pipeline"
	"github.com/spf13/cobra"
)

func newScrapeCmd(a *app) *cobra.Command {
	var (
		limit       int
		dryRun      bool
		saveHTML    string
		skipSession bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and store articles that are not yet indexed",
		Long: `Scrape opens the listing page with the saved browser session, skips every
article already in the index, and fetches the rest one at a time, waiting
browser.request_interval between fetches. Each article is stored under the
directory for its publication date and then recorded in the index.

An expired session stops the run immediately. Articles that are missing
or cannot be extracted are skipped and retried on the next run.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return usageError("--limit must not be negative")
			}

			ctx := cmd.Context()
			cfg := a.cfg

			session, err := browser.LoadSession(cfg.Auth.StateJSON, cfg.Auth.StateFile)
			if err != nil {
				return err
			}
			if session.Expired(a.now()) {
				a.logger.Warn("every persistent cookie in the session has expired")
			}

			store, err := a.openArchive()
			if err != nil {
				return err
			}
			idx, err := a.openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()

			b, err := a.openBrowser(ctx, cfg.BrowserOptions(), session, a.logger)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer b.Close()

			f := fetcher.New(b, cfg.Site, fetcher.Options{
				Location:    a.loc,
				Scrolls:     cfg.Browser.Scrolls,
				SaveHTMLDir: saveHTML,
				Logger:      a.logger,
				Now:         a.now,
			})

			runner := pipeline.NewRunner(f, idx, store, pipeline.Options{
				Interval:     cfg.Browser.RequestInterval,
				Limit:        limit,
				DryRun:       dryRun,
				CheckSession: !skipSession,
				Logger:       a.logger,
			})

			result, err := runner.Run(ctx)
			a.printScrapeResult(result, dryRun)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "fetch at most this many new articles (0 means no limit)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list new articles without fetching them")
	cmd.Flags().StringVar(&saveHTML, "save-html", "", "write the listing page and first article page to this directory")
	cmd.Flags().BoolVar(&skipSession, "skip-session-check", false, "do not check the session on the home page first")

	return cmd
}

func (a *app) printScrapeResult(result *pipeline.Result, dryRun bool) {
	if result == nil {
		return
	}

	if dryRun {
		a.printer.Header(fmt.Sprintf("%d new of %d candidates", len(result.New), result.Candidates))
		for _, c := range result.New {
			a.printer.Print("%s\n  %s", c.Title, c.URL)
		}
		return
	}

	if result.Saved > 0 {
		a.printer.Success("Saved %d new articles", result.Saved)
	} else {
		a.printer.Info("No new articles saved")
	}
	a.printer.Print("Candidates: %d  Already indexed: %d  Not found: %d  Failed: %d",
		result.Candidates, result.Skipped, result.NotFound, result.Failed)
}
