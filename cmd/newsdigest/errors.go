package main

import (
	"context"
	"errors"

	"github.com/pevans/newsdigest/archive"
	"github.com/pevans/newsdigest/browser"
	"github.com/pevans/newsdigest/fetcher"
	"github.com/pevans/newsdigest/index"
	"github.com/pevans/newsdigest/llm"
	"github.com/pevans/newsdigest/notify"
	"github.com/pevans/newsdigest/output"
	"github.com/pevans/newsdigest/summary"
)

const loginHint = "Run 'newsdigest login' and update AUTH_STATE_JSON or the auth state file"

// classify maps domain errors to CLI errors with an exit code. Errors that
// already carry one are returned unchanged.
func classify(err error) error {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return output.Wrap(err, output.ExitGeneral, "interrupted", "")
	case errors.Is(err, fetcher.ErrNotAuthenticated),
		errors.Is(err, browser.ErrNoSession),
		errors.Is(err, browser.ErrInvalidSession):
		return output.Wrap(err, output.ExitAuth, "not authenticated", loginHint)
	case errors.Is(err, archive.ErrStorageUnavailable),
		errors.Is(err, index.ErrCorrupt):
		return output.Wrap(err, output.ExitStorage, "storage unavailable",
			"Check the articles directory; a corrupt index must be repaired or restored by hand")
	case errors.Is(err, summary.ErrNoArticlesFound):
		return output.Wrap(err, output.ExitNoArticles, "no articles to summarize", "Run 'newsdigest status' to see stored dates")
	case errors.Is(err, llm.ErrNoAPIKey):
		return output.Wrap(err, output.ExitConfig, "no API key configured", "Set DEEPSEEK_API_KEY")
	case errors.Is(err, summary.ErrGenerationAPI):
		return output.Wrap(err, output.ExitAPI, "summary generation failed", "")
	case errors.Is(err, notify.ErrNoWebhook):
		return output.Wrap(err, output.ExitConfig, "no webhook configured", "Set FEISHU_WEBHOOK_URL")
	default:
		return output.Wrap(err, output.ExitGeneral, "command failed", "")
	}
}
