package main

import (
	"fmt"

	"github.com/pevans/newsdigest/archive"
	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/index"
	"github.com/pevans/newsdigest/output"
	"github.com/pevans/newsdigest/summary"
)

func (a *app) openArchive() (*archive.Store, error) {
	return archive.NewStore(a.cfg.Storage.ArticlesDir)
}

func (a *app) openIndex() (index.Index, error) {
	idx, err := index.Open(a.cfg.IndexConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", archive.ErrStorageUnavailable, err)
	}
	return idx, nil
}

func (a *app) openSummaries() (*summary.Store, error) {
	return summary.NewStore(a.cfg.Storage.SummaryDir)
}

// resolveDate parses a --date value. An empty value is yesterday in the
// partition zone.
func (a *app) resolveDate(value string) (article.Date, error) {
	if value == "" {
		return article.DateOf(a.now().In(a.loc)).AddDays(-1), nil
	}
	d, err := article.ParseDate(value)
	if err != nil {
		return article.Date{}, output.Wrap(err, output.ExitUsage, "invalid --date", "Use YYYY-MM-DD or YYYYMMDD")
	}
	return d, nil
}
