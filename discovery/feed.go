package discovery

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/scraper"
)

// FetchFeed fetches and parses an RSS or Atom feed from the given URL. The
// gofeed library automatically detects and handles both RSS and Atom formats.
func FetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// FeedCandidates converts the items of a feed to article candidates, applying
// the same URL pattern and exclusions as listing-page discovery.
func FeedCandidates(feed *gofeed.Feed, config scraper.ListConfig) ([]Candidate, error) {
	pattern, err := config.Pattern()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		canonical, err := article.CanonicalURL(item.Link)
		if err != nil || !pattern.MatchString(canonical) || excluded(canonical, config.ExcludePatterns) {
			continue
		}
		if seen[canonical] || seen[article.Filename(canonical)] {
			continue
		}
		seen[canonical] = true
		seen[article.Filename(canonical)] = true

		// Feed titles are authoritative, so no minimum length applies.
		title := collapse(item.Title)
		if title == "" {
			title = "(No title)"
		}

		candidates = append(candidates, Candidate{
			URL:   canonical,
			Title: truncateRunes(title, config.MaxTitleLength),
		})
	}
	return candidates, nil
}
