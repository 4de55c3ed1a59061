package discovery

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/scraper"
	"golang.org/x/net/html"
)

// Candidate is an article link found on a listing page or in a feed.
type Candidate struct {
	URL   string
	Title string
}

// ExtractCandidates returns the article links on a listing page, in page
// order and de-duplicated by canonical URL and by stored file name, so one
// article linked under two host spellings yields one candidate. Relative
// links are resolved against pageURL.
func ExtractCandidates(doc *goquery.Document, pageURL string, config scraper.ListConfig) ([]Candidate, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL: %w", err)
	}

	pattern, err := config.Pattern()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	candidates := []Candidate{}

	doc.Find(config.LinkSelector).Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		ref, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		canonical, err := article.CanonicalURL(ref.String())
		if err != nil || !pattern.MatchString(canonical) || excluded(canonical, config.ExcludePatterns) {
			return
		}
		if seen[canonical] || seen[article.Filename(canonical)] {
			return
		}

		title := linkTitle(link, config)
		if utf8.RuneCountInString(title) <= config.MinTitleLength {
			return
		}

		seen[canonical] = true
		seen[article.Filename(canonical)] = true
		candidates = append(candidates, Candidate{
			URL:   canonical,
			Title: truncateRunes(title, config.MaxTitleLength),
		})
	})

	return candidates, nil
}

// excluded reports whether link contains any of the exclusion fragments.
func excluded(link string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(link, pattern) {
			return true
		}
	}
	return false
}

// linkTitle prefers a headline element inside the anchor and otherwise uses
// the first line of the anchor text that is long enough to be a title.
func linkTitle(link *goquery.Selection, config scraper.ListConfig) string {
	if config.HeadlineSelector != "" {
		if title := collapse(link.Find(config.HeadlineSelector).First().Text()); title != "" {
			return title
		}
	}

	for _, line := range textLines(link) {
		if utf8.RuneCountInString(line) > config.MinTitleLength {
			return line
		}
	}
	return ""
}

// textLines returns the non-empty text nodes under sel in document order,
// each with whitespace collapsed.
func textLines(sel *goquery.Selection) []string {
	var lines []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if line := collapse(n.Data); line != "" {
				lines = append(lines, line)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}
	return lines
}
