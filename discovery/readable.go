package discovery

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

// ReadableParagraphs runs a readability pass over a page and returns the
// paragraphs of the main content. It is the last resort when the configured
// selectors find nothing, typically because the site changed its markup.
func ReadableParagraphs(rawHTML, pageURL string, minLength int) ([]string, error) {
	var base *url.URL
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("invalid page URL: %w", err)
		}
		base = u
	}

	parsed, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err != nil {
		return nil, fmt.Errorf("failed to extract readable content: %w", err)
	}

	var buf strings.Builder
	if err := parsed.RenderHTML(&buf); err != nil {
		return nil, fmt.Errorf("failed to render readable content: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(buf.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse readable content: %w", err)
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if utf8.RuneCountInString(text) > minLength {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		var text strings.Builder
		if err := parsed.RenderText(&text); err == nil {
			for _, block := range strings.Split(text.String(), "\n") {
				block = collapse(block)
				if utf8.RuneCountInString(block) > minLength {
					paragraphs = append(paragraphs, block)
				}
			}
		}
	}

	return paragraphs, nil
}
