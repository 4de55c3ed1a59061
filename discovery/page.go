package discovery

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsdigest/scraper"
)

// errorPhrases appear on short server error pages.
var errorPhrases = []string{
	"internal server error",
	"something went wrong",
	"service unavailable",
	"bad gateway",
	"gateway timeout",
	"server error",
}

// IsErrorPage reports whether doc looks like a server error page rather than
// an article.
func IsErrorPage(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(title, "error") || strings.Contains(title, "unavailable") {
		return true
	}

	body := collapse(doc.Find("body").Text())
	if utf8.RuneCountInString(body) >= 500 {
		return false
	}
	body = strings.ToLower(body)
	for _, phrase := range errorPhrases {
		if strings.Contains(body, phrase) {
			return true
		}
	}
	return false
}

// HasAuthGate reports whether an article page is showing a paywall or login
// overlay.
func HasAuthGate(doc *goquery.Document, auth scraper.AuthConfig) bool {
	for _, selector := range auth.GateSelectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}

// ShowsLoginControls reports whether a page offers login or subscribe
// controls, which a signed-in session does not see.
func ShowsLoginControls(doc *goquery.Document, auth scraper.AuthConfig) bool {
	for _, selector := range auth.LoginSelectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}

	found := false
	doc.Find("a, button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapse(s.Text())
		for _, want := range auth.LoginTexts {
			if strings.EqualFold(text, want) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
