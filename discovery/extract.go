package discovery

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsdigest/scraper"
)

// ScrapedArticle holds the fields extracted from an article page before it
// becomes an article record.
type ScrapedArticle struct {
	Title         string
	Author        string
	PublishedText string
	// PublishedAttr is the machine-readable datetime attribute of the date
	// element, when the page carries one.
	PublishedAttr string
	Paragraphs    []string
}

// Content joins the paragraphs with a blank line between each.
func (a *ScrapedArticle) Content() string {
	return strings.Join(a.Paragraphs, "\n\n")
}

// ExtractArticle extracts article fields from doc using the ordered selector
// lists in config. Missing fields are left empty; the caller decides whether
// the result is usable.
func ExtractArticle(doc *goquery.Document, config scraper.ArticleConfig) *ScrapedArticle {
	article := &ScrapedArticle{}

	if sel := firstMatch(doc, config.TitleSelectors); sel != nil {
		article.Title = collapse(sel.Text())
	}

	if sel := firstMatch(doc, config.AuthorSelectors); sel != nil {
		article.Author = NormalizeByline(sel.Text())
	}

	if sel := firstMatch(doc, config.DateSelectors); sel != nil {
		article.PublishedText = collapse(sel.Text())
		article.PublishedAttr, _ = sel.Attr("datetime")
	}
	if article.PublishedAttr == "" {
		article.PublishedAttr, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}

	article.Paragraphs = contentParagraphs(doc, config)

	return article
}

// firstMatch returns the first element, across the selectors in order, that
// carries non-empty text.
func firstMatch(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		var found *goquery.Selection
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if collapse(s.Text()) != "" {
				found = s
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// contentParagraphs returns the body paragraphs. Unclassed paragraphs that
// are direct children of the content container are preferred; when there are
// none, every paragraph in the container is considered and captions, credits
// and promotional lines are filtered out.
func contentParagraphs(doc *goquery.Document, config scraper.ArticleConfig) []string {
	var paragraphs []string

	if config.ContentSelector != "" {
		doc.Find(config.ContentSelector).Each(func(_ int, s *goquery.Selection) {
			text := collapse(s.Text())
			if utf8.RuneCountInString(text) > config.MinParagraph {
				paragraphs = append(paragraphs, text)
			}
		})
	}
	if len(paragraphs) > 0 || config.ContainerSelector == "" {
		return paragraphs
	}

	container := doc.Find(config.ContainerSelector).First()
	container.Find("p").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		for _, skip := range config.SkipClasses {
			if strings.Contains(class, skip) {
				return
			}
		}

		text := collapse(s.Text())
		if utf8.RuneCountInString(text) <= config.MinFallback {
			return
		}
		if hasSkipPhrase(text, config.SkipPhrases) {
			return
		}
		paragraphs = append(paragraphs, text)
	})

	return paragraphs
}

// hasSkipPhrase reports whether the opening of text contains one of the
// phrases that mark non-article content.
func hasSkipPhrase(text string, phrases []string) bool {
	head := strings.ToLower(truncateRunes(text, 50))
	for _, phrase := range phrases {
		if strings.Contains(head, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// NormalizeByline turns a byline such as "By John Doe and Jane Smith" into
// a comma-separated author list.
func NormalizeByline(text string) string {
	text = collapse(text)
	if len(text) > 3 && strings.EqualFold(text[:3], "by ") {
		text = text[3:]
	}
	return strings.Join(ParseAuthors(text), ", ")
}

// ParseAuthors splits a single author string into multiple authors if it
// contains common delimiters.
func ParseAuthors(authorText string) []string {
	if authorText == "" {
		return []string{}
	}

	// Split on common delimiters: ", " or " and "
	authors := []string{}

	// Try splitting by ", " first
	if strings.Contains(authorText, ", ") {
		parts := strings.SplitSeq(authorText, ", ")
		for part := range parts {
			part = strings.TrimSpace(part)
			part = strings.TrimPrefix(part, "and ")
			if part != "" {
				authors = append(authors, part)
			}
		}
		return authors
	}

	// Try splitting by " and "
	if strings.Contains(authorText, " and ") {
		parts := strings.SplitSeq(authorText, " and ")
		for part := range parts {
			part = strings.TrimSpace(part)
			if part != "" {
				authors = append(authors, part)
			}
		}
		return authors
	}

	// No delimiters found, return as single author
	return []string{strings.TrimSpace(authorText)}
}

// collapse normalizes whitespace: runs of spaces and newlines become a single
// space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
