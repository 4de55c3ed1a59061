package scraper

import (
	"fmt"
	"net/url"
	"regexp"
)

// Discovery modes.
const (
	ModeList = "list"
	ModeFeed = "feed"
)

// SiteConfig describes where a site's articles are listed and how to pull
// fields out of an article page.
type SiteConfig struct {
	DiscoveryMode string        `yaml:"discovery_mode" json:"discovery_mode"` // "list" or "feed"
	HomeURL       string        `yaml:"home_url" json:"home_url"`
	LoginURL      string        `yaml:"login_url" json:"login_url"`
	ListURL       string        `yaml:"list_url" json:"list_url"`
	FeedURL       string        `yaml:"feed_url,omitempty" json:"feed_url,omitempty"`
	List          ListConfig    `yaml:"list" json:"list"`
	Article       ArticleConfig `yaml:"article" json:"article"`
	Auth          AuthConfig    `yaml:"auth" json:"auth"`
}

// ListConfig defines how to discover article links on a listing page.
type ListConfig struct {
	LinkSelector     string   `yaml:"link_selector" json:"link_selector"`
	ArticlePattern   string   `yaml:"article_pattern" json:"article_pattern"`
	ExcludePatterns  []string `yaml:"exclude_patterns" json:"exclude_patterns"`
	HeadlineSelector string   `yaml:"headline_selector" json:"headline_selector"`
	MinTitleLength   int      `yaml:"min_title_length" json:"min_title_length"`
	MaxTitleLength   int      `yaml:"max_title_length" json:"max_title_length"`
}

// ArticleConfig defines how to extract fields from an article page. Each
// selector list is tried in order and the first match wins.
type ArticleConfig struct {
	TitleSelectors    []string `yaml:"title_selectors" json:"title_selectors"`
	AuthorSelectors   []string `yaml:"author_selectors" json:"author_selectors"`
	DateSelectors     []string `yaml:"date_selectors" json:"date_selectors"`
	ContentSelector   string   `yaml:"content_selector" json:"content_selector"`
	ContainerSelector string   `yaml:"container_selector" json:"container_selector"`
	SkipClasses       []string `yaml:"skip_classes" json:"skip_classes"`
	SkipPhrases       []string `yaml:"skip_phrases" json:"skip_phrases"`
	MinParagraph      int      `yaml:"min_paragraph" json:"min_paragraph"`
	MinFallback       int      `yaml:"min_fallback_paragraph" json:"min_fallback_paragraph"`
}

// AuthConfig describes the markers of an unauthenticated session.
type AuthConfig struct {
	// GateSelectors match paywall or login overlays on an article page.
	GateSelectors []string `yaml:"gate_selectors" json:"gate_selectors"`
	// LoginSelectors match login or subscribe controls on the home page.
	LoginSelectors []string `yaml:"login_selectors" json:"login_selectors"`
	// LoginTexts match the visible text of buttons and links.
	LoginTexts []string `yaml:"login_texts" json:"login_texts"`
}

// Default returns the configuration for The Athletic.
func Default() SiteConfig {
	return SiteConfig{
		DiscoveryMode: ModeList,
		HomeURL:       "https://www.nytimes.com/athletic/",
		LoginURL:      "https://www.nytimes.com/athletic/login/",
		ListURL:       "https://www.nytimes.com/athletic/news/",
		List: ListConfig{
			LinkSelector:   `a[href*="nytimes.com/athletic/"]`,
			ArticlePattern: `nytimes\.com/athletic/\d+/\d{4}/\d{2}/\d{2}/`,
			ExcludePatterns: []string{
				"/login", "/subscribe", "/account", "/author/", "/team/", "/league/", "/podcast/",
			},
			HeadlineSelector: "h5, h4, h3, h2, h1",
			MinTitleLength:   10,
			MaxTitleLength:   200,
		},
		Article: ArticleConfig{
			TitleSelectors: []string{
				"h1", "article h1", `[data-testid="headline"]`, ".headline", ".article-title",
			},
			AuthorSelectors: []string{
				`[data-testid="byline"]`, ".byline", ".author", `a[href*="/author/"]`,
			},
			DateSelectors: []string{
				"time", `[data-testid="timestamp"]`, ".publish-date", ".date",
			},
			ContentSelector:   "div.article-content-container > p:not([class])",
			ContainerSelector: "div.article-content-container",
			SkipClasses:       []string{"ImageCaption", "ImageCredit", "ad-slug", "showcase"},
			SkipPhrases:       []string{"advertisement", "follow", "twitter", "@", "getty images", "photo:"},
			MinParagraph:      10,
			MinFallback:       20,
		},
		Auth: AuthConfig{
			GateSelectors: []string{
				`[data-testid="paywall"]`, `[data-testid="gateway"]`, "#gateway-content", ".paywall",
			},
			LoginSelectors: []string{`a[href*="/login"]`, `a[href*="/subscribe"]`},
			LoginTexts:     []string{"Log In", "Subscribe"},
		},
	}
}

// Validate checks that the configuration can drive a scrape.
func (c *SiteConfig) Validate() error {
	switch c.DiscoveryMode {
	case ModeList:
		if err := validURL(c.ListURL); err != nil {
			return fmt.Errorf("list_url: %w", err)
		}
	case ModeFeed:
		if err := validURL(c.FeedURL); err != nil {
			return fmt.Errorf("feed_url: %w", err)
		}
	default:
		return fmt.Errorf("discovery_mode must be %q or %q, got %q", ModeList, ModeFeed, c.DiscoveryMode)
	}

	if c.HomeURL != "" {
		if err := validURL(c.HomeURL); err != nil {
			return fmt.Errorf("home_url: %w", err)
		}
	}

	if _, err := c.List.Pattern(); err != nil {
		return err
	}
	if c.List.LinkSelector == "" {
		return fmt.Errorf("list.link_selector is required")
	}
	if len(c.Article.TitleSelectors) == 0 {
		return fmt.Errorf("article.title_selectors is required")
	}
	if c.Article.ContentSelector == "" && c.Article.ContainerSelector == "" {
		return fmt.Errorf("article.content_selector or article.container_selector is required")
	}

	return nil
}

// Pattern returns the compiled article URL pattern.
func (l ListConfig) Pattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(l.ArticlePattern)
	if err != nil {
		return nil, fmt.Errorf("list.article_pattern: %w", err)
	}
	return re, nil
}

func validURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("has no host")
	}
	return nil
}
