package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestDefault_Valid verifies the built-in site configuration validates
func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeList, cfg.DiscoveryMode)
	assert.Equal(t, "https://www.nytimes.com/athletic/news/", cfg.ListURL)
	assert.Equal(t, 10, cfg.List.MinTitleLength)
	assert.Equal(t, 200, cfg.List.MaxTitleLength)
	assert.Contains(t, cfg.List.ExcludePatterns, "/podcast/")
}

// TestPattern_MatchesArticleURLs verifies the default article pattern
func TestPattern_MatchesArticleURLs(t *testing.T) {
	cfg := Default()
	re, err := cfg.List.Pattern()
	require.NoError(t, err)

	assert.True(t, re.MatchString("https://www.nytimes.com/athletic/6712345/2026/10/18/arsenal-spurs-report/"))
	assert.False(t, re.MatchString("https://www.nytimes.com/athletic/football/premier-league/"))
	assert.False(t, re.MatchString("https://www.nytimes.com/athletic/author/jane-writer/"))
}

// TestValidate_Errors verifies invalid configurations are rejected
func TestValidate_Errors(t *testing.T) {
	tests := map[string]func(*SiteConfig){
		"unknown mode":     func(c *SiteConfig) { c.DiscoveryMode = "crawl" },
		"missing list url": func(c *SiteConfig) { c.ListURL = "" },
		"bad list scheme":  func(c *SiteConfig) { c.ListURL = "ftp://example.com/" },
		"feed without url": func(c *SiteConfig) { c.DiscoveryMode = ModeFeed },
		"bad pattern":      func(c *SiteConfig) { c.List.ArticlePattern = "([" },
		"no link selector": func(c *SiteConfig) { c.List.LinkSelector = "" },
		"no title":         func(c *SiteConfig) { c.Article.TitleSelectors = nil },
		"bad home url":     func(c *SiteConfig) { c.HomeURL = "not a url" },
		"no content": func(c *SiteConfig) {
			c.Article.ContentSelector = ""
			c.Article.ContainerSelector = ""
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestYAML_OverlaysDefaults verifies partial YAML keeps unspecified defaults
func TestYAML_OverlaysDefaults(t *testing.T) {
	cfg := Default()
	doc := `
discovery_mode: feed
feed_url: https://example.com/rss.xml
list:
  exclude_patterns: ["/video/"]
`
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeFeed, cfg.DiscoveryMode)
	assert.Equal(t, []string{"/video/"}, cfg.List.ExcludePatterns)
	assert.Equal(t, "h5, h4, h3, h2, h1", cfg.List.HeadlineSelector)
	assert.NotEmpty(t, cfg.Article.TitleSelectors)
}
