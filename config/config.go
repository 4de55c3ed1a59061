// Package config loads newsdigest settings from newsdigest.yaml, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pevans/newsdigest/browser"
	"github.com/pevans/newsdigest/index"
	"github.com/pevans/newsdigest/llm"
	"github.com/pevans/newsdigest/notify"
	"github.com/pevans/newsdigest/scraper"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "newsdigest.yaml"

// StorageConfig locates articles, summaries and the index.
type StorageConfig struct {
	ArticlesDir string       `yaml:"articles_dir"`
	SummaryDir  string       `yaml:"summary_dir"`
	Index       index.Config `yaml:"index"`
}

// Viewport is the browser window size.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// BrowserConfig controls the headless browser and fetch pacing.
type BrowserConfig struct {
	Headless        bool          `yaml:"headless"`
	UserAgent       string        `yaml:"user_agent"`
	Viewport        Viewport      `yaml:"viewport"`
	Timeout         time.Duration `yaml:"timeout"`
	Scrolls         int           `yaml:"scrolls"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	RequestInterval time.Duration `yaml:"request_interval"`
	ChromePath      string        `yaml:"chrome_path"`
}

// AuthConfig locates the browser session. StateJSON is only ever set from
// the environment and takes precedence over StateFile.
type AuthConfig struct {
	StateFile string `yaml:"state_file"`
	StateJSON string `yaml:"-"`
}

// LLMConfig configures summary generation.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	PromptFile  string        `yaml:"prompt_file"`
}

// NotifyConfig configures summary delivery.
type NotifyConfig struct {
	WebhookURL         string        `yaml:"webhook_url"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the complete newsdigest configuration.
type Config struct {
	Storage  StorageConfig      `yaml:"storage"`
	Site     scraper.SiteConfig `yaml:"site"`
	Browser  BrowserConfig      `yaml:"browser"`
	Auth     AuthConfig         `yaml:"auth"`
	LLM      LLMConfig          `yaml:"llm"`
	Notify   NotifyConfig       `yaml:"notify"`
	Timezone string             `yaml:"timezone"`
	Log      LogConfig          `yaml:"log"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	opts := browser.DefaultOptions()
	return &Config{
		Storage: StorageConfig{
			ArticlesDir: "articles",
			SummaryDir:  "summary",
			Index:       index.Config{Type: index.TypeJSON},
		},
		Site: scraper.Default(),
		Browser: BrowserConfig{
			Headless:        opts.Headless,
			UserAgent:       opts.UserAgent,
			Viewport:        Viewport{Width: opts.Width, Height: opts.Height},
			Timeout:         opts.Timeout,
			Scrolls:         5,
			SettleDelay:     opts.SettleDelay,
			RequestInterval: 2 * time.Second,
		},
		Auth: AuthConfig{StateFile: "auth_state.json"},
		LLM: LLMConfig{
			BaseURL:     llm.DefaultBaseURL,
			Model:       llm.DefaultModel,
			MaxTokens:   llm.DefaultMaxTokens,
			Temperature: llm.DefaultTemperature,
			Timeout:     llm.DefaultTimeout,
		},
		Notify:   NotifyConfig{Timeout: 30 * time.Second},
		Timezone: "Europe/London",
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks every setting and reports all problems found, joined
// into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.ArticlesDir == "" {
		errs = append(errs, errors.New("storage.articles_dir is required"))
	}
	if c.Storage.SummaryDir == "" {
		errs = append(errs, errors.New("storage.summary_dir is required"))
	}
	switch c.Storage.Index.Type {
	case "", index.TypeJSON, index.TypeSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.index.type %q is not one of %s, %s",
			c.Storage.Index.Type, index.TypeJSON, index.TypeSQLite))
	}

	if err := c.Site.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("site: %w", err))
	}

	if c.Browser.RequestInterval <= 0 {
		errs = append(errs, errors.New("browser.request_interval must be positive"))
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser.timeout must be positive"))
	}
	if c.Browser.Scrolls < 0 {
		errs = append(errs, errors.New("browser.scrolls must not be negative"))
	}
	if c.Browser.SettleDelay < 0 {
		errs = append(errs, errors.New("browser.settle_delay must not be negative"))
	}

	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm.max_tokens must be positive"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Location returns the partition time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IndexConfig returns the index settings with the DSN defaulted to a file
// inside the articles directory.
func (c *Config) IndexConfig() index.Config {
	cfg := c.Storage.Index
	if cfg.Type == "" {
		cfg.Type = index.TypeJSON
	}
	if cfg.DSN == "" {
		name := "index.json"
		if cfg.Type == index.TypeSQLite {
			name = "index.db"
		}
		cfg.DSN = filepath.Join(c.Storage.ArticlesDir, name)
	}
	return cfg
}

// BrowserOptions converts the browser section for browser.NewChrome.
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:    c.Browser.Headless,
		UserAgent:   c.Browser.UserAgent,
		Width:       c.Browser.Viewport.Width,
		Height:      c.Browser.Viewport.Height,
		ExecPath:    c.Browser.ChromePath,
		Timeout:     c.Browser.Timeout,
		SettleDelay: c.Browser.SettleDelay,
	}
}

// ClientConfig converts the llm section for llm.New.
func (c LLMConfig) ClientConfig() llm.Config {
	return llm.Config{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

// SenderConfig converts the notify section for notify.NewFeishu.
func (c NotifyConfig) SenderConfig() notify.Config {
	return notify.Config{
		WebhookURL:         c.WebhookURL,
		InsecureSkipVerify: c.InsecureSkipVerify,
		Timeout:            c.Timeout,
	}
}
