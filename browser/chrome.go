package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// Chrome is a Browser backed by a local Chrome or Chromium process.
type Chrome struct {
	opts        Options
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

var _ Browser = (*Chrome)(nil)

// NewChrome starts a browser and, when session is non-nil, installs its
// cookies before any page is opened. The browser lives until Close is called
// or ctx is cancelled.
func NewChrome(ctx context.Context, opts Options, session *Session, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = defaults.Width, defaults.Height
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chrome error", "message", fmt.Sprintf(format, args...))
		}),
	)

	c := &Chrome{
		opts:        opts,
		logger:      logger,
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}

	// The first Run launches the process.
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if session != nil {
		if err := chromedp.Run(browserCtx, network.SetCookies(cookieParams(session.Cookies))); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to install session cookies: %w", err)
		}
		logger.Debug("installed session cookies", "count", len(session.Cookies))
	}

	return c, nil
}

// Open implements Browser.
func (c *Chrome) Open(ctx context.Context, url string, scrolls int) (*Page, error) {
	tctx, cancel := context.WithTimeout(c.ctx, c.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(tctx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}

	actions := []chromedp.Action{chromedp.Sleep(c.opts.SettleDelay)}
	for range scrolls {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(c.opts.SettleDelay),
		)
	}
	if scrolls > 0 {
		actions = append(actions, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil))
	}

	var html, location string
	actions = append(actions,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(tctx, actions...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to render %s: %w", url, err)
	}

	page := &Page{URL: location, HTML: html}
	if resp != nil {
		page.Status = int(resp.Status)
	}

	c.logger.Debug("opened page", "url", url, "status", page.Status, "bytes", len(html))
	return page, nil
}

// Session captures the browser's current cookies and the local storage of
// the page that is currently open.
func (c *Chrome) Session(ctx context.Context) (*Session, error) {
	tctx, cancel := context.WithTimeout(c.ctx, c.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var cookies []*network.Cookie
	var origin string
	var entries [][]string
	err := chromedp.Run(tctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(`window.location.origin`, &origin),
		chromedp.Evaluate(`Object.entries(window.localStorage)`, &entries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture session state: %w", err)
	}

	s := &Session{Cookies: make([]Cookie, 0, len(cookies)), Origins: []Origin{}}
	for _, nc := range cookies {
		s.Cookies = append(s.Cookies, cookieFromNetwork(nc))
	}

	if origin != "" && origin != "null" && len(entries) > 0 {
		o := Origin{Origin: origin}
		for _, kv := range entries {
			if len(kv) == 2 {
				o.LocalStorage = append(o.LocalStorage, StorageEntry{Name: kv[0], Value: kv[1]})
			}
		}
		s.Origins = append(s.Origins, o)
	}

	return s, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}

func cookieParams(cookies []Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			p.SameSite = network.CookieSameSiteStrict
		case "lax":
			p.SameSite = network.CookieSameSiteLax
		case "none":
			p.SameSite = network.CookieSameSiteNone
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &expires
		}
		params = append(params, p)
	}
	return params
}

func cookieFromNetwork(nc *network.Cookie) Cookie {
	c := Cookie{
		Name:     nc.Name,
		Value:    nc.Value,
		Domain:   nc.Domain,
		Path:     nc.Path,
		Expires:  nc.Expires,
		HTTPOnly: nc.HTTPOnly,
		Secure:   nc.Secure,
		SameSite: string(nc.SameSite),
	}
	if nc.Session {
		c.Expires = -1
	}
	return c
}
