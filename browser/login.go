package browser

import (
	"context"
	"fmt"
	"log/slog"
)

// Login opens a visible browser at loginURL so that an operator can sign in
// by hand. Once wait returns, the browser's session state is captured and
// returned. wait typically blocks until the operator presses Enter.
func Login(ctx context.Context, opts Options, loginURL string, wait func(context.Context) error, logger *slog.Logger) (*Session, error) {
	opts.Headless = false
	chrome, err := NewChrome(ctx, opts, nil, logger)
	if err != nil {
		return nil, err
	}
	defer chrome.Close()

	if _, err := chrome.Open(ctx, loginURL, 0); err != nil {
		return nil, err
	}

	if err := wait(ctx); err != nil {
		return nil, fmt.Errorf("login aborted: %w", err)
	}

	session, err := chrome.Session(ctx)
	if err != nil {
		return nil, err
	}
	if len(session.Cookies) == 0 {
		return nil, fmt.Errorf("%w: browser has no cookies; was the login completed?", ErrInvalidSession)
	}

	return session, nil
}
