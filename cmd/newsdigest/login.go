package main

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/pevans/newsdigest/browser"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in by hand and save the browser session",
		Long: `Login opens a visible browser at the site's login page. Sign in, then press
Enter in this terminal. The session's cookies are written to the auth state
file, which can be used directly or stored in AUTH_STATE_JSON.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				outPath = a.cfg.Auth.StateFile
			}

			wait := func(ctx context.Context) error {
				a.printer.Info("Sign in in the browser window, then press Enter here.")
				return waitForEnter(ctx, a.stdin)
			}

			session, err := browser.Login(cmd.Context(), a.cfg.BrowserOptions(), a.cfg.Site.LoginURL, wait, a.logger)
			if err != nil {
				return err
			}

			if err := session.Save(outPath); err != nil {
				return err
			}

			a.printer.Success("Saved %d cookies to %s", len(session.Cookies), outPath)
			a.printer.Print("For scheduled runs, store the file's contents in the AUTH_STATE_JSON secret.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "where to write the session (default auth.state_file)")

	return cmd
}

// waitForEnter blocks until a line (or EOF) is read from r or ctx is done.
func waitForEnter(ctx context.Context, r io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}
