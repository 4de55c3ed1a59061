package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pevans/newsdigest/browser"
	"github.com/pevans/newsdigest/config"
	"github.com/pevans/newsdigest/logger"
	"github.com/pevans/newsdigest/output"
	"github.com/spf13/cobra"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfgFile string
	quiet   bool
	verbose bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	logger  *slog.Logger
	printer *output.Printer
	loc     *time.Location
	now     func() time.Time

	openBrowser func(ctx context.Context, opts browser.Options, session *browser.Session, logger *slog.Logger) (browser.Browser, error)
}

func newApp() *app {
	return &app{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      logger.Discard(),
		now:         time.Now,
		openBrowser: openChrome,
	}
}

func openChrome(ctx context.Context, opts browser.Options, session *browser.Session, logger *slog.Logger) (browser.Browser, error) {
	chrome, err := browser.NewChrome(ctx, opts, session, logger)
	if err != nil {
		return nil, err
	}
	return chrome, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "newsdigest",
		Short: "Scrape subscriber articles and publish a daily digest",
		Long: `newsdigest fetches new articles from a subscription news site using a
saved browser session, stores each one once under a directory for its
publication date, and turns a day's articles into a summary that can be
posted to a chat webhook.

Typical schedule:
  newsdigest scrape              # every few hours
  newsdigest summarize           # once a day, summarizes yesterday
  newsdigest send                # after summarize`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "only print errors")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return output.Wrap(err, output.ExitUsage, "invalid flags", "Run '"+cmd.CommandPath()+" --help'")
	})

	root.AddCommand(
		newScrapeCmd(a),
		newSummarizeCmd(a),
		newSendCmd(a),
		newLoginCmd(a),
		newStatusCmd(a),
		newVerifyCmd(a),
		newVersionCmd(a),
	)

	return root
}

// init loads configuration and builds the logger and printer.
func (a *app) init() error {
	a.printer = a.newPrinter()

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return output.Wrap(err, output.ExitConfig, "failed to load configuration",
			"Check "+config.DefaultPath+" or the file passed with --config")
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.logger = logger.New(level, cfg.Log.Format, a.stderr)

	loc, err := cfg.Location()
	if err != nil {
		return output.Wrap(err, output.ExitConfig, "invalid timezone", "")
	}
	a.loc = loc

	a.logger.Debug("configuration loaded",
		"articles_dir", cfg.Storage.ArticlesDir,
		"summary_dir", cfg.Storage.SummaryDir,
		"index_type", cfg.IndexConfig().Type,
		"timezone", cfg.Timezone,
	)

	return nil
}

func (a *app) newPrinter() *output.Printer {
	if a.stdout == os.Stdout && a.stderr == os.Stderr {
		return output.NewPrinter(a.quiet)
	}
	return output.NewPrinterWithWriters(a.stdout, a.stderr, a.quiet)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return output.ExitSuccess
	}

	err = classify(err)
	if a.printer == nil {
		a.printer = a.newPrinter()
	}
	a.printer.FormatError(err)
	return output.ExitCodeOf(err)
}

// usageArgs tags argument validation failures with the usage exit code.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return output.Wrap(err, output.ExitUsage, "invalid arguments", "Run '"+cmd.CommandPath()+" --help'")
		}
		return nil
	}
}

func usageError(msg string) error {
	return &output.CLIError{Summary: msg, ExitCode: output.ExitUsage}
}
