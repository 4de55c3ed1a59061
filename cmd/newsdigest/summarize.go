package main

import (
	"errors"

	"github.com/pevans/newsdigest/llm"
	"github.com/pevans/newsdigest/summary"
	"github.com/spf13/cobra"
)

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		date  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Generate the summary for one day's articles",
		Long: `Summarize sends every article stored for a date to the language model in a
single prompt and writes the response to the summary directory. The date
defaults to yesterday in the configured time zone. An existing summary is
kept unless --force is given.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.resolveDate(date)
			if err != nil {
				return err
			}

			summaries, err := a.openSummaries()
			if err != nil {
				return err
			}

			if !force {
				exists, err := summaries.Exists(d)
				if err != nil {
					return err
				}
				if exists {
					a.printer.Info("Summary for %s already exists: %s (use --force to regenerate)", d, summaries.Path(d))
					return nil
				}
			}

			articles, err := a.openArchive()
			if err != nil {
				return err
			}

			client, err := llm.New(a.cfg.LLM.ClientConfig())
			if err != nil {
				return err
			}
			a.logger.Info("summarizing articles", "date", d.String(), "model", client.Model())

			tmpl, err := summary.LoadTemplate(a.cfg.LLM.PromptFile)
			if err != nil {
				return err
			}

			gen, err := summary.NewGenerator(articles, summaries, client, tmpl, a.logger)
			if err != nil {
				return err
			}

			result, err := gen.Generate(cmd.Context(), d, force)
			if errors.Is(err, summary.ErrSummaryExists) {
				a.printer.Info("Summary for %s already exists: %s (use --force to regenerate)", d, result.Path)
				return nil
			}
			if err != nil {
				return err
			}

			a.printer.Success("Summarized %d articles for %s: %s", result.Articles, d, result.Path)
			if result.Excluded > 0 {
				a.printer.Warning("%d stored articles were unreadable or filed under another date and were left out", result.Excluded)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date to summarize, YYYY-MM-DD or YYYYMMDD (default yesterday)")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate an existing summary")

	return cmd
}
