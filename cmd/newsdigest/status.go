package main

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pevans/newsdigest/article"
	"github.com/pevans/newsdigest/output"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show stored articles and summaries per date",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return usageError("--days must not be negative")
			}

			store, err := a.openArchive()
			if err != nil {
				return err
			}
			summaries, err := a.openSummaries()
			if err != nil {
				return err
			}
			idx, err := a.openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()

			articleDates, err := store.Dates()
			if err != nil {
				return err
			}
			summaryDates, err := summaries.Dates()
			if err != nil {
				return err
			}

			dates := mergeDates(articleDates, summaryDates)
			if days > 0 && len(dates) > days {
				dates = dates[:days]
			}

			table := output.NewTable(a.stdout, "Date", "Articles", "Unreadable", "Summary")
			for _, d := range dates {
				listed, err := store.ListByDate(d)
				if err != nil {
					return err
				}
				hasSummary := "no"
				if slices.Contains(summaryDates, d) {
					hasSummary = "yes"
				}
				table.AddRow(d.String(), strconv.Itoa(len(listed.Records)), strconv.Itoa(len(listed.Errors)), hasSummary)
			}

			indexed, err := idx.Len()
			if err != nil {
				return err
			}

			if table.Len() == 0 {
				a.printer.Info("No articles stored in %s", store.Root())
			} else if !a.quiet {
				if err := table.Render(); err != nil {
					return err
				}
			}
			a.printer.Print("Indexed URLs: %d", indexed)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 14, "show at most this many of the most recent dates (0 shows all)")

	return cmd
}

// mergeDates returns the union of both lists, newest first.
func mergeDates(a, b []article.Date) []article.Date {
	merged := append(slices.Clone(a), b...)
	slices.SortFunc(merged, func(x, y article.Date) int {
		return strings.Compare(y.Compact(), x.Compact())
	})
	return slices.Compact(merged)
}
