package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pevans/newsdigest/notify"
	"github.com/pevans/newsdigest/output"
	"github.com/spf13/cobra"
)

func newSendCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Post a day's summary to the webhook",
		Long: `Send reads the summary for a date (default yesterday) and posts it as a
single text message to notify.webhook_url. A failed send is not retried.`,
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

			rec, err := summaries.Load(d)
			if errors.Is(err, os.ErrNotExist) {
				return output.Wrap(err, output.ExitGeneral, fmt.Sprintf("no summary for %s", d),
					fmt.Sprintf("Run 'newsdigest summarize --date %s' first", d))
			}
			if err != nil {
				return err
			}

			sender, err := notify.NewFeishu(a.cfg.Notify.SenderConfig(), a.logger)
			if err != nil {
				return err
			}

			resp, err := sender.Send(cmd.Context(), rec.Text)
			if err != nil {
				return err
			}

			a.printer.Success("Sent summary for %s", d)
			a.logger.Debug("webhook response", "body", resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date to send, YYYY-MM-DD or YYYYMMDD (default yesterday)")

	return cmd
}
