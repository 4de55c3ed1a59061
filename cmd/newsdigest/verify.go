package main

import (
	"fmt"

	"github.com/pevans/newsdigest/archive"
	"github.com/pevans/newsdigest/index"
	"github.com/spf13/cobra"
)

// verifyReport compares the index with the stored articles.
type verifyReport struct {
	// Orphaned URLs are indexed but have no stored article. They are
	// never removed: the article may have been pruned on purpose, and an
	// unindexed URL would be fetched again.
	Orphaned []string
	// Unindexed URLs have a stored article but no index entry, which is
	// what a crash between save and record leaves behind.
	Unindexed  []string
	Unreadable []archive.ReadError
	Repaired   int
}

func newVerifyCmd(a *app) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the index and the stored articles agree",
		Long: `Verify lists indexed URLs with no stored article, stored articles missing
from the index and stored files that cannot be read. With --repair, stored
articles missing from the index are recorded. Index entries are never
removed.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			idx, err := a.openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()

			report, err := verify(store, idx, repair)
			if err != nil {
				return err
			}

			for _, url := range report.Orphaned {
				a.printer.Warning("indexed but not stored: %s", url)
			}
			for _, url := range report.Unindexed {
				a.printer.Warning("stored but not indexed: %s", url)
			}
			for _, readErr := range report.Unreadable {
				a.printer.Warning("unreadable: %s: %v", readErr.Filename, readErr.Err)
			}

			switch {
			case repair && report.Repaired > 0:
				a.printer.Success("Recorded %d stored articles in the index", report.Repaired)
			case len(report.Orphaned)+len(report.Unindexed)+len(report.Unreadable) == 0:
				a.printer.Success("Index and article store agree")
			default:
				a.printer.Print("Orphaned: %d  Unindexed: %d  Unreadable: %d",
					len(report.Orphaned), len(report.Unindexed), len(report.Unreadable))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "record stored articles that are missing from the index")

	return cmd
}

func verify(store *archive.Store, idx index.Index, repair bool) (*verifyReport, error) {
	listed, err := store.ListAll()
	if err != nil {
		return nil, err
	}
	indexed, err := idx.URLs()
	if err != nil {
		return nil, err
	}

	report := &verifyReport{Unreadable: listed.Errors}

	stored := make(map[string]bool, len(listed.Records))
	for _, rec := range listed.Records {
		stored[rec.URL] = true
	}
	for _, url := range indexed {
		if !stored[url] {
			report.Orphaned = append(report.Orphaned, url)
		}
	}

	for _, rec := range listed.Records {
		known, err := idx.Contains(rec.URL)
		if err != nil {
			return nil, err
		}
		if known {
			continue
		}
		report.Unindexed = append(report.Unindexed, rec.URL)

		if repair {
			if err := idx.Record(rec.URL); err != nil {
				return nil, fmt.Errorf("%w: failed to record %s in index: %w", archive.ErrStorageUnavailable, rec.URL, err)
			}
			report.Repaired++
		}
	}

	return report, nil
}
