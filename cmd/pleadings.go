package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/caselink"
)

var gatherCmd = &cobra.Command{
	Use:   "gather-pleading-documents <docket-id>...",
	Short: "Scrape pleading document paths for specific cases",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client, err := newPortalClient()
		if err != nil {
			return err
		}
		scraper := caselink.NewCasePageScraper(client, st)

		for _, docketID := range args {
			if err := scraper.ScrapeCase(ctx, docketID, true); err != nil {
				return eris.Wrapf(err, "gather pleading documents for %s", docketID)
			}
			zap.L().Info("gathered pleading documents", zap.String("docket_id", docketID))
		}
		return nil
	},
}

var bulkOlderThanOneYear bool

var gatherBulkCmd = &cobra.Command{
	Use:     "gather-pleading-documents-in-bulk",
	Aliases: []string{"update-pending-warrants"},
	Short:   "Scrape pleading documents for every open warrant needing a check",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client, err := newPortalClient()
		if err != nil {
			return err
		}
		scraper := caselink.NewCasePageScraper(client, st)
		return scraper.ImportDocumentsInBulk(ctx, bulkOlderThanOneYear)
	},
}

var parseMismatchedCmd = &cobra.Command{
	Use:   "parse-mismatched-pleading-documents",
	Short: "Re-parse stored HTML from failed pleading document checks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("documents"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scraper := caselink.NewCasePageScraper(nil, st)
		return scraper.ParseMismatchedDocuments(ctx)
	},
}

func init() {
	gatherCmd.Flags().BoolVar(&recordRequests, "record", false, "save portal request traces for replay")
	gatherBulkCmd.Flags().BoolVar(&bulkOlderThanOneYear, "older-than-one-year", false, "include warrants filed more than a year ago")
	rootCmd.AddCommand(gatherCmd)
	rootCmd.AddCommand(gatherBulkCmd)
	rootCmd.AddCommand(parseMismatchedCmd)
}
