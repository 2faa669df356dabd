package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/caselink"
)

var importOpts caselink.ImportOptions

var importCmd = &cobra.Command{
	Use:   "import-from-caselink <start> <end>",
	Short: "Import detainer warrant cases filed in a date window",
	Long:  "Searches CaseLink for detainer warrants filed between start and end (YYYY-MM-DD), one ISO week per portal session, and imports the results.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		start, err := parseDay(args[0])
		if err != nil {
			return err
		}
		end, err := parseDay(args[1])
		if err != nil {
			return err
		}
		if end.Before(start) {
			return eris.New("end date precedes start date")
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

		if importOpts.WithPleadingDocuments {
			importOpts.WithCaseDetails = true
		}

		planner := caselink.NewPlanner(client, st)
		if err := planner.ImportWeekly(ctx, start, end, importOpts); err != nil {
			return eris.Wrap(err, "import from caselink")
		}

		zap.L().Info("import complete",
			zap.Time("start", start),
			zap.Time("end", end),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importOpts.WithCaseDetails, "with-case-details", false, "open each case page for hearings and defendants")
	importCmd.Flags().BoolVar(&importOpts.WithPleadingDocuments, "with-pleading-documents", false, "also collect pleading document paths (implies --with-case-details)")
	importCmd.Flags().BoolVar(&importOpts.CancelDuringWorkingHours, "cancel-during-working-hours", false, "pause case scraping between 08:00 and 22:00 local")
	importCmd.Flags().BoolVar(&importOpts.CaseByCase, "case-by-case", false, "refresh stored cases for the window instead of searching the grid")
	importCmd.Flags().BoolVar(&importOpts.PendingOnly, "pending-only", false, "with --case-by-case, refresh only open cases")
	importCmd.Flags().BoolVar(&recordRequests, "record", false, "save portal request traces for replay")
	rootCmd.AddCommand(importCmd)
}
