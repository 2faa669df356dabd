package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/docket"
	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/pdftext"
)

var docketWeekOf string

var importDocketCmd = &cobra.Command{
	Use:   "import-sessions-docket",
	Short: "Import a week of hearings from the published sessions dockets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("docket"); err != nil {
			return err
		}

		from := time.Now().In(model.Nashville)
		if docketWeekOf != "" {
			d, err := parseDay(docketWeekOf)
			if err != nil {
				return err
			}
			from = d
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		importer := docket.NewImporter(
			docket.NewClient(cfg.Docket),
			pdftext.NewPdfToHTML(cfg.PDF.PdfToHTMLPath),
			st,
		)
		if err := importer.ImportWeek(ctx, from); err != nil {
			return err
		}

		zap.L().Info("sessions docket import complete", zap.Time("week_of", from))
		return nil
	},
}

func init() {
	importDocketCmd.Flags().StringVar(&docketWeekOf, "week-of", "", "first day of the week to import (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(importDocketCmd)
}
