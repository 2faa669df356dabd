package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/red-door-collective/eviction-tracker/internal/caselink"
	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/pleadings"
	"github.com/red-door-collective/eviction-tracker/internal/store"
)

// withPipeline opens the store and runs fn with a document pipeline.
func withPipeline(cmd *cobra.Command, fn func(p *pleadings.Pipeline, st store.Store) error) error {
	if err := cfg.Validate("documents"); err != nil {
		return err
	}
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(pleadings.NewPipeline(cfg.Documents, cfg.PDF, st), st)
}

var bulkExtractCmd = &cobra.Command{
	Use:   "bulk-extract-pleading-document-details",
	Short: "Download and extract text for every document missing it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPipeline(cmd, func(p *pleadings.Pipeline, _ store.Store) error {
			return p.BulkExtractDetails(cmd.Context())
		})
	},
}

var classifyKind string

var classifyCmd = &cobra.Command{
	Use:   "classify-documents",
	Short: "Re-run document classification over stored text",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var kind *model.PleadingKind
		switch classifyKind {
		case "all":
		case "judgment":
			k := model.PleadingJudgment
			kind = &k
		case "detainer-warrant":
			k := model.PleadingDetainerWarrant
			kind = &k
		default:
			return eris.Errorf("unknown kind %q (judgment, detainer-warrant, all)", classifyKind)
		}
		return withPipeline(cmd, func(p *pleadings.Pipeline, _ store.Store) error {
			return p.ClassifyDocuments(cmd.Context(), kind)
		})
	},
}

var ocrSince string

var tryOCRCmd = &cobra.Command{
	Use:   "try-ocr-detainer-warrants",
	Short: "OCR unclassified documents that resisted native extraction",
	RunE: func(cmd *cobra.Command, _ []string) error {
		since := time.Now().In(model.Nashville).AddDate(-1, 0, 0)
		if ocrSince != "" {
			d, err := parseDay(ocrSince)
			if err != nil {
				return err
			}
			since = d
		}
		return withPipeline(cmd, func(p *pleadings.Pipeline, _ store.Store) error {
			return p.TryOCRDetainerWarrants(cmd.Context(), since)
		})
	},
}

var updateJudgmentsCmd = &cobra.Command{
	Use:   "update-judgments-from-documents",
	Short: "Parse judgment documents and write judgments onto cases",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPipeline(cmd, func(p *pleadings.Pipeline, _ store.Store) error {
			return p.UpdateJudgmentsFromDocuments(cmd.Context())
		})
	},
}

var updateWarrantsCmd = &cobra.Command{
	Use:   "update-warrants-from-documents",
	Short: "Extract property addresses from detainer warrant documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPipeline(cmd, func(p *pleadings.Pipeline, _ store.Store) error {
			return p.UpdateWarrantsFromDocuments(cmd.Context())
		})
	},
}

var pickAddressesCmd = &cobra.Command{
	Use:   "pick-best-addresses",
	Short: "Promote defendant addresses onto warrants missing one",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPipeline(cmd, func(p *pleadings.Pipeline, _ store.Store) error {
			return p.PickBestAddresses(cmd.Context())
		})
	},
}

var extractTextCmd = &cobra.Command{
	Use:   "extract-text <url>",
	Short: "Extract and print the text of one pleading document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(p *pleadings.Pipeline, st store.Store) error {
			doc := &model.PleadingDocument{
				URL:      args[0],
				DocketID: caselink.DocketIDFromImagePath(args[0]),
			}
			if _, _, err := st.GetOrCreateCase(cmd.Context(), doc.DocketID); err != nil {
				return err
			}
			if err := p.ExtractDocumentText(cmd.Context(), doc); err != nil {
				return err
			}
			if doc.Text == nil {
				return eris.Errorf("no text extracted from %s", args[0])
			}
			fmt.Println(*doc.Text)
			return nil
		})
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyKind, "kind", "all", "restrict the sweep to one kind (judgment, detainer-warrant, all)")
	tryOCRCmd.Flags().StringVar(&ocrSince, "since", "", "only consider documents created on or after this date (default one year ago)")
	rootCmd.AddCommand(bulkExtractCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(tryOCRCmd)
	rootCmd.AddCommand(updateJudgmentsCmd)
	rootCmd.AddCommand(updateWarrantsCmd)
	rootCmd.AddCommand(pickAddressesCmd)
	rootCmd.AddCommand(extractTextCmd)
}
