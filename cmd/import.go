package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"yield/internal/config"
	"yield/internal/importer"
	"yield/internal/logger"
	"yield/internal/pocketbase"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import Harvest billing data into the record store",
	Long: `Import clients, invoices and line items from Harvest.

By default the importer reads a Harvest "All invoices" report export
(.csv or .xlsx). Without an explicit file argument it picks the first
*harvest*.csv in the working directory, falling back to ./invoices.csv.
With --from-api it pulls clients, contacts and invoices from the
Harvest REST API instead.

Re-running an import is safe: clients and invoice numbers that already
exist are skipped.

Required environment variables:
  PB_URL             - Record store base URL (default http://localhost:8090)
  PB_ADMIN_EMAIL     - Store administrator identity
  PB_ADMIN_PASSWORD  - Store administrator credential
  HARVEST_ACCOUNT_ID - Harvest account id (--from-api only)
  HARVEST_TOKEN      - Harvest personal access token (--from-api only)`,
	Example: `  # Import a CSV export found in the working directory
  yield import

  # Import a specific export
  yield import ~/Downloads/harvest_invoices_2024.csv

  # Pull everything from the Harvest API
  yield import --from-api`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("from-api", false, "Import from the Harvest REST API instead of a file")
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")
	cmd.SilenceUsage = true

	fromAPI, _ := cmd.Flags().GetBool("from-api")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var source importer.Source
	if fromAPI {
		if err := cfg.ValidateHarvestAPI(); err != nil {
			return err
		}
		source = importer.NewHarvestSource(cfg.HarvestAccountID, cfg.HarvestToken, cfg.HarvestBaseURL)
	} else {
		var explicit string
		if len(args) > 0 {
			explicit = args[0]
		}
		path := importer.FindExportFile(explicit, ".")
		log.Info().Str("file", path).Msg("using report file")
		source = importer.NewFileSource(path)
	}

	store := pocketbase.NewClient(cfg.PBURL, cfg.PBAdminEmail, cfg.PBAdminPassword)

	report, err := importer.New(store).Run(context.Background(), source)
	if err != nil {
		return err
	}

	// Partial skips and failures are reported, not fatal: the run still
	// exits 0 and the caller reads the summary.
	fmt.Printf("\nClients:  %d created, %d already existed\n",
		report.ClientsCreated, report.ClientsSkipped)
	fmt.Printf("Invoices: %d created, %d skipped (%d missing fields, %d no client, %d duplicate), %d failed\n",
		report.InvoicesCreated, report.InvoicesSkipped(),
		report.SkippedMissingFields, report.SkippedNoClient, report.SkippedDuplicate,
		report.InvoicesFailed)

	if len(report.Errors) > 0 {
		fmt.Printf("\nErrors (first %d):\n", len(report.Errors))
		for _, msg := range report.Errors {
			fmt.Printf("  %s\n", msg)
		}
	}

	fmt.Println("\nImport complete.")
	return nil
}
