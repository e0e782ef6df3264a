package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"yield/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "yield",
	Short: "Yield - self-hosted invoicing backed by a PocketBase record store",
	Long: `Yield manages clients, invoices and line items in a PocketBase
record store, and migrates existing billing data out of Harvest
(CSV export or the Harvest API).

Run "yield import" to migrate data or "yield serve" to start the HTTP API.`,
	Version: version,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
