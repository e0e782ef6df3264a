package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"yield/internal/config"
	"yield/internal/logger"
	"yield/internal/pocketbase"
	"yield/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the invoicing HTTP API",
	Long: `Start the HTTP API: client and invoice CRUD, draft creation,
and the in-app Harvest import endpoint (POST /api/import/harvest).

Required environment variables:
  PB_URL             - Record store base URL
  PB_ADMIN_EMAIL     - Store administrator identity
  PB_ADMIN_PASSWORD  - Store administrator credential
  SERVER_ADDR        - Listen address (default :4000)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides SERVER_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.ServerAddr
	}

	store := pocketbase.NewClient(cfg.PBURL, cfg.PBAdminEmail, cfg.PBAdminPassword)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("record store at %s is not reachable: %w", cfg.PBURL, err)
	}

	log.Info().Str("store", cfg.PBURL).Msg("record store reachable")

	return server.New(store).ListenAndServe(addr)
}
