package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/proofmill/internal/history"
	"github.com/lucasnoah/proofmill/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local status API server",
	Long: `Start a read-only JSON API on localhost exposing solve state, final
documents, analytics, and a Server-Sent Events stream of live solve events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		store, err := history.DefaultStore()
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return web.NewServer(store, database, port).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().Int("port", 8611, "Port to listen on")
}
