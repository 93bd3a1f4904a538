package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "proofmill",
	Short: "proofmill is a multi-model mathematical proof pipeline",
	Long: `proofmill drives mathematical problems through a staged pipeline:
decomposition, diversification, proof generation, verification, and
integration. Proofs are verified formally through Lean 4 when available,
with a strict LLM checker as fallback, and regenerated with feedback until
verified or the iteration budget runs out.

All state is stored in ~/.proofmill/ (SQLite for events, JSON for solves).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(serveCmd)
}
