package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/proofmill/internal/analytics"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Query solve performance analytics",
}

var analyticsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Solve outcomes and average iteration counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetString("since")
		summary, err := analytics.QuerySolveSummary(database, since)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Total solves:    %d\n", summary.Total)
		fmt.Fprintf(w, "Accepted:        %d\n", summary.Accepted)
		fmt.Fprintf(w, "Aborted:         %d\n", summary.Aborted)
		fmt.Fprintf(w, "Errored:         %d\n", summary.Errored)
		fmt.Fprintf(w, "Avg iterations:  %.1f\n", summary.AvgIterations)
		return nil
	},
}

var analyticsVerdictsCmd = &cobra.Command{
	Use:   "verdicts",
	Short: "Verdict breakdown by status and verification method",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetString("since")
		breakdown, err := analytics.QueryVerdictBreakdown(database, since)
		if err != nil {
			return err
		}
		if len(breakdown) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No verdicts recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-14s %-10s %-8s %s\n", "STATUS", "METHOD", "COUNT", "AVG CONF")
		for _, b := range breakdown {
			fmt.Fprintf(w, "%-14s %-10s %-8d %.2f\n", b.Status, b.Method, b.Count, b.AvgConfidence)
		}
		return nil
	},
}

var analyticsModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Per-model call volumes, failure rates and latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetString("since")
		stats, err := analytics.QueryModelStats(database, since)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No model calls recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-30s %-7s %-9s %-12s %-12s %s\n", "MODEL", "CALLS", "FAIL%", "AVG MS", "P95 MS", "TOKENS")
		for _, s := range stats {
			fmt.Fprintf(w, "%-30s %-7d %-9.1f %-12.0f %-12.0f %d\n",
				s.Model, s.Calls, s.FailureRate*100, s.AvgLatencyMs, s.P95LatencyMs, s.TotalTokens)
		}
		return nil
	},
}

var analyticsIterationsCmd = &cobra.Command{
	Use:   "iterations",
	Short: "Distribution of verification iterations per solve",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetString("since")
		dist, err := analytics.QueryIterationDist(database, since)
		if err != nil {
			return err
		}
		if len(dist) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No verdicts recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-12s %s\n", "ITERATIONS", "SOLVES")
		for _, d := range dist {
			fmt.Fprintf(w, "%-12d %d\n", d.Iterations, d.Solves)
		}
		return nil
	},
}

func init() {
	analyticsCmd.PersistentFlags().String("since", "", "Only include events at or after this timestamp")
	analyticsCmd.AddCommand(analyticsSummaryCmd)
	analyticsCmd.AddCommand(analyticsVerdictsCmd)
	analyticsCmd.AddCommand(analyticsModelsCmd)
	analyticsCmd.AddCommand(analyticsIterationsCmd)
}
