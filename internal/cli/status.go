package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/proofmill/internal/history"
)

var statusCmd = &cobra.Command{
	Use:   "status [solve-id]",
	Short: "Show solve status",
	Long:  `Without arguments, list all solves. With a solve ID, show its full detail.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.DefaultStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		if len(args) == 1 {
			return showSolve(cmd, store, args[0])
		}
		return listSolves(cmd, store)
	},
}

func listSolves(cmd *cobra.Command, store *history.Store) error {
	statusFilter, _ := cmd.Flags().GetString("status")
	states, err := store.List(statusFilter)
	if err != nil {
		return fmt.Errorf("list solves: %w", err)
	}

	if len(states) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No solves found.")
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-38s %-12s %-18s %-5s %s\n", "ID", "STATUS", "STAGE", "ITER", "PROBLEM")
	fmt.Fprintf(w, "%-38s %-12s %-18s %-5s %s\n",
		strings.Repeat("-", 38),
		strings.Repeat("-", 12),
		strings.Repeat("-", 18),
		strings.Repeat("-", 5),
		strings.Repeat("-", 7))
	for _, st := range states {
		fmt.Fprintf(w, "%-38s %-12s %-18s %-5d %s\n",
			st.Problem.ID, st.Status, st.CurrentStage, st.Iteration, oneLine(st.Problem.Statement, 60))
	}
	return nil
}

func showSolve(cmd *cobra.Command, store *history.Store, id string) error {
	st, err := store.Get(id)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Solve %s\n", st.Problem.ID)
	fmt.Fprintf(w, "  Problem:   %s\n", oneLine(st.Problem.Statement, 100))
	fmt.Fprintf(w, "  Status:    %s\n", st.Status)
	fmt.Fprintf(w, "  Stage:     %s\n", st.CurrentStage)
	fmt.Fprintf(w, "  Iteration: %d\n", st.Iteration)
	fmt.Fprintf(w, "  Created:   %s\n", st.CreatedAt)
	fmt.Fprintf(w, "  Updated:   %s\n", st.UpdatedAt)

	if verdicts := st.Verdicts(); len(verdicts) > 0 {
		fmt.Fprintln(w, "  Verdicts:")
		for i, v := range verdicts {
			fmt.Fprintf(w, "    %d. %s (%s, confidence %.2f, %d issues)\n",
				i+1, v.Status, v.Method, v.ConfidenceValue(), len(v.Issues))
		}
	}

	if len(st.Errors) > 0 {
		fmt.Fprintln(w, "  Warnings:")
		for _, e := range st.Errors {
			fmt.Fprintf(w, "    - %s\n", e)
		}
	}

	if st.FinalOutput() != nil {
		fmt.Fprintf(w, "  Document:  %s\n", store.FinalPath(st.Problem.ID))
	}
	return nil
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func init() {
	statusCmd.Flags().String("status", "", "Filter list by status (pending, in_progress, accepted, aborted, error)")
}
