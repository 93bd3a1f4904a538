package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/proofmill/internal/config"
	"github.com/lucasnoah/proofmill/internal/history"
	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/orchestrator"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
	"github.com/lucasnoah/proofmill/internal/stage"
	"github.com/lucasnoah/proofmill/internal/verify"
)

var solveCmd = &cobra.Command{
	Use:   "solve [problem statement]",
	Short: "Solve a mathematical problem through the full pipeline",
	Long: `Run a problem through decomposition, diversification, proof generation,
verification, and integration. The problem statement is taken from the
arguments, or from a file with --file.

Provider API keys are read from environment variables only; see
'proofmill config show' for the expected variables.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		statement, err := readStatement(cmd, args)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if verrs := config.Validate(cfg); len(verrs) > 0 {
			for _, ve := range verrs {
				fmt.Fprintln(cmd.ErrOrStderr(), "config:", ve.Error())
			}
			return fmt.Errorf("invalid configuration (%d errors)", len(verrs))
		}

		policy := solve.RetryPolicy{
			MaxIterations:       cfg.Pipeline.MaxIterations,
			ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
		}
		if v, _ := cmd.Flags().GetInt("max-iterations"); v > 0 {
			policy.MaxIterations = v
		}
		if cmd.Flags().Changed("confidence-threshold") {
			policy.ConfidenceThreshold, _ = cmd.Flags().GetFloat64("confidence-threshold")
		}
		if err := policy.Validate(); err != nil {
			return err
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		var progress io.Writer = cmd.ErrOrStderr()
		if quiet {
			progress = io.Discard
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		offline, _ := cmd.Flags().GetBool("offline")
		var registry *model.Registry
		if offline {
			registry = model.OfflineRegistry()
			fmt.Fprintln(progress, "offline mode: using canned responses, no external calls")
		} else {
			var warnings []string
			registry, warnings, err = model.BuildRegistry(ctx, cfg)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintln(progress, "warning:", w)
			}
		}

		prompts := prompt.NewLibrary(cfg.Pipeline.PromptDir)
		runner := &stage.Runner{Models: registry, Prompts: prompts, Progress: progress}

		verifier := &verify.Composite{
			Opinion: &verify.Opinion{
				Models:    registry,
				Prompts:   prompts,
				Threshold: policy.ConfidenceThreshold,
			},
			Progress: progress,
		}
		if !offline {
			if formal := verify.NewFormal(cfg.Lean, registry, prompts, progress); formal != nil {
				verifier.Formal = formal
			}
		}

		orch := &orchestrator.Orchestrator{
			Runner:   runner,
			Verifier: verifier,
			Progress: progress,
		}

		if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
			store, err := history.DefaultStore()
			if err != nil {
				return err
			}
			orch.Store = store

			if database, err := openEventLog(); err != nil {
				fmt.Fprintln(progress, "warning: event log disabled:", err)
			} else {
				orch.Events = database
				defer database.Close()
			}
		}

		problem := solve.NewProblem(statement)
		fmt.Fprintf(progress, "solve %s\n", problem.ID)

		result, err := orch.Solve(ctx, problem, policy)
		var aborted *orchestrator.AbortedError
		if err != nil && !errors.As(err, &aborted) {
			return err
		}

		out := cmd.OutOrStdout()
		if orch.Store != nil {
			fmt.Fprintf(out, "solve:      %s\n", problem.ID)
			fmt.Fprintf(out, "status:     %s\n", result.State.Status)
			fmt.Fprintf(out, "verdict:    %s\n", result.Final.Status)
			fmt.Fprintf(out, "iterations: %d\n", result.Final.Iterations)
			fmt.Fprintf(out, "document:   %s\n", orch.Store.FinalPath(problem.ID))
		} else {
			fmt.Fprintln(out, result.Final.Markdown)
		}

		if aborted != nil {
			return fmt.Errorf("no verified proof: %s", aborted.Reason)
		}
		return nil
	},
}

func readStatement(cmd *cobra.Command, args []string) (string, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read problem file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	statement := strings.TrimSpace(strings.Join(args, " "))
	if statement == "" {
		return "", fmt.Errorf("no problem given: pass a statement or --file")
	}
	return statement, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

func init() {
	solveCmd.Flags().String("file", "", "Read the problem statement from a file")
	solveCmd.Flags().String("config", "", "Path to a proofmill.yaml config")
	solveCmd.Flags().Int("max-iterations", 0, "Override the verification iteration budget")
	solveCmd.Flags().Float64("confidence-threshold", 0.9, "Override the checker confidence threshold")
	solveCmd.Flags().Bool("offline", false, "Run with canned responses instead of live providers")
	solveCmd.Flags().Bool("quiet", false, "Suppress progress output")
	solveCmd.Flags().Bool("no-store", false, "Do not persist solve state to disk")
}
