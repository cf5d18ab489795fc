package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joelkehle/trend-digest/internal/ledger"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recent daily runs, or the per-repo diagnostics of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	if cfg.LedgerPath == "" {
		return errors.New("ledger_path is not configured")
	}
	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer l.Close()

	if len(args) == 1 {
		repos, err := l.Repos(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), repos)
	}
	runs, err := l.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), runs)
}
