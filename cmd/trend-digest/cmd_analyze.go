package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joelkehle/trend-digest/internal/analysis"
)

var (
	analyzeName string
	analyzeDesc string
	analyzeLang string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo-dir>",
	Short: "Analyze one local checkout and print the outcome as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeName, "name", "", "owner/name shown to the model (default: directory name)")
	analyzeCmd.Flags().StringVar(&analyzeDesc, "desc", "", "fallback description")
	analyzeCmd.Flags().StringVar(&analyzeLang, "lang", "", "fallback language")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", args[0])
	}
	name := analyzeName
	if name == "" {
		name = filepath.Base(dir)
	}

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}
	out := analyzer.AnalyzeWithProgress(cmd.Context(), analysis.Request{
		RepoName:     name,
		RepoDir:      dir,
		FallbackDesc: analyzeDesc,
		FallbackLang: analyzeLang,
	}, func(_ analysis.Stage, message string) {
		fmt.Fprintln(cmd.ErrOrStderr(), message)
	})
	return writeJSON(cmd.OutOrStdout(), out)
}
