package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joelkehle/trend-digest/internal/analysis"
	"github.com/joelkehle/trend-digest/internal/codex"
	"github.com/joelkehle/trend-digest/internal/config"
	"github.com/joelkehle/trend-digest/internal/telemetry"
)

const (
	serviceName  = "trend-digest"
	flushTimeout = 5 * time.Second
)

var (
	configPath string
	verbose    bool

	logger   *zap.Logger
	cfg      config.Config
	shutdown telemetry.ShutdownFunc
)

var rootCmd = &cobra.Command{
	Use:   "trend-digest",
	Short: "Daily GitHub Trending digest with source-grounded repo analysis",
	Long: `trend-digest fetches the GitHub Trending daily list, shallow-clones each
repository, asks a code-reading model for a structured analysis and publishes
the result as a Markdown post.

Every model reply goes through JSON extraction, normalization and a quality
gate. Weak replies are retried twice with stricter prompts before falling
back to a degraded record built from the Trending metadata.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		logger = l

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		sd, err := telemetry.Setup(cmd.Context(), serviceName)
		if err != nil {
			logger.Warn("tracing disabled", zap.Error(err))
		}
		shutdown = sd
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(dailyCmd, analyzeCmd, extractCmd, runsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

// execute runs the root command and flushes spans and logs on every exit
// path, including failed and interrupted runs.
func execute(ctx context.Context, args []string) error {
	defer flush(ctx)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func flush(ctx context.Context) {
	if shutdown != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil && logger != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
		shutdown = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// newGenerator picks the analysis backend named by the config.
func newGenerator(c config.Config, l *zap.Logger) (analysis.Generator, error) {
	switch c.Generator {
	case config.GeneratorAnthropic:
		return analysis.NewAnthropicGeneratorFromEnv()
	default:
		return codex.New(c.CodexBin, l), nil
	}
}

func newAnalyzer(c config.Config, l *zap.Logger) (*analysis.Analyzer, error) {
	gen, err := newGenerator(c, l)
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(gen, analysis.WithTimeout(c.GeneratorTimeout), analysis.WithLogger(l)), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
