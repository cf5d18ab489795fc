package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/trend-digest/internal/config"
	"github.com/joelkehle/trend-digest/internal/daily"
	"github.com/joelkehle/trend-digest/internal/digest"
	"github.com/joelkehle/trend-digest/internal/gitclone"
	"github.com/joelkehle/trend-digest/internal/ledger"
	"github.com/joelkehle/trend-digest/internal/trending"
)

var (
	dryRun       bool
	previewStyle string
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Build and publish today's Trending digest",
	Long: `Fetches the Trending page, analyzes the top repositories, writes
<posts_dir>/github-trend-<date>.md and runs the site build command.

With --dry-run nothing is written; the post is previewed in the terminal.`,
	Args: cobra.NoArgs,
	RunE: runDaily,
}

func init() {
	dailyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "render and preview without writing or building")
	dailyCmd.Flags().StringVar(&previewStyle, "preview-style", "", "glamour style for --dry-run (default: auto)")
}

func runDaily(cmd *cobra.Command, args []string) error {
	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	job := &daily.Job{
		Settings: daily.Settings{
			TrendingURL:         cfg.TrendingURL,
			PostsDir:            cfg.PostsDir,
			CategoriesFile:      cfg.CategoriesFile,
			Category:            cfg.Category,
			PostURLBase:         cfg.PostURLBase,
			HTMLDir:             cfg.HTMLDir,
			MinItems:            cfg.MinItems,
			TimezoneOffsetHours: cfg.TimezoneOffsetHours,
			DryRun:              dryRun,
		},
		Fetcher:  newFetcher(cfg),
		Cloner:   gitclone.New(cfg.CloneTimeout),
		Analyzer: analyzer,
		Logger:   logger,
	}
	if len(cfg.BuildCommand) > 0 {
		job.Builder = daily.CommandBuilder{Command: cfg.BuildCommand, Dir: cfg.SiteRoot}
	}
	if cfg.HTMLDir != "" {
		job.HTML = digest.NewHTMLRenderer()
		if cfg.PDF {
			job.PDF = digest.NewPDFRenderer(job.HTML)
		}
	}
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			logger.Warn("ledger unavailable", zap.String("path", cfg.LedgerPath), zap.Error(err))
		} else {
			defer l.Close()
			job.Recorder = l
		}
	}

	pub, err := job.Run(cmd.Context())
	if err != nil {
		return err
	}
	if dryRun {
		preview, err := digest.TerminalPreview(pub.Post, previewStyle, 100)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), preview)
	}
	return writeJSON(cmd.OutOrStdout(), pub)
}

func newFetcher(c config.Config) trending.Fetcher {
	if c.FetchMode == config.FetchBrowser {
		return trending.NewBrowserFetcher()
	}
	return trending.NewHTTPFetcher()
}
