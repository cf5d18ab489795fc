// Package daily runs the end-to-end GitHub Trending digest: fetch, clone,
// analyze, render and publish.
package daily

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/trend-digest/internal/analysis"
	"github.com/joelkehle/trend-digest/internal/category"
	"github.com/joelkehle/trend-digest/internal/digest"
	"github.com/joelkehle/trend-digest/internal/ledger"
	"github.com/joelkehle/trend-digest/internal/trending"
)

const tracerName = "github.com/joelkehle/trend-digest/internal/daily"

const (
	cloneDegradedFeature = "该项目位列今日 Trending，建议关注其 README 与示例。"
	cloneDegradedCore    = "仓库克隆失败，暂以 Trending 信息补充。"
	cloneDegradedNote    = "clone失败，已降级"
)

var ErrTooFewItems = errors.New("too few trending items")

// StepError names the job step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Cloner interface {
	Clone(ctx context.Context, root, repo, url string) (string, error)
}

type RepoAnalyzer interface {
	Analyze(ctx context.Context, req analysis.Request) analysis.Outcome
}

type SiteBuilder interface {
	Build(ctx context.Context) error
}

type PDFRenderer interface {
	Render(ctx context.Context, post digest.Post) ([]byte, error)
}

// Recorder persists run diagnostics. Failures are logged, never fatal.
type Recorder interface {
	StartRun(ctx context.Context, date string) (string, error)
	RecordRepo(ctx context.Context, rec ledger.RepoRecord) error
	FinishRun(ctx context.Context, runID string, status ledger.Status, slug string, itemCount int, runErr error) error
}

type Settings struct {
	TrendingURL         string
	PostsDir            string
	CategoriesFile      string
	Category            string
	PostURLBase         string
	HTMLDir             string
	WorkDir             string // parent of the temporary clone workspace; empty means os.TempDir
	MinItems            int
	TimezoneOffsetHours int
	DryRun              bool
}

type Job struct {
	Settings Settings
	Fetcher  trending.Fetcher
	Cloner   Cloner
	Analyzer RepoAnalyzer
	Builder  SiteBuilder          // optional
	Recorder Recorder             // optional
	HTML     *digest.HTMLRenderer // optional
	PDF      PDFRenderer          // optional, needs HTMLDir
	Logger   *zap.Logger
	Tracer   trace.Tracer
	Now      func() time.Time
}

// Published describes the post a run produced.
type Published struct {
	Slug    string         `json:"slug"`
	URL     string         `json:"url"`
	Path    string         `json:"-"`
	Date    string         `json:"-"`
	Post    digest.Post    `json:"-"`
	Entries []digest.Entry `json:"-"`
}

func (j *Job) Run(ctx context.Context) (Published, error) {
	log := j.logger()
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	date := digest.Today(now(), j.Settings.TimezoneOffsetHours)

	ctx, span := j.tracer().Start(ctx, "daily.run", trace.WithAttributes(attribute.String("date", date)))
	defer span.End()

	runID := j.startRun(ctx, date)
	pub, itemCount, err := j.run(ctx, date, runID)

	status := ledger.StatusPublished
	switch {
	case err != nil:
		status = ledger.StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case j.Settings.DryRun:
		status = ledger.StatusDryRun
	}
	if runID != "" {
		if ferr := j.Recorder.FinishRun(context.WithoutCancel(ctx), runID, status, pub.Slug, itemCount, err); ferr != nil {
			log.Warn("ledger finish failed", zap.Error(ferr))
		}
	}
	if err != nil {
		return Published{}, err
	}
	log.Info("daily digest done", zap.String("slug", pub.Slug), zap.String("path", pub.Path), zap.Bool("dry_run", j.Settings.DryRun))
	return pub, nil
}

func (j *Job) run(ctx context.Context, date, runID string) (Published, int, error) {
	s := j.Settings
	log := j.logger().With(zap.String("date", date))
	url := s.TrendingURL
	if url == "" {
		url = trending.DefaultURL
	}

	page, err := j.Fetcher.Fetch(ctx, url)
	if err != nil {
		return Published{}, 0, &StepError{Step: "fetch", Err: err}
	}
	items, err := trending.ParseString(page)
	if err != nil {
		return Published{}, 0, &StepError{Step: "parse", Err: err}
	}
	minItems := s.MinItems
	if minItems <= 0 {
		minItems = trending.TopN
	}
	if len(items) < minItems {
		return Published{}, len(items), &StepError{Step: "parse", Err: fmt.Errorf("%w: got %d, want %d", ErrTooFewItems, len(items), minItems)}
	}
	log.Info("trending parsed", zap.Int("items", len(items)))

	cat := s.Category
	if cat == "" {
		cat = category.DefaultName
	}
	if !s.DryRun {
		if _, err := category.Ensure(s.CategoriesFile, cat); err != nil {
			return Published{}, len(items), &StepError{Step: "category", Err: err}
		}
	}

	entries, err := j.analyzeAll(ctx, items, runID)
	if err != nil {
		return Published{}, len(items), err
	}

	post, err := digest.Render(date, entries, digest.Options{Category: cat, TrendingURL: url})
	if err != nil {
		return Published{}, len(items), &StepError{Step: "render", Err: err}
	}
	pub := Published{
		Slug:    post.Slug,
		URL:     digest.PostURL(s.PostURLBase, post.Slug),
		Date:    date,
		Post:    post,
		Entries: entries,
	}
	if s.DryRun {
		return pub, len(items), nil
	}

	if err := os.MkdirAll(s.PostsDir, 0o755); err != nil {
		return Published{}, len(items), &StepError{Step: "write", Err: err}
	}
	pub.Path = filepath.Join(s.PostsDir, post.Slug+".md")
	if err := os.WriteFile(pub.Path, []byte(post.Markdown), 0o644); err != nil {
		return Published{}, len(items), &StepError{Step: "write", Err: err}
	}
	if err := j.writeExtras(ctx, post); err != nil {
		return Published{}, len(items), err
	}
	if j.Builder != nil {
		if err := j.Builder.Build(ctx); err != nil {
			return Published{}, len(items), &StepError{Step: "build", Err: err}
		}
	}
	return pub, len(items), nil
}

func (j *Job) analyzeAll(ctx context.Context, items []trending.Item, runID string) ([]digest.Entry, error) {
	workspace, err := os.MkdirTemp(j.Settings.WorkDir, "github-trend-")
	if err != nil {
		return nil, &StepError{Step: "workspace", Err: err}
	}
	defer os.RemoveAll(workspace)

	entries := make([]digest.Entry, 0, len(items))
	for i, it := range items {
		entry, rec := j.analyzeOne(ctx, workspace, it)
		if err := ctx.Err(); err != nil {
			return nil, &StepError{Step: "analyze", Err: err}
		}
		entries = append(entries, entry)
		if runID != "" {
			rec.RunID = runID
			rec.Position = i + 1
			if err := j.Recorder.RecordRepo(context.WithoutCancel(ctx), rec); err != nil {
				j.logger().Warn("ledger record failed", zap.String("repo", it.Repo), zap.Error(err))
			}
		}
	}
	return entries, nil
}

func (j *Job) analyzeOne(ctx context.Context, workspace string, it trending.Item) (digest.Entry, ledger.RepoRecord) {
	ctx, span := j.tracer().Start(ctx, "daily.repo", trace.WithAttributes(attribute.String("repo", it.Repo)))
	defer span.End()
	log := j.logger().With(zap.String("repo", it.Repo))
	started := time.Now()
	rec := ledger.RepoRecord{Repo: it.Repo}

	dir, err := j.Cloner.Clone(ctx, workspace, it.Repo, it.URL)
	if err != nil {
		log.Warn("clone failed, using trending metadata", zap.Error(err))
		span.SetAttributes(attribute.Bool("clone_ok", false))
		res := CloneDegraded(it)
		rec.Degraded = true
		rec.Note = res.Note
		rec.DurationMS = time.Since(started).Milliseconds()
		return digest.Entry{Item: it, Analysis: res}, rec
	}
	defer os.RemoveAll(dir)
	rec.CloneOK = true

	out := j.Analyzer.Analyze(ctx, analysis.Request{
		RepoName:     it.Repo,
		RepoDir:      dir,
		FallbackDesc: it.Desc,
		FallbackLang: it.Lang,
	})
	rec.Degraded = out.Degraded
	rec.Attempts = len(out.Attempts)
	rec.ExitCodes = out.ExitCodes()
	rec.Note = out.Result.Note
	if out.AcceptedStage != nil {
		rec.AcceptedStage = out.AcceptedStage.String()
	}
	rec.DurationMS = time.Since(started).Milliseconds()
	span.SetAttributes(attribute.Bool("clone_ok", true), attribute.Bool("degraded", out.Degraded))
	return digest.Entry{Item: it, Analysis: out.Result}, rec
}

// CloneDegraded is the record used when the repository could not be
// checked out.
func CloneDegraded(it trending.Item) analysis.Result {
	feature := it.Desc
	if feature == "" {
		feature = cloneDegradedFeature
	}
	lang := it.Lang
	if lang == "" {
		lang = analysis.UnknownLanguage
	}
	return analysis.Result{
		Feature: feature,
		Stack:   []string{lang},
		Core:    []string{cloneDegradedCore},
		Note:    cloneDegradedNote,
	}
}

func (j *Job) writeExtras(ctx context.Context, post digest.Post) error {
	dir := j.Settings.HTMLDir
	if dir == "" || (j.HTML == nil && j.PDF == nil) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StepError{Step: "html", Err: err}
	}
	if j.HTML != nil {
		page, err := j.HTML.Render(post)
		if err != nil {
			return &StepError{Step: "html", Err: err}
		}
		if err := os.WriteFile(filepath.Join(dir, post.Slug+".html"), []byte(page), 0o644); err != nil {
			return &StepError{Step: "html", Err: err}
		}
	}
	if j.PDF != nil {
		pdf, err := j.PDF.Render(ctx, post)
		if err != nil {
			return &StepError{Step: "pdf", Err: err}
		}
		if err := os.WriteFile(filepath.Join(dir, post.Slug+".pdf"), pdf, 0o644); err != nil {
			return &StepError{Step: "pdf", Err: err}
		}
	}
	return nil
}

func (j *Job) startRun(ctx context.Context, date string) string {
	if j.Recorder == nil {
		return ""
	}
	id, err := j.Recorder.StartRun(ctx, date)
	if err != nil {
		j.logger().Warn("ledger start failed", zap.Error(err))
		return ""
	}
	return id
}

func (j *Job) logger() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}

func (j *Job) tracer() trace.Tracer {
	if j.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return j.Tracer
}
