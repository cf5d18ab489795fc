package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/joelkehle/trend-digest/internal/analysis"

// GenerateRequest is one invocation of the external generator.
type GenerateRequest struct {
	RepoName string
	RepoDir  string
	Prompt   string
	Schema   string
}

// GenerateOutput carries whatever the generator produced. Parsed is the
// generator's structured-output channel and is nil when absent or corrupt;
// Raw is its free text (stdout and stderr for subprocess generators).
type GenerateOutput struct {
	ExitCode int
	TimedOut bool
	Parsed   map[string]any
	Raw      string
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateOutput, error)
}

type ProgressFn func(stage Stage, message string)

type Option func(*Analyzer)

func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Analyzer) {
		if t != nil {
			a.tracer = t
		}
	}
}

// Analyzer drives the generator through the escalation ladder.
type Analyzer struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewAnalyzer(gen Generator, opts ...Option) *Analyzer {
	a := &Analyzer{
		gen:     gen,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Analyze(ctx context.Context, req Request) Outcome {
	return a.AnalyzeWithProgress(ctx, req, nil)
}

// AnalyzeWithProgress runs at most three attempts and returns the first
// result that passes the quality gate, or the degraded record.
func (a *Analyzer) AnalyzeWithProgress(ctx context.Context, req Request, progress ProgressFn) Outcome {
	ctx, span := a.tracer.Start(ctx, "analysis.analyze", trace.WithAttributes(attribute.String("repo", req.RepoName)))
	defer span.End()

	log := a.logger.With(zap.String("repo", req.RepoName))
	out := Outcome{}
	stage := StageInitial
	for {
		emit(progress, stage, fmt.Sprintf("%s: invoking generator", stage))
		rec, result, accepted := a.attempt(ctx, stage, req)
		out.Attempts = append(out.Attempts, rec)
		if accepted {
			st := stage
			out.Result = result
			out.AcceptedStage = &st
			span.SetAttributes(attribute.String("accepted_stage", stage.String()), attribute.Int("attempts", len(out.Attempts)))
			log.Info("analysis accepted", zap.Stringer("stage", stage), zap.Int("attempts", len(out.Attempts)))
			emit(progress, stage, fmt.Sprintf("%s: accepted", stage))
			return out
		}
		emit(progress, stage, fmt.Sprintf("%s: rejected (rc=%d)", stage, rec.ExitCode))
		next, ok := stage.Next()
		if !ok {
			break
		}
		stage = next
	}

	out.Degraded = true
	out.Result = Degraded(req.FallbackDesc, req.FallbackLang, out.ExitCodes())
	span.SetAttributes(attribute.Bool("degraded", true), attribute.Int("attempts", len(out.Attempts)))
	span.SetStatus(codes.Error, "analysis degraded")
	log.Warn("analysis degraded", zap.Ints("exit_codes", out.ExitCodes()))
	return out
}

func (a *Analyzer) attempt(ctx context.Context, stage Stage, req Request) (AttemptRecord, Result, bool) {
	ctx, span := a.tracer.Start(ctx, "analysis.attempt", trace.WithAttributes(attribute.String("stage", stage.String())))
	defer span.End()

	rec := AttemptRecord{Stage: stage, Source: SourceNone}
	started := time.Now()
	attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
	genOut, err := a.gen.Generate(attemptCtx, GenerateRequest{
		RepoName: req.RepoName,
		RepoDir:  req.RepoDir,
		Prompt:   stage.Prompt(req.RepoName),
		Schema:   AnalysisSchema,
	})
	timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
	cancel()
	rec.Duration = time.Since(started)

	rec.ExitCode = genOut.ExitCode
	rec.TimedOut = genOut.TimedOut || timedOut
	if rec.TimedOut {
		rec.ExitCode = ExitCodeTimeout
	} else if err != nil && rec.ExitCode == 0 {
		rec.ExitCode = ExitCodeNoRun
	}
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Int("exit_code", rec.ExitCode), attribute.Bool("timed_out", rec.TimedOut))

	log := a.logger.With(zap.String("repo", req.RepoName), zap.Stringer("stage", stage))
	if err != nil || rec.ExitCode != 0 {
		log.Warn("generator failed", zap.Int("exit_code", rec.ExitCode), zap.Bool("timed_out", rec.TimedOut), zap.Error(err))
	}

	candidate := genOut.Parsed
	if candidate != nil {
		rec.Source = SourceOutputFile
	} else if strings.TrimSpace(genOut.Raw) != "" {
		if obj, ok := ExtractJSONObject(genOut.Raw); ok {
			candidate = obj
			rec.Source = SourceRawText
		}
	}
	span.SetAttributes(attribute.String("source", string(rec.Source)))
	if candidate == nil {
		log.Info("no candidate object in generator output")
		return rec, Result{}, false
	}

	rec.SchemaIssues = ValidateCandidate(candidate)
	if len(rec.SchemaIssues) > 0 {
		log.Debug("candidate deviates from schema", zap.Strings("schema_issues", rec.SchemaIssues))
	}
	result := Normalize(candidate, req.FallbackDesc, req.FallbackLang)
	rec.WeakReasons = WeakReasons(result)
	if len(rec.WeakReasons) > 0 {
		log.Info("candidate rejected by quality gate", zap.Strings("weak_reasons", rec.WeakReasons))
		return rec, Result{}, false
	}
	rec.Accepted = true
	span.SetAttributes(attribute.Bool("accepted", true))
	return rec, result, true
}

// Degraded builds the record returned when every attempt failed. The note
// lists each attempt's exit code.
func Degraded(fallbackDesc, fallbackLang string, exitCodes []int) Result {
	feature := Clean(fallbackDesc)
	if feature == "" {
		feature = degradedFeature
	}
	rcs := make([]string, 0, len(exitCodes))
	for _, c := range exitCodes {
		rcs = append(rcs, strconv.Itoa(c))
	}
	return Result{
		Feature: feature,
		Stack:   []string{orUnknown(fallbackLang)},
		Core:    []string{degradedCore},
		Note:    fmt.Sprintf(degradedNoteFormat, strings.Join(rcs, "/")),
	}
}

func emit(progress ProgressFn, stage Stage, message string) {
	if progress != nil {
		progress(stage, message)
	}
}
