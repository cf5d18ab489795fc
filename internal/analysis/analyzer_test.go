package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeGenerator struct {
	outputs []GenerateOutput
	errs    []error
	block   bool
	calls   []GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateOutput, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, req)
	if f.block {
		<-ctx.Done()
		return GenerateOutput{ExitCode: -9}, ctx.Err()
	}
	var out GenerateOutput
	if idx < len(f.outputs) {
		out = f.outputs[idx]
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return out, err
}

func goodCandidateJSON() string {
	return `{"功能描述":"` + longFeature + `","技术栈":"Go, gRPC, Postgres","核心功能":"does A\ndoes B\ndoes C\ndoes D"}`
}

func baseRequest() Request {
	return Request{RepoName: "acme/widget", RepoDir: "/tmp/acme__widget", FallbackDesc: "Widget toolkit", FallbackLang: "Go"}
}

func TestAnalyzeAcceptsFirstStrongResult(t *testing.T) {
	gen := &fakeGenerator{outputs: []GenerateOutput{{Raw: "thinking...\n" + goodCandidateJSON()}}}
	out := NewAnalyzer(gen).Analyze(context.Background(), baseRequest())

	require.False(t, out.Degraded)
	require.Len(t, gen.calls, 1)
	require.NotNil(t, out.AcceptedStage)
	assert.Equal(t, StageInitial, *out.AcceptedStage)
	assert.Equal(t, []string{"Go", "gRPC", "Postgres"}, out.Result.Stack)
	assert.Len(t, out.Result.Core, 4)
	assert.Equal(t, SourceRawText, out.Attempts[0].Source)
	assert.True(t, out.Attempts[0].Accepted)
	assert.Equal(t, AnalysisSchema, gen.calls[0].Schema)
	assert.Equal(t, "/tmp/acme__widget", gen.calls[0].RepoDir)
	assert.Contains(t, gen.calls[0].Prompt, "acme/widget")
}

func TestAnalyzeParsedOutputTakesPriorityOverRaw(t *testing.T) {
	parsed, ok := ExtractJSONObject(goodCandidateJSON())
	require.True(t, ok)
	gen := &fakeGenerator{outputs: []GenerateOutput{{
		Parsed: parsed,
		Raw:    `{"功能描述":"功能点1","核心功能":[]}`,
	}}}
	out := NewAnalyzer(gen).Analyze(context.Background(), baseRequest())
	require.False(t, out.Degraded)
	assert.Equal(t, SourceOutputFile, out.Attempts[0].Source)
}

func TestAnalyzeEscalatesWhenPlaceholderEchoed(t *testing.T) {
	weak := `{"功能描述":"120-220字中文","技术栈":["Go"],"核心功能":["a","b","c"]}`
	gen := &fakeGenerator{outputs: []GenerateOutput{
		{Raw: weak},
		{Raw: goodCandidateJSON()},
	}}
	out := NewAnalyzer(gen).Analyze(context.Background(), baseRequest())

	require.False(t, out.Degraded)
	require.Len(t, gen.calls, 2)
	assert.Equal(t, StageRetry1, *out.AcceptedStage)
	assert.Contains(t, gen.calls[1].Prompt, "你上一次输出不合格")
	assert.NotEmpty(t, out.Attempts[0].WeakReasons)
	assert.False(t, out.Attempts[0].Accepted)
	assert.NotEmpty(t, out.Attempts[0].SchemaIssues)
}

func TestAnalyzeThirdStageUsesFinalPrompt(t *testing.T) {
	gen := &fakeGenerator{outputs: []GenerateOutput{
		{Raw: "nothing"},
		{Raw: "still nothing"},
		{Raw: "```json\n" + goodCandidateJSON() + "\n```"},
	}}
	out := NewAnalyzer(gen).Analyze(context.Background(), baseRequest())
	require.False(t, out.Degraded)
	require.Len(t, gen.calls, 3)
	assert.Contains(t, gen.calls[2].Prompt, "最后一次重试")
	assert.Equal(t, StageRetry2, *out.AcceptedStage)
}

func TestAnalyzeDegradesAfterThreeUnparsableOutputs(t *testing.T) {
	gen := &fakeGenerator{outputs: []GenerateOutput{
		{ExitCode: 1, Raw: "error: model overloaded"},
		{ExitCode: 0, Raw: "I could not read the repository."},
		{ExitCode: 2, Raw: "{not json}"},
	}}
	out := NewAnalyzer(gen).Analyze(context.Background(), baseRequest())

	require.True(t, out.Degraded)
	require.Len(t, gen.calls, 3)
	assert.Nil(t, out.AcceptedStage)
	assert.Equal(t, []int{1, 0, 2}, out.ExitCodes())
	assert.Equal(t, Result{
		Feature: "Widget toolkit",
		Stack:   []string{"Go"},
		Core:    []string{degradedCore},
		Note:    "codex分析质量不足，已降级（rc=1/0/2）",
	}, out.Result)
}

func TestAnalyzeEmptyOutputWithoutFallbacks(t *testing.T) {
	gen := &fakeGenerator{}
	out := NewAnalyzer(gen).Analyze(context.Background(), Request{RepoName: "x/y"})

	require.True(t, out.Degraded)
	assert.Equal(t, degradedFeature, out.Result.Feature)
	assert.Equal(t, []string{UnknownLanguage}, out.Result.Stack)
	assert.Equal(t, []string{degradedCore}, out.Result.Core)
	assert.True(t, strings.HasSuffix(out.Result.Note, "rc=0/0/0）"), out.Result.Note)
	for _, a := range out.Attempts {
		assert.Equal(t, SourceNone, a.Source)
	}
}

func TestAnalyzeGeneratorErrorsAreSoftFailures(t *testing.T) {
	gen := &fakeGenerator{
		outputs: []GenerateOutput{{}, {ExitCode: 3, Raw: goodCandidateJSON()}},
		errs:    []error{errors.New("exec: codex not found"), errors.New("exit status 3")},
	}
	out := NewAnalyzer(gen).Analyze(context.Background(), baseRequest())
	require.False(t, out.Degraded, "raw text is still mined after a failed run")
	assert.Equal(t, []int{ExitCodeNoRun, 3}, out.ExitCodes())
}

func TestAnalyzeTimeoutIsRecordedAndEscalated(t *testing.T) {
	gen := &fakeGenerator{block: true}
	start := time.Now()
	out := NewAnalyzer(gen, WithTimeout(20*time.Millisecond)).Analyze(context.Background(), baseRequest())

	require.True(t, out.Degraded)
	require.Len(t, gen.calls, 3)
	assert.Less(t, time.Since(start), 5*time.Second)
	for _, a := range out.Attempts {
		assert.True(t, a.TimedOut)
		assert.Equal(t, ExitCodeTimeout, a.ExitCode)
	}
	assert.Contains(t, out.Result.Note, "rc=124/124/124")
}

func TestAnalyzeWithProgressReportsStages(t *testing.T) {
	gen := &fakeGenerator{outputs: []GenerateOutput{{Raw: ""}, {Raw: goodCandidateJSON()}}}
	var seen []string
	NewAnalyzer(gen).AnalyzeWithProgress(context.Background(), baseRequest(), func(stage Stage, message string) {
		seen = append(seen, stage.String()+"|"+message)
	})
	assert.Equal(t, []string{
		"initial|initial: invoking generator",
		"initial|initial: rejected (rc=0)",
		"retry_1|retry_1: invoking generator",
		"retry_1|retry_1: accepted",
	}, seen)
}

func TestAnalyzeRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	gen := &fakeGenerator{}
	NewAnalyzer(gen, WithTracer(tp.Tracer("test"))).Analyze(context.Background(), baseRequest())

	var attempts, analyses int
	for _, s := range sr.Ended() {
		switch s.Name() {
		case "analysis.attempt":
			attempts++
		case "analysis.analyze":
			analyses++
		}
	}
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, analyses)
}

func TestStageLadder(t *testing.T) {
	next, ok := StageInitial.Next()
	require.True(t, ok)
	assert.Equal(t, StageRetry1, next)
	next, ok = next.Next()
	require.True(t, ok)
	assert.Equal(t, StageRetry2, next)
	_, ok = next.Next()
	assert.False(t, ok)

	var s Stage
	require.NoError(t, s.UnmarshalText([]byte("retry_2")))
	assert.Equal(t, StageRetry2, s)
	assert.Error(t, s.UnmarshalText([]byte("retry_9")))
}
