// Package codex drives the `codex exec` CLI as an analysis generator.
package codex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/trend-digest/internal/analysis"
	"github.com/joelkehle/trend-digest/internal/procexec"
)

const DefaultBinary = "codex"

// Generator runs one codex invocation per attempt inside the repo checkout.
// The schema and last-message files live only for the duration of that
// invocation.
type Generator struct {
	Binary string
	TmpDir string // empty means os.TempDir
	Env    []string
	Logger *zap.Logger
}

func New(binary string, logger *zap.Logger) *Generator {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{Binary: binary, Logger: logger}
}

func (g *Generator) Generate(ctx context.Context, req analysis.GenerateRequest) (analysis.GenerateOutput, error) {
	schemaPath, err := g.writeTemp("trend-schema-*.json", []byte(req.Schema))
	if err != nil {
		return analysis.GenerateOutput{ExitCode: procexec.ExitNoStart}, fmt.Errorf("write schema file: %w", err)
	}
	defer g.remove(schemaPath)

	outPath, err := g.writeTemp("trend-out-*.json", nil)
	if err != nil {
		return analysis.GenerateOutput{ExitCode: procexec.ExitNoStart}, fmt.Errorf("create output file: %w", err)
	}
	defer g.remove(outPath)

	res := procexec.Run(ctx, procexec.Command{
		Name:    g.binary(),
		Args:    Args(schemaPath, outPath, req.Prompt),
		Dir:     req.RepoDir,
		Env:     g.Env,
		Timeout: budget(ctx),
	})

	out := analysis.GenerateOutput{
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut || errors.Is(ctx.Err(), context.DeadlineExceeded),
		Parsed:   readOutputObject(outPath),
		Raw:      res.Combined(),
	}
	if res.ExitCode == procexec.ExitNoStart {
		return out, fmt.Errorf("codex exec: %s", strings.TrimSpace(res.Stderr))
	}
	return out, nil
}

// Args is the codex command line for one attempt.
func Args(schemaPath, outPath, prompt string) []string {
	return []string{
		"exec",
		"--full-auto",
		"--skip-git-repo-check",
		"--output-schema", schemaPath,
		"--output-last-message", outPath,
		prompt,
	}
}

// budget is the time left on ctx, which carries the analyzer's per-attempt
// deadline.
func budget(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 {
			return left
		}
		return time.Millisecond
	}
	return analysis.DefaultTimeout
}

func (g *Generator) binary() string {
	if strings.TrimSpace(g.Binary) == "" {
		return DefaultBinary
	}
	return g.Binary
}

func (g *Generator) writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(g.TmpDir, pattern)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if len(data) > 0 {
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", err
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (g *Generator) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) && g.Logger != nil {
		g.Logger.Warn("remove codex temp file", zap.String("path", path), zap.Error(err))
	}
}

// readOutputObject returns the last-message file as an object, or nil when
// the file is missing, empty, not JSON or not an object.
func readOutputObject(path string) map[string]any {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	trimmed := strings.TrimSpace(string(blob))
	if trimmed == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil
	}
	return obj
}
