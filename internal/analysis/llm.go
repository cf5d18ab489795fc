package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	anthropicSystemPrompt = "你是资深技术分析师，负责为 GitHub 仓库撰写中文技术解读。只输出严格 JSON。"
	MaxRepoContextChars   = 24000
	maxListedEntries      = 60
)

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// AnthropicGenerator answers the stage prompt through the Messages API. It
// has no structured-output channel, so Parsed is always nil and the reply
// text goes through extraction.
type AnthropicGenerator struct {
	messages AnthropicMessager
	model    anthropic.Model
}

func NewAnthropicGeneratorFromEnv() (*AnthropicGenerator, error) {
	if envEnabled("TREND_NO_LLM") {
		return nil, errors.New("LLM access disabled by TREND_NO_LLM")
	}
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	model := anthropic.ModelClaudeSonnet4_20250514
	if m := strings.TrimSpace(os.Getenv("TREND_ANTHROPIC_MODEL")); m != "" {
		model = anthropic.Model(m)
	}
	return &AnthropicGenerator{messages: newAnthropicClient(apiKey), model: model}, nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateOutput, error) {
	prompt := req.Prompt + "\n\n输出必须符合以下 JSON Schema：\n" + req.Schema
	if repoCtx := repoContext(req.RepoDir); repoCtx != "" {
		prompt += "\n\n仓库内容摘录：\n" + repoCtx
	}
	resp, err := g.messages.New(ctx, anthropic.MessageNewParams{
		Model:       g.model,
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: anthropicSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return GenerateOutput{ExitCode: ExitCodeTimeout, TimedOut: true}, err
		}
		return GenerateOutput{ExitCode: 1}, err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return GenerateOutput{Raw: sb.String()}, nil
}

// repoContext lists the top level of dir and appends the README, capped at
// MaxRepoContextChars.
func repoContext(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	readme := ""
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			name += "/"
		} else if readme == "" && strings.HasPrefix(strings.ToLower(name), "readme") {
			readme = name
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > maxListedEntries {
		names = names[:maxListedEntries]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "顶层目录：%s\n", strings.Join(names, ", "))
	if readme != "" {
		if blob, err := os.ReadFile(filepath.Join(dir, readme)); err == nil {
			fmt.Fprintf(&b, "\n%s:\n%s\n", readme, string(blob))
		}
	}
	return truncateRunes(b.String(), MaxRepoContextChars)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func envEnabled(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
