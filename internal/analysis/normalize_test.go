package analysis

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longFeature = "A tool for X used by Y in scenario Z: it indexes repositories, answers questions about them and keeps the index fresh."

func TestNormalizeSplitsStringFields(t *testing.T) {
	raw := map[string]any{
		"功能描述": "  " + longFeature + "\n",
		"技术栈":  "Go, gRPC, Postgres",
		"核心功能": "does A\ndoes B\ndoes C\ndoes D",
	}
	got := Normalize(raw, "fallback", "Go")
	want := Result{
		Feature: longFeature,
		Stack:   []string{"Go", "gRPC", "Postgres"},
		Core:    []string{"does A", "does B", "does C", "does D"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Normalize mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, IsWeak(got), "reasons: %v", WeakReasons(got))
}

func TestNormalizeNilCandidateUsesFallbacks(t *testing.T) {
	got := Normalize(nil, "trending description", "Rust")
	assert.Equal(t, "trending description", got.Feature)
	assert.Equal(t, []string{"Rust"}, got.Stack)
	assert.Equal(t, []string{sentinelCore}, got.Core)
	assert.Empty(t, got.Note)
}

func TestNormalizeNilCandidateNoFallbacks(t *testing.T) {
	got := Normalize(nil, "", "")
	assert.Equal(t, sentinelFeature, got.Feature)
	assert.Equal(t, []string{UnknownLanguage}, got.Stack)
	assert.Equal(t, []string{sentinelCore}, got.Core)
}

func TestNormalizeNeverReturnsEmptyLists(t *testing.T) {
	for name, raw := range map[string]map[string]any{
		"empty":          {},
		"empty lists":    {"技术栈": []any{}, "核心功能": []any{}},
		"blank strings":  {"技术栈": " , / ", "核心功能": "\n;；\n"},
		"blank elements": {"技术栈": []any{" ", nil}, "核心功能": []any{"", "\t"}},
		"wrong shapes":   {"技术栈": 42.0, "核心功能": map[string]any{"a": "b"}},
		"unexpected":     {"foo": "bar", "stack": true, "core": false},
	} {
		t.Run(name, func(t *testing.T) {
			got := Normalize(raw, "", "")
			require.NotEmpty(t, got.Stack)
			require.NotEmpty(t, got.Core)
		})
	}
}

func TestNormalizeAliases(t *testing.T) {
	raw := map[string]any{
		"overview":      "overview text",
		"tech_stack":    []any{"Python", "FastAPI"},
		"core_features": "one；two;three",
	}
	got := Normalize(raw, "fallback", "Go")
	assert.Equal(t, "overview text", got.Feature)
	assert.Equal(t, []string{"Python", "FastAPI"}, got.Stack)
	assert.Equal(t, []string{"one", "two", "three"}, got.Core)
}

func TestNormalizePrimaryKeyWinsOverAlias(t *testing.T) {
	raw := map[string]any{
		"功能描述":     "primary",
		"overview": "alias",
		"技术栈":      "",
		"tech_stack": []any{"Zig"},
	}
	got := Normalize(raw, "", "")
	assert.Equal(t, "primary", got.Feature)
	assert.Equal(t, []string{"Zig"}, got.Stack)
}

func TestNormalizeStackDelimiters(t *testing.T) {
	got := Normalize(map[string]any{"技术栈": "TypeScript，React/Node.js、Docker·Redis,  Postgres "}, "", "")
	assert.Equal(t, []string{"TypeScript", "React", "Node.js", "Docker", "Redis", "Postgres"}, got.Stack)
}

func TestNormalizeNonStringElementsAreStringified(t *testing.T) {
	got := Normalize(map[string]any{"技术栈": []any{"Go", 1.0, true}}, "", "")
	assert.Equal(t, []string{"Go", "1", "true"}, got.Stack)
}

func TestNormalizeTruncatesToMaxima(t *testing.T) {
	var stack, core []any
	for i := 0; i < 12; i++ {
		stack = append(stack, strings.Repeat("s", i+1))
		core = append(core, strings.Repeat("c", i+1))
	}
	got := Normalize(map[string]any{"技术栈": stack, "核心功能": core}, "", "")
	assert.Len(t, got.Stack, MaxStackEntries)
	assert.Len(t, got.Core, MaxCoreEntries)
	assert.Equal(t, "s", got.Stack[0])
	assert.Equal(t, "cccccc", got.Core[5])
}

func TestNormalizeIsFixedPoint(t *testing.T) {
	inputs := []map[string]any{
		{"功能描述": longFeature, "技术栈": "Go, gRPC", "核心功能": "a\nb\nc\nd\ne\nf\ng\nh"},
		{"overview": " spaced   out  ", "tech_stack": []any{" a ", "b  c"}},
		nil,
	}
	for _, raw := range inputs {
		first := Normalize(raw, "fallback desc", "Go")
		second := Normalize(first.Candidate(), "other desc", "Rust")
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("re-normalizing changed the result (-first +second):\n%s", diff)
		}
	}
}

func TestNormalizeBlankFeatureFallsBack(t *testing.T) {
	blank := map[string]any{"功能描述": "  \n\t ", "overview": " "}

	got := Normalize(blank, "Widget toolkit", "Go")
	assert.Equal(t, "Widget toolkit", got.Feature)

	got = Normalize(blank, " \n ", "Go")
	assert.Equal(t, sentinelFeature, got.Feature)

	got = Normalize(map[string]any{"功能描述": "  \n", "feature": "from alias"}, "", "")
	assert.Equal(t, "from alias", got.Feature)
}
