package analysis

import (
	"regexp"
	"strings"
)

const (
	sentinelFeature     = "该项目位列今日 Trending，建议重点关注其核心场景与更新节奏。"
	sentinelCore        = "核心能力可参考仓库 README、examples 与 docs 目录。"
	degradedFeature     = "该项目位列今日 Trending，建议重点关注其 README 与近期提交。"
	degradedCore        = "自动分析结果不足，建议人工复核仓库文档与目录结构。"
	degradedNoteFormat  = "codex分析质量不足，已降级（rc=%s）"
	stackSplitCutset    = ",，/、·"
	coreSplitPatternSrc = `\n+|[；;]`
)

// Alias keys in priority order. The canonical English names come last so a
// serialized Result re-normalizes to itself.
var (
	featureKeys = []string{fieldFeature, "overview", "feature"}
	stackKeys   = []string{fieldStack, "tech_stack", "stack"}
	coreKeys    = []string{fieldCore, "core_features", "core"}
)

var coreSplitRe = regexp.MustCompile(coreSplitPatternSrc)

// Normalize maps an untrusted candidate onto Result. It never fails and
// never returns an empty Stack or Core; raw may be nil.
func Normalize(raw map[string]any, fallbackDesc, fallbackLang string) Result {
	feature, ok := firstPresent(raw, featureKeys)
	if !ok {
		switch {
		case truthy(fallbackDesc):
			feature = fallbackDesc
		default:
			feature = sentinelFeature
		}
	}

	stackVal, ok := firstPresent(raw, stackKeys)
	if !ok {
		stackVal = []any{fallbackLang}
	}
	if s, isStr := stackVal.(string); isStr {
		stackVal = splitAny(strings.FieldsFunc(s, func(r rune) bool {
			return strings.ContainsRune(stackSplitCutset, r)
		}))
	}
	if _, isList := stackVal.([]any); !isList {
		stackVal = []any{fallbackLang}
	}

	coreVal, ok := firstPresent(raw, coreKeys)
	if !ok {
		coreVal = []any{}
	}
	if s, isStr := coreVal.(string); isStr {
		coreVal = splitAny(coreSplitRe.Split(s, -1))
	}
	if _, isList := coreVal.([]any); !isList {
		coreVal = []any{}
	}

	stack := cleanList(stackVal.([]any))
	core := cleanList(coreVal.([]any))
	if len(stack) == 0 {
		stack = []string{orUnknown(fallbackLang)}
	}
	if len(core) == 0 {
		core = []string{sentinelCore}
	}
	if len(stack) > MaxStackEntries {
		stack = stack[:MaxStackEntries]
	}
	if len(core) > MaxCoreEntries {
		core = core[:MaxCoreEntries]
	}
	featureText := cleanValue(feature)
	if featureText == "" {
		featureText = sentinelFeature
	}
	return Result{
		Feature: featureText,
		Stack:   stack,
		Core:    core,
	}
}

func firstPresent(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// truthy treats nil, blank strings, empty containers, zero and false as
// absent.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return Clean(x) != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	case float64:
		return x != 0
	case bool:
		return x
	default:
		return true
	}
}

func splitAny(parts []string) []any {
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cleanList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := cleanValue(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orUnknown(lang string) string {
	if lang = Clean(lang); lang != "" {
		return lang
	}
	return UnknownLanguage
}
