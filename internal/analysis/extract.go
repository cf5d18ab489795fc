package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?i)```json\\s*(\\{[\\s\\S]*?\\})\\s*```")

// Span is a half-open byte range [Start, End) of a balanced top-level object.
type Span struct {
	Start int
	End   int
}

type scanState int

const (
	scanNormal scanState = iota
	scanInString
	scanEscaped
)

// ScanObjects walks text once and returns every top-level balanced {...}
// span in order of appearance. Braces inside string literals do not count,
// and an escaped quote does not close a string.
func ScanObjects(text string) []Span {
	var spans []Span
	state := scanNormal
	depth := 0
	start := -1
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch state {
		case scanEscaped:
			state = scanInString
		case scanInString:
			switch ch {
			case '\\':
				state = scanEscaped
			case '"':
				state = scanNormal
			}
		case scanNormal:
			switch ch {
			case '"':
				state = scanInString
			case '{':
				if depth == 0 {
					start = i
				}
				depth++
			case '}':
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, Span{Start: start, End: i + 1})
					start = -1
				}
			}
		}
	}
	return spans
}

// FencedJSONBlocks returns the bodies of ```json fenced blocks in order.
func FencedJSONBlocks(text string) []string {
	matches := fencedJSONRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// ExtractJSONObject recovers the most plausible JSON object from free text.
// Fenced json blocks win (first that parses); otherwise the balanced-brace
// candidates are tried from last to first.
func ExtractJSONObject(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	for _, block := range FencedJSONBlocks(text) {
		if obj, ok := parseObject(block); ok {
			return obj, true
		}
	}
	spans := ScanObjects(text)
	for i := len(spans) - 1; i >= 0; i-- {
		if obj, ok := parseObject(text[spans[i].Start:spans[i].End]); ok {
			return obj, true
		}
	}
	return nil, false
}

// parseObject accepts only a JSON object; arrays and scalars are rejected.
func parseObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}
