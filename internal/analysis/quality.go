package analysis

import (
	"fmt"
	"unicode/utf8"
)

// WeakReasons explains why r would be rejected. An empty slice means r is
// acceptable. The stack length is not checked here.
func WeakReasons(r Result) []string {
	var reasons []string
	if n := utf8.RuneCountInString(r.Feature); n < MinFeatureRunes {
		reasons = append(reasons, fmt.Sprintf("feature too short (%d < %d)", n, MinFeatureRunes))
	}
	if HasPlaceholder(r.Feature) {
		reasons = append(reasons, "feature contains placeholder text")
	}
	for i, s := range r.Stack {
		if HasPlaceholder(s) {
			reasons = append(reasons, fmt.Sprintf("stack[%d] contains placeholder text", i))
		}
	}
	for i, c := range r.Core {
		if HasPlaceholder(c) {
			reasons = append(reasons, fmt.Sprintf("core[%d] contains placeholder text", i))
		}
	}
	if len(r.Core) < MinCoreEntries {
		reasons = append(reasons, fmt.Sprintf("only %d core features (< %d)", len(r.Core), MinCoreEntries))
	}
	return reasons
}

// IsWeak reports whether r fails the semantic acceptance gate.
func IsWeak(r Result) bool {
	return len(WeakReasons(r)) > 0
}
