package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strongResult() Result {
	return Result{
		Feature: longFeature,
		Stack:   []string{"Go"},
		Core:    []string{"indexes repositories", "answers questions", "refreshes the index"},
	}
}

func TestIsWeakAcceptsStrongResult(t *testing.T) {
	r := strongResult()
	assert.False(t, IsWeak(r), "reasons: %v", WeakReasons(r))
}

func TestIsWeakShortFeature(t *testing.T) {
	r := strongResult()
	r.Feature = strings.Repeat("字", MinFeatureRunes-1)
	assert.True(t, IsWeak(r))

	r.Feature = strings.Repeat("字", MinFeatureRunes)
	assert.False(t, IsWeak(r), "rune count, not bytes, decides length")

	r.Feature = ""
	assert.True(t, IsWeak(r))
}

func TestIsWeakPlaceholderFeature(t *testing.T) {
	r := strongResult()
	r.Feature = phraseLengthInstruction
	assert.True(t, IsWeak(r))

	r.Feature = longFeature + " 该项目聚焦于提升开发者效率。"
	assert.True(t, IsWeak(r))
}

func TestIsWeakPlaceholderIsCaseInsensitive(t *testing.T) {
	r := strongResult()
	r.Core[1] = "详见仓库 readme 与示例"
	assert.True(t, IsWeak(r))
}

func TestIsWeakPlaceholderInLists(t *testing.T) {
	r := strongResult()
	r.Stack = []string{"Go", phraseStackTemplate}
	assert.True(t, IsWeak(r))

	r = strongResult()
	r.Core[0] = "功能点1"
	assert.True(t, IsWeak(r))
}

func TestIsWeakTooFewCoreEntries(t *testing.T) {
	r := strongResult()
	r.Core = r.Core[:2]
	reasons := WeakReasons(r)
	assert.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "only 2 core features")
}

func TestIsWeakIgnoresStackLength(t *testing.T) {
	r := strongResult()
	r.Stack = []string{"Go"}
	assert.False(t, IsWeak(r))
}
