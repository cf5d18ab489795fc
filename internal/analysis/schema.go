package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	fieldFeature = "功能描述"
	fieldStack   = "技术栈"
	fieldCore    = "核心功能"

	phraseLengthInstruction = "120-220字中文"
	phraseStackTemplate     = "语言/框架/关键基础设施"
	phraseFeatureToken      = "功能点"

	schemaMinFeatureRunes = 80
	schemaMinStackItems   = 2
	schemaMaxStackItems   = 10
	schemaMinStackRunes   = 2
	schemaMinCoreItems    = 4
	schemaMaxCoreItems    = 8
	schemaMinCoreRunes    = 8
)

// Placeholders are template fragments a generator echoes back when it fills
// the prompt skeleton instead of reading the repository.
var Placeholders = []string{
	phraseLengthInstruction,
	phraseStackTemplate,
	"功能点1",
	"功能点2",
	"功能点3",
	"功能点4",
	"该项目聚焦于提升开发者效率",
	"详见仓库 README",
}

var numberedPlaceholderRe = regexp.MustCompile(`(?i)^(功能点|feature\s*)[0-9]`)

// AnalysisSchema is passed to the generator as a structural hint. Patterns
// are soft: the generator may or may not honor them.
const AnalysisSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "功能描述": {
      "type": "string",
      "minLength": 80,
      "pattern": "^(?!.*120-220字中文)(?!.*功能点).+"
    },
    "技术栈": {
      "type": "array",
      "minItems": 2,
      "maxItems": 10,
      "items": {
        "type": "string",
        "minLength": 2,
        "pattern": "^(?!.*语言/框架/关键基础设施).+"
      }
    },
    "核心功能": {
      "type": "array",
      "minItems": 4,
      "maxItems": 8,
      "items": {
        "type": "string",
        "minLength": 8,
        "pattern": "^(?!功能点[0-9]).+"
      }
    }
  },
  "required": ["功能描述", "技术栈", "核心功能"]
}`

// HasPlaceholder reports whether the cleaned text contains any placeholder
// fragment, ignoring case.
func HasPlaceholder(s string) bool {
	t := strings.ToLower(Clean(s))
	if t == "" {
		return false
	}
	for _, p := range Placeholders {
		if strings.Contains(t, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// ValidateCandidate checks obj against AnalysisSchema and returns every
// violation found. The result is advisory; callers must not reject a
// candidate on it.
func ValidateCandidate(obj map[string]any) []string {
	if obj == nil {
		return []string{"candidate is not an object"}
	}
	var issues []string

	var extra []string
	for k := range obj {
		if k != fieldFeature && k != fieldStack && k != fieldCore {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		issues = append(issues, fmt.Sprintf("unexpected field %q", k))
	}

	switch v := obj[fieldFeature].(type) {
	case nil:
		issues = append(issues, fmt.Sprintf("%s is required", fieldFeature))
	case string:
		if utf8.RuneCountInString(v) < schemaMinFeatureRunes {
			issues = append(issues, fmt.Sprintf("%s shorter than %d chars", fieldFeature, schemaMinFeatureRunes))
		}
		if HasPlaceholder(v) || strings.Contains(v, phraseFeatureToken) {
			issues = append(issues, fmt.Sprintf("%s contains template text", fieldFeature))
		}
	default:
		issues = append(issues, fmt.Sprintf("%s must be a string", fieldFeature))
	}

	issues = append(issues, validateStringArray(obj[fieldStack], fieldStack, schemaMinStackItems, schemaMaxStackItems, schemaMinStackRunes, HasPlaceholder)...)
	issues = append(issues, validateStringArray(obj[fieldCore], fieldCore, schemaMinCoreItems, schemaMaxCoreItems, schemaMinCoreRunes, func(s string) bool {
		return numberedPlaceholderRe.MatchString(strings.TrimSpace(s))
	})...)
	return issues
}

func validateStringArray(v any, field string, minItems, maxItems, minRunes int, banned func(string) bool) []string {
	if v == nil {
		return []string{fmt.Sprintf("%s is required", field)}
	}
	items, ok := v.([]any)
	if !ok {
		return []string{fmt.Sprintf("%s must be an array", field)}
	}
	var issues []string
	if len(items) < minItems || len(items) > maxItems {
		issues = append(issues, fmt.Sprintf("%s must have %d-%d entries, got %d", field, minItems, maxItems, len(items)))
	}
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			issues = append(issues, fmt.Sprintf("%s[%d] must be a string", field, i))
			continue
		}
		if utf8.RuneCountInString(s) < minRunes {
			issues = append(issues, fmt.Sprintf("%s[%d] shorter than %d chars", field, i, minRunes))
		}
		if banned(s) {
			issues = append(issues, fmt.Sprintf("%s[%d] contains template text", field, i))
		}
	}
	return issues
}
