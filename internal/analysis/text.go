package analysis

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Clean collapses every whitespace run into a single space and trims the ends.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanValue stringifies an untyped JSON value and cleans it. nil yields "".
func cleanValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return Clean(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return Clean(string(b))
	}
}
