// Package category maintains the site's categories.json registry.
package category

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultName = "github trend"

const categoriesKey = "categories"

// Registry is the on-disk document. Keys other than "categories" are kept
// as they were read.
type Registry struct {
	Categories []string
	extra      map[string]json.RawMessage
}

func Load(path string) (Registry, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Registry{}, nil
		}
		return Registry{}, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(blob, &doc); err != nil {
		return Registry{}, fmt.Errorf("decode %s: %w", path, err)
	}
	var reg Registry
	if raw, ok := doc[categoriesKey]; ok {
		if err := json.Unmarshal(raw, &reg.Categories); err != nil {
			return Registry{}, fmt.Errorf("decode %s: %s: %w", path, categoriesKey, err)
		}
		delete(doc, categoriesKey)
	}
	reg.extra = doc
	return reg, nil
}

func (r Registry) Contains(name string) bool {
	for _, c := range r.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Ensure adds name to the registry at path. The file is left untouched when
// name is already listed; otherwise the list is deduplicated, sorted
// case-insensitively and written atomically. It reports whether it wrote.
func Ensure(path, name string) (bool, error) {
	reg, err := Load(path)
	if err != nil {
		return false, err
	}
	if reg.Contains(name) {
		return false, nil
	}
	reg.Categories = sortUnique(append(reg.Categories, name))
	if err := Save(path, reg); err != nil {
		return false, err
	}
	return true, nil
}

func Save(path string, reg Registry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	doc := make(map[string]any, len(reg.extra)+1)
	for k, v := range reg.extra {
		doc[k] = v
	}
	cats := reg.Categories
	if cats == nil {
		cats = []string{}
	}
	doc[categoriesKey] = cats

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func sortUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}
