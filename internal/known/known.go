// Package known catalogs modules and distributions that resolve outside the
// workspace. An import found in the catalog never triggers a filesystem
// probe; it either passes silently or carries the compatibility problems the
// catalog records for it.
package known

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/vk/lakeshift/internal/source"
)

//go:embed known.json
var defaultCatalog []byte

// KnownList answers module compatibility questions from a catalog. Lookups
// walk the dotted name from most to least specific, so cataloging "requests"
// also covers "requests.adapters".
type KnownList struct {
	modules map[string][]source.Problem
}

// NewKnownList returns the built-in catalog.
func NewKnownList() *KnownList {
	modules, err := parseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %s", err))
	}
	return &KnownList{modules: modules}
}

// NewKnownListFromFile loads a catalog from disk, replacing the built-in one.
func NewKnownListFromFile(path string) (*KnownList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	modules, err := parseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return &KnownList{modules: modules}, nil
}

func parseCatalog(raw []byte) (map[string][]source.Problem, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("catalog is not valid JSON")
	}
	document := gjson.ParseBytes(raw)
	if !document.IsObject() {
		return nil, fmt.Errorf("catalog must be an object of module entries")
	}
	modules := make(map[string][]source.Problem)
	document.ForEach(func(key, value gjson.Result) bool {
		var problems []source.Problem
		value.ForEach(func(_, entry gjson.Result) bool {
			problems = append(problems, source.NewProblem(
				entry.Get("code").String(),
				entry.Get("message").String(),
			))
			return true
		})
		modules[key.String()] = problems
		return true
	})
	return modules, nil
}

// ModuleCompatibility reports whether a dotted module name is in the catalog.
// The name is tried as given, then with trailing segments trimmed one at a
// time, so submodules inherit their package's verdict.
func (k *KnownList) ModuleCompatibility(name string) source.Compatibility {
	for current := name; current != ""; {
		if problems, ok := k.modules[current]; ok {
			return source.Compatibility{Known: true, Problems: problems}
		}
		idx := strings.LastIndexByte(current, '.')
		if idx < 0 {
			break
		}
		current = current[:idx]
	}
	return source.Compatibility{}
}

// Len returns the number of cataloged entries.
func (k *KnownList) Len() int { return len(k.modules) }
