package source

import (
	"os"
	"path/filepath"
)

// PathLookup resolves referenced paths against a working directory and an
// ordered list of search roots, mirroring how the platform resolves imports
// at run time.
//
// The search roots are shared: lookups derived through ChangeDirectory see
// later AppendPath and PrependPath calls, because a sys.path change made
// deep inside a graph affects the rest of that graph's construction.
type PathLookup struct {
	cwd string
	sys *searchPaths
}

type searchPaths struct {
	paths []string
}

// NewPathLookup returns a lookup rooted at cwd with the given search roots.
func NewPathLookup(cwd string, paths ...string) *PathLookup {
	return &PathLookup{cwd: filepath.Clean(cwd), sys: &searchPaths{paths: append([]string(nil), paths...)}}
}

// CWD returns the lookup's working directory.
func (l *PathLookup) CWD() string { return l.cwd }

// ChangeDirectory returns a lookup with a new working directory that shares
// this lookup's search roots.
func (l *PathLookup) ChangeDirectory(dir string) *PathLookup {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(l.cwd, dir)
	}
	return &PathLookup{cwd: filepath.Clean(dir), sys: l.sys}
}

// AppendPath adds a search root at the end of the list. Duplicates are kept
// out.
func (l *PathLookup) AppendPath(path string) {
	for _, existing := range l.sys.paths {
		if existing == path {
			return
		}
	}
	l.sys.paths = append(l.sys.paths, path)
}

// PrependPath adds a search root at the front of the list.
func (l *PathLookup) PrependPath(path string) {
	for _, existing := range l.sys.paths {
		if existing == path {
			return
		}
	}
	l.sys.paths = append([]string{path}, l.sys.paths...)
}

// Paths returns the working directory followed by the search roots.
func (l *PathLookup) Paths() []string {
	return append([]string{l.cwd}, l.sys.paths...)
}

// Resolve locates a referenced path on disk. Absolute paths are checked
// directly; relative ones are probed against the working directory and then
// each search root in order. The returned path is absolute and cleaned.
func (l *PathLookup) Resolve(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", false
		}
		return filepath.Clean(path), true
	}
	for _, root := range l.Paths() {
		candidate := filepath.Join(root, path)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		return candidate, true
	}
	return "", false
}
