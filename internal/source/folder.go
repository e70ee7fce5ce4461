package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/lakeshift/internal/ctxlog"
	"github.com/vk/lakeshift/internal/notebook"
)

// ignoredNames are directory entries never worth following. Matching is by
// exact name.
var ignoredNames = map[string]struct{}{
	"__pycache__":   {},
	".git":          {},
	".github":       {},
	".venv":         {},
	".mypy_cache":   {},
	"site-packages": {},
}

// FolderLoader loads directories. Each loaded folder registers its direct
// children: subfolders recurse through the loader itself, notebooks and
// plain files go to their respective loaders.
type FolderLoader struct {
	notebookLoader Loader
	fileLoader     Loader
	extraIgnored   map[string]struct{}
}

// NewFolderLoader returns a folder loader. Additional entry names to skip,
// on top of the built-in set, can be given.
func NewFolderLoader(notebookLoader, fileLoader Loader, extraIgnored ...string) *FolderLoader {
	extra := make(map[string]struct{}, len(extraIgnored))
	for _, name := range extraIgnored {
		extra[name] = struct{}{}
	}
	return &FolderLoader{notebookLoader: notebookLoader, fileLoader: fileLoader, extraIgnored: extra}
}

func (l *FolderLoader) Kind() string { return "folder" }

func (l *FolderLoader) Load(ctx context.Context, lookup *PathLookup, dependency *Dependency) (Container, error) {
	resolved, ok := lookup.Resolve(dependency.Path())
	if !ok {
		return nil, fmt.Errorf("folder not found: %s", dependency.Path())
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a folder: %s", resolved)
	}
	return &Folder{path: resolved, loader: l}, nil
}

func (l *FolderLoader) ignored(name string) bool {
	if _, skip := ignoredNames[name]; skip {
		return true
	}
	_, skip := l.extraIgnored[name]
	return skip
}

// Folder is a loaded directory.
type Folder struct {
	path   string
	loader *FolderLoader
}

func (f *Folder) Path() string { return f.path }

// BuildDependencyGraph registers the folder's direct children. Recursion
// into subfolders happens through their own containers, so each node only
// ever enumerates one directory level.
func (f *Folder) BuildDependencyGraph(ctx context.Context, parent *DependencyGraph) []Problem {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		problem := Problem{
			Code:    "cannot-load-file",
			Message: fmt.Sprintf("Unable to list folder: %s", err),
			Path:    f.path,
		}
		return []Problem{problem}
	}
	var problems []Problem
	for _, entry := range entries {
		name := entry.Name()
		if f.loader.ignored(name) {
			ctxlog.FromContext(ctx).Debug("Skipping ignored entry.", "name", name, "folder", f.path)
			continue
		}
		childPath := filepath.Join(f.path, name)
		var dependency *Dependency
		switch {
		case entry.IsDir():
			dependency = NewDependency(f.loader, childPath, false)
		case notebook.IsNotebookFile(childPath):
			dependency = NewDependency(f.loader.notebookLoader, childPath, true)
		default:
			dependency = NewDependency(f.loader.fileLoader, childPath, false)
		}
		problems = append(problems, parent.RegisterDependency(ctx, dependency).Problems...)
	}
	return problems
}
