package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/lakeshift/internal/notebook"
	"github.com/vk/lakeshift/internal/pyscan"
)

// NotebookLoader loads notebooks in either supported on-disk format.
type NotebookLoader struct{}

func NewNotebookLoader() *NotebookLoader { return &NotebookLoader{} }

func (l *NotebookLoader) Kind() string { return "notebook" }

// ResolvePath probes for a notebook behind a referenced path. Workspace
// exports keep notebooks as .py files, so an extensionless reference is also
// probed with that suffix.
func (l *NotebookLoader) ResolvePath(lookup *PathLookup, path string) (string, bool) {
	direct := path
	if !filepath.IsAbs(direct) {
		direct = filepath.Join(lookup.CWD(), path)
	}
	if notebook.IsNotebookFile(direct) {
		if _, err := os.Stat(direct); err == nil {
			return filepath.Clean(direct), true
		}
	}
	candidates := []string{path}
	if filepath.Ext(path) == "" {
		candidates = append(candidates, path+".py")
	}
	for _, candidate := range candidates {
		if absolute, ok := lookup.Resolve(candidate); ok {
			return absolute, true
		}
	}
	return "", false
}

func (l *NotebookLoader) Load(ctx context.Context, lookup *PathLookup, dependency *Dependency) (Container, error) {
	resolved, ok := l.ResolvePath(lookup, dependency.Path())
	if !ok {
		return nil, fmt.Errorf("notebook not found: %s", dependency.Path())
	}
	var parsed *notebook.Notebook
	if strings.EqualFold(filepath.Ext(resolved), ".ipynb") {
		raw, err := os.ReadFile(resolved)
		if err != nil {
			return nil, err
		}
		parsed, err = notebook.ParseJupyter(resolved, raw)
		if err != nil {
			return nil, err
		}
	} else {
		content, err := ReadText(resolved)
		if err != nil {
			return nil, err
		}
		parsed, err = notebook.Parse(resolved, content)
		if err != nil {
			return nil, err
		}
	}
	return NewNotebookContainer(parsed), nil
}

// NotebookContainer declares the dependencies of a parsed notebook: %run
// targets, %pip installs, and the references of its Python cells.
type NotebookContainer struct {
	notebook *notebook.Notebook
}

func NewNotebookContainer(parsed *notebook.Notebook) *NotebookContainer {
	return &NotebookContainer{notebook: parsed}
}

func (c *NotebookContainer) Notebook() *notebook.Notebook { return c.notebook }

func (c *NotebookContainer) BuildDependencyGraph(ctx context.Context, parent *DependencyGraph) []Problem {
	var problems []Problem
	for _, cell := range c.notebook.Cells {
		switch cell.Language {
		case notebook.Run:
			target, ok := cell.RunTarget()
			if !ok {
				problem := NewProblem("invalid-run-cell", "Missing notebook path in %run command")
				problems = append(problems, problem.At(cell.StartLine, 0, 0, 0))
				continue
			}
			for _, problem := range parent.RegisterNotebook(ctx, target, true) {
				if problem.Path == "" {
					problem = problem.At(cell.StartLine, 0, 0, len(target))
				}
				problems = append(problems, problem)
			}
		case notebook.Pip:
			libraries := cell.PipLibraries()
			if len(libraries) == 0 {
				problem := NewProblem("library-install-failed", "Missing arguments after '%pip install'")
				problems = append(problems, problem.At(cell.StartLine, 0, 0, 0))
				continue
			}
			for _, problem := range parent.RegisterLibrary(ctx, libraries...) {
				if problem.Path == "" {
					problem = problem.At(cell.StartLine, 0, 0, 0)
				}
				problems = append(problems, problem)
			}
		case notebook.Python:
			problems = append(problems, registerScan(ctx, parent, pyscan.ScanSource(cell.Source), cell.StartLine)...)
		}
	}
	return problems
}

// ContextScan merges the scans of the notebook's Python cells for
// inherited-context propagation.
func (c *NotebookContainer) ContextScan() *pyscan.Scan {
	var merged *pyscan.Scan
	for _, cell := range c.notebook.Cells {
		if cell.Language != notebook.Python {
			continue
		}
		merged = merged.Merge(pyscan.ScanSource(cell.Source))
	}
	return merged
}
