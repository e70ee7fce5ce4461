package linter

import (
	"context"
	"iter"
	"os"
	"path/filepath"

	"github.com/vk/lakeshift/internal/ctxlog"
	"github.com/vk/lakeshift/internal/notebook"
	"github.com/vk/lakeshift/internal/pyscan"
	"github.com/vk/lakeshift/internal/source"
)

// Driver lints a workspace tree: it grows the dependency graph under a root
// path, reports construction problems as advice, and then lints every
// reachable artifact exactly once.
type Driver struct {
	notebookLoader source.Loader
	fileLoader     source.Loader
	folderLoader   source.Loader
	resolver       *source.DependencyResolver
	lookup         *source.PathLookup
	session        *source.Session
	contextFactory func() *Context
}

// NewDriver wires a lint driver. The context factory runs once per analyzed
// artifact so rule implementations get a fresh context each time.
func NewDriver(
	notebookLoader, fileLoader, folderLoader source.Loader,
	resolver *source.DependencyResolver,
	lookup *source.PathLookup,
	session *source.Session,
	contextFactory func() *Context,
) *Driver {
	return &Driver{
		notebookLoader: notebookLoader,
		fileLoader:     fileLoader,
		folderLoader:   folderLoader,
		resolver:       resolver,
		lookup:         lookup,
		session:        session,
		contextFactory: contextFactory,
	}
}

// Lint drains LintPath for a single root.
func (d *Driver) Lint(ctx context.Context, path string) ([]LocatedAdvice, error) {
	var located []LocatedAdvice
	seq, err := d.LintPath(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	for advice := range seq {
		located = append(located, advice)
	}
	return located, nil
}

// LintPath lazily lints the tree under path. The linted set is shared with
// the caller: passing the same set for several roots keeps artifacts reached
// from more than one root from being linted twice. A nil set scopes
// deduplication to this call.
func (d *Driver) LintPath(ctx context.Context, path string, linted map[string]bool) (iter.Seq[LocatedAdvice], error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absolute)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Linting path.", "path", absolute)

	var loader source.Loader
	isDir := info.IsDir()
	switch {
	case isDir:
		loader = d.folderLoader
	case notebook.IsNotebookFile(absolute):
		loader = d.notebookLoader
	default:
		loader = d.fileLoader
	}
	lookupDir := absolute
	if !isDir {
		lookupDir = filepath.Dir(absolute)
	}
	lookup := d.lookup.ChangeDirectory(lookupDir)
	// folder traversal does not carry execution state into its entries
	dependency := source.NewDependency(loader, absolute, !isDir)

	graph := source.NewDependencyGraph(dependency, nil, d.resolver, lookup, d.session)
	container, err := dependency.Load(ctx, lookup)
	if err != nil {
		return nil, err
	}
	problems := container.BuildDependencyGraph(ctx, graph)

	walker := source.NewWalker(graph, linted, func(ctx context.Context, node *source.DependencyGraph, lookup *source.PathLookup, inherited *pyscan.Scan) []LocatedAdvice {
		return d.processNode(ctx, node, lookup, inherited)
	})
	return func(yield func(LocatedAdvice) bool) {
		for _, problem := range problems {
			if !yield(FromProblem(problem.WithDefaultPath(absolute))) {
				return
			}
		}
		for advice := range walker.Walk(ctx) {
			if !yield(advice) {
				return
			}
		}
	}, nil
}

// processNode lints one graph node. Folder nodes only structure the walk and
// produce nothing themselves.
func (d *Driver) processNode(ctx context.Context, node *source.DependencyGraph, lookup *source.PathLookup, inherited *pyscan.Scan) []LocatedAdvice {
	path := node.Path()
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil
	}
	fileLinter := NewFileLinter(path, lookup, d.contextFactory(), inherited)
	var located []LocatedAdvice
	for _, advice := range fileLinter.Lint(ctx) {
		located = append(located, LocatedAdvice{Advice: advice, Path: path})
	}
	return located
}
