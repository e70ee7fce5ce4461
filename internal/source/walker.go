package source

import (
	"context"
	"iter"

	"github.com/vk/lakeshift/internal/ctxlog"
	"github.com/vk/lakeshift/internal/pyscan"
)

// ProcessFunc produces a walker's output for one graph node. The lookup is
// rooted at the node's directory. The inherited scan carries the context
// accumulated along %run-style edges, or nil when the node starts fresh.
type ProcessFunc[T any] func(ctx context.Context, node *DependencyGraph, lookup *PathLookup, inherited *pyscan.Scan) []T

// Walker traverses a dependency graph depth-first in registration order,
// visiting each artifact path exactly once. The visited set is owned by the
// caller so that several walks can share it and a path linted under one root
// is not linted again under another.
type Walker[T any] struct {
	root    *DependencyGraph
	visited map[string]bool
	process ProcessFunc[T]
	scans   map[string]*pyscan.Scan
}

// NewWalker returns a walker over the graph rooted at root. A nil visited
// set makes the walk self-contained.
func NewWalker[T any](root *DependencyGraph, visited map[string]bool, process ProcessFunc[T]) *Walker[T] {
	if visited == nil {
		visited = make(map[string]bool)
	}
	return &Walker[T]{
		root:    root,
		visited: visited,
		process: process,
		scans:   make(map[string]*pyscan.Scan),
	}
}

// Walk returns a lazy sequence of the walker's output. Abandoning the
// sequence early stops the traversal.
func (w *Walker[T]) Walk(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		w.walkNode(ctx, w.root, nil, yield)
	}
}

func (w *Walker[T]) walkNode(ctx context.Context, node *DependencyGraph, inherited *pyscan.Scan, yield func(T) bool) bool {
	key := graphKey(node.Path())
	if w.visited[key] {
		return true
	}
	w.visited[key] = true
	ctxlog.FromContext(ctx).Debug("Visiting dependency.", "dependency", node.Dependency().String())

	for _, item := range w.process(ctx, node, node.PathLookup(), inherited) {
		if !yield(item) {
			return false
		}
	}
	for _, child := range node.Children() {
		childInherited := (*pyscan.Scan)(nil)
		if child.Dependency().InheritsContext() {
			childInherited = inherited.Merge(w.contextScan(ctx, node))
		}
		if !w.walkNode(ctx, child, childInherited, yield) {
			return false
		}
	}
	return true
}

// contextScan loads a node's container and extracts the scan it contributes
// to descendants. Results are cached per path; containers that carry no
// context contribute nil.
func (w *Walker[T]) contextScan(ctx context.Context, node *DependencyGraph) *pyscan.Scan {
	key := graphKey(node.Path())
	if scan, ok := w.scans[key]; ok {
		return scan
	}
	var scan *pyscan.Scan
	container, err := node.Dependency().Load(ctx, node.PathLookup())
	if err == nil {
		if carrier, ok := container.(ContextCarrier); ok {
			scan = carrier.ContextScan()
		}
	}
	w.scans[key] = scan
	return scan
}

// ContextCarrier is implemented by containers whose source contributes
// inherited context to dependencies registered with the inherit flag.
type ContextCarrier interface {
	ContextScan() *pyscan.Scan
}
