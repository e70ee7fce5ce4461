package source

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/lakeshift/internal/ctxlog"
)

// MaybeGraph is the outcome of registering a dependency: the graph node the
// dependency ended up on, plus any problems found while building the subtree
// below it. The node is present even when problems are.
type MaybeGraph struct {
	Graph    *DependencyGraph
	Problems []Problem
}

// DependencyGraph is one node of a dependency graph and, through its shared
// registry, a handle on the whole graph. Every node reachable from one root
// shares a single registry keyed by canonical path, which is what
// deduplicates artifacts and breaks cycles: re-registering a known path adds
// an edge to the existing node instead of recursing.
type DependencyGraph struct {
	dependency *Dependency
	parent     *DependencyGraph
	resolver   *DependencyResolver
	lookup     *PathLookup
	session    *Session
	registry   map[string]*DependencyGraph
	children   []*DependencyGraph
	childSeen  map[string]struct{}
}

// NewDependencyGraph creates a graph node for a dependency. A nil parent
// starts a new graph; the node then owns a fresh registry containing itself.
// The node's path lookup is the given one rebased to the dependency's
// directory.
func NewDependencyGraph(dependency *Dependency, parent *DependencyGraph, resolver *DependencyResolver, lookup *PathLookup, session *Session) *DependencyGraph {
	g := &DependencyGraph{
		dependency: dependency,
		parent:     parent,
		resolver:   resolver,
		lookup:     lookup.ChangeDirectory(filepath.Dir(dependency.Path())),
		session:    session,
	}
	if parent != nil {
		g.registry = parent.registry
	} else {
		g.registry = map[string]*DependencyGraph{graphKey(dependency.Path()): g}
	}
	return g
}

func graphKey(path string) string {
	return filepath.Clean(path)
}

func (g *DependencyGraph) Dependency() *Dependency { return g.dependency }

func (g *DependencyGraph) Path() string { return g.dependency.Path() }

func (g *DependencyGraph) Parent() *DependencyGraph { return g.parent }

// Root returns the node the graph was grown from.
func (g *DependencyGraph) Root() *DependencyGraph {
	root := g
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// PathLookup returns the lookup rooted at this node's directory.
func (g *DependencyGraph) PathLookup() *PathLookup { return g.lookup }

func (g *DependencyGraph) Session() *Session { return g.session }

// Children returns this node's direct dependencies in registration order.
// Callers must not mutate the returned slice.
func (g *DependencyGraph) Children() []*DependencyGraph { return g.children }

// Locate returns the node registered for a path anywhere in the graph.
func (g *DependencyGraph) Locate(path string) (*DependencyGraph, bool) {
	node, ok := g.registry[graphKey(path)]
	return node, ok
}

// Visit walks the graph depth-first from this node, calling visit for each
// node not yet in visited. A true return from visit stops the walk. A nil
// visited set starts a fresh walk.
func (g *DependencyGraph) Visit(visit func(*DependencyGraph) bool, visited map[string]bool) bool {
	if visited == nil {
		visited = make(map[string]bool)
	}
	key := graphKey(g.Path())
	if visited[key] {
		return false
	}
	visited[key] = true
	if visit(g) {
		return true
	}
	for _, child := range g.children {
		if child.Visit(visit, visited) {
			return true
		}
	}
	return false
}

// AllDependencies returns every dependency reachable from this node in
// visit order.
func (g *DependencyGraph) AllDependencies() []*Dependency {
	var all []*Dependency
	g.Visit(func(node *DependencyGraph) bool {
		all = append(all, node.dependency)
		return false
	}, nil)
	return all
}

// AllPaths returns the paths of every reachable dependency in visit order.
func (g *DependencyGraph) AllPaths() []string {
	var paths []string
	for _, dependency := range g.AllDependencies() {
		paths = append(paths, dependency.Path())
	}
	return paths
}

// RegisterDependency adds a dependency below this node. Known paths are
// linked to their existing node, which is what keeps cyclic references
// finite. A dependency that fails to load reports a problem and registers
// no node, so every referencing site sees the failure; loadable ones enter
// the registry before their container is built, so that cycles back into
// the new node resolve while its subtree is still being grown. Problems
// lacking a source path are attributed to the registered dependency.
func (g *DependencyGraph) RegisterDependency(ctx context.Context, dependency *Dependency) MaybeGraph {
	key := graphKey(dependency.Path())
	if existing, ok := g.registry[key]; ok {
		g.addChild(existing)
		return MaybeGraph{Graph: existing}
	}

	container, err := dependency.Load(ctx, g.lookup)
	if err != nil {
		problem := Problem{
			Code:    "cannot-load-file",
			Message: fmt.Sprintf("Unable to load dependency: %s", err),
			Path:    dependency.Path(),
		}
		return MaybeGraph{Problems: []Problem{problem}}
	}

	child := NewDependencyGraph(dependency, g, g.resolver, g.lookup, g.session)
	g.registry[key] = child
	g.addChild(child)
	ctxlog.FromContext(ctx).Debug("Registered dependency.", "dependency", dependency.String())

	problems := container.BuildDependencyGraph(ctx, child)
	return MaybeGraph{Graph: child, Problems: relocateProblems(problems, dependency.Path())}
}

func (g *DependencyGraph) addChild(child *DependencyGraph) {
	key := graphKey(child.Path())
	if g.childSeen == nil {
		g.childSeen = make(map[string]struct{})
	}
	if _, dup := g.childSeen[key]; dup {
		return
	}
	g.childSeen[key] = struct{}{}
	g.children = append(g.children, child)
}

// RegisterNotebook resolves a notebook reference and registers it.
func (g *DependencyGraph) RegisterNotebook(ctx context.Context, path string, inheritContext bool) []Problem {
	maybe := g.resolver.ResolveNotebook(ctx, g.lookup, path, inheritContext)
	if maybe.Dependency == nil {
		return maybe.Problems
	}
	return g.RegisterDependency(ctx, maybe.Dependency).Problems
}

// RegisterImport resolves a dotted import name and registers it.
func (g *DependencyGraph) RegisterImport(ctx context.Context, name string) []Problem {
	maybe := g.resolver.ResolveImport(ctx, g.lookup, name)
	if maybe.Dependency == nil {
		return maybe.Problems
	}
	return g.RegisterDependency(ctx, maybe.Dependency).Problems
}

// RegisterFile resolves a file reference and registers it.
func (g *DependencyGraph) RegisterFile(ctx context.Context, path string) []Problem {
	maybe := g.resolver.ResolveFile(ctx, g.lookup, path)
	if maybe.Dependency == nil {
		return maybe.Problems
	}
	return g.RegisterDependency(ctx, maybe.Dependency).Problems
}

// RegisterLibrary resolves library names and registers those that
// materialize as workspace artifacts.
func (g *DependencyGraph) RegisterLibrary(ctx context.Context, names ...string) []Problem {
	var problems []Problem
	for _, name := range names {
		maybe := g.resolver.ResolveLibrary(ctx, g.lookup, name)
		if maybe.Dependency == nil {
			problems = append(problems, maybe.Problems...)
			continue
		}
		problems = append(problems, g.RegisterDependency(ctx, maybe.Dependency).Problems...)
	}
	return problems
}
