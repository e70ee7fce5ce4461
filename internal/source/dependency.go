package source

import "context"

// Loader materializes a dependency into a source container. Implementations
// exist for plain files, notebooks, folders and job tasks.
type Loader interface {
	// Kind names the artifact class this loader produces, e.g. "file" or
	// "notebook".
	Kind() string
	// Load returns the container for a dependency. A returned error means
	// the artifact could not be materialized; the graph records it as a
	// problem on the registering node.
	Load(ctx context.Context, lookup *PathLookup, dependency *Dependency) (Container, error)
}

// Container is source code that can declare dependencies of its own. The
// implementation registers every reference it finds on the given graph node
// and returns the problems encountered while doing so.
type Container interface {
	BuildDependencyGraph(ctx context.Context, parent *DependencyGraph) []Problem
}

// Dependency identifies one artifact reachable from a graph root: which
// loader materializes it, where it lives, and whether state accumulated by
// its parent flows into it the way %run execution state does.
type Dependency struct {
	loader          Loader
	path            string
	inheritsContext bool
}

// NewDependency returns a dependency for the given loader and path.
func NewDependency(loader Loader, path string, inheritsContext bool) *Dependency {
	return &Dependency{loader: loader, path: path, inheritsContext: inheritsContext}
}

func (d *Dependency) Path() string { return d.path }

func (d *Dependency) Kind() string { return d.loader.Kind() }

func (d *Dependency) InheritsContext() bool { return d.inheritsContext }

// Load materializes the dependency through its loader.
func (d *Dependency) Load(ctx context.Context, lookup *PathLookup) (Container, error) {
	return d.loader.Load(ctx, lookup, d)
}

func (d *Dependency) String() string {
	return d.Kind() + "<" + d.path + ">"
}

// StubContainer stands in for artifacts that carry no dependencies of their
// own, such as files in languages the scanner does not read.
type StubContainer struct{}

func (StubContainer) BuildDependencyGraph(context.Context, *DependencyGraph) []Problem {
	return nil
}
