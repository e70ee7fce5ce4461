package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/vk/lakeshift/internal/ctxlog"
)

// MaybeDependency is the outcome of one resolution attempt. It is in exactly
// one of three states:
//
//   - resolved: Resolved is true. Dependency is the artifact to register, or
//     nil when the reference is satisfied outside the workspace and needs no
//     graph node.
//   - failed: Problems is non-empty.
//   - not applicable: the zero value, which sends the lookup to the next
//     resolver in the chain.
type MaybeDependency struct {
	Dependency *Dependency
	Problems   []Problem
	Resolved   bool
}

// Resolved wraps a dependency in a successful resolution.
func Resolved(dependency *Dependency) MaybeDependency {
	return MaybeDependency{Dependency: dependency, Resolved: true}
}

// Unresolvable returns a failed resolution carrying a single problem.
func Unresolvable(code, message string) MaybeDependency {
	return MaybeDependency{Problems: []Problem{NewProblem(code, message)}}
}

func (m MaybeDependency) applicable() bool {
	return m.Resolved || len(m.Problems) > 0
}

// NotebookResolver resolves notebook paths.
type NotebookResolver interface {
	ResolveNotebook(ctx context.Context, lookup *PathLookup, path string, inheritContext bool) MaybeDependency
}

// ImportResolver resolves dotted import names.
type ImportResolver interface {
	ResolveImport(ctx context.Context, lookup *PathLookup, name string) MaybeDependency
}

// FileResolver resolves literal file paths.
type FileResolver interface {
	ResolveFile(ctx context.Context, lookup *PathLookup, path string) MaybeDependency
}

// LibraryResolver resolves installable library names.
type LibraryResolver interface {
	ResolveLibrary(ctx context.Context, lookup *PathLookup, name string) MaybeDependency
}

// Compatibility is an allow-list verdict for a module or library name.
type Compatibility struct {
	Known    bool
	Problems []Problem
}

// Allowlist answers whether a module is known to exist outside the
// workspace, and if so which compatibility problems using it carries.
type Allowlist interface {
	ModuleCompatibility(name string) Compatibility
}

// DependencyResolver fans resolution requests out to the configured
// resolvers. Import resolution walks a chain; the first resolver producing
// an applicable result wins, and exhausting the chain is a failure.
type DependencyResolver struct {
	notebook NotebookResolver
	imports  []ImportResolver
	file     FileResolver
	library  LibraryResolver
}

// NewDependencyResolver wires the resolver set used for one workspace.
func NewDependencyResolver(notebook NotebookResolver, imports []ImportResolver, file FileResolver, library LibraryResolver) *DependencyResolver {
	return &DependencyResolver{notebook: notebook, imports: imports, file: file, library: library}
}

func (r *DependencyResolver) ResolveNotebook(ctx context.Context, lookup *PathLookup, path string, inheritContext bool) MaybeDependency {
	return r.notebook.ResolveNotebook(ctx, lookup, path, inheritContext)
}

func (r *DependencyResolver) ResolveImport(ctx context.Context, lookup *PathLookup, name string) MaybeDependency {
	for _, resolver := range r.imports {
		maybe := resolver.ResolveImport(ctx, lookup, name)
		if maybe.applicable() {
			return maybe
		}
	}
	return Unresolvable("import-not-found", "Could not locate import: "+name)
}

func (r *DependencyResolver) ResolveFile(ctx context.Context, lookup *PathLookup, path string) MaybeDependency {
	return r.file.ResolveFile(ctx, lookup, path)
}

func (r *DependencyResolver) ResolveLibrary(ctx context.Context, lookup *PathLookup, name string) MaybeDependency {
	maybe := r.library.ResolveLibrary(ctx, lookup, name)
	if maybe.applicable() {
		return maybe
	}
	return Unresolvable("library-not-found", "Library not found: "+name)
}

// ImportFileResolver resolves imports and file references against the local
// workspace. Imports are checked against the allow-list first so that known
// external modules never cause filesystem probes.
type ImportFileResolver struct {
	loader Loader
	allow  Allowlist
}

// NewImportFileResolver returns a resolver that materializes hits through
// the given file loader.
func NewImportFileResolver(loader Loader, allow Allowlist) *ImportFileResolver {
	return &ImportFileResolver{loader: loader, allow: allow}
}

func (r *ImportFileResolver) ResolveFile(ctx context.Context, lookup *PathLookup, path string) MaybeDependency {
	if absolute, ok := lookup.Resolve(path); ok {
		return Resolved(NewDependency(r.loader, absolute, true))
	}
	return Unresolvable("file-not-found", "File not found: "+path)
}

func (r *ImportFileResolver) ResolveImport(ctx context.Context, lookup *PathLookup, name string) MaybeDependency {
	if name == "" {
		return Unresolvable("internal-error", "Import name is empty")
	}
	if maybe, ok := r.resolveAllowList(ctx, name); ok {
		return maybe
	}
	if maybe, ok := r.resolveLocalImport(lookup, name); ok {
		return maybe
	}
	return MaybeDependency{}
}

func (r *ImportFileResolver) resolveAllowList(ctx context.Context, name string) (MaybeDependency, bool) {
	compatibility := r.allow.ModuleCompatibility(name)
	if !compatibility.Known {
		ctxlog.FromContext(ctx).Debug("Resolving unknown import.", "name", name)
		return MaybeDependency{}, false
	}
	return MaybeDependency{Problems: compatibility.Problems, Resolved: true}, true
}

// resolveLocalImport translates a dotted import name into a workspace path.
// A single leading dot anchors the name at the working directory; each
// further dot climbs one parent. The translated base is probed as a module
// file and as a package directory.
func (r *ImportFileResolver) resolveLocalImport(lookup *PathLookup, name string) (MaybeDependency, bool) {
	var parts []string
	for i, char := range name {
		if i == 0 && char == '.' {
			parts = append(parts, lookup.CWD())
			continue
		}
		if char != '.' {
			parts = append(parts, strings.ReplaceAll(name[i:], ".", "/"))
			break
		}
		parts = append(parts, "..")
	}
	base := strings.Join(parts, "/")
	for _, candidate := range []string{base + ".py", base + "/__init__.py"} {
		absolute, ok := lookup.Resolve(filepath.FromSlash(candidate))
		if !ok {
			continue
		}
		return Resolved(NewDependency(r.loader, absolute, false)), true
	}
	return MaybeDependency{}, false
}

// NotebookPathResolver resolves notebook references through the notebook
// loader's path probing.
type NotebookPathResolver struct {
	loader *NotebookLoader
}

func NewNotebookPathResolver(loader *NotebookLoader) *NotebookPathResolver {
	return &NotebookPathResolver{loader: loader}
}

func (r *NotebookPathResolver) ResolveNotebook(ctx context.Context, lookup *PathLookup, path string, inheritContext bool) MaybeDependency {
	absolute, ok := r.loader.ResolvePath(lookup, path)
	if !ok {
		return Unresolvable("notebook-not-found", "Notebook not found: "+path)
	}
	return Resolved(NewDependency(r.loader, absolute, inheritContext))
}

// KnownLibraryResolver resolves library installs against the allow-list.
// Libraries absent from it fall through the chain; installing from inside
// workspace code is a deployment concern this engine does not take on.
type KnownLibraryResolver struct {
	allow Allowlist
}

func NewKnownLibraryResolver(allow Allowlist) *KnownLibraryResolver {
	return &KnownLibraryResolver{allow: allow}
}

func (r *KnownLibraryResolver) ResolveLibrary(ctx context.Context, lookup *PathLookup, name string) MaybeDependency {
	compatibility := r.allow.ModuleCompatibility(name)
	if !compatibility.Known {
		return MaybeDependency{}
	}
	return MaybeDependency{Problems: compatibility.Problems, Resolved: true}
}
