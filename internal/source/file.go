package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/vk/lakeshift/internal/notebook"
	"github.com/vk/lakeshift/internal/pyscan"
)

// FileLoader loads plain workspace files. Python files become containers
// that declare their imports; files in languages without reference scanning
// load as stubs so they still occupy a graph node.
type FileLoader struct{}

func NewFileLoader() *FileLoader { return &FileLoader{} }

func (l *FileLoader) Kind() string { return "file" }

func (l *FileLoader) Load(ctx context.Context, lookup *PathLookup, dependency *Dependency) (Container, error) {
	resolved, ok := lookup.Resolve(dependency.Path())
	if !ok {
		return nil, fmt.Errorf("file not found: %s", dependency.Path())
	}
	language, supported := notebook.LanguageForExtension(filepath.Ext(resolved))
	if !supported {
		return StubContainer{}, nil
	}
	content, err := ReadText(resolved)
	if err != nil {
		return nil, err
	}
	return NewLocalFile(resolved, content, language), nil
}

// LocalFile is a loaded workspace file.
type LocalFile struct {
	path     string
	content  string
	language notebook.Language
	scan     *pyscan.Scan
}

func NewLocalFile(path, content string, language notebook.Language) *LocalFile {
	file := &LocalFile{path: path, content: content, language: language}
	if language == notebook.Python {
		file.scan = pyscan.ScanSource(content)
	}
	return file
}

func (f *LocalFile) Path() string { return f.path }

func (f *LocalFile) Content() string { return f.content }

func (f *LocalFile) Language() notebook.Language { return f.language }

// BuildDependencyGraph registers the file's Python references. Files in
// other languages declare nothing.
func (f *LocalFile) BuildDependencyGraph(ctx context.Context, parent *DependencyGraph) []Problem {
	if f.scan == nil {
		return nil
	}
	return registerScan(ctx, parent, f.scan, 0)
}

// ContextScan exposes the file's scan for inherited-context propagation.
func (f *LocalFile) ContextScan() *pyscan.Scan { return f.scan }

// registerScan registers every reference a scan discovered on the given
// node. The offset shifts problem positions when the scanned source was a
// notebook cell rather than a whole file.
func registerScan(ctx context.Context, graph *DependencyGraph, scan *pyscan.Scan, offset int) []Problem {
	var problems []Problem
	for _, change := range scan.PathChanges {
		if change.Dynamic {
			problem := NewProblem("sys-path-cannot-compute-value", "Can't compute the sys.path change value")
			problems = append(problems, problem.At(change.Line, change.Col, offset, 0))
			continue
		}
		path := change.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(graph.PathLookup().CWD(), path)
		}
		if change.Prepend {
			graph.PathLookup().PrependPath(path)
		} else {
			graph.PathLookup().AppendPath(path)
		}
	}
	for _, ref := range scan.References {
		switch ref.Kind {
		case pyscan.KindImport:
			if ref.Dynamic {
				problem := NewProblem("import-cannot-compute-value", "Can't compute the import name")
				problems = append(problems, problem.At(ref.Line, ref.Col, offset, 0))
				continue
			}
			problems = append(problems, atReference(graph.RegisterImport(ctx, ref.Name), ref, offset)...)
		case pyscan.KindNotebookRun:
			if ref.Dynamic {
				problem := NewProblem("notebook-run-cannot-compute-value", "Can't compute the dbutils.notebook.run target")
				problems = append(problems, problem.At(ref.Line, ref.Col, offset, 0))
				continue
			}
			problems = append(problems, atReference(graph.RegisterNotebook(ctx, ref.Name, false), ref, offset)...)
		case pyscan.KindMagicRun:
			if ref.Name == "" {
				problem := NewProblem("invalid-run-cell", "Missing notebook path in %run command")
				problems = append(problems, problem.At(ref.Line, ref.Col, offset, 0))
				continue
			}
			problems = append(problems, atReference(graph.RegisterNotebook(ctx, ref.Name, true), ref, offset)...)
		}
	}
	return problems
}

// atReference positions problems on the reference that triggered them.
// Problems that already name a source path were located deeper in the graph
// and keep their own positions.
func atReference(problems []Problem, ref pyscan.Reference, offset int) []Problem {
	located := make([]Problem, 0, len(problems))
	for _, problem := range problems {
		if problem.Path == "" {
			problem = problem.At(ref.Line, ref.Col, offset, len(ref.Name))
		}
		located = append(located, problem)
	}
	return located
}

// ReadText reads a source file as text. Byte-order marks are honored,
// including UTF-16 ones; content that does not decode to text is an error.
func ReadText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !hasByteOrderMark(raw) {
		if !utf8.Valid(raw) || bytes.IndexByte(raw, 0) >= 0 {
			return "", fmt.Errorf("unsupported encoding in %s", path)
		}
		return string(raw), nil
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return string(decoded), nil
}

func hasByteOrderMark(raw []byte) bool {
	for _, mark := range [][]byte{{0xEF, 0xBB, 0xBF}, {0xFF, 0xFE}, {0xFE, 0xFF}} {
		if bytes.HasPrefix(raw, mark) {
			return true
		}
	}
	return false
}

// IsLocalSource reports whether the path has an extension the engine can
// scan for references.
func IsLocalSource(path string) bool {
	_, supported := notebook.LanguageForExtension(strings.ToLower(filepath.Ext(path)))
	return supported
}
