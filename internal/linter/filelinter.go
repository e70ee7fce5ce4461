package linter

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/lakeshift/internal/ctxlog"
	"github.com/vk/lakeshift/internal/notebook"
	"github.com/vk/lakeshift/internal/pyscan"
	"github.com/vk/lakeshift/internal/source"
)

// ignorableSuffixes are files a workspace tree commonly contains that carry
// no lintable code. They produce no advice at all.
var ignorableSuffixes = map[string]struct{}{
	".json": {}, ".xml": {}, ".yml": {}, ".yaml": {}, ".md": {}, ".txt": {},
	".toml": {}, ".cfg": {}, ".ini": {}, ".lock": {}, ".png": {}, ".jpg": {},
	".jpeg": {}, ".gif": {}, ".svg": {}, ".ico": {}, ".whl": {}, ".egg": {},
	".dbc": {}, ".gitignore": {},
}

// ignorableNames are exact file names with the same treatment.
var ignorableNames = map[string]struct{}{
	".DS_Store": {}, "MANIFEST.in": {}, "LICENSE": {}, "NOTICE": {},
}

// unsupportedLanguages maps source suffixes the engine recognizes but has no
// linting support for.
var unsupportedLanguages = map[string]string{
	".scala": "scala", ".r": "r", ".sh": "shell", ".java": "java", ".cpp": "c++", ".c": "c",
}

// FileLinter lints one artifact, picking the cell-aware notebook path or the
// whole-file path based on what the artifact turns out to be.
type FileLinter struct {
	path      string
	lookup    *source.PathLookup
	context   *Context
	inherited *pyscan.Scan
}

// NewFileLinter returns a linter for the artifact at path. The inherited
// scan, when present, carries state from the artifacts that %run this one.
func NewFileLinter(path string, lookup *source.PathLookup, linterContext *Context, inherited *pyscan.Scan) *FileLinter {
	return &FileLinter{path: path, lookup: lookup, context: linterContext, inherited: inherited}
}

// Lint analyzes the artifact and returns its findings.
func (l *FileLinter) Lint(ctx context.Context) []Advice {
	name := filepath.Base(l.path)
	if _, skip := ignorableNames[name]; skip {
		return nil
	}
	suffix := strings.ToLower(filepath.Ext(l.path))
	if _, skip := ignorableSuffixes[suffix]; skip {
		return nil
	}
	if language, known := unsupportedLanguages[suffix]; known {
		return []Advice{{
			Kind:    KindAdvice,
			Code:    "unsupported-language",
			Message: "Language not supported yet: " + language,
		}}
	}
	if notebook.IsNotebookFile(l.path) {
		return l.lintNotebook(ctx)
	}
	language, supported := notebook.LanguageForExtension(suffix)
	if !supported {
		return []Advice{Failure("unsupported-file", "File without a supported extension: "+l.path)}
	}
	content, err := source.ReadText(l.path)
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Cannot read file for linting.", "path", l.path, "error", err)
		return []Advice{Failure("unsupported-file", "Unable to read file: "+l.path)}
	}
	linter, ok := l.context.Linter(language)
	if !ok {
		return nil
	}
	return linter.Lint(content, l.inherited)
}

// lintNotebook lints a notebook cell by cell. Findings keep their position
// within the original file, and each Python cell sees the state accumulated
// by the cells before it, the way the runtime would have executed them.
func (l *FileLinter) lintNotebook(ctx context.Context) []Advice {
	parsed, err := l.loadNotebook()
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Cannot parse notebook for linting.", "path", l.path, "error", err)
		return []Advice{Failure("unsupported-file", "Unable to parse notebook: "+l.path)}
	}
	var advices []Advice
	inherited := l.inherited
	for _, cell := range parsed.Cells {
		linter, ok := l.context.Linter(cell.Language)
		if ok {
			for _, advice := range linter.Lint(cell.Source, inherited) {
				advices = append(advices, advice.Shift(cell.StartLine))
			}
		}
		if cell.Language == notebook.Python {
			inherited = inherited.Merge(pyscan.ScanSource(cell.Source))
		}
	}
	return advices
}

func (l *FileLinter) loadNotebook() (*notebook.Notebook, error) {
	if strings.EqualFold(filepath.Ext(l.path), ".ipynb") {
		raw, err := os.ReadFile(l.path)
		if err != nil {
			return nil, err
		}
		return notebook.ParseJupyter(l.path, raw)
	}
	content, err := source.ReadText(l.path)
	if err != nil {
		return nil, err
	}
	return notebook.Parse(l.path, content)
}
