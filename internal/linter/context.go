package linter

import (
	"github.com/vk/lakeshift/internal/notebook"
	"github.com/vk/lakeshift/internal/pyscan"
)

// Linter checks one piece of source code. The inherited scan carries names
// and references accumulated along %run edges; linters for languages without
// inherited state may ignore it.
type Linter interface {
	Lint(code string, inherited *pyscan.Scan) []Advice
}

// Fixer rewrites source code to resolve the advice kind it is registered
// for. Fixers are looked up by advice code; applying them is the migrator's
// job, not this package's.
type Fixer interface {
	Apply(code string) (string, error)
}

// Context holds the linters and fixers available for one lint pass, keyed by
// language. A fresh context is created per analyzed artifact so that rule
// implementations may keep per-file state.
type Context struct {
	linters map[notebook.Language]Linter
	fixers  map[notebook.Language]map[string]Fixer
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{
		linters: make(map[notebook.Language]Linter),
		fixers:  make(map[notebook.Language]map[string]Fixer),
	}
}

// RegisterLinter installs the linter for a language, replacing any previous
// one. It returns the context for chaining.
func (c *Context) RegisterLinter(language notebook.Language, linter Linter) *Context {
	c.linters[language] = linter
	return c
}

// RegisterFixer installs the fixer for an advice code in a language.
func (c *Context) RegisterFixer(language notebook.Language, code string, fixer Fixer) *Context {
	if c.fixers[language] == nil {
		c.fixers[language] = make(map[string]Fixer)
	}
	c.fixers[language][code] = fixer
	return c
}

// Linter returns the linter registered for a language.
func (c *Context) Linter(language notebook.Language) (Linter, bool) {
	linter, ok := c.linters[language]
	return linter, ok
}

// Fixer returns the fixer registered for an advice code in a language.
func (c *Context) Fixer(language notebook.Language, code string) (Fixer, bool) {
	fixer, ok := c.fixers[language][code]
	return fixer, ok
}
