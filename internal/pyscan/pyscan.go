// Package pyscan discovers references in Python source through a line-level
// scan. It is not a Python parser: the scanner recognizes the statement shapes
// that matter for dependency discovery (import statements, importlib calls,
// dbutils.notebook.run calls and sys.path changes) and records top-level
// names for inherited-context propagation. Constructs it cannot evaluate are
// reported with the Dynamic flag set so callers can surface a problem instead
// of silently dropping the reference.
package pyscan

import (
	"strings"
	"unicode"
)

// Kind classifies a discovered reference.
type Kind int

const (
	// KindImport is a module reference from an import statement,
	// importlib.import_module or __import__ call.
	KindImport Kind = iota
	// KindNotebookRun is a notebook path from a dbutils.notebook.run call.
	KindNotebookRun
	// KindMagicRun is a notebook path from a "# MAGIC %run" line. Workspace
	// exports keep notebooks as Python files with magic commands wrapped in
	// comments; a magic run shares its session with the target.
	KindMagicRun
)

// Reference is a single discovered reference with its position in the
// scanned source. Line and Col are zero-based.
type Reference struct {
	Kind    Kind
	Name    string
	Line    int
	Col     int
	Dynamic bool
}

// PathChange records a sys.path mutation. Dynamic changes carry no path.
type PathChange struct {
	Path    string
	Line    int
	Col     int
	Prepend bool
	Dynamic bool
}

// Scan is the result of scanning one Python source.
type Scan struct {
	References  []Reference
	PathChanges []PathChange
	Names       []string
}

// Merge combines two scans into a new one. Names are deduplicated while
// preserving first-seen order. Either receiver or argument may be nil.
func (s *Scan) Merge(other *Scan) *Scan {
	merged := &Scan{}
	seen := make(map[string]struct{})
	for _, src := range []*Scan{s, other} {
		if src == nil {
			continue
		}
		merged.References = append(merged.References, src.References...)
		merged.PathChanges = append(merged.PathChanges, src.PathChanges...)
		for _, name := range src.Names {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			merged.Names = append(merged.Names, name)
		}
	}
	return merged
}

// ScanSource scans Python source code and returns every discovered reference.
func ScanSource(source string) *Scan {
	scan := &Scan{}
	inString := false
	var fence string
	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if inString {
			if strings.Contains(line, fence) {
				inString = false
			}
			continue
		}
		if magic, ok := strings.CutPrefix(trimmed, "# MAGIC "); ok {
			scanMagicRun(scan, magic, i)
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if opened, delim := opensTripleString(line); opened {
			inString = true
			fence = delim
		}
		scanImports(scan, line, trimmed, i)
		scanImportCalls(scan, line, i)
		scanNotebookRun(scan, line, i)
		scanSysPath(scan, line, i)
		scanTopLevelName(scan, line, i)
	}
	return scan
}

// opensTripleString reports whether the line opens a triple-quoted string
// that does not close on the same line.
func opensTripleString(line string) (bool, string) {
	for _, delim := range []string{`"""`, "'''"} {
		idx := strings.Index(line, delim)
		if idx < 0 {
			continue
		}
		if strings.Count(line, delim)%2 == 1 {
			return true, delim
		}
	}
	return false, ""
}

func scanImports(scan *Scan, line, trimmed string, lineno int) {
	col := len(line) - len(strings.TrimLeft(line, " \t"))
	switch {
	case strings.HasPrefix(trimmed, "import "):
		rest := strings.TrimPrefix(trimmed, "import ")
		rest = stripTrailingComment(rest)
		for _, clause := range strings.Split(rest, ",") {
			name := importedName(clause)
			if name == "" {
				continue
			}
			scan.References = append(scan.References, Reference{Kind: KindImport, Name: name, Line: lineno, Col: col})
		}
	case strings.HasPrefix(trimmed, "from "):
		rest := strings.TrimPrefix(trimmed, "from ")
		module, _, found := strings.Cut(rest, " import")
		if !found {
			return
		}
		module = strings.TrimSpace(module)
		if module == "" {
			return
		}
		scan.References = append(scan.References, Reference{Kind: KindImport, Name: module, Line: lineno, Col: col})
	}
}

// importedName extracts the module name from one import clause, dropping any
// "as" alias.
func importedName(clause string) string {
	clause = strings.TrimSpace(clause)
	if name, _, found := strings.Cut(clause, " as "); found {
		clause = strings.TrimSpace(name)
	}
	return clause
}

func stripTrailingComment(s string) string {
	if idx := strings.Index(s, "#"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func scanImportCalls(scan *Scan, line string, lineno int) {
	for _, pattern := range []string{"importlib.import_module(", "__import__("} {
		idx := strings.Index(line, pattern)
		if idx < 0 {
			continue
		}
		arg, dynamic := literalArgument(line[idx+len(pattern):])
		scan.References = append(scan.References, Reference{
			Kind:    KindImport,
			Name:    arg,
			Line:    lineno,
			Col:     idx,
			Dynamic: dynamic,
		})
	}
}

// scanMagicRun reads the target of a "%run" magic kept as a MAGIC comment.
func scanMagicRun(scan *Scan, magic string, lineno int) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(magic), "%run")
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return
	}
	target := strings.TrimSpace(rest)
	if idx := strings.IndexAny(target, " \t"); idx >= 0 {
		target = target[:idx]
	}
	scan.References = append(scan.References, Reference{Kind: KindMagicRun, Name: target, Line: lineno})
}

func scanNotebookRun(scan *Scan, line string, lineno int) {
	const pattern = "dbutils.notebook.run("
	idx := strings.Index(line, pattern)
	if idx < 0 {
		return
	}
	arg, dynamic := literalArgument(line[idx+len(pattern):])
	scan.References = append(scan.References, Reference{
		Kind:    KindNotebookRun,
		Name:    arg,
		Line:    lineno,
		Col:     idx,
		Dynamic: dynamic,
	})
}

func scanSysPath(scan *Scan, line string, lineno int) {
	for _, call := range []struct {
		pattern string
		prepend bool
	}{
		{"sys.path.append(", false},
		{"sys.path.insert(", true},
	} {
		idx := strings.Index(line, call.pattern)
		if idx < 0 {
			continue
		}
		rest := line[idx+len(call.pattern):]
		if call.prepend {
			// skip the position argument
			if _, after, found := strings.Cut(rest, ","); found {
				rest = after
			}
		}
		arg, dynamic := literalArgument(rest)
		scan.PathChanges = append(scan.PathChanges, PathChange{
			Path:    arg,
			Line:    lineno,
			Col:     idx,
			Prepend: call.prepend,
			Dynamic: dynamic,
		})
	}
}

// literalArgument reads a leading string literal from an argument list. It
// returns the literal value, or an empty string with dynamic set when the
// argument is anything else (a variable, an f-string, a call).
func literalArgument(rest string) (string, bool) {
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return "", true
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return "", true
	}
	end := strings.IndexByte(rest[1:], quote)
	if end < 0 {
		return "", true
	}
	return rest[1 : 1+end], false
}

// scanTopLevelName records names bound at column zero: simple assignments,
// def and class statements.
func scanTopLevelName(scan *Scan, line string, lineno int) {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return
	}
	if name, ok := strings.CutPrefix(line, "def "); ok {
		scan.addName(leadingIdentifier(name))
		return
	}
	if name, ok := strings.CutPrefix(line, "class "); ok {
		scan.addName(leadingIdentifier(name))
		return
	}
	eq := strings.IndexByte(line, '=')
	if eq <= 0 || (eq+1 < len(line) && line[eq+1] == '=') || line[eq-1] == '!' || line[eq-1] == '<' || line[eq-1] == '>' {
		return
	}
	left := line[:eq]
	if idx := strings.IndexByte(left, ':'); idx >= 0 {
		left = left[:idx]
	}
	if strings.ContainsAny(left, "([.") {
		return
	}
	for _, target := range strings.Split(left, ",") {
		scan.addName(leadingIdentifier(strings.TrimSpace(target)))
	}
}

func (s *Scan) addName(name string) {
	if name == "" || pythonKeywords[name] {
		return
	}
	for _, existing := range s.Names {
		if existing == name {
			return
		}
	}
	s.Names = append(s.Names, name)
}

// leadingIdentifier returns the identifier prefix of s, or an empty string
// when s does not start with one.
func leadingIdentifier(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return s[:i]
	}
	return s
}

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}
