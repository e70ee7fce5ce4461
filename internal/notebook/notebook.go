// Package notebook parses Databricks notebooks into cells. Two on-disk
// formats are supported: the workspace export format, where a notebook is a
// commented source file starting with a marker header, and the Jupyter
// .ipynb format. Cells keep their offset into the original source so that
// findings reported against a cell can be mapped back to file positions.
package notebook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Language identifies the language of a notebook or a single cell. Run, Pip
// and Markdown are modeled as languages of their own, matching the magic
// command that introduces them.
type Language string

const (
	Python   Language = "python"
	SQL      Language = "sql"
	Scala    Language = "scala"
	R        Language = "r"
	Shell    Language = "sh"
	Markdown Language = "md"
	Run      Language = "run"
	Pip      Language = "pip"
)

// headerSuffix follows the language's comment prefix on the first line of a
// source-format notebook.
const headerSuffix = "Databricks notebook source"

const cellSeparatorSuffix = "COMMAND ----------"

// commentPrefixes lists the languages a source-format notebook can be
// exported in, keyed by their line-comment prefix.
var commentPrefixes = []struct {
	prefix   string
	language Language
}{
	{"#", Python},
	{"--", SQL},
	{"//", Scala},
}

var magicLanguages = map[string]Language{
	"python": Python,
	"sql":    SQL,
	"scala":  Scala,
	"r":      R,
	"sh":     Shell,
	"fs":     Shell,
	"md":     Markdown,
	"run":    Run,
	"pip":    Pip,
}

// Cell is one notebook cell. Source is the cell's code with export framing
// (magic prefixes, title lines) removed. StartLine is the zero-based line of
// Source's first line within the original file.
type Cell struct {
	Language  Language
	Source    string
	StartLine int
}

// RunTarget returns the notebook path of a run cell.
func (c Cell) RunTarget() (string, bool) {
	if c.Language != Run {
		return "", false
	}
	line, _, _ := strings.Cut(c.Source, "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", false
	}
	return strings.Trim(fields[1], `"'`), true
}

// PipLibraries returns the library names of a pip install cell. Flags and
// their arguments are skipped.
func (c Cell) PipLibraries() []string {
	if c.Language != Pip {
		return nil
	}
	line, _, _ := strings.Cut(c.Source, "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 || strings.TrimLeft(fields[0], "%") != "pip" || fields[1] != "install" {
		return nil
	}
	var libraries []string
	skipNext := false
	for _, field := range fields[2:] {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(field, "-") {
			// value flags consume the next token
			skipNext = field == "-r" || field == "--index-url" || field == "--extra-index-url"
			continue
		}
		libraries = append(libraries, field)
	}
	return libraries
}

// Notebook is a parsed notebook.
type Notebook struct {
	Path     string
	Language Language
	Cells    []Cell
}

// LanguageForExtension maps a file extension to the language the engine
// scans for references, when there is one.
func LanguageForExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".py":
		return Python, true
	case ".sql":
		return SQL, true
	}
	return "", false
}

// IsNotebookFile reports whether the file at path is a notebook: a Jupyter
// file by extension, or a source-format export by header. Unreadable paths
// are not notebooks.
func IsNotebookFile(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".ipynb") {
		return true
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()
	head := make([]byte, 64)
	n, _ := file.Read(head)
	firstLine, _, _ := strings.Cut(string(head[:n]), "\n")
	_, ok := SourceFormatLanguage(firstLine)
	return ok
}

// SourceFormatLanguage inspects the first line of a file and returns the
// notebook's default language when the line is a source-format header.
func SourceFormatLanguage(firstLine string) (Language, bool) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(firstLine, "\uFEFF"))
	for _, candidate := range commentPrefixes {
		if trimmed == candidate.prefix+" "+headerSuffix {
			return candidate.language, true
		}
	}
	return "", false
}

// Parse parses a source-format notebook. It fails when the header marker is
// missing.
func Parse(path, source string) (*Notebook, error) {
	lines := strings.Split(source, "\n")
	language, ok := SourceFormatLanguage(lines[0])
	if !ok {
		return nil, fmt.Errorf("not a Databricks notebook source: %s", path)
	}
	var prefix string
	for _, candidate := range commentPrefixes {
		if candidate.language == language {
			prefix = candidate.prefix
		}
	}
	separator := prefix + " " + cellSeparatorSuffix
	magicMarker := prefix + " MAGIC"
	titleMarker := prefix + " DBTITLE"

	notebook := &Notebook{Path: path, Language: language}
	start := 1
	for i := 1; i <= len(lines); i++ {
		if i < len(lines) && strings.TrimSpace(lines[i]) != separator {
			continue
		}
		if cell, ok := buildCell(lines[start:i], start, language, magicMarker, titleMarker); ok {
			notebook.Cells = append(notebook.Cells, cell)
		}
		start = i + 1
	}
	return notebook, nil
}

// buildCell assembles one cell from the lines between two separators.
func buildCell(lines []string, offset int, defaultLanguage Language, magicMarker, titleMarker string) (Cell, bool) {
	for len(lines) > 0 {
		trimmed := strings.TrimSpace(lines[0])
		if trimmed == "" || strings.HasPrefix(trimmed, titleMarker) {
			lines = lines[1:]
			offset++
			continue
		}
		break
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return Cell{}, false
	}

	if !strings.HasPrefix(lines[0], magicMarker) {
		return Cell{
			Language:  defaultLanguage,
			Source:    strings.Join(lines, "\n"),
			StartLine: offset,
		}, true
	}

	unwrapped := make([]string, len(lines))
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, magicMarker+" "):
			unwrapped[i] = line[len(magicMarker)+1:]
		case strings.HasPrefix(line, magicMarker):
			unwrapped[i] = ""
		default:
			unwrapped[i] = line
		}
	}

	language := defaultLanguage
	if magic, ok := strings.CutPrefix(unwrapped[0], "%"); ok {
		word, rest, _ := strings.Cut(magic, " ")
		word = strings.TrimSuffix(word, "-sandbox")
		if mapped, known := magicLanguages[word]; known {
			language = mapped
		}
		if language != Run && language != Pip && language != Markdown {
			// the language selector is framing, not cell code, but code may
			// share its line
			if strings.TrimSpace(rest) != "" {
				unwrapped[0] = rest
			} else {
				unwrapped = unwrapped[1:]
				offset++
			}
		}
	}
	if len(unwrapped) == 0 {
		return Cell{}, false
	}
	return Cell{
		Language:  language,
		Source:    strings.Join(unwrapped, "\n"),
		StartLine: offset,
	}, true
}
