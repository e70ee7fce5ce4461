package notebook

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseJupyter parses an .ipynb notebook. The JSON container carries no file
// positions, so cell offsets are assigned as if the cell sources were
// concatenated in order.
func ParseJupyter(path string, data []byte) (*Notebook, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed Jupyter notebook: %s", path)
	}
	root := gjson.ParseBytes(data)
	cells := root.Get("cells")
	if !cells.IsArray() {
		return nil, fmt.Errorf("Jupyter notebook without cells: %s", path)
	}

	language := Python
	if name := root.Get("metadata.language_info.name").String(); name != "" {
		language = Language(strings.ToLower(name))
	} else if name := root.Get("metadata.kernelspec.language").String(); name != "" {
		language = Language(strings.ToLower(name))
	}

	parsed := &Notebook{Path: path, Language: language}
	offset := 0
	cells.ForEach(func(_, cell gjson.Result) bool {
		source := cellSource(cell.Get("source"))
		switch cell.Get("cell_type").String() {
		case "code":
			parsed.Cells = append(parsed.Cells, codeCell(source, offset, language))
		case "markdown":
			parsed.Cells = append(parsed.Cells, Cell{Language: Markdown, Source: source, StartLine: offset})
		}
		offset += strings.Count(source, "\n") + 1
		return true
	})
	return parsed, nil
}

// cellSource joins the nbformat source field, which is either a single
// string or an array of newline-terminated lines.
func cellSource(value gjson.Result) string {
	if value.IsArray() {
		var builder strings.Builder
		value.ForEach(func(_, line gjson.Result) bool {
			builder.WriteString(line.String())
			return true
		})
		return strings.TrimRight(builder.String(), "\n")
	}
	return strings.TrimRight(value.String(), "\n")
}

// codeCell classifies one code cell by its leading magic, if any. Jupyter
// cell magics use a doubled percent sign; both spellings are accepted.
func codeCell(source string, offset int, defaultLanguage Language) Cell {
	line, rest, hasMore := strings.Cut(source, "\n")
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "%") {
		word, inline, _ := strings.Cut(strings.TrimLeft(trimmed, "%"), " ")
		if mapped, known := magicLanguages[strings.TrimSuffix(word, "-sandbox")]; known {
			if mapped == Run || mapped == Pip || mapped == Markdown {
				return Cell{Language: mapped, Source: source, StartLine: offset}
			}
			body := rest
			start := offset + 1
			if strings.TrimSpace(inline) != "" {
				body = inline
				if hasMore {
					body = inline + "\n" + rest
				}
				start = offset
			}
			return Cell{Language: mapped, Source: body, StartLine: start}
		}
	}
	return Cell{Language: defaultLanguage, Source: source, StartLine: offset}
}
