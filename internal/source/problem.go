package source

import "fmt"

// Problem describes a defect found while building a dependency graph, such
// as an import that cannot be located. Problems are accumulated and reported;
// they never abort construction.
//
// Line and column numbers are zero-based. Path may be empty when the problem
// is raised below the level that knows the source file; RegisterDependency
// fills it in before handing problems up.
type Problem struct {
	Code      string
	Message   string
	Path      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// NewProblem returns a problem without position information.
func NewProblem(code, message string) Problem {
	return Problem{Code: code, Message: message}
}

// WithDefaultPath returns the problem with its path set to the given one
// unless it already carries a path.
func (p Problem) WithDefaultPath(path string) Problem {
	if p.Path == "" {
		p.Path = path
	}
	return p
}

// At returns the problem positioned on a reference found in the scanned
// source. The offset shifts line numbers when the source was a notebook cell.
func (p Problem) At(line, col, offset, width int) Problem {
	p.StartLine = line + offset
	p.StartCol = col
	p.EndLine = line + offset
	p.EndCol = col + width
	return p
}

func (p Problem) String() string {
	return fmt.Sprintf("[%s] %s", p.Code, p.Message)
}

// relocateProblems assigns the given path to every problem that has none.
func relocateProblems(problems []Problem, path string) []Problem {
	for i := range problems {
		problems[i] = problems[i].WithDefaultPath(path)
	}
	return problems
}
