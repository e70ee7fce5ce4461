package linter

import (
	"fmt"

	"github.com/vk/lakeshift/internal/source"
)

// Kind grades an advice. Failures mean the artifact could not be analyzed at
// all; the other kinds grade how urgently a finding needs acting on.
type Kind int

const (
	KindAdvice Kind = iota
	KindAdvisory
	KindDeprecation
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindAdvisory:
		return "advisory"
	case KindDeprecation:
		return "deprecation"
	case KindFailure:
		return "failure"
	default:
		return "advice"
	}
}

// Advice is one finding against a piece of source code. Line and column
// numbers are zero-based.
type Advice struct {
	Kind      Kind
	Code      string
	Message   string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Advisory returns an advice recommending a change.
func Advisory(code, message string, startLine, startCol int) Advice {
	return Advice{Kind: KindAdvisory, Code: code, Message: message, StartLine: startLine, StartCol: startCol, EndLine: startLine}
}

// Deprecation returns an advice flagging use of a deprecated construct.
func Deprecation(code, message string, startLine, startCol int) Advice {
	return Advice{Kind: KindDeprecation, Code: code, Message: message, StartLine: startLine, StartCol: startCol, EndLine: startLine}
}

// Failure returns an advice recording that analysis itself failed.
func Failure(code, message string) Advice {
	return Advice{Kind: KindFailure, Code: code, Message: message}
}

// Shift moves the advice down by the given number of lines, mapping a finding
// inside a notebook cell back to file positions.
func (a Advice) Shift(lines int) Advice {
	a.StartLine += lines
	a.EndLine += lines
	return a
}

// LocatedAdvice ties an advice to the artifact it was found in.
type LocatedAdvice struct {
	Advice Advice
	Path   string
}

// String renders the advice the way editors expect jump targets: a one-based
// line number after the path.
func (l LocatedAdvice) String() string {
	return fmt.Sprintf("%s:%d:%d: [%s] %s", l.Path, l.Advice.StartLine+1, l.Advice.StartCol, l.Advice.Code, l.Advice.Message)
}

// FromProblem converts a graph-construction problem into a located advice so
// that resolution failures surface through the same channel as lint findings.
func FromProblem(problem source.Problem) LocatedAdvice {
	return LocatedAdvice{
		Path: problem.Path,
		Advice: Advice{
			Kind:      KindFailure,
			Code:      problem.Code,
			Message:   problem.Message,
			StartLine: problem.StartLine,
			StartCol:  problem.StartCol,
			EndLine:   problem.EndLine,
			EndCol:    problem.EndCol,
		},
	}
}
