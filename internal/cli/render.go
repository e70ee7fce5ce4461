package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/vk/lakeshift/internal/app"
	"github.com/vk/lakeshift/internal/history"
	"github.com/vk/lakeshift/internal/linter"
	"github.com/vk/lakeshift/internal/sequencer"
	"github.com/vk/lakeshift/internal/source"
)

// Sprint color functions for building styled strings.
var (
	bold       = color.New(color.Bold).SprintFunc()
	dim        = color.New(color.Faint).SprintFunc()
	red        = color.New(color.FgRed).SprintFunc()
	yellow     = color.New(color.FgYellow).SprintFunc()
	cyan       = color.New(color.FgCyan).SprintFunc()
	boldCyan   = color.New(color.Bold, color.FgCyan).SprintFunc()
	boldYellow = color.New(color.Bold, color.FgYellow).SprintFunc()
)

func kindLabel(kind linter.Kind) string {
	switch kind {
	case linter.KindFailure:
		return red(kind.String())
	case linter.KindDeprecation:
		return yellow(kind.String())
	default:
		return cyan(kind.String())
	}
}

func renderAdvices(outW io.Writer, advices []linter.LocatedAdvice) {
	for _, advice := range advices {
		fmt.Fprintf(outW, "%s %s\n", kindLabel(advice.Advice.Kind), advice)
	}
	if len(advices) == 0 {
		fmt.Fprintln(outW, "No findings.")
		return
	}
	fmt.Fprintf(outW, "\n%s\n", bold(fmt.Sprintf("%d findings", len(advices))))
}

func renderProblems(outW io.Writer, problems []source.Problem) {
	if len(problems) == 0 {
		return
	}
	fmt.Fprintf(outW, "%s\n", boldYellow(fmt.Sprintf("%d problems found while building dependency graphs:", len(problems))))
	for _, problem := range problems {
		fmt.Fprintf(outW, "  %s %s %s\n", yellow(problem.Code), problem.Message, dim(problem.Path))
	}
	fmt.Fprintln(outW)
}

func renderSteps(outW io.Writer, steps []sequencer.MigrationStep) {
	if len(steps) == 0 {
		fmt.Fprintln(outW, "Nothing to migrate.")
		return
	}
	fmt.Fprintf(outW, "%s\n", boldCyan(fmt.Sprintf("Migration plan, %d steps:", len(steps))))
	for _, step := range steps {
		owner := ""
		if step.ObjectOwner != "" {
			owner = " " + dim("owner="+step.ObjectOwner)
		}
		requires := ""
		if len(step.RequiredStepIDs) > 0 {
			ids := make([]string, len(step.RequiredStepIDs))
			for i, id := range step.RequiredStepIDs {
				ids[i] = fmt.Sprintf("%d", id)
			}
			requires = " " + dim("requires "+strings.Join(ids, ","))
		}
		fmt.Fprintf(outW, "%4d. %s %s%s%s\n",
			step.StepNumber, cyan(string(step.ObjectType)), bold(step.ObjectName), owner, requires)
	}
}

func renderSummaries(outW io.Writer, summaries []history.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(outW, "No archived plans.")
		return
	}
	for _, summary := range summaries {
		fmt.Fprintf(outW, "%s  %s  %d steps  %s\n",
			bold(summary.ID), summary.CreatedAt.Format("2006-01-02 15:04:05"), summary.StepCount, dim(summary.Root))
	}
}

type adviceJSON struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// adviceReport converts findings for JSON output; lines become one-based the
// way editors expect them.
func adviceReport(advices []linter.LocatedAdvice) []adviceJSON {
	report := make([]adviceJSON, 0, len(advices))
	for _, advice := range advices {
		report = append(report, adviceJSON{
			Path:    advice.Path,
			Line:    advice.Advice.StartLine + 1,
			Col:     advice.Advice.StartCol,
			Kind:    advice.Advice.Kind.String(),
			Code:    advice.Advice.Code,
			Message: advice.Advice.Message,
		})
	}
	return report
}

type problemJSON struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sequenceJSON struct {
	PlanID   string                    `json:"plan_id,omitempty"`
	Steps    []sequencer.MigrationStep `json:"steps"`
	Problems []problemJSON             `json:"problems,omitempty"`
}

func sequenceReport(result *app.SequenceResult, planID string) sequenceJSON {
	report := sequenceJSON{PlanID: planID, Steps: result.Steps}
	for _, problem := range result.Problems {
		report.Problems = append(report.Problems, problemJSON{
			Path:    problem.Path,
			Code:    problem.Code,
			Message: problem.Message,
		})
	}
	return report
}

func writeJSON(outW io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(outW, string(data))
	return err
}
