// Package jobs bridges platform workflow tasks into the dependency-graph
// engine. A task becomes a synthetic graph root whose container registers the
// task's source references, so the sequencer can plan a job's code the same
// way the linter walks a workspace tree.
package jobs

import (
	"context"
	"fmt"

	"github.com/vk/lakeshift/internal/platform"
	"github.com/vk/lakeshift/internal/source"
)

// TaskPath is the synthetic artifact path of a workflow task, stable across
// planning runs.
func TaskPath(job platform.Job, task platform.Task) string {
	return fmt.Sprintf("%s/%s", job.ID, task.Key)
}

// NewWorkflowTask returns the root dependency for one workflow task.
func NewWorkflowTask(task platform.Task, job platform.Job) *source.Dependency {
	loader := &workflowTaskLoader{task: task, job: job}
	return source.NewDependency(loader, TaskPath(job, task), false)
}

type workflowTaskLoader struct {
	task platform.Task
	job  platform.Job
}

func (l *workflowTaskLoader) Kind() string { return "task" }

func (l *workflowTaskLoader) Load(ctx context.Context, lookup *source.PathLookup, dependency *source.Dependency) (source.Container, error) {
	return &WorkflowTaskContainer{task: l.task, job: l.job}, nil
}

// WorkflowTaskContainer registers a task's source references: its libraries,
// its notebook and its script file. A task-run notebook starts a fresh
// execution context, so the notebook dependency does not inherit.
type WorkflowTaskContainer struct {
	task platform.Task
	job  platform.Job
}

func (c *WorkflowTaskContainer) Task() platform.Task { return c.task }

func (c *WorkflowTaskContainer) BuildDependencyGraph(ctx context.Context, parent *source.DependencyGraph) []source.Problem {
	var problems []source.Problem
	if len(c.task.Libraries) > 0 {
		problems = append(problems, parent.RegisterLibrary(ctx, c.task.Libraries...)...)
	}
	if c.task.NotebookPath != "" {
		problems = append(problems, parent.RegisterNotebook(ctx, c.task.NotebookPath, false)...)
	}
	if c.task.FilePath != "" {
		problems = append(problems, parent.RegisterFile(ctx, c.task.FilePath)...)
	}
	return problems
}
