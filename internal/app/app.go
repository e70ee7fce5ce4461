package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/vk/lakeshift/internal/config"
	"github.com/vk/lakeshift/internal/ctxlog"
	"github.com/vk/lakeshift/internal/history"
	"github.com/vk/lakeshift/internal/jobs"
	"github.com/vk/lakeshift/internal/known"
	"github.com/vk/lakeshift/internal/linter"
	"github.com/vk/lakeshift/internal/platform"
	"github.com/vk/lakeshift/internal/sequencer"
	"github.com/vk/lakeshift/internal/source"
)

// App encapsulates the tool's dependencies, configuration and operations.
type App struct {
	outW           io.Writer
	logger         *slog.Logger
	model          *config.Model
	allow          source.Allowlist
	contextFactory func() *linter.Context
}

// Option adjusts an App under construction.
type Option func(*App)

// WithLinterContextFactory injects the rule set used for linting. The
// default context carries no rules; rule implementations live outside this
// module.
func WithLinterContextFactory(factory func() *linter.Context) Option {
	return func(a *App) {
		a.contextFactory = factory
	}
}

// NewApp builds a fully initialized App with its own isolated logger.
func NewApp(outW io.Writer, appConfig *Config, loader *config.Loader, options ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded into unified model.")

	allow, err := buildAllowlist(model)
	if err != nil {
		return nil, err
	}

	a := &App{
		outW:           outW,
		logger:         logger,
		model:          model,
		allow:          allow,
		contextFactory: linter.NewContext,
	}
	for _, option := range options {
		option(a)
	}
	return a, nil
}

func buildAllowlist(model *config.Model) (source.Allowlist, error) {
	if model.Known.CatalogPath == "" {
		return known.NewKnownList(), nil
	}
	list, err := known.NewKnownListFromFile(model.Known.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known-modules catalog: %w", err)
	}
	return list, nil
}

// Logger returns the application's isolated logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Context returns the given context with the app's logger attached.
func (a *App) Context(parent context.Context) context.Context {
	return ctxlog.WithLogger(parent, a.logger)
}

// Model returns the loaded configuration. This is primarily for testing.
func (a *App) Model() *config.Model { return a.model }

// resolverSet bundles the loaders and resolver chain shared by linting and
// sequencing.
type resolverSet struct {
	notebookLoader source.Loader
	fileLoader     source.Loader
	folderLoader   source.Loader
	resolver       *source.DependencyResolver
}

func (a *App) newResolverSet() resolverSet {
	fileLoader := source.NewFileLoader()
	notebookLoader := source.NewNotebookLoader()
	folderLoader := source.NewFolderLoader(notebookLoader, fileLoader, a.model.Workspace.SkipDirs...)
	importResolver := source.NewImportFileResolver(fileLoader, a.allow)
	resolver := source.NewDependencyResolver(
		source.NewNotebookPathResolver(source.NewNotebookLoader()),
		[]source.ImportResolver{importResolver},
		importResolver,
		source.NewKnownLibraryResolver(a.allow),
	)
	return resolverSet{
		notebookLoader: notebookLoader,
		fileLoader:     fileLoader,
		folderLoader:   folderLoader,
		resolver:       resolver,
	}
}

// newLookup builds the path lookup for the configured workspace. The
// workspace root doubles as a search root; configured sys paths follow it,
// resolved against the root when relative.
func (a *App) newLookup() (*source.PathLookup, error) {
	root := a.model.Workspace.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	paths := []string{root}
	for _, path := range a.model.Workspace.SysPaths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		paths = append(paths, path)
	}
	return source.NewPathLookup(root, paths...), nil
}

func (a *App) newSession() *source.Session {
	return &source.Session{
		NamedParameters: a.model.Workspace.NamedParameters,
		DefaultCatalog:  a.model.Workspace.DefaultCatalog,
		DefaultSchema:   a.model.Workspace.DefaultSchema,
	}
}

// Lint analyzes the tree under path, which defaults to the configured
// workspace root, and returns every finding.
func (a *App) Lint(ctx context.Context, path string) ([]linter.LocatedAdvice, error) {
	ctx = a.Context(ctx)
	if path == "" {
		path = a.model.Workspace.Root
	}
	if path == "" {
		return nil, errors.New("no path given and no workspace root configured")
	}
	lookup, err := a.newLookup()
	if err != nil {
		return nil, err
	}
	set := a.newResolverSet()
	driver := linter.NewDriver(
		set.notebookLoader, set.fileLoader, set.folderLoader,
		set.resolver, lookup, a.newSession(), a.contextFactory,
	)
	return driver.Lint(ctx, path)
}

// SequenceResult is the outcome of one planning run.
type SequenceResult struct {
	Steps []sequencer.MigrationStep
	// Problems are graph-construction findings; they never abort planning.
	Problems []source.Problem
}

// Sequence plans the migration of every configured job: snapshots and inline
// job blocks populate the catalog, each task's source tree is walked, and
// the sequencer linearizes the result.
func (a *App) Sequence(ctx context.Context) (*SequenceResult, error) {
	ctx = a.Context(ctx)
	catalog, owners, err := a.buildCatalog(ctx)
	if err != nil {
		return nil, err
	}
	lookup, err := a.newLookup()
	if err != nil {
		return nil, err
	}
	set := a.newResolverSet()
	session := a.newSession()
	seq := sequencer.New(owners, catalog)

	result := &SequenceResult{}
	for _, job := range catalog.Jobs() {
		for _, task := range job.Tasks {
			graph, problems := a.buildTaskGraph(ctx, task, job, set, lookup, session)
			result.Problems = append(result.Problems, problems...)
			if err := seq.RegisterWorkflowTask(ctx, task, job, graph); err != nil {
				return nil, err
			}
		}
	}
	result.Steps = seq.GenerateSteps()
	a.logger.Debug("Sequencing complete.", "steps", len(result.Steps), "problems", len(result.Problems))
	return result, nil
}

// buildTaskGraph grows the dependency graph below one workflow task. Load
// failures surface as problems, never as errors, so one broken task cannot
// sink the whole plan.
func (a *App) buildTaskGraph(ctx context.Context, task platform.Task, job platform.Job, set resolverSet, lookup *source.PathLookup, session *source.Session) (*source.DependencyGraph, []source.Problem) {
	dependency := jobs.NewWorkflowTask(task, job)
	graph := source.NewDependencyGraph(dependency, nil, set.resolver, lookup, session)
	container, err := dependency.Load(ctx, lookup)
	if err != nil {
		problem := source.NewProblem("cannot-load-file", fmt.Sprintf("Unable to load task %s: %s", task.Key, err))
		return graph, []source.Problem{problem.WithDefaultPath(dependency.Path())}
	}
	var problems []source.Problem
	for _, problem := range container.BuildDependencyGraph(ctx, graph) {
		problems = append(problems, problem.WithDefaultPath(dependency.Path()))
	}
	return graph, problems
}

// buildCatalog assembles platform facts from the configured snapshots and
// inline job blocks, plus the owner lookup over them.
func (a *App) buildCatalog(ctx context.Context) (*platform.Catalog, *platform.Owners, error) {
	catalog := platform.NewCatalog()
	if path := a.model.Catalog.ClustersSnapshot; path != "" {
		if err := catalog.LoadClustersSnapshot(ctx, path); err != nil {
			return nil, nil, err
		}
	}
	if path := a.model.Catalog.JobsSnapshot; path != "" {
		if err := catalog.LoadJobsSnapshot(ctx, path); err != nil {
			return nil, nil, err
		}
	}
	for _, job := range a.model.Jobs {
		catalog.AddJob(platformJob(job))
	}
	owners := platform.NewOwners(catalog, a.model.Catalog.DefaultAdmin)
	if path := a.model.Catalog.OwnersFile; path != "" {
		if err := owners.LoadOverrides(path); err != nil {
			return nil, nil, err
		}
	}
	return catalog, owners, nil
}

func platformJob(job *config.Job) platform.Job {
	converted := platform.Job{
		ID:      job.ID,
		Name:    job.Name,
		Creator: job.Creator,
	}
	for _, task := range job.Tasks {
		converted.Tasks = append(converted.Tasks, platform.Task{
			Key:               task.Key,
			ExistingClusterID: task.ClusterID,
			NotebookPath:      task.NotebookPath,
			FilePath:          task.FilePath,
			Libraries:         task.Libraries,
			Parameters:        task.Parameters,
		})
	}
	return converted
}

// openHistory opens the configured plan store.
func (a *App) openHistory() (*history.Store, error) {
	path := a.model.Sequencer.HistoryPath
	if path == "" {
		return nil, errors.New("no history_path configured in the sequencer block")
	}
	return history.Open(path)
}

// SavePlan archives a generated plan and returns its id.
func (a *App) SavePlan(root string, steps []sequencer.MigrationStep) (string, error) {
	store, err := a.openHistory()
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.Save(history.Plan{Root: root, Steps: steps})
}

// Plans lists saved plans, oldest first.
func (a *App) Plans() ([]history.Summary, error) {
	store, err := a.openHistory()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List()
}

// Plan returns one saved plan by id.
func (a *App) Plan(id string) (history.Plan, error) {
	store, err := a.openHistory()
	if err != nil {
		return history.Plan{}, err
	}
	defer store.Close()
	return store.Get(id)
}
