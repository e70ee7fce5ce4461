package sequencer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lakeshift/internal/jobs"
	"github.com/vk/lakeshift/internal/platform"
	"github.com/vk/lakeshift/internal/source"
	"github.com/vk/lakeshift/internal/testutil"
)

type stubOwners map[string]string

func (s stubOwners) Owner(objectType, objectID string) string {
	return s[objectType+"/"+objectID]
}

type openAllowlist struct{}

func (openAllowlist) ModuleCompatibility(string) source.Compatibility {
	return source.Compatibility{}
}

func newResolver() *source.DependencyResolver {
	fileLoader := source.NewFileLoader()
	importResolver := source.NewImportFileResolver(fileLoader, openAllowlist{})
	return source.NewDependencyResolver(
		source.NewNotebookPathResolver(source.NewNotebookLoader()),
		[]source.ImportResolver{importResolver},
		importResolver,
		source.NewKnownLibraryResolver(openAllowlist{}),
	)
}

// buildGraph loads a root dependency and grows its graph, failing the test
// on any construction problem.
func buildGraph(ctx context.Context, t *testing.T, dependency *source.Dependency, root string) *source.DependencyGraph {
	t.Helper()
	lookup := source.NewPathLookup(root)
	graph := source.NewDependencyGraph(dependency, nil, newResolver(), lookup, &source.Session{})
	container, err := dependency.Load(ctx, lookup)
	require.NoError(t, err)
	require.Empty(t, container.BuildDependencyGraph(ctx, graph))
	return graph
}

func TestSequencer_TaskWithClusterAndJob(t *testing.T) {
	ctx := testutil.Context(t)
	catalog := platform.NewCatalog()
	catalog.AddCluster(platform.Cluster{ID: "cluster-123", Name: "my-cluster"})
	owners := stubOwners{
		"JOB/1234":            "john@corp.com",
		"CLUSTER/cluster-123": "jane@corp.com",
	}
	job := platform.Job{ID: "1234", Name: "test-job"}
	task := platform.Task{Key: "test-task", ExistingClusterID: "cluster-123"}
	seq := New(owners, catalog)

	require.NoError(t, seq.RegisterWorkflowTask(ctx, task, job, nil))
	steps := seq.GenerateSteps()

	require.Len(t, steps, 3)
	last := steps[2]
	assert.Equal(t, ObjectTask, last.ObjectType)
	assert.Equal(t, "1234/test-task", last.ObjectID)
	assert.Equal(t, "test-task", last.ObjectName)
	assert.Equal(t, "john@corp.com", last.ObjectOwner)
	assert.Equal(t, 3, last.StepNumber)
	assert.Len(t, last.RequiredStepIDs, 2)

	var cluster MigrationStep
	for _, step := range steps {
		if step.ObjectType == ObjectCluster {
			cluster = step
		}
	}
	assert.Equal(t, "cluster-123", cluster.ObjectID)
	assert.Equal(t, "my-cluster", cluster.ObjectName)
	assert.Equal(t, "jane@corp.com", cluster.ObjectOwner)
	assert.Less(t, cluster.StepNumber, last.StepNumber)
	assert.Contains(t, last.RequiredStepIDs, cluster.StepID)
}

func TestSequencer_BuildsStepsFromDependencyGraph(t *testing.T) {
	ctx := testutil.Context(t)
	root := testutil.WriteTree(t, map[string]string{
		"grand.py":      "# Databricks notebook source\nimport parent_mod\n",
		"parent_mod.py": "value = 1\n# MAGIC %run ./child\n",
		"child.py":      "# Databricks notebook source\nprint(value)\n",
	})
	job := platform.Job{ID: "1234", Name: "test-job"}
	task := platform.Task{Key: "test-task", NotebookPath: filepath.Join(root, "grand")}
	dependency := jobs.NewWorkflowTask(task, job)
	graph := buildGraph(ctx, t, dependency, root)
	seq := New(stubOwners{}, platform.NewCatalog())

	require.NoError(t, seq.RegisterWorkflowTask(ctx, task, job, graph))
	steps := seq.GenerateSteps()

	numbers := make(map[string]int)
	for _, step := range steps {
		numbers[step.ObjectName] = step.StepNumber
	}
	taskStep := numbers["test-task"]
	require.NotZero(t, taskStep)
	assert.Less(t, numbers["grand.py"], taskStep)
	assert.Less(t, numbers["parent_mod.py"], numbers["grand.py"])
	assert.Less(t, numbers["child.py"], numbers["parent_mod.py"])
}

func TestSequencer_SupportsCyclicDependencies(t *testing.T) {
	ctx := testutil.Context(t)
	root := testutil.WriteTree(t, map[string]string{
		"root.py": "import a\nimport b\n",
		"a.py":    "import b\n",
		"b.py":    "import a\n",
	})
	dependency := source.NewDependency(source.NewFileLoader(), filepath.Join(root, "root.py"), true)
	graph := buildGraph(ctx, t, dependency, root)
	seq := New(stubOwners{}, platform.NewCatalog())

	_, err := seq.RegisterGraph(ctx, graph)
	require.NoError(t, err)
	steps := seq.GenerateSteps()

	require.Len(t, steps, 3)
	assert.Equal(t, filepath.Join(root, "root.py"), steps[2].ObjectID)
	for i, step := range steps {
		assert.Equal(t, i+1, step.StepNumber)
	}
}

func TestSequencer_Deterministic(t *testing.T) {
	ctx := testutil.Context(t)
	catalog := platform.NewCatalog()
	catalog.AddCluster(platform.Cluster{ID: "c1", Name: "shared"})
	job := platform.Job{ID: "10", Name: "job-a"}
	tasks := []platform.Task{
		{Key: "one", ExistingClusterID: "c1"},
		{Key: "two", ExistingClusterID: "c1"},
	}

	plan := func() []MigrationStep {
		seq := New(stubOwners{}, catalog)
		for _, task := range tasks {
			require.NoError(t, seq.RegisterWorkflowTask(ctx, task, job, nil))
		}
		return seq.GenerateSteps()
	}

	assert.Equal(t, plan(), plan())
}

func TestSequencer_FrozenAfterGenerate(t *testing.T) {
	ctx := testutil.Context(t)
	seq := New(stubOwners{}, platform.NewCatalog())
	job := platform.Job{ID: "1", Name: "j"}
	require.NoError(t, seq.RegisterWorkflowTask(ctx, platform.Task{Key: "t"}, job, nil))

	first := seq.GenerateSteps()

	err := seq.RegisterWorkflowTask(ctx, platform.Task{Key: "late"}, job, nil)
	assert.ErrorIs(t, err, ErrSequenced)
	assert.Equal(t, first, seq.GenerateSteps())
}

func TestSequencer_UnknownOwnerStillEmits(t *testing.T) {
	ctx := testutil.Context(t)
	seq := New(stubOwners{}, platform.NewCatalog())
	job := platform.Job{ID: "9", Name: "orphan"}

	require.NoError(t, seq.RegisterWorkflowTask(ctx, platform.Task{Key: "t", ExistingClusterID: "ghost"}, job, nil))
	steps := seq.GenerateSteps()

	require.Len(t, steps, 3)
	for _, step := range steps {
		assert.Empty(t, step.ObjectOwner)
	}
}

func TestSequencer_SharedDependencyAcrossTasks(t *testing.T) {
	ctx := testutil.Context(t)
	root := testutil.WriteTree(t, map[string]string{
		"one.py":    "import shared\n",
		"two.py":    "import shared\n",
		"shared.py": "x = 1\n",
	})
	job := platform.Job{ID: "7", Name: "twin"}
	seq := New(stubOwners{}, platform.NewCatalog())
	for _, name := range []string{"one.py", "two.py"} {
		task := platform.Task{Key: name, FilePath: filepath.Join(root, name)}
		dependency := jobs.NewWorkflowTask(task, job)
		graph := buildGraph(ctx, t, dependency, root)
		require.NoError(t, seq.RegisterWorkflowTask(ctx, task, job, graph))
	}

	steps := seq.GenerateSteps()

	var sharedSteps int
	for _, step := range steps {
		if step.ObjectID == filepath.Join(root, "shared.py") {
			sharedSteps++
		}
	}
	assert.Equal(t, 1, sharedSteps, "one node per artifact across tasks")
	// job, two tasks, their two files, one shared file
	assert.Len(t, steps, 6)
}
