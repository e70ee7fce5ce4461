package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lakeshift/internal/testutil"
)

const jobsSnapshot = `{
  "jobs": [
    {
      "job_id": 1234,
      "creator_user_name": "john@corp.com",
      "settings": {
        "name": "nightly-etl",
        "tasks": [
          {
            "task_key": "ingest",
            "existing_cluster_id": "cluster-123",
            "notebook_task": {
              "notebook_path": "/Workspace/etl/ingest",
              "base_parameters": {"env": "prod", "retries": 3}
            },
            "libraries": [{"pypi": {"package": "requests"}}, {"whl": "dist/tool.whl"}]
          },
          {
            "task_key": "score",
            "spark_python_task": {"python_file": "jobs/score.py"}
          }
        ]
      }
    }
  ]
}`

const clustersSnapshot = `[
  {"cluster_id": "cluster-123", "cluster_name": "my-cluster", "creator_user_name": "john@corp.com"},
  {"cluster_id": "cluster-456", "cluster_name": "orphaned"}
]`

func TestCatalog_LoadSnapshots(t *testing.T) {
	ctx := testutil.Context(t)
	root := testutil.WriteTree(t, map[string]string{
		"jobs.json":     jobsSnapshot,
		"clusters.json": clustersSnapshot,
	})
	catalog := NewCatalog()

	require.NoError(t, catalog.LoadJobsSnapshot(ctx, root+"/jobs.json"))
	require.NoError(t, catalog.LoadClustersSnapshot(ctx, root+"/clusters.json"))

	job, ok := catalog.Job("1234")
	require.True(t, ok)
	assert.Equal(t, "nightly-etl", job.Name)
	assert.Equal(t, "john@corp.com", job.Creator)
	require.Len(t, job.Tasks, 2)

	ingest := job.Tasks[0]
	assert.Equal(t, "ingest", ingest.Key)
	assert.Equal(t, "cluster-123", ingest.ExistingClusterID)
	assert.Equal(t, "/Workspace/etl/ingest", ingest.NotebookPath)
	assert.Equal(t, []string{"requests", "dist/tool.whl"}, ingest.Libraries)
	assert.Equal(t, map[string]string{"env": "prod", "retries": "3"}, ingest.Parameters)

	score := job.Tasks[1]
	assert.Equal(t, "jobs/score.py", score.FilePath)
	assert.Empty(t, score.ExistingClusterID)

	cluster, ok := catalog.Cluster("cluster-123")
	require.True(t, ok)
	assert.Equal(t, "my-cluster", cluster.Name)
}

func TestCatalog_RejectsMalformedSnapshot(t *testing.T) {
	ctx := testutil.Context(t)
	root := testutil.WriteTree(t, map[string]string{"bad.json": "{not json"})
	catalog := NewCatalog()

	err := catalog.LoadJobsSnapshot(ctx, root+"/bad.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestOwners_Precedence(t *testing.T) {
	ctx := testutil.Context(t)
	root := testutil.WriteTree(t, map[string]string{
		"clusters.json": clustersSnapshot,
		"owners.yml":    "cluster:\n  \"cluster-123\": \"eve@corp.com\"\n",
	})
	catalog := NewCatalog()
	require.NoError(t, catalog.LoadClustersSnapshot(ctx, root+"/clusters.json"))
	owners := NewOwners(catalog, "admin@corp.com")
	require.NoError(t, owners.LoadOverrides(root+"/owners.yml"))

	t.Run("override wins over snapshot creator", func(t *testing.T) {
		assert.Equal(t, "eve@corp.com", owners.Owner("CLUSTER", "cluster-123"))
	})

	t.Run("snapshot creator without override", func(t *testing.T) {
		catalog.AddJob(Job{ID: "1234", Creator: "john@corp.com"})
		assert.Equal(t, "john@corp.com", owners.Owner("JOB", "1234"))
	})

	t.Run("missing creator falls back to the default admin", func(t *testing.T) {
		assert.Equal(t, "admin@corp.com", owners.Owner("CLUSTER", "cluster-456"))
	})

	t.Run("unknown object resolves to the default admin", func(t *testing.T) {
		assert.Equal(t, "admin@corp.com", owners.Owner("CLUSTER", "no-such"))
	})
}

func TestOwners_UnknownOwnerIsEmptyWithoutDefault(t *testing.T) {
	owners := NewOwners(NewCatalog(), "")
	assert.Empty(t, owners.Owner("CLUSTER", "ghost"))
}
