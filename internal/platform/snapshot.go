package platform

import (
	"context"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/vk/lakeshift/internal/ctxlog"
)

// Catalog is an in-memory index of the platform objects known for one
// planning run.
type Catalog struct {
	clusters map[string]Cluster
	jobs     map[string]Job
	jobOrder []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		clusters: make(map[string]Cluster),
		jobs:     make(map[string]Job),
	}
}

// AddCluster indexes a cluster, replacing any previous one with the same id.
func (c *Catalog) AddCluster(cluster Cluster) {
	c.clusters[cluster.ID] = cluster
}

// AddJob indexes a job, replacing any previous one with the same id. First
// insertion order is kept for deterministic planning.
func (c *Catalog) AddJob(job Job) {
	if _, known := c.jobs[job.ID]; !known {
		c.jobOrder = append(c.jobOrder, job.ID)
	}
	c.jobs[job.ID] = job
}

// Cluster returns the cluster with the given id.
func (c *Catalog) Cluster(id string) (Cluster, bool) {
	cluster, ok := c.clusters[id]
	return cluster, ok
}

// Job returns the job with the given id.
func (c *Catalog) Job(id string) (Job, bool) {
	job, ok := c.jobs[id]
	return job, ok
}

// Jobs returns all jobs in first-insertion order.
func (c *Catalog) Jobs() []Job {
	jobs := make([]Job, 0, len(c.jobOrder))
	for _, id := range c.jobOrder {
		jobs = append(jobs, c.jobs[id])
	}
	return jobs
}

// LoadClustersSnapshot reads a clusters JSON export into the catalog. Both a
// top-level array and an object with a "clusters" array are accepted, which
// covers the raw REST response and a plain list dump.
func (c *Catalog) LoadClustersSnapshot(ctx context.Context, path string) error {
	document, err := readSnapshot(path)
	if err != nil {
		return err
	}
	entries := snapshotEntries(document, "clusters")
	entries.ForEach(func(_, entry gjson.Result) bool {
		c.AddCluster(Cluster{
			ID:      entry.Get("cluster_id").String(),
			Name:    entry.Get("cluster_name").String(),
			Creator: entry.Get("creator_user_name").String(),
		})
		return true
	})
	ctxlog.FromContext(ctx).Debug("Loaded clusters snapshot.", "path", path, "clusters", len(c.clusters))
	return nil
}

// LoadJobsSnapshot reads a jobs JSON export into the catalog. Task source
// references keep only what sequencing needs: the notebook path, the file
// path and the library names.
func (c *Catalog) LoadJobsSnapshot(ctx context.Context, path string) error {
	document, err := readSnapshot(path)
	if err != nil {
		return err
	}
	entries := snapshotEntries(document, "jobs")
	entries.ForEach(func(_, entry gjson.Result) bool {
		job := Job{
			ID:      entry.Get("job_id").String(),
			Name:    entry.Get("settings.name").String(),
			Creator: entry.Get("creator_user_name").String(),
		}
		entry.Get("settings.tasks").ForEach(func(_, task gjson.Result) bool {
			job.Tasks = append(job.Tasks, parseTask(task))
			return true
		})
		c.AddJob(job)
		return true
	})
	ctxlog.FromContext(ctx).Debug("Loaded jobs snapshot.", "path", path, "jobs", len(c.jobs))
	return nil
}

func parseTask(task gjson.Result) Task {
	parsed := Task{
		Key:               task.Get("task_key").String(),
		ExistingClusterID: task.Get("existing_cluster_id").String(),
		NotebookPath:      task.Get("notebook_task.notebook_path").String(),
		FilePath:          task.Get("spark_python_task.python_file").String(),
	}
	task.Get("libraries").ForEach(func(_, library gjson.Result) bool {
		for _, field := range []string{"pypi.package", "whl", "egg"} {
			if name := library.Get(field).String(); name != "" {
				parsed.Libraries = append(parsed.Libraries, name)
				break
			}
		}
		return true
	})
	parameters := task.Get("notebook_task.base_parameters")
	if parameters.IsObject() {
		parsed.Parameters = make(map[string]string)
		parameters.ForEach(func(key, value gjson.Result) bool {
			parsed.Parameters[key.String()] = value.String()
			return true
		})
	}
	return parsed
}

func readSnapshot(path string) (gjson.Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading snapshot: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("snapshot %s is not valid JSON", path)
	}
	return gjson.ParseBytes(raw), nil
}

// snapshotEntries unwraps the entry array from either snapshot shape.
func snapshotEntries(document gjson.Result, field string) gjson.Result {
	if document.IsArray() {
		return document
	}
	return document.Get(field)
}
