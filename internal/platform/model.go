package platform

// Cluster is an interactive or shared cluster a task may run on.
type Cluster struct {
	ID      string
	Name    string
	Creator string
}

// Task is one unit of a job's workflow.
type Task struct {
	Key               string
	ExistingClusterID string
	NotebookPath      string
	FilePath          string
	Libraries         []string
	Parameters        map[string]string
}

// Job is a workflow with one or more tasks.
type Job struct {
	ID      string
	Name    string
	Creator string
	Tasks   []Task
}

// DisplayName returns the job's name, falling back to its id for jobs the
// snapshot carries without settings.
func (j Job) DisplayName() string {
	if j.Name != "" {
		return j.Name
	}
	return j.ID
}
