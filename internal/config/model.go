package config

// Model is the unified representation of the tool configuration.
type Model struct {
	Workspace Workspace
	Known     Known
	Catalog   Catalog
	Sequencer Sequencer
	Jobs      []*Job
}

// Workspace configures how the source tree is read and resolved.
type Workspace struct {
	// Root is the tree handed to lint and sequence runs when no path is
	// given on the command line.
	Root string
	// SysPaths are extra import search roots, probed after the referencing
	// artifact's directory.
	SysPaths []string
	// SkipDirs extends the built-in set of directory names pruned from
	// folder traversal.
	SkipDirs []string
	// NamedParameters and the default catalog/schema seed the session state
	// shared by every artifact under one graph root.
	NamedParameters map[string]string
	DefaultCatalog  string
	DefaultSchema   string
}

// Known configures the allow-list of modules resolving outside the
// workspace. An empty path selects the built-in catalog.
type Known struct {
	CatalogPath string
}

// Catalog configures where platform object facts come from.
type Catalog struct {
	JobsSnapshot     string
	ClustersSnapshot string
	OwnersFile       string
	DefaultAdmin     string
}

// Sequencer configures planning output.
type Sequencer struct {
	// HistoryPath is the bolt database generated plans are saved to.
	HistoryPath string
}

// Job declares a job inline, as an alternative to a jobs snapshot.
type Job struct {
	Name    string
	ID      string
	Creator string
	Tasks   []*Task
}

// Task declares one task of an inline job.
type Task struct {
	Key          string
	ClusterID    string
	NotebookPath string
	FilePath     string
	Libraries    []string
	Parameters   map[string]string
}
