package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/lakeshift/internal/ctxlog"
	"github.com/vk/lakeshift/internal/fsutil"
)

// fileRoot decodes all recognized top-level blocks from any file.
type fileRoot struct {
	Workspace *workspaceBlock `hcl:"workspace,block"`
	Known     *knownBlock     `hcl:"known,block"`
	Catalog   *catalogBlock   `hcl:"catalog,block"`
	Sequencer *sequencerBlock `hcl:"sequencer,block"`
	Jobs      []*jobBlock     `hcl:"job,block"`
	Remain    hcl.Body        `hcl:",remain"`
}

type workspaceBlock struct {
	Root            string         `hcl:"root,optional"`
	SysPaths        []string       `hcl:"sys_paths,optional"`
	SkipDirs        []string       `hcl:"skip_dirs,optional"`
	NamedParameters hcl.Expression `hcl:"named_parameters,optional"`
	DefaultCatalog  string         `hcl:"default_catalog,optional"`
	DefaultSchema   string         `hcl:"default_schema,optional"`
}

type knownBlock struct {
	CatalogPath string `hcl:"catalog_path,optional"`
}

type catalogBlock struct {
	JobsSnapshot     string `hcl:"jobs_snapshot,optional"`
	ClustersSnapshot string `hcl:"clusters_snapshot,optional"`
	OwnersFile       string `hcl:"owners_file,optional"`
	DefaultAdmin     string `hcl:"default_admin,optional"`
}

type sequencerBlock struct {
	HistoryPath string `hcl:"history_path,optional"`
}

type jobBlock struct {
	Name    string       `hcl:"name,label"`
	ID      string       `hcl:"id,optional"`
	Creator string       `hcl:"creator,optional"`
	Tasks   []*taskBlock `hcl:"task,block"`
}

type taskBlock struct {
	Key        string         `hcl:"key,label"`
	Cluster    string         `hcl:"cluster,optional"`
	Notebook   string         `hcl:"notebook,optional"`
	File       string         `hcl:"file,optional"`
	Libraries  []string       `hcl:"libraries,optional"`
	Parameters hcl.Expression `hcl:"parameters,optional"`
}

// Loader reads and merges HCL configuration files.
type Loader struct{}

// NewLoader creates a configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found across the given paths and merges them
// into one model. Paths may be files or directories; missing paths are
// skipped, matching how optional config locations behave.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := l.findConfigFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered configuration files.", "count", len(files))

	model := &Model{}
	parser := hclparse.NewParser()
	for _, file := range files {
		parsed, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse config file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(parsed.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode config file %s: %w", file, diags)
		}
		if err := l.mergeFile(model, &root); err != nil {
			return nil, fmt.Errorf("in config file %s: %w", file, err)
		}
	}

	logger.Debug("Configuration loaded.", "jobs", len(model.Jobs))
	return model, nil
}

// findConfigFiles resolves the given paths to a deduplicated list of .hcl
// files in a stable order.
func (l *Loader) findConfigFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl", ".git")
		if err != nil {
			return nil, err
		}
		for _, file := range found {
			add(file)
		}
	}
	return files, nil
}

func (l *Loader) mergeFile(model *Model, root *fileRoot) error {
	if root.Workspace != nil {
		if err := mergeWorkspace(&model.Workspace, root.Workspace); err != nil {
			return err
		}
	}
	if root.Known != nil && root.Known.CatalogPath != "" {
		model.Known.CatalogPath = root.Known.CatalogPath
	}
	if root.Catalog != nil {
		mergeCatalog(&model.Catalog, root.Catalog)
	}
	if root.Sequencer != nil && root.Sequencer.HistoryPath != "" {
		model.Sequencer.HistoryPath = root.Sequencer.HistoryPath
	}
	for _, job := range root.Jobs {
		translated, err := translateJob(job)
		if err != nil {
			return err
		}
		model.Jobs = append(model.Jobs, translated)
	}
	return nil
}

func mergeWorkspace(target *Workspace, block *workspaceBlock) error {
	if block.Root != "" {
		target.Root = block.Root
	}
	target.SysPaths = append(target.SysPaths, block.SysPaths...)
	target.SkipDirs = append(target.SkipDirs, block.SkipDirs...)
	if block.DefaultCatalog != "" {
		target.DefaultCatalog = block.DefaultCatalog
	}
	if block.DefaultSchema != "" {
		target.DefaultSchema = block.DefaultSchema
	}
	parameters, err := stringMap(block.NamedParameters, "named_parameters")
	if err != nil {
		return err
	}
	if len(parameters) > 0 {
		if target.NamedParameters == nil {
			target.NamedParameters = make(map[string]string)
		}
		for key, value := range parameters {
			target.NamedParameters[key] = value
		}
	}
	return nil
}

func mergeCatalog(target *Catalog, block *catalogBlock) {
	if block.JobsSnapshot != "" {
		target.JobsSnapshot = block.JobsSnapshot
	}
	if block.ClustersSnapshot != "" {
		target.ClustersSnapshot = block.ClustersSnapshot
	}
	if block.OwnersFile != "" {
		target.OwnersFile = block.OwnersFile
	}
	if block.DefaultAdmin != "" {
		target.DefaultAdmin = block.DefaultAdmin
	}
}

func translateJob(block *jobBlock) (*Job, error) {
	job := &Job{
		Name:    block.Name,
		ID:      block.ID,
		Creator: block.Creator,
	}
	if job.ID == "" {
		job.ID = block.Name
	}
	for _, task := range block.Tasks {
		parameters, err := stringMap(task.Parameters, "parameters")
		if err != nil {
			return nil, fmt.Errorf("in task %q: %w", task.Key, err)
		}
		job.Tasks = append(job.Tasks, &Task{
			Key:          task.Key,
			ClusterID:    task.Cluster,
			NotebookPath: task.Notebook,
			FilePath:     task.File,
			Libraries:    task.Libraries,
			Parameters:   parameters,
		})
	}
	return job, nil
}
