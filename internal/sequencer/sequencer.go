package sequencer

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/lakeshift/internal/ctxlog"
	"github.com/vk/lakeshift/internal/jobs"
	"github.com/vk/lakeshift/internal/platform"
	"github.com/vk/lakeshift/internal/source"
)

// ErrSequenced is returned by registration calls made after GenerateSteps.
var ErrSequenced = errors.New("sequencer already generated its steps")

// ObjectType classifies a migration step's subject.
type ObjectType string

const (
	ObjectJob      ObjectType = "JOB"
	ObjectTask     ObjectType = "TASK"
	ObjectCluster  ObjectType = "CLUSTER"
	ObjectNotebook ObjectType = "NOTEBOOK"
	ObjectFile     ObjectType = "FILE"
	ObjectFolder   ObjectType = "FOLDER"
)

// objectTypeForKind maps a dependency's loader kind onto a step object type.
func objectTypeForKind(kind string) ObjectType {
	switch kind {
	case "notebook":
		return ObjectNotebook
	case "file":
		return ObjectFile
	case "folder":
		return ObjectFolder
	case "task":
		return ObjectTask
	default:
		return ObjectType(strings.ToUpper(kind))
	}
}

// MigrationStep is one schedulable unit of migration work. StepNumber is the
// authoritative total order; RequiredStepIDs are the direct prerequisites the
// order was derived from.
type MigrationStep struct {
	StepID          int        `json:"step_id"`
	ObjectType      ObjectType `json:"object_type"`
	ObjectID        string     `json:"object_id"`
	ObjectName      string     `json:"object_name"`
	ObjectOwner     string     `json:"object_owner"`
	StepNumber      int        `json:"step_number"`
	RequiredStepIDs []int      `json:"required_step_ids"`
}

// OwnerLookup resolves the principal responsible for a platform object. An
// empty return means the owner is unknown; planning continues regardless.
type OwnerLookup interface {
	Owner(objectType, objectID string) string
}

// ClusterCatalog supplies display details for clusters referenced by tasks.
type ClusterCatalog interface {
	Cluster(id string) (platform.Cluster, bool)
}

type nodeKey struct {
	objectType ObjectType
	objectID   string
}

// node is a not-yet-sequenced candidate step. Its id doubles as the emitted
// step id, assigned in first-registration order.
type node struct {
	id       int
	key      nodeKey
	name     string
	owner    string
	requires []int
	required map[int]struct{}
}

func (n *node) addRequirement(other *node) {
	if other.id == n.id {
		return
	}
	if _, dup := n.required[other.id]; dup {
		return
	}
	n.required[other.id] = struct{}{}
	n.requires = append(n.requires, other.id)
}

// MigrationSequencer accumulates candidate migration steps and their
// requirement edges, then linearizes them. It is not safe for concurrent
// use; one sequencer serves one planning run.
type MigrationSequencer struct {
	owners    OwnerLookup
	clusters  ClusterCatalog
	nodes     []*node
	index     map[nodeKey]*node
	visited   map[string]bool
	sequenced bool
	steps     []MigrationStep
}

// New returns an empty sequencer.
func New(owners OwnerLookup, clusters ClusterCatalog) *MigrationSequencer {
	return &MigrationSequencer{
		owners:   owners,
		clusters: clusters,
		index:    make(map[nodeKey]*node),
		visited:  make(map[string]bool),
	}
}

// register returns the node for an object, creating it on first sight. Later
// registrations of the same object keep the original name and owner.
func (s *MigrationSequencer) register(objectType ObjectType, objectID, name, owner string) *node {
	key := nodeKey{objectType: objectType, objectID: objectID}
	if existing, ok := s.index[key]; ok {
		return existing
	}
	n := &node{
		id:       len(s.nodes) + 1,
		key:      key,
		name:     name,
		owner:    owner,
		required: make(map[int]struct{}),
	}
	s.nodes = append(s.nodes, n)
	s.index[key] = n
	return n
}

// RegisterWorkflowTask adds a job task and everything it needs migrated
// first: the job itself, the task's cluster, and every artifact reachable
// through the supplied dependency graph. A nil graph registers only the
// task, job and cluster.
func (s *MigrationSequencer) RegisterWorkflowTask(ctx context.Context, task platform.Task, job platform.Job, graph *source.DependencyGraph) error {
	if s.sequenced {
		return ErrSequenced
	}
	jobOwner := s.owners.Owner(string(ObjectJob), job.ID)
	jobNode := s.register(ObjectJob, job.ID, job.DisplayName(), jobOwner)
	taskNode := s.register(ObjectTask, jobs.TaskPath(job, task), task.Key, jobOwner)
	taskNode.addRequirement(jobNode)

	if task.ExistingClusterID != "" {
		clusterName := task.ExistingClusterID
		if cluster, ok := s.clusters.Cluster(task.ExistingClusterID); ok && cluster.Name != "" {
			clusterName = cluster.Name
		}
		clusterOwner := s.owners.Owner(string(ObjectCluster), task.ExistingClusterID)
		clusterNode := s.register(ObjectCluster, task.ExistingClusterID, clusterName, clusterOwner)
		taskNode.addRequirement(clusterNode)
	}

	if graph != nil {
		rootNode := s.registerGraph(ctx, graph)
		taskNode.addRequirement(rootNode)
	}
	ctxlog.FromContext(ctx).Debug("Registered workflow task.", "job", job.ID, "task", task.Key, "nodes", len(s.nodes))
	return nil
}

// RegisterGraph mirrors a dependency graph into candidate steps: one node
// per reachable artifact, each requiring its direct dependencies. It returns
// the step id of the graph's root.
func (s *MigrationSequencer) RegisterGraph(ctx context.Context, graph *source.DependencyGraph) (int, error) {
	if s.sequenced {
		return 0, ErrSequenced
	}
	return s.registerGraph(ctx, graph).id, nil
}

// registerGraph walks the graph cycle-safely; the visited set is shared
// across registrations so artifacts reached from several tasks become one
// node with the union of their edges.
func (s *MigrationSequencer) registerGraph(ctx context.Context, graph *source.DependencyGraph) *node {
	graph.Visit(func(graphNode *source.DependencyGraph) bool {
		s.linkGraphNode(graphNode)
		return false
	}, s.visited)
	return s.nodeFor(graph)
}

// linkGraphNode registers one graph node and edges to its direct children.
// Children register eagerly so the edge can name them; their own edges are
// added when the walk reaches them.
func (s *MigrationSequencer) linkGraphNode(graphNode *source.DependencyGraph) {
	n := s.nodeFor(graphNode)
	for _, child := range graphNode.Children() {
		n.addRequirement(s.nodeFor(child))
	}
}

func (s *MigrationSequencer) nodeFor(graphNode *source.DependencyGraph) *node {
	dependency := graphNode.Dependency()
	objectType := objectTypeForKind(dependency.Kind())
	path := dependency.Path()
	owner := s.owners.Owner(string(objectType), path)
	return s.register(objectType, path, filepath.Base(path), owner)
}

// GenerateSteps linearizes the registered nodes into migration steps and
// freezes the sequencer. Repeated calls return the same frozen plan.
//
// The order is a stable topological sort over the requirement edges: among
// nodes whose requirements are all met, first-registered wins. A cycle never
// fails the plan; when no node is unblocked, the earliest-registered node
// with the fewest unmet requirements is emitted next, which unwinds the
// cycle in registration order while keeping its edges on record.
func (s *MigrationSequencer) GenerateSteps() []MigrationStep {
	if s.sequenced {
		return s.steps
	}
	s.sequenced = true

	unmet := make([]int, len(s.nodes)+1)
	dependents := make([][]int, len(s.nodes)+1)
	for _, n := range s.nodes {
		unmet[n.id] = len(n.requires)
		for _, requirement := range n.requires {
			dependents[requirement] = append(dependents[requirement], n.id)
		}
	}

	emitted := make([]bool, len(s.nodes)+1)
	for len(s.steps) < len(s.nodes) {
		next := s.pickNext(unmet, emitted)
		emitted[next.id] = true
		for _, dependent := range dependents[next.id] {
			unmet[dependent]--
		}
		required := append([]int(nil), next.requires...)
		sort.Ints(required)
		s.steps = append(s.steps, MigrationStep{
			StepID:          next.id,
			ObjectType:      next.key.objectType,
			ObjectID:        next.key.objectID,
			ObjectName:      next.name,
			ObjectOwner:     next.owner,
			StepNumber:      len(s.steps) + 1,
			RequiredStepIDs: required,
		})
	}
	return s.steps
}

// pickNext selects the next node to emit: the first registered node with no
// unmet requirement, or, when a cycle blocks everything, the first
// registered node with the fewest unmet ones.
func (s *MigrationSequencer) pickNext(unmet []int, emitted []bool) *node {
	var best *node
	for _, n := range s.nodes {
		if emitted[n.id] {
			continue
		}
		if unmet[n.id] == 0 {
			return n
		}
		if best == nil || unmet[n.id] < unmet[best.id] {
			best = n
		}
	}
	return best
}
