// Package sequencer turns registered workspace objects and their requirement
// edges into a deterministic, dependency-respecting migration plan. A
// sequencer accepts registrations until steps are generated, after which it
// is frozen.
package sequencer
