// Package platform models the workspace objects the sequencer plans over:
// jobs, their tasks and clusters. Facts come from JSON snapshots of the
// platform API or from the tool's own configuration; ownership comes from the
// snapshot creators, optionally overridden from a YAML file.
package platform
