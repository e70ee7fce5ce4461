// Package linter defines the advice model and the dispatch layer that picks
// the right linter for an artifact. Rule implementations are injected through
// the Context registries; this package only routes artifacts to them and
// locates their findings.
package linter
