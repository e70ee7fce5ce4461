// Package app wires the tool together: it loads configuration, builds the
// logger, and assembles the loaders, resolvers, linting driver and sequencer
// collaborators, decoupled from any specific entrypoint like a CLI.
package app
