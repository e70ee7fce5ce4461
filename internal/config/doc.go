// Package config loads the tool's HCL configuration into a format-agnostic
// model. Any number of .hcl files across the given paths are merged: singular
// blocks are taken field-by-field with later files winning, job blocks
// accumulate.
package config
