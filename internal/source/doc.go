// Package source builds dependency graphs over workspace code. A graph
// starts from a root artifact (a file, a notebook, a folder or a synthetic
// root such as a job task) and grows by resolving the references each loaded
// artifact declares: imports, %run commands, dbutils.notebook.run calls and
// library installs.
//
// Resolution failures are data, not errors: every operation accumulates
// Problem values and construction always runs to completion. Go errors are
// reserved for infrastructure faults such as unreadable directories.
package source
