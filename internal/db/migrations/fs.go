// Package migrations holds the versioned schema the repositories are written
// against. Column names here are the only ones the storage layer uses.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
