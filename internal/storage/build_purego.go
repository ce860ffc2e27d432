//go:build !sqlite_cgo
// +build !sqlite_cgo

package storage

// Default build: pure Go SQLite via modernc.org/sqlite. No C compiler
// required and cross-compiles everywhere.
//
// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
