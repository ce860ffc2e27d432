//go:build sqlite_cgo
// +build sqlite_cgo

package storage

// Compiled with the sqlite_cgo tag: the C SQLite amalgamation through
// mattn/go-sqlite3. Faster writes on large caches, requires a C compiler.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
