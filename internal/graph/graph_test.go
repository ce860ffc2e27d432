package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contextrank/internal/parser"
	"github.com/dshills/contextrank/pkg/types"
)

func extractAll(files []types.SourceFile) map[string]types.SymbolTable {
	tables := make(map[string]types.SymbolTable, len(files))
	for _, f := range files {
		tables[f.Path] = parser.Extract(f.Content, f.Path)
	}
	return tables
}

func TestBuild_ControllerImportsService(t *testing.T) {
	files := []types.SourceFile{
		{Path: "src/userService.js", Content: "function getUser(id){ return db.find(id) }"},
		{Path: "src/userController.js", Content: "import {getUser} from './userService'\nfunction handleGetUser(req,res){ return getUser(req.id) }"},
	}

	g := Build(files, extractAll(files))

	edges := g.Dependencies("src/userController.js")
	require.Len(t, edges, 2)

	imp := edges[0]
	assert.Equal(t, "src/userController.js", imp.From)
	assert.Equal(t, "src/userService.js", imp.To)
	assert.Equal(t, types.EdgeImport, imp.Type)
	assert.Equal(t, 1, imp.Line)
	assert.Equal(t, 0.9, imp.Confidence)
	assert.NoError(t, imp.Validate())

	call := edges[1]
	assert.Equal(t, types.EdgeCall, call.Type)
	assert.Equal(t, 2, call.Line)
	assert.Equal(t, CallConfidence, call.Confidence)

	assert.Empty(t, g.Dependencies("src/userService.js"))
	assert.Equal(t, []string{"src/userController.js"}, g.Importers("src/userService.js"))
	assert.Equal(t, []string{"src/userService.js"}, g.Imports("src/userController.js"))
	assert.Equal(t, 2, g.EdgeCount())
}

func TestResolve(t *testing.T) {
	files := []types.SourceFile{
		{Path: "src/a.js"},
		{Path: "src/b.ts"},
		{Path: "src/lib/index.js"},
		{Path: "src/types/index.ts"},
		{Path: "src/data.json"},
		{Path: "config/db.js"},
		{Path: "x.js"},
		{Path: "x.js.js"},
	}

	tests := []struct {
		name   string
		from   string
		module string
		want   string
		ok     bool
	}{
		{"sibling js", "src/c.js", "./a", "src/a.js", true},
		{"sibling ts", "src/c.js", "./b", "src/b.ts", true},
		{"literal with extension", "src/c.js", "./data.json", "src/data.json", true},
		{"directory index js", "src/c.js", "./lib", "src/lib/index.js", true},
		{"directory index ts", "src/c.js", "./types", "src/types/index.ts", true},
		{"parent directory", "src/lib/index.js", "../a", "src/a.js", true},
		{"project relative", "src/c.js", "config/db", "config/db.js", true},
		{"literal wins over suffix", "src/c.js", "../x.js", "x.js", true},
		{"package import", "src/c.js", "express", "", false},
		{"escapes project", "src/c.js", "../../outside", "", false},
		{"empty module", "src/c.js", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.from, tt.module, files)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_UnresolvedImportsDropped(t *testing.T) {
	files := []types.SourceFile{
		{Path: "app.js", Content: "const express = require('express')\nimport fs from 'fs'\nimport x from './missing'"},
	}
	g := Build(files, extractAll(files))
	assert.Empty(t, g.Edges)
	assert.Zero(t, g.EdgeCount())
}

func TestBuild_DeterministicOrder(t *testing.T) {
	files := []types.SourceFile{
		{Path: "src/z.js", Content: "export function zed() {}"},
		{Path: "src/a.js", Content: "export function ay() {}"},
		{Path: "src/main.js", Content: "import {zed} from './z'\nimport {ay} from './a'\nimport {ay as again} from './a'\nzed()\nay()"},
	}
	g := Build(files, extractAll(files))

	edges := g.Dependencies("src/main.js")
	require.Len(t, edges, 4)
	assert.Equal(t, "src/a.js", edges[0].To)
	assert.Equal(t, types.EdgeImport, edges[0].Type)
	assert.Equal(t, 2, edges[0].Line, "first import of a module wins")
	assert.Equal(t, "src/a.js", edges[1].To)
	assert.Equal(t, types.EdgeCall, edges[1].Type)
	assert.Equal(t, 5, edges[1].Line)
	assert.Equal(t, "src/z.js", edges[2].To)
	assert.Equal(t, "src/z.js", edges[3].To)
	assert.Equal(t, 4, edges[3].Line)

	for i := 0; i < 5; i++ {
		assert.Equal(t, edges, Build(files, extractAll(files)).Dependencies("src/main.js"))
	}
}

func TestBuild_CallMatching(t *testing.T) {
	files := []types.SourceFile{
		{Path: "svc.js", Content: "export function load() {}\nexport function save() {}"},
		{Path: "main.js", Content: "import * as svc from './svc'\nsvc.load()\nconst preload = 1\nautosave ()"},
	}
	g := Build(files, extractAll(files))

	var calls []types.DependencyEdge
	for _, e := range g.Dependencies("main.js") {
		if e.Type == types.EdgeCall {
			calls = append(calls, e)
		}
	}
	require.Len(t, calls, 1, "only load() is invoked; autosave is a different name")
	assert.Equal(t, 2, calls[0].Line)
}

func TestBuild_FilesWithoutTables(t *testing.T) {
	files := []types.SourceFile{
		{Path: "a.js", Content: "import b from './b'"},
		{Path: "b.js"},
	}
	g := Build(files, map[string]types.SymbolTable{})
	assert.Empty(t, g.Edges)
}

func TestNilGraph(t *testing.T) {
	var g *Graph
	assert.Nil(t, g.Dependencies("x"))
	assert.Nil(t, g.Importers("x"))
	assert.Nil(t, g.Imports("x"))
	assert.Zero(t, g.EdgeCount())
}
