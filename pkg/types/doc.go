// Package types provides shared type definitions for contextrank.
//
// This package defines the domain types passed between the ranking
// components: source files, per-file symbol tables, dependency edges,
// ranked results and extracted domain keywords.
//
// # Core Types
//
// SourceFile is the unit of input. The engine never reads from disk itself;
// callers hand it a slice of files:
//
//	files := []types.SourceFile{
//	    {Path: "src/userService.js", Content: "function getUser(id) { ... }"},
//	}
//
// SymbolTable holds the classes, functions, imports and exports the symbol
// extractor found in one file:
//
//	table := parser.Extract(file.Content, file.Path)
//	for _, fn := range table.Functions {
//	    fmt.Printf("%s:%d-%d\n", fn.Name, fn.StartLine, fn.EndLine)
//	}
//
// # Ranked Results
//
// RankedResult combines every signal that contributed to a file's score:
//
//	result := types.RankedResult{
//	    File:           "src/userService.js",
//	    FinalScore:     1.42,
//	    StructureScore: 1.0,
//	    SemanticScore:  0.71,
//	    HasSynergy:     true,
//	}
//
// Optional tri-model fields (ScorePercentage, RelationshipScore,
// ClassificationScore) are pointers so that they are absent, not zero,
// when the signal was not computed.
package types
