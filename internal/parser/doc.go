// Package parser extracts per-file symbol tables from source text.
//
// Extraction is deliberately independent of any AST library: every file,
// whatever its language, is scanned line by line with a small set of
// language-agnostic patterns.
//
// # Basic Usage
//
//	table := parser.Extract(content, "src/userService.js")
//	for _, fn := range table.Functions {
//	    fmt.Println(fn.Name, fn.StartLine, fn.EndLine)
//	}
//
// # Recognised Constructs
//
// Imports: ES modules, CommonJS require, Python import/from, Ruby require,
// C #include, Go import (single and grouped), Java/Kotlin import, C# using
// and Rust use. Every imported binding becomes one import symbol carrying
// the module string.
//
// Exports: ES export declarations and export lists, module.exports and
// exports.x assignments, Python __all__, Rust pub items and capitalised
// top-level Go declarations.
//
// Classes: class, interface, struct, trait, enum, module and record
// declarations plus Go "type X struct|interface".
//
// Functions: keyword-prefixed declarations (function, def, fun, fn, func,
// sub, proc), assigned function expressions and arrow functions, and C-like
// signatures that open a brace on the same line. Control-flow keywords that
// look like calls ("if (x) {") are rejected.
//
// # Limitations
//
// Block extents come from brace matching starting at the declaration line.
// Brace-less languages (Python, Ruby) therefore get EndLine == StartLine.
// Braces inside strings and comments are counted too. A function found
// within two lines of an existing function with the same name is treated
// as a duplicate match and dropped. All of this is a best-effort signal,
// never ground truth.
package parser
