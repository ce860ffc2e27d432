// Package chunker turns a source file into the text that is embedded for
// semantic search.
//
// Each file is one document. The document opens with a filename line and a
// symbol summary so that short queries can match declarations even when the
// body is truncated:
//
//	file named user service
//	path: src/userService.js
//	functions: getUser, saveUser
//	exports: getUser
//
//	function getUser(id) { ... }
//
// Content is cut at a line boundary once the document reaches the token
// budget (MaxTokensPerChunk by default, estimated as chars/4).
//
// FilenameText alone is the second, filename-only signal the semantic
// scorer blends with content similarity.
package chunker
