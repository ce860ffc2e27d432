package chunker

import (
	"fmt"
	"strings"

	"github.com/dshills/contextrank/internal/tokenize"
	"github.com/dshills/contextrank/pkg/types"
)

const (
	// MaxTokensPerChunk is the target maximum token count of one document
	MaxTokensPerChunk = 1000

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4

	// maxListed caps each symbol list in the document header
	maxListed = 24
)

// Chunker builds the text that represents a file to the embedding provider
type Chunker struct {
	maxTokens int
}

// New creates a Chunker with the default token budget
func New() *Chunker {
	return &Chunker{maxTokens: MaxTokensPerChunk}
}

// NewWithBudget creates a Chunker whose documents stay under maxTokens.
// Non-positive budgets fall back to MaxTokensPerChunk.
func NewWithBudget(maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = MaxTokensPerChunk
	}
	return &Chunker{maxTokens: maxTokens}
}

// Document renders file as a single embedding input: a header naming the
// file and its symbols followed by as many whole content lines as fit the
// token budget.
func (c *Chunker) Document(file types.SourceFile, table types.SymbolTable) string {
	var doc strings.Builder

	doc.WriteString(FilenameText(file.Path))
	doc.WriteString("\n")
	doc.WriteString(c.buildSymbolContext(file.Path, table))
	doc.WriteString("\n")

	budget := c.maxTokens*TokensPerChar - doc.Len()
	if budget <= 0 {
		return strings.TrimRight(doc.String(), "\n")
	}

	doc.WriteString(truncateLines(file.Content, budget))
	return strings.TrimRight(doc.String(), "\n")
}

// buildSymbolContext lists the path and symbol names of a file
func (c *Chunker) buildSymbolContext(path string, table types.SymbolTable) string {
	var context strings.Builder

	context.WriteString(fmt.Sprintf("path: %s\n", path))

	section := func(label string, names []string) {
		if len(names) == 0 {
			return
		}
		if len(names) > maxListed {
			names = names[:maxListed]
		}
		context.WriteString(fmt.Sprintf("%s: %s\n", label, strings.Join(names, ", ")))
	}

	section("imports", table.ImportModules())
	section("classes", names(table.Classes))
	section("functions", table.FunctionNames())
	section("exports", table.ExportNames())

	return context.String()
}

func names(symbols []types.Symbol) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, s.Name)
	}
	return out
}

// truncateLines keeps whole lines of content up to limit bytes. A first
// line longer than limit is cut.
func truncateLines(content string, limit int) string {
	if len(content) <= limit {
		return content
	}

	lines := strings.Split(content, "\n")
	var out strings.Builder
	for i, line := range lines {
		need := len(line)
		if i > 0 {
			need++
		}
		if out.Len()+need > limit {
			if i == 0 {
				out.WriteString(line[:limit])
			}
			break
		}
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(line)
	}
	return out.String()
}

// FilenameText is the short description embedded for a file's name alone:
// "file named" followed by the words of its base name.
func FilenameText(path string) string {
	words := tokenize.Words(tokenize.BaseName(path))
	if len(words) == 0 {
		return "file named " + path
	}
	return "file named " + strings.Join(words, " ")
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
