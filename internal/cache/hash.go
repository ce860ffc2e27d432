package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dshills/contextrank/pkg/types"
)

// Hash returns the content hash of a file: lowercase hex SHA-256 of its
// text. Identical content hashes identically whatever its path.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ProjectHash digests the whole project state: the sorted "path:hash"
// lines of every file plus a "name:<dir>|files:<n>" descriptor. Adding,
// removing or modifying any file changes it; input order does not.
func ProjectHash(name string, files []types.SourceFile) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, f.Path+":"+Hash(f.Content))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		_, _ = h.Write([]byte(l))
		_, _ = h.Write([]byte{'\n'})
	}
	_, _ = fmt.Fprintf(h, "name:%s|files:%d", path.Base(strings.TrimRight(name, "/")), len(files))
	return hex.EncodeToString(h.Sum(nil))
}
