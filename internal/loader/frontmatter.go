package loader

import (
	"fmt"
	"regexp"
	"strings"
)

// frontmatterPattern matches a leading /*--- ... ---*/ block. The block must
// open the file (whitespace aside) so a stray comment later in the query can
// never be mistaken for configuration.
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

// splitFrontmatter separates the YAML frontmatter of a definition file from
// the query body. Files without a frontmatter block return the content
// unchanged as body.
func splitFrontmatter(content string) (meta, body string, found bool) {
	m := frontmatterPattern.FindStringSubmatch(content)
	if len(m) < 2 {
		return "", content, false
	}
	return m[1], strings.TrimSpace(frontmatterPattern.ReplaceAllString(content, "")), true
}

// ParseError reports a definition file the loader could not read or decode.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}
