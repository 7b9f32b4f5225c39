// Package ansiblefmt finds JSON and Python literals embedded in Ansible
// command output and rewrites them as indented JSON.
package ansiblefmt

import (
	"regexp"
	"strings"
)

var (
	// Backslash-continuation: "\" at end of line plus the indentation of the
	// wrapped line that follows.
	continuationPattern = regexp.MustCompile(`\\\n\s*`)
	// A "\\" left in front of a real newline by double escaping.
	doubleEscapedNewline = regexp.MustCompile(`\\\\\n`)
)

// NormalizeNewlines rewrites the line-wrapping artifacts Ansible leaves in
// its output. Continuations are collapsed before literal "\n" sequences are
// expanded, so a continuation is never read as an escaped n.
func NormalizeNewlines(text string) string {
	result := continuationPattern.ReplaceAllString(text, "\n")
	result = strings.ReplaceAll(result, `\n`, "\n")
	result = doubleEscapedNewline.ReplaceAllString(result, "\n")
	return result
}
