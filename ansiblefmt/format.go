package ansiblefmt

import (
	"fmt"
	"strings"
)

const (
	itemToken  = "(item="
	arrowToken = "=>"
)

// indent renders every rewritten region. Tests swap it out.
var indent = Indent

// Report counts what a Format pass did.
type Report struct {
	Items    int `json:"items"`    // (item={...}) literals rewritten
	Arrows   int `json:"arrows"`   // "=> {...}" results rewritten
	Bare     int `json:"bare"`     // standalone JSON rewritten
	Repaired int `json:"repaired"` // rewritten only after a fallback strategy
	Skipped  int `json:"skipped"`  // candidates left verbatim
}

// Formatted is the number of regions that were rewritten.
func (r Report) Formatted() int {
	return r.Items + r.Arrows + r.Bare
}

// Result is the output of Run.
type Result struct {
	Text   string
	Report Report
}

// Format rewrites every structured literal it can find in text and leaves
// everything else untouched.
func Format(text string) (string, error) {
	res, err := Run(text)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Run is Format with a report of the regions it rewrote. A literal that
// cannot be parsed is never an error; only an unexpected failure of the
// pass itself is, and then no text is returned.
func Run(text string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &FormatError{Err: fmt.Errorf("%v", r)}
		}
	}()

	s := &scanner{text: NormalizeNewlines(text)}
	s.out.Grow(len(s.text) + len(s.text)/4)
	s.scan()
	return &Result{Text: s.out.String(), Report: s.report}, nil
}

type scanner struct {
	text   string
	out    strings.Builder
	report Report
}

func (s *scanner) scan() {
	text := s.text
	for i := 0; i < len(text); {
		c := text[i]

		if c == '(' && strings.HasPrefix(text[i:], itemToken) {
			if next, ok := s.markedItem(i); ok {
				i = next
				continue
			}
		}

		if c == '=' && strings.HasPrefix(text[i:], arrowToken) {
			i = s.arrow(i)
			continue
		}

		if c == '{' || c == '[' {
			if next, ok := s.bare(i); ok {
				i = next
				continue
			}
		}

		s.out.WriteByte(c)
		i++
	}
}

// markedItem handles Ansible loop labels, "(item={'k': 'v'})".
func (s *scanner) markedItem(i int) (int, bool) {
	text := s.text
	start := skipSpace(text, i+len(itemToken))
	if start >= len(text) || text[start] != '{' {
		return 0, false
	}

	end := MatchPython(text, start, '{', '}')
	if end < 0 {
		s.report.Skipped++
		return 0, false
	}
	paren := skipSpace(text, end+1)
	if paren >= len(text) || text[paren] != ')' {
		s.report.Skipped++
		return 0, false
	}

	pretty, attempt, err := prettyFirst(text[start:end+1], PythonToJSON, asIs)
	if err != nil {
		s.report.Skipped++
		return 0, false
	}

	s.out.WriteString(itemToken)
	s.out.WriteByte('\n')
	s.out.WriteString(pretty)
	s.out.WriteString("\n)")
	s.report.Items++
	if attempt > 0 {
		s.report.Repaired++
	}
	return paren + 1, true
}

// arrow handles module results, "ok: [host] => {...}". The arrow is always
// consumed; on failure the whitespace after it is copied back and scanning
// resumes at the delimiter.
func (s *scanner) arrow(i int) int {
	text := s.text
	s.out.WriteString(arrowToken)
	after := i + len(arrowToken)
	j := skipSpace(text, after)

	if j < len(text) && (text[j] == '{' || text[j] == '[') {
		end := MatchJSON(text, j, text[j], closerFor(text[j]))
		if end >= 0 {
			pretty, attempt, err := prettyFirst(text[j:end+1], asIs, CleanEscapes)
			if err == nil {
				s.out.WriteByte('\n')
				s.out.WriteString(pretty)
				s.report.Arrows++
				if attempt > 0 {
					s.report.Repaired++
				}
				return end + 1
			}
		}
		s.report.Skipped++
	}

	s.out.WriteString(text[after:j])
	return j
}

// bare handles JSON that starts its own line or follows "=>" or ":" on
// it. Braces elsewhere are usually part of plain text.
func (s *scanner) bare(i int) (int, bool) {
	text := s.text
	before := strings.TrimSpace(text[lineStart(text, i):i])
	if before != "" && !strings.HasSuffix(before, arrowToken) && !strings.HasSuffix(before, ":") {
		return 0, false
	}

	end := MatchJSON(text, i, text[i], closerFor(text[i]))
	if end < 0 {
		return 0, false
	}
	v, err := Parse(text[i : end+1])
	if err != nil {
		return 0, false
	}

	if before != "" {
		s.out.WriteByte('\n')
	}
	s.out.WriteString(indent(v))
	s.report.Bare++
	return end + 1, true
}

func asIs(s string) string { return s }

// prettyFirst parses fragment after each rewrite in turn and indents the
// first one that parses. It also reports which attempt succeeded.
func prettyFirst(fragment string, rewrites ...func(string) string) (string, int, error) {
	err := ErrInvalidJSON
	for n, rewrite := range rewrites {
		var v any
		v, err = Parse(rewrite(fragment))
		if err == nil {
			return indent(v), n, nil
		}
	}
	return "", -1, err
}

func closerFor(open byte) byte {
	if open == '[' {
		return ']'
	}
	return '}'
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func lineStart(s string, i int) int {
	return strings.LastIndexByte(s[:i], '\n') + 1
}
