package ansiblefmt

import "strings"

type keyword struct {
	python string
	json   string
}

var pythonKeywords = []keyword{
	{"True", "true"},
	{"False", "false"},
	{"None", "null"},
}

// PythonToJSON rewrites a Python literal (single-quoted strings, True /
// False / None, Python escapes, wrapped lines) as JSON. The result is
// best effort and may still be rejected by Parse.
func PythonToJSON(fragment string) string {
	var b strings.Builder
	b.Grow(len(fragment) + len(fragment)/8)

	inSingle, inDouble := false, false
	n := len(fragment)

	for i := 0; i < n; {
		c := fragment[i]

		if c == '\\' {
			if i+1 >= n {
				b.WriteByte('\\')
				i++
				continue
			}
			next := fragment[i+1]
			switch next {
			case '\n':
				if inSingle || inDouble {
					b.WriteString(`\n`)
				}
				i = skipBlanks(fragment, i+2)
				continue
			case '\'':
				if inSingle {
					b.WriteByte('\'')
				} else {
					b.WriteString(`\'`)
				}
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case 'n':
				b.WriteString(`\n`)
			case 't':
				b.WriteString(`\t`)
			case 'r':
				b.WriteString(`\r`)
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			i += 2
			continue
		}

		if !inSingle && !inDouble {
			if kw, ok := keywordAt(fragment, i); ok {
				b.WriteString(kw.json)
				i += len(kw.python)
				continue
			}
		}

		switch c {
		case '"':
			if inSingle {
				b.WriteString(`\"`)
			} else {
				inDouble = !inDouble
				b.WriteByte('"')
			}
		case '\'':
			if inDouble {
				b.WriteByte('\'')
			} else {
				inSingle = !inSingle
				b.WriteByte('"')
			}
		case '\n':
			if inSingle || inDouble {
				b.WriteString(`\n`)
			} else {
				b.WriteByte('\n')
			}
		default:
			b.WriteByte(c)
		}
		i++
	}

	return b.String()
}

// keywordAt reports the Python keyword starting at i, if it stands as a
// whole word.
func keywordAt(s string, i int) (keyword, bool) {
	if i > 0 && isWordByte(s[i-1]) {
		return keyword{}, false
	}
	for _, k := range pythonKeywords {
		end := i + len(k.python)
		if !strings.HasPrefix(s[i:], k.python) {
			continue
		}
		if end < len(s) && isWordByte(s[end]) {
			continue
		}
		return k, true
	}
	return keyword{}, false
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// skipBlanks returns the first index at or after i that is not a space or tab.
func skipBlanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}
