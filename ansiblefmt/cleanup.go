package ansiblefmt

import "strings"

// CleanEscapes repairs two defects Ansible introduces into JSON it prints:
// backslash-newline continuations and quotes escaped twice (\\"). Every
// other backslash sequence is left alone. It is only worth calling after
// Parse has rejected the fragment.
func CleanEscapes(fragment string) string {
	var b strings.Builder
	b.Grow(len(fragment))

	inString := false
	n := len(fragment)

	for i := 0; i < n; {
		c := fragment[i]

		if c == '\\' && i+1 < n {
			next := fragment[i+1]
			switch {
			case next == '\n':
				if inString {
					b.WriteString(`\n`)
				}
				i = skipBlanks(fragment, i+2)
			case next == '\\' && i+2 < n && fragment[i+2] == '"':
				b.WriteString(`\"`)
				i += 3
			case next == '\\':
				b.WriteString(`\\`)
				i += 2
			case next == '"':
				b.WriteString(`\"`)
				i += 2
			default:
				b.WriteByte(c)
				i++
			}
			continue
		}

		if c == '"' {
			inString = !inString
		}
		b.WriteByte(c)
		i++
	}

	return b.String()
}
