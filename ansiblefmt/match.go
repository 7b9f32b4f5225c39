package ansiblefmt

// quoteTracker decides, one unescaped character at a time, whether the
// scan is inside a quoted span. observe reports true when c is a quote
// boundary, so the caller never treats it as a delimiter.
type quoteTracker interface {
	observe(c byte) (boundary bool)
	inQuote() bool
}

// jsonQuotes allows a span to open on either quote character but only
// closes it on the character that opened it.
type jsonQuotes struct {
	opener byte
}

func (q *jsonQuotes) observe(c byte) bool {
	if c != '"' && c != '\'' {
		return false
	}
	switch q.opener {
	case 0:
		q.opener = c
		return true
	case c:
		q.opener = 0
		return true
	}
	return false
}

func (q *jsonQuotes) inQuote() bool { return q.opener != 0 }

// pythonQuotes keeps one flag per quote style. A style only toggles while
// the other is closed, so 'it"s' and "it's" are both single spans.
type pythonQuotes struct {
	single bool
	double bool
}

func (q *pythonQuotes) observe(c byte) bool {
	switch {
	case c == '"' && !q.single:
		q.double = !q.double
		return true
	case c == '\'' && !q.double:
		q.single = !q.single
		return true
	}
	return false
}

func (q *pythonQuotes) inQuote() bool { return q.single || q.double }

// MatchJSON returns the index of the delimiter closing the one at start,
// treating '...' and "..." as opaque spans. It returns -1 when the text
// ends before the nesting depth returns to zero.
func MatchJSON(text string, start int, open, close byte) int {
	return matchDelimiter(text, start, open, close, &jsonQuotes{})
}

// MatchPython is MatchJSON for Python literals, where a single quote may
// appear inside a double-quoted string and vice versa.
func MatchPython(text string, start int, open, close byte) int {
	return matchDelimiter(text, start, open, close, &pythonQuotes{})
}

func matchDelimiter(text string, start int, open, close byte, quotes quoteTracker) int {
	if start < 0 || start >= len(text) || text[start] != open {
		return -1
	}

	depth := 1
	escaped := false
	for i := start + 1; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if quotes.observe(c) || quotes.inQuote() {
			continue
		}

		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
