package editor

import (
	"sort"
	"strings"
)

// FoldRange is a foldable block of lines, zero-based and inclusive.
type FoldRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FoldRegions finds blocks opened by a line ending in "{" or "[" and closed
// by a later line starting with "}" or "]", the shape Indent produces.
func FoldRegions(text string) []FoldRange {
	lines := strings.Split(text, "\n")
	var open []int
	var out []FoldRange

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if c := trimmed[0]; (c == '}' || c == ']') && len(open) > 0 {
			start := open[len(open)-1]
			open = open[:len(open)-1]
			if i > start {
				out = append(out, FoldRange{Start: start, End: i})
			}
		}
		if c := trimmed[len(trimmed)-1]; c == '{' || c == '[' {
			open = append(open, i)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// RenderFolded collapses the outermost ranges onto their first line.
func RenderFolded(text string, ranges []FoldRange) string {
	lines := strings.Split(text, "\n")
	ends := make(map[int]int, len(ranges))
	for _, r := range ranges {
		if cur, ok := ends[r.Start]; !ok || r.End > cur {
			ends[r.Start] = r.End
		}
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(lines); i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(lines[i])
		if end, ok := ends[i]; ok && end < len(lines) {
			b.WriteString(" … ")
			b.WriteString(strings.TrimSpace(lines[end]))
			i = end
		}
	}
	return b.String()
}
