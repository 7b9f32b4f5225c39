package ansiblefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNewlines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain text untouched", "TASK [debug] ***\nok: [web1]", "TASK [debug] ***\nok: [web1]"},
		{"continuation with indent", "some text\\\n      - item1", "some text\n- item1"},
		{"continuation without indent", "a\\\nb", "a\nb"},
		{"continuation swallows blank lines", "a\\\n\n   \n  b", "a\nb"},
		{"literal escape", `line1\nline2`, "line1\nline2"},
		{"continuation is not an escaped n", "x\\\nnext", "x\nnext"},
		{"tabs kept", "a\tb", "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeNewlines(tt.input))
		})
	}
}

func TestNormalizeNewlinesIsIdempotent(t *testing.T) {
	inputs := []string{
		"msg: \"a\\\n   b\"",
		`stdout: "one\ntwo\nthree"`,
		"plain\nlines\n",
	}
	for _, in := range inputs {
		once := NormalizeNewlines(in)
		assert.Equal(t, once, NormalizeNewlines(once), "input %q", in)
	}
}
