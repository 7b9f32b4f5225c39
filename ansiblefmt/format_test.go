package ansiblefmt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "marked item",
			input:    `(item={'x': 1, 'y': 'two'})`,
			expected: "(item=\n{\n  \"x\": 1,\n  \"y\": \"two\"\n}\n)",
		},
		{
			name:     "marked item with newline before brace",
			input:    "(item=\n  {'enabled': True, 'port': None}  )",
			expected: "(item=\n{\n  \"enabled\": true,\n  \"port\": null\n}\n)",
		},
		{
			name:     "marked item holding JSON",
			input:    `(item={"x": [1, 2]})`,
			expected: "(item=\n{\n  \"x\": [\n    1,\n    2\n  ]\n}\n)",
		},
		{
			name:     "arrow",
			input:    `result => {"ok": true, "n": 3}`,
			expected: "result =>\n{\n  \"ok\": true,\n  \"n\": 3\n}",
		},
		{
			name:     "arrow with array",
			input:    "ok: [web1] =>   [1, 2]\nnext",
			expected: "ok: [web1] =>\n[\n  1,\n  2\n]\nnext",
		},
		{
			name:     "arrow with empty object",
			input:    `changed: [db] => {}`,
			expected: "changed: [db] =>\n{}",
		},
		{
			name:     "arrow repaired by escape cleanup",
			input:    `ok: [h] => {"cmd": "echo \\"hi\\""}`,
			expected: "ok: [h] =>\n{\n  \"cmd\": \"echo \\\"hi\\\"\"\n}",
		},
		{
			name:     "arrow without structure",
			input:    "x =>  plain text",
			expected: "x =>  plain text",
		},
		{
			name:     "arrow with unbalanced braces",
			input:    `result => {"ok": true, "n": 3`,
			expected: `result => {"ok": true, "n": 3`,
		},
		{
			name:     "arrow with invalid JSON",
			input:    `result => {"ok": tru}`,
			expected: `result => {"ok": tru}`,
		},
		{
			name:     "bare JSON on its own line",
			input:    "TASK [x]\n{\"a\":1}\ndone",
			expected: "TASK [x]\n{\n  \"a\": 1\n}\ndone",
		},
		{
			name:     "bare JSON after colon",
			input:    `msg:{"a":1}`,
			expected: "msg:\n{\n  \"a\": 1\n}",
		},
		{
			name:     "bare JSON after indentation",
			input:    `  ["a"]`,
			expected: "  [\n  \"a\"\n]",
		},
		{
			name:     "guard keeps incidental braces",
			input:    `foo {"a":1} bar`,
			expected: `foo {"a":1} bar`,
		},
		{
			name:     "host list is not JSON",
			input:    `ok: [localhost]`,
			expected: `ok: [localhost]`,
		},
		{
			name:     "continuation folded inside item",
			input:    "(item={'msg': 'line1\\\n     line2'})",
			expected: "(item=\n{\n  \"msg\": \"line1\\nline2\"\n}\n)",
		},
		{
			name:     "continuation folded inside item without indent",
			input:    "(item={'msg': 'line1\\\nline2'})",
			expected: "(item=\n{\n  \"msg\": \"line1\\nline2\"\n}\n)",
		},
		{
			name:     "item then arrow",
			input:    `ok: [localhost] => (item={'name': 'x'}) => {"changed": false}`,
			expected: "ok: [localhost] => (item=\n{\n  \"name\": \"x\"\n}\n) =>\n{\n  \"changed\": false\n}",
		},
		{
			name:     "item without closing paren is left alone",
			input:    `(item={'a': 1} foo)`,
			expected: `(item={'a': 1} foo)`,
		},
		{
			name:     "unparseable item is left alone",
			input:    `(item={'a': })`,
			expected: `(item={'a': })`,
		},
		{
			name:     "escaped single quote in double-quoted item string is left alone",
			input:    `(item={'a': "it\'s"})`,
			expected: `(item={'a': "it\'s"})`,
		},
		{
			name:     "arrow with invalid utf-8 is left alone",
			input:    "x => {\"a\": \"caf\xe9\"}",
			expected: "x => {\"a\": \"caf\xe9\"}",
		},
		{
			name:     "arrow with lone surrogate escape",
			input:    `x => {"a": "\ud800"}`,
			expected: "x =>\n{\n  \"a\": \"\\ud800\"\n}",
		},
		{
			name:     "item label without dict",
			input:    `(item=nginx)`,
			expected: `(item=nginx)`,
		},
		{
			name:     "plain text",
			input:    "PLAY RECAP ***\nweb1 : ok=3 changed=1",
			expected: "PLAY RECAP ***\nweb1 : ok=3 changed=1",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	doc := "PLAY [all] ***\n\n" +
		"TASK [install] ***\n" +
		"ok: [web1] => (item={'name': 'nginx', 'state': 'present', 'opts': None}) => {\"changed\": false, \"item\": {\"name\": \"nginx\"}}\n" +
		"changed: [web2] => {\"cmd\": [\"ls\", \"-l\"], \"rc\": 0, \"msg\": \"line1\\\n     line2\"}\n" +
		"fatal: [web3]: FAILED! => {\"msg\": \"echo \\\\\"x\\\\\"\"}\n" +
		"{\"standalone\": [1, 2, {\"deep\": true}]}\n" +
		"foo {\"a\":1} bar\n" +
		"PLAY RECAP ***\n"

	once, err := Format(doc)
	require.NoError(t, err)
	twice, err := Format(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestRunReport(t *testing.T) {
	doc := "(item={'a': True})\n" +
		"x => {\"a\": 1}\n" +
		"y => {\"cmd\": \"\\\\\"q\\\\\"\"}\n" +
		"z => {\"broken\": }\n" +
		"{\"bare\": 1}\n"

	res, err := Run(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Items)
	assert.Equal(t, 2, res.Report.Arrows)
	assert.Equal(t, 1, res.Report.Bare)
	assert.Equal(t, 1, res.Report.Repaired)
	assert.Equal(t, 1, res.Report.Skipped)
	assert.Equal(t, 4, res.Report.Formatted())
}

func TestRunInvalidUTF8IsSkipped(t *testing.T) {
	res, err := Run("x => {\"a\": \"caf\xe9\"}")
	require.NoError(t, err)
	assert.Equal(t, "x => {\"a\": \"caf\xe9\"}", res.Text)
	assert.Equal(t, 0, res.Report.Formatted())
	assert.Equal(t, 1, res.Report.Skipped)
}

func TestRunRecoversPanic(t *testing.T) {
	orig := indent
	defer func() { indent = orig }()
	indent = func(v any) string { panic("indent exploded") }

	res, err := Run(`x => {"a": 1}`)
	assert.Nil(t, res)
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, err.Error(), "indent exploded")
}

func TestFormatErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	var err error = &FormatError{Err: cause}

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "boom")
}
