// Package highlight defines the ansible-output language: Ansible play
// output with the JSON the formatter lays out inside it.
package highlight

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LanguageID is the alias the lexer is registered under.
const LanguageID = "ansible-output"

const (
	DefaultStyle     = "monokai"
	DefaultFormatter = "terminal256"
)

// Lexer tokenises ansible-output text.
var Lexer = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "Ansible Output",
		Aliases:   []string{LanguageID},
		Filenames: []string{"*.ansible.log", "*.ansible-output"},
		MimeTypes: []string{"text/x-ansible-output"},
	},
	ansibleRules,
))

func ansibleRules() chroma.Rules {
	return chroma.Rules{
		"root": {
			{Pattern: `^(PLAY RECAP|PLAY|TASK|RUNNING HANDLER|HANDLER)\b[^\n]*`, Type: chroma.GenericHeading, Mutator: nil},
			{Pattern: `^(fatal|failed|unreachable)(?=:)`, Type: chroma.GenericError, Mutator: nil},
			{Pattern: `^(changed)(?=:)`, Type: chroma.GenericInserted, Mutator: nil},
			{Pattern: `^(ok|included|rescued)(?=:)`, Type: chroma.NameBuiltin, Mutator: nil},
			{Pattern: `^(skipping|ignored)(?=:)`, Type: chroma.Comment, Mutator: nil},
			{Pattern: `\b(ok|changed|unreachable|failed|skipped|rescued|ignored)(?==\d)`, Type: chroma.NameAttribute, Mutator: nil},
			{Pattern: `"(\\.|[^"\\\n])*"(?=\s*:)`, Type: chroma.NameTag, Mutator: nil},
			{Pattern: `"(\\.|[^"\\\n])*"`, Type: chroma.LiteralString, Mutator: nil},
			{Pattern: `-?\d+(\.\d+)?([eE][+-]?\d+)?\b`, Type: chroma.LiteralNumber, Mutator: nil},
			{Pattern: `\b(true|false|null)\b`, Type: chroma.KeywordConstant, Mutator: nil},
			{Pattern: `=>`, Type: chroma.Operator, Mutator: nil},
			{Pattern: `\(item=`, Type: chroma.NameDecorator, Mutator: nil},
			{Pattern: `[{}\[\](),:]`, Type: chroma.Punctuation, Mutator: nil},
			{Pattern: `\*+`, Type: chroma.Punctuation, Mutator: nil},
			{Pattern: `\s+`, Type: chroma.TextWhitespace, Mutator: nil},
			{Pattern: `[^\s"{}\[\](),:=*\-\d]+`, Type: chroma.Text, Mutator: nil},
			{Pattern: `.`, Type: chroma.Text, Mutator: nil},
		},
	}
}

// DisplayName turns a language id such as "ansible-output" into the name
// shown to users, "Ansible Output".
func DisplayName(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "-", " "))
}

// Tokens returns the token stream for text.
func Tokens(text string) ([]chroma.Token, error) {
	it, err := Lexer.Tokenise(nil, text)
	if err != nil {
		return nil, err
	}
	return it.Tokens(), nil
}

// Write renders text to w with the named chroma style and formatter.
// Unknown names fall back to chroma's defaults.
func Write(w io.Writer, text, styleName, formatterName string) error {
	if styleName == "" {
		styleName = DefaultStyle
	}
	if formatterName == "" {
		formatterName = DefaultFormatter
	}

	it, err := Lexer.Tokenise(nil, text)
	if err != nil {
		return fmt.Errorf("tokenise: %w", err)
	}
	return formatters.Get(formatterName).Format(w, styles.Get(styleName), it)
}
