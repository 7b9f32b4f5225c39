package ansiblefmt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that remembers the order its keys were read in.
type Object = orderedmap.OrderedMap[string, any]

// Parse strictly parses a JSON document. Objects come back as *Object,
// arrays as []any, numbers as json.Number (the literal is kept verbatim),
// plus string, bool and nil. A string holding an unpaired surrogate escape
// comes back as utf16String. A key that appears twice keeps its first
// position and its last value. Fragments that are not valid UTF-8 are
// rejected.
func Parse(fragment string) (any, error) {
	if !utf8.ValidString(fragment) || !json.Valid([]byte(fragment)) {
		return nil, ErrInvalidJSON
	}

	dec := &decoder{Decoder: json.NewDecoder(strings.NewReader(fragment)), src: fragment}
	dec.UseNumber()
	v, err := dec.value()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return v, nil
}

// utf16String is a string with unpaired surrogates, which a Go string
// cannot hold. It is kept as UTF-16 code units.
type utf16String []uint16

var surrogateEscape = regexp.MustCompile(`\\u[dD][89a-fA-F]`)

type decoder struct {
	*json.Decoder
	src  string
	last int64 // input offset after the previous token
}

// token is Decoder.Token, except that strings with unpaired surrogate
// escapes are re-read from the source as utf16String.
func (d *decoder) token() (json.Token, error) {
	tok, err := d.Token()
	if err != nil {
		return nil, err
	}
	start := d.last
	d.last = d.InputOffset()

	if _, ok := tok.(string); !ok {
		return tok, nil
	}
	raw := d.src[start:d.last]
	if !surrogateEscape.MatchString(raw) {
		return tok, nil
	}
	raw = raw[strings.IndexByte(raw, '"'):]
	if units, lone := decodeUnits(raw); lone {
		return utf16String(units), nil
	}
	return tok, nil
}

func (d *decoder) value() (any, error) {
	tok, err := d.token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := orderedmap.New[string, any]()
		for d.More() {
			keyTok, err := d.token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T, not string", keyTok)
			}
			val, err := d.value()
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := d.token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for d.More() {
			val, err := d.value()
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := d.token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %q", delim)
}

// decodeUnits decodes a quoted JSON string into UTF-16 code units and
// reports whether any surrogate is left unpaired. The input is known to
// be valid JSON.
func decodeUnits(quoted string) ([]uint16, bool) {
	body := quoted[1 : len(quoted)-1]
	units := make([]uint16, 0, len(body))

	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(body[i:])
			units = utf16.AppendRune(units, r)
			i += size
			continue
		}
		switch body[i+1] {
		case 'u':
			n, _ := strconv.ParseUint(body[i+2:i+6], 16, 16)
			units = append(units, uint16(n))
			i += 6
			continue
		case 'b':
			units = append(units, '\b')
		case 'f':
			units = append(units, '\f')
		case 'n':
			units = append(units, '\n')
		case 'r':
			units = append(units, '\r')
		case 't':
			units = append(units, '\t')
		default: // " \ /
			units = append(units, uint16(body[i+1]))
		}
		i += 2
	}

	lone := false
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		if !utf16.IsSurrogate(r) {
			continue
		}
		if i+1 < len(units) && utf16.DecodeRune(r, rune(units[i+1])) != utf8.RuneError {
			i++
			continue
		}
		lone = true
	}
	return units, lone
}

// Indent renders a value produced by Parse as JSON indented by two spaces
// per level.
func Indent(v any) string {
	var b strings.Builder
	writeIndented(&b, v, 0)
	return b.String()
}

func writeIndented(b *strings.Builder, v any, depth int) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		b.WriteString(t.String())
	case string:
		writeQuoted(b, t)
	case utf16String:
		writeQuotedUnits(b, t)
	case []any:
		if len(t) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(b, depth+1)
			writeIndented(b, item, depth+1)
		}
		newline(b, depth)
		b.WriteByte(']')
	case *Object:
		if t.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteByte('{')
		first := true
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				b.WriteByte(',')
			}
			first = false
			newline(b, depth+1)
			writeQuoted(b, pair.Key)
			b.WriteString(": ")
			writeIndented(b, pair.Value, depth+1)
		}
		newline(b, depth)
		b.WriteByte('}')
	default:
		// Only reachable when callers build values by hand.
		data, err := json.Marshal(t)
		if err != nil {
			writeQuoted(b, fmt.Sprintf("%v", t))
			return
		}
		b.Write(data)
	}
}

func newline(b *strings.Builder, depth int) {
	b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

const hexDigits = "0123456789abcdef"

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		writeEscaped(b, r)
	}
	b.WriteByte('"')
}

// writeQuotedUnits writes paired surrogates as the character they encode
// and unpaired ones as \udxxx escapes.
func writeQuotedUnits(b *strings.Builder, units utf16String) {
	b.WriteByte('"')
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		if !utf16.IsSurrogate(r) {
			writeEscaped(b, r)
			continue
		}
		if i+1 < len(units) {
			if pair := utf16.DecodeRune(r, rune(units[i+1])); pair != utf8.RuneError {
				writeEscaped(b, pair)
				i++
				continue
			}
		}
		b.WriteString(`\u`)
		for shift := 12; shift >= 0; shift -= 4 {
			b.WriteByte(hexDigits[(r>>shift)&0xF])
		}
	}
	b.WriteByte('"')
}

func writeEscaped(b *strings.Builder, r rune) {
	switch r {
	case '\\':
		b.WriteString(`\\`)
	case '"':
		b.WriteString(`\"`)
	case '\b':
		b.WriteString(`\b`)
	case '\f':
		b.WriteString(`\f`)
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	default:
		if r < 0x20 {
			b.WriteString(`\u00`)
			b.WriteByte(hexDigits[r>>4])
			b.WriteByte(hexDigits[r&0xF])
		} else {
			b.WriteRune(r)
		}
	}
}
