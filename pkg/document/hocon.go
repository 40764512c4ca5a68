package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"
	"unicode/utf16"

	"github.com/gurkankaymak/hocon"
)

// Parse reads HOCON text into a Tree. Blank input is an empty document.
func Parse(data []byte) (Tree, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}
	conf, err := hocon.ParseString(markNegativeNumbers(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if conf == nil {
		return New(), nil
	}
	root := conf.GetRoot()
	if root == nil {
		return New(), nil
	}
	obj, ok := root.(hocon.Object)
	if !ok {
		return nil, fmt.Errorf("%w: root is %T, want an object", ErrParse, root)
	}
	return fromObject(obj), nil
}

// numberMark prefixes unquoted negative numbers before the source reaches the
// parser. The parser scans -10 as an identifier and returns it as a String
// that cannot be told apart from a quoted "-10".
const numberMark = '\ue000'

var negativeInt = regexp.MustCompile(`^-[0-9]+$`)

// newScanner is configured like the parser's own scanner so both see the same
// tokens.
func newScanner(src string) *scanner.Scanner {
	s := new(scanner.Scanner)
	s.Init(strings.NewReader(src))
	s.Whitespace ^= 1<<'\t' | 1<<' '
	s.Error = func(*scanner.Scanner, string) {}
	s.IsIdentRune = func(ch rune, i int) bool {
		return ch == '_' || ch == '-' || unicode.IsLetter(ch) || unicode.IsDigit(ch) && i > 0
	}
	return s
}

// markNegativeNumbers rewrites every unquoted negative number token into a
// quoted string starting with numberMark. Quoted strings, multi-line strings
// and comments pass through untouched.
func markNegativeNumbers(src string) string {
	if !strings.Contains(src, "-") {
		return src
	}
	type span struct{ start, end int }
	var spans []span

	s := newScanner(src)
	tok := s.Scan()
	for tok != scanner.EOF {
		text := s.TokenText()
		switch {
		case tok == scanner.String && text == `""` && s.Peek() == '"':
			skipMultiLineString(s)
		case tok == '#':
			skipLine(s)
		case tok == scanner.Ident && negativeInt.MatchString(text):
			start := s.Position.Offset
			end := start + len(text)
			tok = s.Scan()
			if tok == scanner.Float && s.Position.Offset == end && strings.HasPrefix(s.TokenText(), ".") {
				end += len(s.TokenText())
				tok = s.Scan()
			}
			spans = append(spans, span{start: start, end: end})
			continue
		}
		tok = s.Scan()
	}
	if len(spans) == 0 {
		return src
	}

	var b strings.Builder
	b.Grow(len(src) + len(spans)*5)
	last := 0
	for _, sp := range spans {
		b.WriteString(src[last:sp.start])
		b.WriteByte('"')
		b.WriteRune(numberMark)
		b.WriteString(src[sp.start:sp.end])
		b.WriteByte('"')
		last = sp.end
	}
	b.WriteString(src[last:])
	return b.String()
}

func skipMultiLineString(s *scanner.Scanner) {
	s.Next()
	quotes := 0
	for ch := s.Next(); ch != scanner.EOF; ch = s.Next() {
		if ch == '"' {
			quotes++
		} else {
			quotes = 0
		}
		if quotes >= 3 && s.Peek() != '"' {
			return
		}
	}
}

func skipLine(s *scanner.Scanner) {
	for ch := s.Peek(); ch != '\n' && ch != scanner.EOF; ch = s.Peek() {
		s.Next()
	}
}

func fromObject(obj hocon.Object) map[string]any {
	out := make(map[string]any, len(obj))
	for key, value := range obj {
		key = strings.TrimPrefix(key, string(numberMark))
		out[unescape(key)] = fromValue(value)
	}
	return out
}

func fromValue(value hocon.Value) any {
	switch v := value.(type) {
	case nil:
		return nil
	case hocon.Object:
		return fromObject(v)
	case hocon.Array:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, fromValue(item))
		}
		return out
	case hocon.String:
		return fromString(string(v))
	case hocon.Int:
		return int(v)
	case hocon.Float32:
		return float64(v)
	case hocon.Float64:
		return float64(v)
	case hocon.Boolean:
		return bool(v)
	}
	switch value.Type() {
	case hocon.NullType:
		return nil
	case hocon.ConcatenationType:
		return fromConcatenation(value)
	}
	return value.String()
}

func fromString(s string) any {
	if text, ok := strings.CutPrefix(s, string(numberMark)); ok {
		if n, err := strconv.Atoi(text); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
		return text
	}
	return unescape(s)
}

// fromConcatenation joins the parts of an unquoted value such as
// `a "b" c`. The concatenation type is unexported, so its parts are read
// through reflection.
func fromConcatenation(value hocon.Value) any {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return value.String()
	}
	var b strings.Builder
	for i := 0; i < rv.Len(); i++ {
		part, ok := rv.Index(i).Interface().(hocon.Value)
		if !ok || part == nil {
			continue
		}
		if str, isString := part.(hocon.String); isString {
			b.WriteString(unescape(strings.TrimPrefix(string(str), string(numberMark))))
			continue
		}
		b.WriteString(part.String())
	}
	return b.String()
}

// unescape decodes the JSON-style escapes the parser leaves in quoted
// strings. Unquoted tokens cannot contain a backslash, so text without one is
// returned as is. The parser trims every surrounding quote, which also eats
// the quote of a trailing \" escape; an odd run of trailing backslashes
// means that quote has to be put back.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	if trailing := len(s) - len(strings.TrimRight(s, `\`)); trailing%2 == 1 {
		s += `"`
	}

	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		if strings.HasPrefix(s, `\/`) {
			b.WriteByte('/')
			s = s[2:]
			continue
		}
		if r, rest, ok := surrogatePair(s); ok {
			b.WriteRune(r)
			s = rest
			continue
		}
		r, multibyte, tail, err := strconv.UnquoteChar(s, '"')
		if err != nil {
			b.WriteByte(s[0])
			s = s[1:]
			continue
		}
		if multibyte {
			b.WriteRune(r)
		} else {
			b.WriteByte(byte(r))
		}
		s = tail
	}
	return b.String()
}

// surrogatePair decodes a \uXXXX\uXXXX UTF-16 pair, which strconv rejects.
func surrogatePair(s string) (rune, string, bool) {
	if len(s) < 12 || s[0] != '\\' || s[1] != 'u' || s[6] != '\\' || s[7] != 'u' {
		return 0, s, false
	}
	hi, err := strconv.ParseUint(s[2:6], 16, 32)
	if err != nil || !utf16.IsSurrogate(rune(hi)) {
		return 0, s, false
	}
	lo, err := strconv.ParseUint(s[8:12], 16, 32)
	if err != nil {
		return 0, s, false
	}
	r := utf16.DecodeRune(rune(hi), rune(lo))
	if r == unicode.ReplacementChar {
		return 0, s, false
	}
	return r, s[12:], true
}

var bareKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

var reservedKeys = map[string]struct{}{
	"include": {},
	"true":    {},
	"false":   {},
	"null":    {},
}

// Encode renders tree as HOCON. Keys are sorted so output is stable, strings
// are always quoted with JSON escaping and keys that are not plain words are
// quoted the same way, so user text can never alter the document structure.
func Encode(tree Tree) []byte {
	var buf bytes.Buffer
	writeFields(&buf, tree, 0)
	return buf.Bytes()
}

func writeFields(buf *bytes.Buffer, m map[string]any, depth int) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	indent := strings.Repeat("  ", depth)
	for _, key := range keys {
		buf.WriteString(indent)
		buf.WriteString(encodeKey(key))
		value := m[key]
		if child, ok := Mapping(value); ok {
			buf.WriteByte(' ')
			writeObject(buf, child, depth)
			buf.WriteByte('\n')
			continue
		}
		buf.WriteString(" = ")
		writeValue(buf, value, depth)
		buf.WriteByte('\n')
	}
}

func writeObject(buf *bytes.Buffer, m map[string]any, depth int) {
	if len(m) == 0 {
		buf.WriteString("{}")
		return
	}
	buf.WriteString("{\n")
	writeFields(buf, m, depth+1)
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteByte('}')
}

func writeValue(buf *bytes.Buffer, value any, depth int) {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case map[string]any:
		writeObject(buf, v, depth)
	case []any:
		writeList(buf, v, depth)
	case string:
		buf.WriteString(quote(v))
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int:
		buf.WriteString(strconv.Itoa(v))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case float64:
		buf.WriteString(formatFloat(v))
	case float32:
		buf.WriteString(formatFloat(float64(v)))
	default:
		buf.WriteString(quote(fmt.Sprint(v)))
	}
}

func writeList(buf *bytes.Buffer, items []any, depth int) {
	if len(items) == 0 {
		buf.WriteString("[]")
		return
	}
	buf.WriteString("[\n")
	inner := strings.Repeat("  ", depth+1)
	for i, item := range items {
		buf.WriteString(inner)
		writeValue(buf, item, depth+1)
		if i < len(items)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteByte(']')
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return quote(strconv.FormatFloat(f, 'g', -1, 64))
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func encodeKey(key string) string {
	if _, reserved := reservedKeys[key]; !reserved && bareKey.MatchString(key) {
		return key
	}
	return quote(key)
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	out := strings.TrimSuffix(buf.String(), "\n")
	return strings.ReplaceAll(out, string(numberMark), `\ue000`)
}

// Codec adapts Parse and Encode to the state.Codec contract.
type Codec struct{}

// HOCON is the codec used for marker documents.
var HOCON Codec

func (Codec) Decode(data []byte) (Tree, error) {
	return Parse(data)
}

func (Codec) Encode(tree Tree) ([]byte, error) {
	if tree == nil {
		tree = New()
	}
	return Encode(tree), nil
}
